package services

import (
	"context"
	"strings"

	"pharmastore/internal/apperr"
	"pharmastore/internal/domain"
	"pharmastore/internal/repos"
	"pharmastore/internal/validate"
)

type CatalogService struct {
	Prods *repos.ProductRepo
}

func NewCatalogService(prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Prods: prods}
}

func (s *CatalogService) Search(ctx context.Context, f repos.ProductFilter) ([]domain.Product, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	out, err := s.Prods.Search(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (domain.Product, error) {
	id, ok := validate.ID(id)
	if !ok {
		return domain.Product{}, apperr.NotFound("product not found")
	}
	p, err := s.Prods.Get(ctx, id)
	if repos.IsNoRows(err) {
		return domain.Product{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return domain.Product{}, apperr.Internal(err)
	}
	return p, nil
}

// ByIDs returns the known products among ids; unknown ids are dropped.
func (s *CatalogService) ByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id, ok := validate.ID(id); ok {
			clean = append(clean, id)
		}
	}
	out, err := s.Prods.ByIDs(ctx, clean)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	out, err := s.Prods.Categories(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *CatalogService) Count(ctx context.Context) (int, error) {
	n, err := s.Prods.Count(ctx)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	id, ok := validate.ID(id)
	if !ok {
		return domain.Product{}, apperr.NotFound("product not found")
	}
	if patch.Empty() {
		return domain.Product{}, apperr.Validation("no fields to update")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return domain.Product{}, apperr.Validation("name must not be empty")
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return domain.Product{}, apperr.Validation("category must not be empty")
	}
	if err := validate.Struct(patch); err != nil {
		return domain.Product{}, err
	}
	p, err := s.Prods.Update(ctx, id, patch)
	if repos.IsNoRows(err) {
		return domain.Product{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return domain.Product{}, apperr.Internal(err)
	}
	return p, nil
}
