package repos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"

	"pharmastore/internal/apperr"
	"pharmastore/internal/domain"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 100
)

// ProductFilter is the only way to build a product search query.
// Call Normalize before handing it to Search.
type ProductFilter struct {
	Term     string
	Category string
	Limit    int
}

// Normalize trims and bounds the filter, rejecting values no query
// should be built from.
func (f ProductFilter) Normalize() (ProductFilter, error) {
	f.Term = strings.TrimSpace(f.Term)
	f.Category = strings.TrimSpace(f.Category)
	if len([]rune(f.Term)) > 100 {
		return f, apperr.Validation("search term must be at most 100 characters")
	}
	if len([]rune(f.Category)) > 64 {
		return f, apperr.Validation("category must be at most 64 characters")
	}
	switch {
	case f.Limit < 0:
		return f, apperr.Validation("limit must be >= 0")
	case f.Limit == 0:
		f.Limit = DefaultSearchLimit
	case f.Limit > MaxSearchLimit:
		f.Limit = MaxSearchLimit
	}
	return f, nil
}

// where renders the filter into a WHERE clause and its arguments.
func (f ProductFilter) where() (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.Term != "" {
		like := "%" + escapeLike(strings.ToLower(f.Term)) + "%"
		clauses = append(clauses, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(manufacturer) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if f.Category != "" {
		clauses = append(clauses, `LOWER(category) = LOWER(?)`)
		args = append(args, f.Category)
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

const productCols = `id, name, description, price, category, manufacturer, stock, prescription`

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	return p, err
}

func (r *ProductRepo) Search(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	where, args := f.where()
	args = append(args, f.Limit)
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE `+where+`
	  ORDER BY LOWER(category), LOWER(name)
	  LIMIT ?`, args...)
	return out, err
}

// ByIDs returns the products that exist among ids, in catalog order.
func (r *ProductRepo) ByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	out := []domain.Product{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+productCols+` FROM products WHERE id IN (?) ORDER BY LOWER(category), LOWER(name)`, ids)
	if err != nil {
		return nil, err
	}
	err = r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...)
	return out, err
}

func (r *ProductRepo) Categories(ctx context.Context) ([]string, error) {
	out := []string{}
	err := r.db.SelectContext(ctx, &out, `SELECT DISTINCT category FROM products ORDER BY LOWER(category)`)
	return out, err
}

// Update applies a partial patch. Returns sql.ErrNoRows when id is unknown.
func (r *ProductRepo) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.Manufacturer != nil {
		add("manufacturer", *patch.Manufacturer)
	}
	if patch.Stock != nil {
		add("stock", *patch.Stock)
	}
	if patch.Prescription != nil {
		add("prescription", *patch.Prescription)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, id)
		res, err := r.db.ExecContext(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return domain.Product{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Product{}, sql.ErrNoRows
		}
	}
	return r.Get(ctx, id)
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products`)
	return n, err
}
