package services

import (
	"context"
	"errors"
	"strings"

	"pharmastore/internal/apperr"
	"pharmastore/internal/domain"
	"pharmastore/internal/repos"
	"pharmastore/internal/validate"
)

// CartStore is the one cart backend. repos.CartRepo implements it.
type CartStore interface {
	Get(ctx context.Context, owner domain.CartOwner) (domain.Cart, error)
	AddItem(ctx context.Context, owner domain.CartOwner, productID string, qty int) error
	SetQuantity(ctx context.Context, owner domain.CartOwner, productID string, qty int) error
	RemoveItem(ctx context.Context, owner domain.CartOwner, productID string) (bool, error)
	Clear(ctx context.Context, owner domain.CartOwner) error
	Merge(ctx context.Context, sessionID, userID string) error
}

var _ CartStore = (*repos.CartRepo)(nil)

type CartService struct {
	Store CartStore
}

func NewCartService(store CartStore) *CartService {
	return &CartService{Store: store}
}

func checkOwner(owner domain.CartOwner) (domain.CartOwner, error) {
	owner.SessionID = strings.TrimSpace(owner.SessionID)
	if owner.Key() == "" {
		return owner, apperr.Validation("sessionId is required")
	}
	if owner.UserID == "" {
		if _, ok := validate.ID(owner.SessionID); !ok {
			return owner, apperr.Validation("invalid sessionId")
		}
	}
	return owner, nil
}

func checkProduct(productID string) (string, error) {
	if strings.TrimSpace(productID) == "" {
		return "", apperr.Validation("productId is required")
	}
	id, ok := validate.ID(productID)
	if !ok {
		return "", apperr.Validation("invalid productId")
	}
	return id, nil
}

// storeErr maps store sentinels onto request errors.
func storeErr(err error, productID string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repos.ErrProductNotFound):
		return apperr.NotFound("product %s not found", productID)
	case errors.Is(err, repos.ErrInsufficientStock):
		return apperr.Validation("insufficient stock for %s", productID)
	case errors.Is(err, repos.ErrNoOwner):
		return apperr.Validation("sessionId is required")
	default:
		return apperr.Internal(err)
	}
}

func (s *CartService) View(ctx context.Context, owner domain.CartOwner) (domain.Cart, error) {
	owner, err := checkOwner(owner)
	if err != nil {
		return domain.Cart{}, err
	}
	cart, err := s.Store.Get(ctx, owner)
	return cart, storeErr(err, "")
}

// Add puts qty units of productID in the cart. qty < 1 means one unit.
func (s *CartService) Add(ctx context.Context, owner domain.CartOwner, productID string, qty int) (domain.Cart, error) {
	owner, err := checkOwner(owner)
	if err != nil {
		return domain.Cart{}, err
	}
	if productID, err = checkProduct(productID); err != nil {
		return domain.Cart{}, err
	}
	if err := storeErr(s.Store.AddItem(ctx, owner, productID, validate.ClampQty(qty)), productID); err != nil {
		return domain.Cart{}, err
	}
	return s.View(ctx, owner)
}

func (s *CartService) SetQuantity(ctx context.Context, owner domain.CartOwner, productID string, qty int) (domain.Cart, error) {
	owner, err := checkOwner(owner)
	if err != nil {
		return domain.Cart{}, err
	}
	if productID, err = checkProduct(productID); err != nil {
		return domain.Cart{}, err
	}
	if qty < 0 {
		return domain.Cart{}, apperr.Validation("quantity must be >= 0")
	}
	if qty > validate.MaxQty {
		qty = validate.MaxQty
	}
	if err := storeErr(s.Store.SetQuantity(ctx, owner, productID, qty), productID); err != nil {
		return domain.Cart{}, err
	}
	return s.View(ctx, owner)
}

// Remove drops the line for productID. A product that is not in the
// cart is a NotFound and leaves the cart untouched.
func (s *CartService) Remove(ctx context.Context, owner domain.CartOwner, productID string) (domain.Cart, error) {
	owner, err := checkOwner(owner)
	if err != nil {
		return domain.Cart{}, err
	}
	if productID, err = checkProduct(productID); err != nil {
		return domain.Cart{}, err
	}
	removed, err := s.Store.RemoveItem(ctx, owner, productID)
	if err != nil {
		return domain.Cart{}, storeErr(err, productID)
	}
	if !removed {
		return domain.Cart{}, apperr.NotFound("item not found in cart")
	}
	return s.View(ctx, owner)
}

func (s *CartService) Clear(ctx context.Context, owner domain.CartOwner) (domain.Cart, error) {
	owner, err := checkOwner(owner)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := storeErr(s.Store.Clear(ctx, owner), ""); err != nil {
		return domain.Cart{}, err
	}
	return s.View(ctx, owner)
}
