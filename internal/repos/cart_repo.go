package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pharmastore/internal/domain"
)

var (
	ErrNoOwner           = errors.New("cart owner is empty")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// CartRepo is the single cart store, keyed by CartOwner.Key().
type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func ensureCart(ctx context.Context, q queryer, owner domain.CartOwner) (string, error) {
	key := owner.Key()
	if key == "" {
		return "", ErrNoOwner
	}
	var userID, sessionID sql.NullString
	if owner.UserID != "" {
		userID = sql.NullString{String: owner.UserID, Valid: true}
	} else {
		sessionID = sql.NullString{String: owner.SessionID, Valid: true}
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO carts(id,owner_key,user_id,session_id,updated_at)
		VALUES(?,?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(owner_key) DO NOTHING`,
		uuid.NewString(), key, userID, sessionID); err != nil {
		return "", err
	}
	var cartID string
	if err := q.GetContext(ctx, &cartID, `SELECT id FROM carts WHERE owner_key = ?`, key); err != nil {
		return "", err
	}
	return cartID, nil
}

func touch(ctx context.Context, q queryer, cartID string) error {
	_, err := q.ExecContext(ctx, `UPDATE carts SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, cartID)
	return err
}

// Get returns the owner's cart, creating an empty one on first use.
// Prices come from the products table at read time.
func (r *CartRepo) Get(ctx context.Context, owner domain.CartOwner) (domain.Cart, error) {
	cartID, err := ensureCart(ctx, r.db, owner)
	if err != nil {
		return domain.Cart{}, err
	}
	lines := []domain.CartLine{}
	if err := r.db.SelectContext(ctx, &lines, `
	  SELECT ci.product_id, p.name, p.price, p.prescription, ci.qty
	  FROM cart_items ci JOIN products p ON p.id = ci.product_id
	  WHERE ci.cart_id = ?
	  ORDER BY ci.created_at, p.name
	`, cartID); err != nil {
		return domain.Cart{}, err
	}
	cart := domain.Cart{ID: cartID, SessionID: owner.SessionID, UserID: owner.UserID, Items: lines}
	Totals(&cart)
	return cart, nil
}

// Totals recomputes subtotals, item count and total with decimal
// arithmetic, rounded to cents.
func Totals(cart *domain.Cart) {
	total := decimal.Zero
	count := 0
	for i := range cart.Items {
		it := &cart.Items[i]
		sub := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		it.Subtotal = sub.InexactFloat64()
		total = total.Add(sub)
		count += it.Quantity
	}
	cart.ItemCount = count
	cart.Total = total.Round(2).InexactFloat64()
}

func productStock(ctx context.Context, q queryer, productID string) (int, error) {
	var stock int
	err := q.GetContext(ctx, &stock, `SELECT stock FROM products WHERE id = ?`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	return stock, err
}

// AddItem adds qty to the line for productID, creating it if needed.
func (r *CartRepo) AddItem(ctx context.Context, owner domain.CartOwner, productID string, qty int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cartID, err := ensureCart(ctx, tx, owner)
	if err != nil {
		return err
	}
	stock, err := productStock(ctx, tx, productID)
	if err != nil {
		return err
	}
	var current int
	if err := tx.GetContext(ctx, &current, `
		SELECT COALESCE(SUM(qty),0) FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID); err != nil {
		return err
	}
	if current+qty > stock {
		return fmt.Errorf("%w: %s has %d available", ErrInsufficientStock, productID, stock)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cart_items(cart_id,product_id,qty,created_at,updated_at)
		VALUES(?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)
		ON CONFLICT(cart_id,product_id) DO UPDATE
		SET qty = cart_items.qty + excluded.qty, updated_at = CURRENT_TIMESTAMP
	`, cartID, productID, qty); err != nil {
		return err
	}
	if err := touch(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit()
}

// SetQuantity replaces the line quantity; qty <= 0 removes the line.
// An unknown product is ErrProductNotFound either way.
func (r *CartRepo) SetQuantity(ctx context.Context, owner domain.CartOwner, productID string, qty int) error {
	if qty <= 0 {
		if _, err := productStock(ctx, r.db, productID); err != nil {
			return err
		}
		_, err := r.RemoveItem(ctx, owner, productID)
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cartID, err := ensureCart(ctx, tx, owner)
	if err != nil {
		return err
	}
	stock, err := productStock(ctx, tx, productID)
	if err != nil {
		return err
	}
	if qty > stock {
		return fmt.Errorf("%w: %s has %d available", ErrInsufficientStock, productID, stock)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cart_items(cart_id,product_id,qty,created_at,updated_at)
		VALUES(?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)
		ON CONFLICT(cart_id,product_id) DO UPDATE
		SET qty = excluded.qty, updated_at = CURRENT_TIMESTAMP
	`, cartID, productID, qty); err != nil {
		return err
	}
	if err := touch(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveItem deletes the line for productID and reports whether it existed.
func (r *CartRepo) RemoveItem(ctx context.Context, owner domain.CartOwner, productID string) (bool, error) {
	cartID, err := ensureCart(ctx, r.db, owner)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		_ = touch(ctx, r.db, cartID)
	}
	return n > 0, nil
}

func (r *CartRepo) Clear(ctx context.Context, owner domain.CartOwner) error {
	cartID, err := ensureCart(ctx, r.db, owner)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return err
	}
	return touch(ctx, r.db, cartID)
}

// Merge moves the anonymous session cart into the user's cart, summing
// quantities (capped at stock), then drops the session cart.
func (r *CartRepo) Merge(ctx context.Context, sessionID, userID string) error {
	if sessionID == "" || userID == "" {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var anonID string
	err = tx.GetContext(ctx, &anonID, `SELECT id FROM carts WHERE owner_key = ?`, domain.CartOwner{SessionID: sessionID}.Key())
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	userCartID, err := ensureCart(ctx, tx, domain.CartOwner{UserID: userID})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cart_items(cart_id, product_id, qty, created_at, updated_at)
		SELECT ?, ci.product_id, MIN(ci.qty, p.stock), CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
		FROM cart_items ci JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ? AND p.stock > 0
		ON CONFLICT(cart_id, product_id) DO UPDATE SET
		  qty = MIN(cart_items.qty + excluded.qty, (SELECT stock FROM products WHERE id = excluded.product_id)),
		  updated_at = CURRENT_TIMESTAMP
	`, userCartID, anonID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, anonID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = ?`, anonID); err != nil {
		return err
	}
	if err := touch(ctx, tx, userCartID); err != nil {
		return err
	}
	return tx.Commit()
}
