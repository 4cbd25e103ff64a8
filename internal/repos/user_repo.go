package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"pharmastore/internal/domain"
)

var ErrUsernameTaken = errors.New("username already taken")

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// ByUsername returns sql.ErrNoRows when no user matches.
func (r *UserRepo) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `
		SELECT id,username,password_hash,COALESCE(created_at,'') AS created_at
		FROM users WHERE LOWER(username)=LOWER(?)`, username)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `
		SELECT id,username,password_hash,COALESCE(created_at,'') AS created_at
		FROM users WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts the user together with its empty cart.
func (r *UserRepo) Create(ctx context.Context, username, hash string) (*domain.User, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM users WHERE LOWER(username)=LOWER(?)`, username); err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, ErrUsernameTaken
	}

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `INSERT INTO users(id,username,password_hash) VALUES(?,?,?)`, id, username, hash); err != nil {
		// lost a race against a concurrent registration
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO carts(id,owner_key,user_id,updated_at) VALUES(?,?,?,CURRENT_TIMESTAMP)`,
		uuid.NewString(), domain.CartOwner{UserID: id}.Key(), id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.ByID(ctx, id)
}

func IsNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
