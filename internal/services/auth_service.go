package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pharmastore/internal/apperr"
	"pharmastore/internal/domain"
	"pharmastore/internal/repos"
	"pharmastore/internal/validate"
)

type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=4,max=72"`
}

type Session struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
}

type AuthService struct {
	Users  *repos.UserRepo
	Carts  CartStore
	Tokens *Tokens
	Cost   int
}

func NewAuthService(users *repos.UserRepo, carts CartStore, tokens *Tokens) *AuthService {
	return &AuthService{Users: users, Carts: carts, Tokens: tokens, Cost: bcrypt.DefaultCost}
}

func (s *AuthService) Register(ctx context.Context, in Credentials) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.Cost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u, err := s.Users.Create(ctx, in.Username, string(hash))
	if errors.Is(err, repos.ErrUsernameTaken) {
		return nil, apperr.Conflict("username already taken")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Login checks credentials and issues a token. A non-empty sessionID
// folds that anonymous cart into the user's cart.
func (s *AuthService) Login(ctx context.Context, in Credentials, sessionID string) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	u, err := s.Users.ByUsername(ctx, in.Username)
	if repos.IsNoRows(err) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(in.Password)) != nil {
		return nil, apperr.Unauthorized("invalid username or password")
	}
	tok, exp, err := s.Tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if sessionID != "" && s.Carts != nil {
		if err := s.Carts.Merge(ctx, sessionID, u.ID); err != nil {
			return nil, apperr.Internal(err)
		}
	}
	return &Session{User: u, Token: tok, ExpiresAt: exp.UTC().Format("2006-01-02T15:04:05Z07:00")}, nil
}

// Authenticate resolves a bearer token to its claims.
func (s *AuthService) Authenticate(token string) (*Claims, error) {
	c, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	return c, nil
}

func (s *AuthService) Me(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Users.ByID(ctx, id)
	if repos.IsNoRows(err) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}
