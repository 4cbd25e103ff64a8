package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"pharmastore/internal/apperr"
	"pharmastore/internal/domain"
	"pharmastore/internal/log"
	"pharmastore/internal/services"
)

func bearer(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// OptionalUser attaches the token's claims when a valid bearer token is
// sent. Requests without one continue anonymously.
func OptionalUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := bearer(c)
		if tok == "" {
			return c.Next()
		}
		claims, err := auth.Authenticate(tok)
		if err != nil {
			log.Security(c, "auth.token.invalid", nil)
			return c.Next()
		}
		c.Locals("user", claims)
		c.Locals("user_id", claims.ID)
		return c.Next()
	}
}

// RequireUser rejects requests that carry no valid bearer token.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) != nil {
			return c.Next()
		}
		tok := bearer(c)
		if tok == "" {
			log.Security(c, "access.denied", map[string]any{"reason": "no_token"})
			return apperr.Unauthorized("authentication required")
		}
		claims, err := auth.Authenticate(tok)
		if err != nil {
			log.Security(c, "access.denied", map[string]any{"reason": "bad_token"})
			return err
		}
		c.Locals("user", claims)
		c.Locals("user_id", claims.ID)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *services.Claims {
	claims, _ := c.Locals("user").(*services.Claims)
	return claims
}

// cartOwner addresses the user's cart when authenticated, the
// session cart otherwise.
func cartOwner(c *fiber.Ctx, sessionID string) domain.CartOwner {
	owner := domain.CartOwner{SessionID: strings.TrimSpace(sessionID)}
	if u := currentUser(c); u != nil {
		owner.UserID = u.ID
	}
	return owner
}
