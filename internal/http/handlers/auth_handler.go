package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pharmastore/internal/apperr"
	"pharmastore/internal/log"
	"pharmastore/internal/services"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type loginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	SessionID string `json:"sessionId"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.Credentials
	if err := bind(c, &in); err != nil {
		return err
	}
	u, err := h.Auth.Register(c.UserContext(), in)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			log.Security(c, "auth.register.conflict", map[string]any{"username": in.Username})
		}
		return err
	}
	c.Locals("user_id", u.ID)
	log.Audit(c, "auth.register.success", map[string]any{"username": u.Username})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": u})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := bind(c, &in); err != nil {
		return err
	}
	sess, err := h.Auth.Login(c.UserContext(), services.Credentials{Username: in.Username, Password: in.Password}, in.SessionID)
	if err != nil {
		if k := apperr.KindOf(err); k == apperr.KindNotFound || k == apperr.KindUnauthorized {
			log.Security(c, "auth.login.fail", map[string]any{"username": in.Username, "reason": string(k)})
		}
		return err
	}
	c.Locals("user_id", sess.User.ID)
	log.Audit(c, "auth.login.success", map[string]any{"username": sess.User.Username, "merged_session": in.SessionID != ""})
	return c.JSON(sess)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims := currentUser(c)
	if claims == nil {
		return apperr.Unauthorized("authentication required")
	}
	u, err := h.Auth.Me(c.UserContext(), claims.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": u})
}
