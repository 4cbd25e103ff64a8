package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pharmastore/internal/log"
	"pharmastore/internal/warmup"
)

type WarmupHandler struct {
	Checker *warmup.Checker
}

func (h *WarmupHandler) Warmup(c *fiber.Ctx) error {
	st, err := h.Checker.Check(c.UserContext())
	if err != nil {
		log.Error(c, "warmup.db_down", err, nil)
		return c.Status(fiber.StatusServiceUnavailable).JSON(st)
	}
	return c.JSON(st)
}
