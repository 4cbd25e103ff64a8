package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pharmastore/internal/services"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
	Chat    bool
}

func (h *CategoryHandler) List(c *fiber.Ctx) error {
	cats, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

// Home renders the storefront shell with the category list.
func (h *CategoryHandler) Home(c *fiber.Ctx) error {
	cats, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return err
	}
	n, err := h.Catalog.Count(c.UserContext())
	if err != nil {
		return err
	}
	return c.Render("index", fiber.Map{
		"Categories": cats,
		"Count":      n,
		"Chat":       h.Chat,
	})
}
