package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"pharmastore/internal/apperr"
	"pharmastore/internal/log"
	"pharmastore/internal/repos"
	"pharmastore/internal/services"
)

type SearchHandler struct {
	Catalog *services.CatalogService
}

// Search serves GET /api/products?search=&category=&limit=.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	f := repos.ProductFilter{Term: c.Query("search"), Category: c.Query("category")}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			log.Security(c, "validation.fail", map[string]any{"field": "limit"})
			return apperr.Validation("limit must be an integer")
		}
		f.Limit = n
	}
	products, err := h.Catalog.Search(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(products)
}
