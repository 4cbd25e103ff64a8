package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pharmastore/internal/domain"
	"pharmastore/internal/log"
	"pharmastore/internal/services"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	p, err := h.Catalog.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var patch domain.ProductPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	p, err := h.Catalog.Update(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	log.Audit(c, "product.update", map[string]any{"product_id": p.ID})
	return c.JSON(fiber.Map{"product": p})
}
