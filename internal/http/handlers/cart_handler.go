package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pharmastore/internal/apperr"
	"pharmastore/internal/log"
	"pharmastore/internal/metrics"
	"pharmastore/internal/services"
)

type CartHandler struct {
	Cart *services.CartService
}

type cartRequest struct {
	SessionID string `json:"sessionId" query:"sessionId"`
	ProductID string `json:"productId" query:"productId"`
	Quantity  *int   `json:"quantity" query:"quantity"`
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	cart, err := h.Cart.View(c.UserContext(), cartOwner(c, c.Query("sessionId")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cart": cart})
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	var in cartRequest
	if err := bind(c, &in); err != nil {
		return err
	}
	qty := 1
	if in.Quantity != nil {
		if *in.Quantity < 1 {
			return apperr.Validation("quantity must be >= 1")
		}
		qty = *in.Quantity
	}
	cart, err := h.Cart.Add(c.UserContext(), cartOwner(c, in.SessionID), in.ProductID, qty)
	if err != nil {
		return err
	}
	metrics.CartMutations.WithLabelValues("add").Inc()
	log.Info(c, "cart.add", map[string]any{"product_id": in.ProductID, "qty": qty})
	return c.JSON(fiber.Map{"cart": cart})
}

func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	var in cartRequest
	if err := bind(c, &in); err != nil {
		return err
	}
	if in.Quantity == nil {
		return apperr.Validation("missing quantity")
	}
	cart, err := h.Cart.SetQuantity(c.UserContext(), cartOwner(c, in.SessionID), in.ProductID, *in.Quantity)
	if err != nil {
		return err
	}
	metrics.CartMutations.WithLabelValues("set").Inc()
	log.Info(c, "cart.set_quantity", map[string]any{"product_id": in.ProductID, "qty": *in.Quantity})
	return c.JSON(fiber.Map{"cart": cart})
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	var in cartRequest
	if err := bind(c, &in); err != nil {
		return err
	}
	cart, err := h.Cart.Remove(c.UserContext(), cartOwner(c, in.SessionID), in.ProductID)
	if err != nil {
		return err
	}
	metrics.CartMutations.WithLabelValues("remove").Inc()
	log.Info(c, "cart.remove", map[string]any{"product_id": in.ProductID})
	return c.JSON(fiber.Map{"removedProductId": in.ProductID, "cart": cart})
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	var in cartRequest
	if err := bind(c, &in); err != nil {
		return err
	}
	cart, err := h.Cart.Clear(c.UserContext(), cartOwner(c, in.SessionID))
	if err != nil {
		return err
	}
	metrics.CartMutations.WithLabelValues("clear").Inc()
	log.Info(c, "cart.clear", nil)
	return c.JSON(fiber.Map{"cart": cart})
}
