package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"pharmastore/internal/apperr"
	"pharmastore/internal/log"
)

const genericMessage = "Something went wrong. Please try again."

// ErrorHandler turns handler errors into {"error": msg} responses.
// Server-side causes are logged, never sent to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		code int
		msg  string
		fe   *fiber.Error
	)
	if errors.As(err, &fe) {
		code, msg = fe.Code, fe.Message
		if code >= fiber.StatusInternalServerError {
			msg = genericMessage
		}
	} else {
		code, msg = apperr.Status(err), apperr.PublicMessage(err)
	}

	c.Status(code)
	switch {
	case code >= fiber.StatusInternalServerError:
		log.Error(c, "server.error", err, nil)
	case code == fiber.StatusUnauthorized || code == fiber.StatusForbidden:
		log.Security(c, "request.denied", map[string]any{"error": msg})
	case code == fiber.StatusBadRequest:
		log.Info(c, "validation.fail", map[string]any{"error": msg})
	}
	return c.JSON(fiber.Map{"error": msg})
}

// bind parses a JSON body into dst. Query parameters fill the same
// struct first so DELETE requests without a body still work.
func bind(c *fiber.Ctx, dst any) error {
	if len(c.Request().URI().QueryString()) > 0 {
		if err := c.QueryParser(dst); err != nil {
			return apperr.Validation("invalid query parameters")
		}
	}
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
