package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pharmastore/internal/apperr"
	"pharmastore/internal/assistant"
	"pharmastore/internal/log"
)

type ChatHandler struct {
	Assistant *assistant.Orchestrator
}

func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var in assistant.Request
	if err := bind(c, &in); err != nil {
		return err
	}
	in.Owner = cartOwner(c, in.SessionID)
	resp, err := h.Assistant.Chat(c.UserContext(), in)
	if err != nil {
		if apperr.Is(err, apperr.KindUpstream) {
			log.Error(c, "chat.upstream", err, nil)
		}
		return err
	}
	tools := make([]string, 0, len(resp.ToolResults))
	for _, r := range resp.ToolResults {
		tools = append(tools, r.Tool)
	}
	log.Info(c, "chat.turn", map[string]any{"tools": tools, "overlay": resp.Overlay != nil})
	return c.JSON(resp)
}
