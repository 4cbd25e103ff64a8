package server_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"pharmastore/internal/assistant"
)

func TestChatUnavailableWithoutModel(t *testing.T) {
	app := newApp(t, nil, noLimits)
	resp, body := do(t, app, "POST", "/api/ai-chat", map[string]any{"message": "oi", "sessionId": "s"}, "")
	expectStatus(t, resp, body, http.StatusServiceUnavailable)
	if body["error"] != "assistant unavailable" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestChatValidation(t *testing.T) {
	app := newApp(t, &fakeModel{}, noLimits)
	resp, body := do(t, app, "POST", "/api/ai-chat", map[string]any{"sessionId": "s"}, "")
	expectStatus(t, resp, body, http.StatusBadRequest)
	resp, body = do(t, app, "POST", "/api/ai-chat", map[string]any{"message": "oi"}, "")
	expectStatus(t, resp, body, http.StatusBadRequest)
}

func TestChatOverlayAndCartAreRoutedSeparately(t *testing.T) {
	model := &fakeModel{replies: []assistant.Reply{
		{ToolCalls: []assistant.ToolCall{
			{ID: "1", Name: assistant.ToolShowProducts, Args: json.RawMessage(`{"productIds":["vitamina-c-1g"],"title":"Vitamina C"}`)},
			{ID: "2", Name: assistant.ToolAddToCart, Args: json.RawMessage(`{"productId":"vitamina-c-1g"}`)},
		}},
		{Content: "Adicionei a Vitamina C ao carrinho."},
	}}
	app := newApp(t, model, noLimits)

	resp, body := do(t, app, "POST", "/api/ai-chat", map[string]any{"message": "quero vitamina c", "sessionId": "chat-1"}, "")
	expectStatus(t, resp, body, http.StatusOK)

	if body["response"] != "Adicionei a Vitamina C ao carrinho." {
		t.Fatalf("unexpected response text: %v", body["response"])
	}
	overlay, ok := body["overlay"].(map[string]any)
	if !ok || overlay["title"] != "Vitamina C" {
		t.Fatalf("overlay overwritten or missing: %v", body["overlay"])
	}
	cart, ok := body["cart"].(map[string]any)
	if !ok || cart["itemCount"].(float64) != 1 {
		t.Fatalf("cart missing: %v", body["cart"])
	}
	results := body["toolResults"].([]any)
	if len(results) != 2 || results[1].(map[string]any)["kind"] != "cart" {
		t.Fatalf("tool results not tagged: %v", results)
	}

	// the chat wrote to the same cart the REST API reads
	resp, body = do(t, app, "GET", "/api/cart?sessionId=chat-1", nil, "")
	expectStatus(t, resp, body, http.StatusOK)
	if cartOf(t, body)["itemCount"].(float64) != 1 {
		t.Fatalf("cart not shared: %v", body)
	}
}

func TestChatWithTokenNeedsNoSession(t *testing.T) {
	model := &fakeModel{replies: []assistant.Reply{
		{ToolCalls: []assistant.ToolCall{{ID: "1", Name: assistant.ToolAddToCart, Args: json.RawMessage(`{"productId":"dipirona-500"}`)}}},
		{Content: "Pronto."},
	}}
	app := newApp(t, model, noLimits)
	resp, body := do(t, app, "POST", "/api/auth/register", map[string]any{"username": "lia", "password": "1234"}, "")
	expectStatus(t, resp, body, http.StatusCreated)
	tok := login(t, app, "lia", "1234")

	resp, body = do(t, app, "POST", "/api/ai-chat", map[string]any{"message": "dipirona"}, tok)
	expectStatus(t, resp, body, http.StatusOK)
	cart, ok := body["cart"].(map[string]any)
	if !ok || cart["userId"] == nil || cart["itemCount"].(float64) != 1 {
		t.Fatalf("expected the user cart, got %v", body["cart"])
	}
}
