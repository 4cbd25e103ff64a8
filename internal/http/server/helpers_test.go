package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"pharmastore/internal/assistant"
	"pharmastore/internal/config"
	"pharmastore/internal/http/handlers"
	"pharmastore/internal/http/server"
	"pharmastore/internal/repos"
)

// fakeModel replays canned replies in order.
type fakeModel struct{ replies []assistant.Reply }

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) Complete(context.Context, string, []assistant.Message, []assistant.ToolSpec) (assistant.Reply, error) {
	if len(f.replies) == 0 {
		return assistant.Reply{Content: "ok"}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func newApp(t *testing.T, model assistant.Model, limits server.Limits) *fiber.App {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cfg := config.Config{DBDSN: ":memory:", JWTSecret: "test-secret"}
	deps := handlers.NewDeps(db, cfg, model, nil)
	deps.Auth.Cost = 4
	if limits == (server.Limits{}) {
		limits = server.Limits{LoginMax: 100, LoginWindow: time.Minute, ChatMax: 100, ChatWindow: time.Minute}
	}
	return server.New(deps, server.Options{Limits: limits})
}

func do(t *testing.T, app *fiber.App, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func expectStatus(t *testing.T, resp *http.Response, body map[string]any, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d body=%v", want, resp.StatusCode, body)
	}
}

func login(t *testing.T, app *fiber.App, user, pass string) string {
	t.Helper()
	resp, body := do(t, app, "POST", "/api/auth/login", map[string]any{"username": user, "password": pass}, "")
	expectStatus(t, resp, body, http.StatusOK)
	tok, _ := body["token"].(string)
	if tok == "" {
		t.Fatalf("token missing: %v", body)
	}
	return tok
}

var noLimits = server.Limits{}
