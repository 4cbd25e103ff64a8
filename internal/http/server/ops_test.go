package server_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pharmastore/internal/apperr"
	"pharmastore/internal/http/handlers"
	"pharmastore/internal/http/server"
	applog "pharmastore/internal/log"
)

func TestWarmupHealthMetricsAndIndex(t *testing.T) {
	app := newApp(t, nil, noLimits)

	resp, body := do(t, app, "GET", "/api/warmup", nil, "")
	expectStatus(t, resp, body, http.StatusOK)
	if body["status"] != "ok" || body["db"] != "ok" {
		t.Fatalf("unexpected warmup: %v", body)
	}
	if _, ok := body["uptime"].(float64); !ok {
		t.Fatalf("uptime missing: %v", body)
	}
	resp, body = do(t, app, "POST", "/api/warmup", nil, "")
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = do(t, app, "GET", "/healthz", nil, "")
	expectStatus(t, resp, body, http.StatusOK)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "go_goroutines") {
		t.Fatalf("metrics: %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	raw, _ = io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "Analgésicos") {
		t.Fatalf("index page: %d %s", resp.StatusCode, raw)
	}
}

func TestErrorHandlerNeverLeaksInternals(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Get("/internal", func(c *fiber.Ctx) error {
		return apperr.Internal(errors.New("db timeout: secret trace"))
	})
	app.Get("/raw", func(c *fiber.Ctx) error {
		return errors.New("plain secret trace")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "stack: secret trace")
	})
	app.Get("/panic", func(c *fiber.Ctx) error { panic("secret trace") })

	for _, path := range []string{"/internal", "/raw", "/fiber", "/panic"} {
		resp, body := do(t, app, "GET", path, nil, "")
		expectStatus(t, resp, body, http.StatusInternalServerError)
		msg, _ := body["error"].(string)
		if strings.Contains(msg, "secret") || !strings.Contains(msg, "Something went wrong") {
			t.Fatalf("%s leaked or missing friendly message: %q", path, msg)
		}
	}

	full := newApp(t, nil, noLimits)
	resp, body := do(t, full, "GET", "/api/nope", nil, "")
	expectStatus(t, resp, body, http.StatusNotFound)
}

func TestLoginRateLimit(t *testing.T) {
	app := newApp(t, nil, server.Limits{LoginMax: 2, LoginWindow: time.Minute, ChatMax: 100, ChatWindow: time.Minute})
	for i := 0; i < 3; i++ {
		resp, body := do(t, app, "POST", "/api/auth/login", map[string]any{"username": "ghost", "password": "x1234"}, "")
		if i < 2 && resp.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("hit rate limit too early at %d", i)
		}
		if i == 2 {
			expectStatus(t, resp, body, http.StatusTooManyRequests)
		}
	}
}

func TestBodySizeLimit(t *testing.T) {
	app := newApp(t, nil, noLimits)
	oversize := bytes.Repeat([]byte("A"), server.MaxBodySize+10)
	req := httptest.NewRequest("POST", "/api/cart/add", bytes.NewReader(oversize))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	// fasthttp may refuse the body before a response is produced
	if err != nil {
		if strings.Contains(err.Error(), "body size exceeds") || strings.Contains(err.Error(), "too large") {
			return
		}
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversize, got %d", resp.StatusCode)
	}
}

func TestAuthEventsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	applog.Use(zap.New(core))
	t.Cleanup(func() { applog.Use(nil) })

	app := newApp(t, nil, noLimits)
	do(t, app, "POST", "/api/auth/register", map[string]any{"username": "eve", "password": "1234"}, "")
	do(t, app, "POST", "/api/auth/login", map[string]any{"username": "eve", "password": "nope"}, "")
	login(t, app, "eve", "1234")

	if n := logs.FilterMessage("auth.register.success").Len(); n != 1 {
		t.Fatalf("expected 1 register audit, got %d", n)
	}
	fails := logs.FilterMessage("auth.login.fail").All()
	if len(fails) != 1 || fails[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected 1 warn login failure, got %v", fails)
	}
	if rid, _ := fails[0].ContextMap()["req_id"].(string); rid == "" {
		t.Fatal("req_id missing on security event")
	}
	ok := logs.FilterMessage("auth.login.success").All()
	if len(ok) != 1 || ok[0].ContextMap()["user_id"] == nil {
		t.Fatalf("expected login audit with user_id, got %v", ok)
	}
}
