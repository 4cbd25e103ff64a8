// Package server assembles the fiber application: middleware, routes
// and the JSON error surface.
package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pharmastore/internal/http/handlers"
	applog "pharmastore/internal/log"
)

const MaxBodySize = 1 << 20 // 1 MiB

type Limits struct {
	LoginMax    int
	LoginWindow time.Duration
	ChatMax     int
	ChatWindow  time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		LoginMax:    10,
		LoginWindow: 10 * time.Minute,
		ChatMax:     20,
		ChatWindow:  time.Minute,
	}
}

type Options struct {
	Limits    Limits
	AccessLog bool
}

func throttle(max int, window time.Duration, name string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + name
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate."+name+".hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests. Please try again later."})
		},
	})
}

func New(deps *handlers.Deps, opts Options) *fiber.App {
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	app := fiber.New(fiber.Config{
		AppName:      "pharmastore",
		Views:        handlers.Views(),
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    MaxBodySize,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(handlers.OptionalUser(deps.Auth))

	// ---------- Pages & ops ----------
	app.Get("/", deps.CategoryHandler.Home)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// ---------- API ----------
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", deps.AuthHandler.Register)
	auth.Post("/login", throttle(opts.Limits.LoginMax, opts.Limits.LoginWindow, "login"), deps.AuthHandler.Login)
	auth.Get("/me", handlers.RequireUser(deps.Auth), deps.AuthHandler.Me)

	products := api.Group("/products")
	products.Get("/", deps.SearchHandler.Search)
	products.Get("/categories", deps.CategoryHandler.List)
	products.Get("/:id", deps.ProductHandler.Detail)
	products.Put("/:id", handlers.RequireUser(deps.Auth), deps.ProductHandler.Update)

	cart := api.Group("/cart")
	cart.Get("/", deps.CartHandler.View)
	cart.Post("/add", deps.CartHandler.Add)
	cart.Put("/items", deps.CartHandler.SetQuantity)
	cart.Post("/clear", deps.CartHandler.Clear)
	cart.Delete("/clear", deps.CartHandler.Clear)
	cart.Post("/remove", deps.CartHandler.Remove)
	cart.Delete("/remove", deps.CartHandler.Remove)

	api.Post("/ai-chat", throttle(opts.Limits.ChatMax, opts.Limits.ChatWindow, "chat"), deps.ChatHandler.Chat)

	api.Get("/warmup", deps.WarmupHandler.Warmup)
	api.Post("/warmup", deps.WarmupHandler.Warmup)

	// 404
	app.Use(func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return fiber.NewError(fiber.StatusNotFound, "route not found")
		}
		return fiber.NewError(fiber.StatusNotFound, "page not found")
	})
	return app
}
