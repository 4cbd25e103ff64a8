package handlers

import (
	"github.com/jmoiron/sqlx"

	"pharmastore/internal/assistant"
	"pharmastore/internal/config"
	"pharmastore/internal/repos"
	"pharmastore/internal/services"
	"pharmastore/internal/warmup"
)

type Deps struct {
	Auth *services.AuthService

	AuthHandler     *AuthHandler
	CategoryHandler *CategoryHandler
	ProductHandler  *ProductHandler
	SearchHandler   *SearchHandler
	CartHandler     *CartHandler
	ChatHandler     *ChatHandler
	WarmupHandler   *WarmupHandler
}

// NewDeps wires repos, services and handlers. A nil model leaves the
// chat endpoint answering 503.
func NewDeps(db *sqlx.DB, cfg config.Config, model assistant.Model, history assistant.HistoryStore) *Deps {
	userRepo := repos.NewUserRepo(db)
	prodRepo := repos.NewProductRepo(db)
	cartRepo := repos.NewCartRepo(db)

	catalogSvc := services.NewCatalogService(prodRepo)
	cartSvc := services.NewCartService(cartRepo)
	authSvc := services.NewAuthService(userRepo, cartRepo, services.NewTokens(cfg.JWTSecret))

	orch := assistant.NewOrchestrator(model, assistant.NewToolbox(catalogSvc, cartSvc), history)

	return &Deps{
		Auth:            authSvc,
		AuthHandler:     &AuthHandler{Auth: authSvc},
		CategoryHandler: &CategoryHandler{Catalog: catalogSvc, Chat: orch.Available()},
		ProductHandler:  &ProductHandler{Catalog: catalogSvc},
		SearchHandler:   &SearchHandler{Catalog: catalogSvc},
		CartHandler:     &CartHandler{Cart: cartSvc},
		ChatHandler:     &ChatHandler{Assistant: orch},
		WarmupHandler:   &WarmupHandler{Checker: warmup.NewChecker(db)},
	}
}
