package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/domain/services"
)

// RouterDeps are the services the HTTP API is built on
type RouterDeps struct {
	Version  string
	Mode     string
	Tokens   *entities.TokenRegistry
	Verifier *services.QuoteVerifier
	Checks   *services.CheckService
	Logger   *logrus.Logger
	Timeout  time.Duration
}

// NewRouter mounts every endpoint under chi
func NewRouter(deps RouterDeps) chi.Router {
	if deps.Timeout <= 0 {
		deps.Timeout = 30 * time.Second
	}

	healthHandler := NewHealthHandler(deps.Version, deps.Mode)
	tokenHandler := NewTokenHandler(deps.Tokens)
	quoteHandler := NewQuoteHandler(deps.Verifier, deps.Tokens, deps.Checks.Config())
	checkHandler := NewCheckHandler(deps.Checks, deps.Tokens)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.Timeout))
	r.Use(CORS)

	r.Get("/health", healthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tokens", tokenHandler.ListTokens)
		r.Get("/tokens/{token}", tokenHandler.GetToken)

		r.Get("/estimate", quoteHandler.GetEstimate)
		r.Get("/minimum", quoteHandler.GetMinimum)
		r.Post("/swap", quoteHandler.PostSwap)
		r.Post("/verify", quoteHandler.PostVerify)

		r.Post("/checks", checkHandler.PostCheck)
		r.Get("/checks", checkHandler.ListChecks)
		r.Get("/checks/{id}", checkHandler.GetCheck)
	})

	return r
}
