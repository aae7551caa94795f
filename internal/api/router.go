package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Position-Ledger-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Position-Ledger-Backend/internal/api/middleware"
	"github.com/ndewijer/Position-Ledger-Backend/internal/config"
	"github.com/ndewijer/Position-Ledger-Backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	ledger *service.LedgerService,
	cfg *config.Config,
	log *logrus.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	positionHandler := handlers.NewPositionHandler(ledger)
	ledgerHandler := handlers.NewLedgerHandler(ledger)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/position", func(r chi.Router) {
			r.Get("/", positionHandler.Positions)
			r.Get("/treasury", positionHandler.TreasuryPositions)
			r.Get("/ranking", positionHandler.Ranking)

			r.Route("/{ticker}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateTickerMiddleware)
				r.Get("/", positionHandler.Position)
				r.Post("/liquidate", positionHandler.Liquidate)
			})
		})

		r.Get("/lot", ledgerHandler.Lots)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", ledgerHandler.History)
			r.With(custommiddleware.ValidateRecordIDMiddleware).Delete("/{id}", ledgerHandler.ReverseHistoryEntry)
		})

		r.Post("/ledger/heal", ledgerHandler.Heal)
	})

	return r
}
