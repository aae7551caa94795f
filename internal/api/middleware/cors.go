package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// ledgerMethods are the methods the ledger routes answer to.
var ledgerMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}

// NewCORS allows browser clients on the configured origins to read and mutate the
// ledger. The API is unauthenticated, so no credentials are allowed. Clients may send
// their own request id, which the access log records.
func NewCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   ledgerMethods,
		AllowedHeaders:   []string{"Accept", "Content-Type", chimiddleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           600,
	})
}
