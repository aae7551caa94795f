// Package middleware provides HTTP middleware for request validation and processing.
package middleware

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Position-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Position-Ledger-Backend/internal/validation"
)

// URLParam returns the named chi URL parameter with percent-encoding removed,
// so treasury tickers such as "IPCA+%202035" arrive as "IPCA+ 2035".
func URLParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

// ValidateTickerMiddleware validates that the ticker URL parameter is present and well-formed.
// Returns 400 Bad Request if the ticker is missing or invalid.
//
// Example usage in router:
//
//	r.Route("/{ticker}", func(r chi.Router) {
//	    r.Use(middleware.ValidateTickerMiddleware)
//	    r.Get("/", handler.Position)
//	    r.Post("/liquidate", handler.Liquidate)
//	})
func ValidateTickerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ticker := URLParam(r, "ticker")

		if ticker == "" {
			response.RespondError(w, http.StatusBadRequest, "ticker is required", "")
			return
		}

		if err := validation.ValidateTicker(ticker); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid ticker format", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateRecordIDMiddleware validates the id URL parameter of history routes.
// Ids may be uuids or the numeric ids of older documents.
func ValidateRecordIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := validation.ValidateRecordID(URLParam(r, "id")); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid id", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
