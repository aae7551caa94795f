package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewCORS([]string{"http://localhost:3000"}).Handler(next)

	preflight := func(origin, method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/history/abc", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", method)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("allows reversal from a configured origin", func(t *testing.T) {
		w := preflight("http://localhost:3000", http.MethodDelete)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Expected origin to be allowed, got %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodDelete) {
			t.Errorf("Expected DELETE to be allowed, got %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
			t.Errorf("Expected no credentials header, got %q", got)
		}
	})

	t.Run("rejects methods the ledger does not serve", func(t *testing.T) {
		w := preflight("http://localhost:3000", http.MethodPut)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected PUT preflight to be refused, got origin %q", got)
		}
	})

	t.Run("rejects unknown origins", func(t *testing.T) {
		w := preflight("http://evil.example", http.MethodGet)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected unknown origin to be refused, got %q", got)
		}
	})
}
