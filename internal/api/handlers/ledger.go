package handlers

import (
	"net/http"

	"github.com/ndewijer/Position-Ledger-Backend/internal/api/middleware"
	"github.com/ndewijer/Position-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Position-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
	"github.com/ndewijer/Position-Ledger-Backend/internal/service"
)

// LedgerHandler handles HTTP requests for the raw lot and history collections
// and for ledger maintenance.
type LedgerHandler struct {
	ledger *service.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler with the provided ledger.
func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledger: ledger,
	}
}

// Lots handles GET requests for the stored lots, optionally filtered by ticker.
//
// Endpoint: GET /api/lot?ticker=PETR4
// Response: 200 OK with array of model.Lot
// Error: 500 Internal Server Error if retrieval fails
func (h *LedgerHandler) Lots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.ledger.Lots(r.Context(), r.URL.Query().Get("ticker"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveLots)
		return
	}

	response.RespondJSON(w, http.StatusOK, lots)
}

// History handles GET requests for the liquidation history, optionally filtered by ticker.
//
// Endpoint: GET /api/history?ticker=PETR4
// Response: 200 OK with array of model.HistoryEntry
// Error: 500 Internal Server Error if retrieval fails
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.ledger.History(r.Context(), r.URL.Query().Get("ticker"))
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveHistory)
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}

// ReverseHistoryEntry handles DELETE requests that undo a liquidation entry.
// The request itself is the user's confirmation.
//
// Endpoint: DELETE /api/history/{id}
// Response: 204 No Content on success
// Error: 400 Bad Request if the id is invalid (validated by middleware)
// Error: 404 Not Found if no entry has the id
// Error: 500 Internal Server Error if the commit fails
func (h *LedgerHandler) ReverseHistoryEntry(w http.ResponseWriter, r *http.Request) {
	id := model.RecordID(middleware.URLParam(r, "id"))

	if _, err := h.ledger.ReverseHistoryEntry(r.Context(), id); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToReverse)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// Heal handles POST requests that run the healer immediately.
//
// Endpoint: POST /api/ledger/heal
// Response: 200 OK with model.HealReport
// Error: 500 Internal Server Error if the stored data cannot be read or written
func (h *LedgerHandler) Heal(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.HealStore(r.Context())
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToHeal)
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}
