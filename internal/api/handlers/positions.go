package handlers

import (
	"net/http"
	"strconv"

	"github.com/ndewijer/Position-Ledger-Backend/internal/api/middleware"
	"github.com/ndewijer/Position-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Position-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Position-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
	"github.com/ndewijer/Position-Ledger-Backend/internal/service"
	"github.com/ndewijer/Position-Ledger-Backend/internal/validation"
)

// Ranking defaults when the query string omits them.
const (
	defaultRankingMeasure = "realized"
	defaultRankingLimit   = 10
)

// PositionHandler handles HTTP requests for aggregated position endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the ledger.
type PositionHandler struct {
	ledger *service.LedgerService
}

// NewPositionHandler creates a new PositionHandler with the provided ledger.
func NewPositionHandler(ledger *service.LedgerService) *PositionHandler {
	return &PositionHandler{
		ledger: ledger,
	}
}

// Positions handles GET requests for every position aggregated by ticker,
// including fully exited positions.
//
// Endpoint: GET /api/position
// Response: 200 OK with array of model.AggregatedPosition
// Error: 500 Internal Server Error if retrieval fails
func (h *PositionHandler) Positions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.ledger.Positions(r.Context())
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrievePositions)
		return
	}

	response.RespondJSON(w, http.StatusOK, positions)
}

// TreasuryPositions handles GET requests for treasury bonds grouped by series,
// ordered by maturity.
//
// Endpoint: GET /api/position/treasury
// Response: 200 OK with array of model.AggregatedPosition
// Error: 500 Internal Server Error if retrieval fails
func (h *PositionHandler) TreasuryPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.ledger.TreasuryPositions(r.Context())
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrievePositions)
		return
	}

	response.RespondJSON(w, http.StatusOK, positions)
}

// Ranking handles GET requests for the top positions by a measure.
//
// Endpoint: GET /api/position/ranking?by=realized|current|invested|profit&limit=N
// Response: 200 OK with array of model.AggregatedPosition
// Error: 400 Bad Request if the measure or limit is invalid
// Error: 500 Internal Server Error if retrieval fails
func (h *PositionHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by == "" {
		by = defaultRankingMeasure
	}

	limit := defaultRankingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.RespondError(w, http.StatusBadRequest, "invalid limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	positions, err := h.ledger.Ranking(r.Context(), by, limit)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrievePositions)
		return
	}

	response.RespondJSON(w, http.StatusOK, positions)
}

// Position handles GET requests for one ticker's aggregated position with its lots
// and history.
//
// Endpoint: GET /api/position/{ticker}
// Response: 200 OK with model.PositionDetail
// Error: 400 Bad Request if the ticker is invalid (validated by middleware)
// Error: 404 Not Found if the ticker has neither lots nor history
// Error: 500 Internal Server Error if retrieval fails
func (h *PositionHandler) Position(w http.ResponseWriter, r *http.Request) {
	ticker := middleware.URLParam(r, "ticker")

	detail, err := h.ledger.Position(r.Context(), ticker)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrievePositions)
		return
	}

	response.RespondJSON(w, http.StatusOK, detail)
}

// Liquidate handles POST requests to sell part or all of a ticker's open position,
// consuming its oldest lots first.
//
// Endpoint: POST /api/position/{ticker}/liquidate
// Request Body: LiquidationRequest (quantity, salePrice, totalCosts, date)
// Response: 201 Created with the committed history entries
// Error: 400 Bad Request if validation fails or the quantity exceeds the open position
// Error: 404 Not Found if the ticker has no lots
// Error: 500 Internal Server Error if the commit fails
func (h *PositionHandler) Liquidate(w http.ResponseWriter, r *http.Request) {
	ticker := middleware.URLParam(r, "ticker")

	req, err := parseJSON[request.LiquidationRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateLiquidation(req); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToLiquidate)
		return
	}

	order := service.LiquidationOrder{
		Ticker:     ticker,
		Quantity:   req.Quantity,
		SalePrice:  *req.SalePrice,
		TotalCosts: req.TotalCosts,
	}
	if req.Date != "" {
		date, err := model.ParseDate(req.Date)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDate.Error(), err.Error())
			return
		}
		order.Date = date
	}

	entries, err := h.ledger.Liquidate(r.Context(), order)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToLiquidate)
		return
	}

	response.RespondJSON(w, http.StatusCreated, entries)
}
