package validation

import (
	"strings"
	"time"

	"github.com/ndewijer/Position-Ledger-Backend/internal/api/request"
)

// ValidateLiquidation validates a liquidation request.
//
// Required fields:
//   - quantity: Must be a positive number
//   - salePrice: Must be present and non-negative
//
// Optional fields:
//   - totalCosts: Must be non-negative
//   - date: Must be in YYYY-MM-DD format
//
// Whether the quantity is actually open is decided by the ledger, not here.
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateLiquidation(req request.LiquidationRequest) error {
	errs := fieldErrors{}

	if !isFinite(req.Quantity) || req.Quantity <= 0 {
		errs.fail("quantity", "quantity must be positive")
	}

	switch {
	case req.SalePrice == nil:
		errs.fail("salePrice", "salePrice is required")
	case !isFinite(*req.SalePrice) || *req.SalePrice < 0:
		errs.fail("salePrice", "salePrice must be non-negative")
	}

	if !isFinite(req.TotalCosts) || req.TotalCosts < 0 {
		errs.fail("totalCosts", "totalCosts must be non-negative")
	}

	if strings.TrimSpace(req.Date) != "" {
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			errs.fail("date", "date must be in YYYY-MM-DD format")
		}
	}

	return errs.err()
}
