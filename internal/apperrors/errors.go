package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is the base error for every lookup that found nothing.
// Use errors.Is(err, ErrNotFound) to match any of the more specific variants below.
var ErrNotFound = errors.New("not found")

// Domain entity errors represent missing entities in the ledger.
var (
	// ErrHistoryEntryNotFound indicates that no history entry has the given ID.
	ErrHistoryEntryNotFound = fmt.Errorf("history entry %w", ErrNotFound)

	// ErrPositionNotFound indicates that no lot exists for the requested ticker.
	ErrPositionNotFound = fmt.Errorf("position %w", ErrNotFound)
)

// Business logic errors represent validation failures or constraint violations.
// These are reported back to the caller for correction and are never retried.
var (
	// ErrInvalidQuantity indicates that a sell quantity is not positive or exceeds
	// the open position beyond the configured tolerance.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidPrice indicates a negative or non-numeric sale price or cost.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrReversalCancelled indicates that the confirmation step declined the reversal.
	ErrReversalCancelled = errors.New("reversal cancelled")

	// ErrInvalidRankingMeasure indicates a ranking requested by an unknown measure.
	ErrInvalidRankingMeasure = errors.New("invalid ranking measure")

	// Validation errors for required fields
	ErrInvalidTicker = errors.New("ticker is required")
	ErrInvalidDate   = errors.New("date must be in YYYY-MM-DD format")
)

// Data integrity errors represent storage failures or corrupted records.
var (
	// ErrPersistenceFailure indicates that a durable read or write was rejected.
	// Previously committed state is left untouched when this is returned.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrMalformedRecord indicates a persisted record that the healer cannot repair,
	// such as a non-numeric quantity or price.
	ErrMalformedRecord = errors.New("malformed record")
)

// Operation failure errors are the user-facing messages returned by the HTTP layer.
var (
	ErrFailedToRetrievePositions = errors.New("failed to retrieve positions")
	ErrFailedToRetrieveLots      = errors.New("failed to retrieve lots")
	ErrFailedToRetrieveHistory   = errors.New("failed to retrieve history")
	ErrFailedToLiquidate         = errors.New("failed to liquidate position")
	ErrFailedToReverse           = errors.New("failed to reverse history entry")
	ErrFailedToHeal              = errors.New("failed to heal ledger")
)
