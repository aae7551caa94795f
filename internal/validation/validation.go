package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Common validation errors
var (
	ErrInvalidTicker = fmt.Errorf("invalid ticker format")
	ErrInvalidID     = fmt.Errorf("invalid record id")
)

// tickerPattern accepts exchange symbols ("PETR4", "BRK.B") and treasury series
// labels ("IPCA+ 2035", "RENDA+ 2049").
var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 .+_-]{0,39}$`)

// ValidateTicker checks that a ticker, once trimmed and upper-cased, is a plausible symbol.
func ValidateTicker(ticker string) error {
	normalized := strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(normalized) {
		return fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	return nil
}

// ValidateRecordID checks that a lot or history id is non-empty and printable.
func ValidateRecordID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > 64 || strings.ContainsAny(id, "\r\n\t") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
