package validation

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// Error reports every invalid field of a request, keyed by its JSON name.
type Error struct {
	Fields map[string]string
}

// Error lists the field messages ordered by field name.
func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}

// fieldErrors accumulates field failures. The first failure of a field is kept.
type fieldErrors map[string]string

func (f fieldErrors) fail(field, msg string) {
	if _, seen := f[field]; !seen {
		f[field] = msg
	}
}

// err returns nil when no field failed.
func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{Fields: f}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
