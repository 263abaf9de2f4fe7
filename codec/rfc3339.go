// Package codec converts between wire strings stored in string fields and
// their domain values.
package codec

import (
	"fmt"
	"time"
)

// Decode parses an RFC3339 timestamp. Fractional seconds are optional.
func Decode(s string) (time.Time, error) {
	t, err := parseRFC3339(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("codec: invalid RFC3339 time %q: %w", s, err)
	}
	return t, nil
}

// Encode renders t in canonical form: UTC, RFC3339 with trailing zeros trimmed.
func Encode(t time.Time) string { return formatRFC3339Canonical(t) }

// IsTimestamp is a field validator accepting RFC3339 strings only.
func IsTimestamp(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := parseRFC3339(s)
	return err == nil
}

// parseRFC3339 accepts any RFC3339 string; RFC3339Nano parsing treats the
// fractional seconds as optional.
func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func formatRFC3339Canonical(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}
