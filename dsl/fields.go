package dsl

import (
	"github.com/reoring/plasm"
	"github.com/reoring/plasm/codec"
)

// RequiredMarker is the sentinel type marking a field as required. It is a
// distinct type so a required declaration cannot be confused with a flag.
type RequiredMarker struct{}

// Required marks a field as required: String(Required).
var Required = RequiredMarker{}

// Integer returns an integer field descriptor. Integral numbers are accepted;
// strings, booleans, fractional numbers and objects are rejected.
func Integer(req ...RequiredMarker) plasm.Field {
	return plasm.Field{Kind: plasm.KindInteger, Validate: plasm.IsInteger, Required: len(req) > 0}
}

// String returns a string field descriptor.
func String(req ...RequiredMarker) plasm.Field {
	return plasm.Field{Kind: plasm.KindString, Validate: plasm.IsString, Required: len(req) > 0}
}

// Timestamp returns a string field descriptor that only accepts RFC3339 timestamps.
func Timestamp(req ...RequiredMarker) plasm.Field {
	return plasm.Field{Kind: plasm.KindString, Validate: codec.IsTimestamp, Required: len(req) > 0, Format: "date-time"}
}
