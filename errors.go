package plasm

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/reoring/plasm/i18n"
)

// Error codes reported per field in ValidationErrors, and used for messages.
const (
	CodeRequired   = "required"
	CodeValidation = "validation"
	CodeNotFound   = "not_found"
	CodeStorage    = "storage"
)

// ErrNotFound is returned when a point lookup matches no row.
var ErrNotFound = errors.New("plasm: not found")

// StorageError reports a failed storage operation. It ends the request that
// triggered it and is never retried.
type StorageError struct {
	Op    string // "insert", "get", "ensure_table"
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("plasm: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationErrors maps attribute names to an error code (CodeRequired or
// CodeValidation). It travels through a pipeline as data inside an Invalid Result.
type ValidationErrors map[string]string

func validationErrors(fields []string, code string) ValidationErrors {
	out := make(ValidationErrors, len(fields))
	for _, f := range fields {
		out[f] = code
	}
	return out
}

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer of the field (for example: /document).
	Code    string
	Message string
}

// Issues is a collection of validation entries that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Issues renders the map as Issues ordered by field name, with localized messages.
func (ve ValidationErrors) Issues() Issues {
	names := make([]string, 0, len(ve))
	for k := range ve {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make(Issues, 0, len(names))
	for _, n := range names {
		code := ve[n]
		out = append(out, Issue{Path: pointer(n), Code: code, Message: i18n.T(code, map[string]string{"field": n})})
	}
	return out
}

func (ve ValidationErrors) Error() string { return ve.Issues().Error() }
