package plasm

import (
	"context"
	"sort"
)

// Validate checks required-field presence first and per-field validity second.
// It returns the changeset unchanged as an Ok result, or an Invalid result
// whose map holds only "required" entries or only "validation" entries.
//
// A key holding nil counts as absent: it fails a required field and is skipped
// for an optional one.
func Validate(cs Changeset) Result {
	s := cs.Schema
	var missing []string
	for _, name := range s.RequiredNames() {
		if v, ok := cs.Values[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Invalid(validationErrors(missing, CodeRequired))
	}

	var failed []string
	for _, f := range s.fields {
		v, ok := cs.Values[f.Name]
		if !ok || v == nil {
			continue
		}
		if !f.Validate(v) {
			failed = append(failed, f.Name)
		}
	}
	var unknown []string
	for k := range cs.Values {
		if !s.Has(k) {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	failed = append(failed, unknown...)
	if len(failed) > 0 {
		return Invalid(validationErrors(failed, CodeValidation))
	}
	return Ok(Entity(cs))
}

// Validation is the pipeline stage form of Validate.
func Validation(_ context.Context, in Result) (Result, error) {
	e, ok := in.Entity()
	if !ok {
		return in, nil
	}
	return Validate(Changeset(e)), nil
}
