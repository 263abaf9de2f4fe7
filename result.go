package plasm

// Result is the value flowing between pipeline stages: either an Entity ready
// for the next stage or the ValidationErrors that stopped it. A failed Result
// is opaque to every stage and must be passed through unchanged.
type Result struct {
	entity Entity
	errs   ValidationErrors
}

// Ok wraps a valid entity.
func Ok(e Entity) Result { return Result{entity: e} }

// Invalid wraps validation errors. A nil or empty map still marks the result as failed.
func Invalid(errs ValidationErrors) Result {
	if errs == nil {
		errs = ValidationErrors{}
	}
	return Result{errs: errs}
}

// Failed reports whether the result carries validation errors.
func (r Result) Failed() bool { return r.errs != nil }

// Entity returns the wrapped entity; ok is false for a failed result.
func (r Result) Entity() (Entity, bool) {
	if r.errs != nil {
		return Entity{}, false
	}
	return r.entity, true
}

// Errors returns the validation errors; ok is false for a successful result.
func (r Result) Errors() (ValidationErrors, bool) {
	return r.errs, r.errs != nil
}

// Payload returns the JSON-serializable view of the result: the entity values
// on success, the error map on failure.
func (r Result) Payload() map[string]any {
	if r.errs != nil {
		out := make(map[string]any, len(r.errs))
		for k, v := range r.errs {
			out[k] = v
		}
		return out
	}
	if r.entity.Values == nil {
		return map[string]any{}
	}
	return r.entity.Values
}
