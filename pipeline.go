package plasm

import "context"

// Stage is one single-argument transformation of a pipeline. Every stage must
// return a failed input unchanged before doing any work. A returned error is a
// storage or transport failure and ends the pipeline.
type Stage func(ctx context.Context, in Result) (Result, error)

// Handler turns a parsed JSON request body into a result. It is the shape
// registered against a method and path by the transport layer.
type Handler func(ctx context.Context, body map[string]any) (Result, error)

// Compose chains stages left to right; each receives the previous output verbatim.
func Compose(stages ...Stage) Stage {
	return func(ctx context.Context, in Result) (Result, error) {
		out := in
		for _, st := range stages {
			var err error
			out, err = st(ctx, out)
			if err != nil {
				return out, err
			}
		}
		return out, nil
	}
}

// Pipe builds a Handler that casts the request body against schema and allowed,
// then runs stages in order.
func Pipe(s *SchemaDefinition, allowed []string, stages ...Stage) Handler {
	return PipeWith(s, allowed, CastOpt{}, stages...)
}

// PipeWith is Pipe with explicit changeset options.
func PipeWith(s *SchemaDefinition, allowed []string, opt CastOpt, stages ...Stage) Handler {
	run := Compose(stages...)
	return func(ctx context.Context, body map[string]any) (Result, error) {
		cs := Cast(s, allowed, body, opt)
		return run(ctx, Ok(cs.Entity()))
	}
}

// Map adapts a function over valid entities into a Stage that passes failed
// results through.
func Map(fn func(ctx context.Context, e Entity) Entity) Stage {
	return func(ctx context.Context, in Result) (Result, error) {
		e, ok := in.Entity()
		if !ok {
			return in, nil
		}
		return Ok(fn(ctx, e)), nil
	}
}
