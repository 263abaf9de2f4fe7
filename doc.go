// Package plasm provides:
//
// - Schema declaration with typed, optionally required fields (see package dsl)
// - Changesets restricted to an explicit field allow-list (Cast)
// - Validation that yields either a ready-to-persist value or a ValidationErrors map (Validate)
// - A Result sum type that lets every pipeline stage pass validation errors through untouched
// - Pipeline composition into a single request Handler (Compose/Pipe)
//
// Design policy:
// - Keep only the core model in the root package; persistence lives under repo/, background
//   side effects under effect/, and HTTP glue under middleware/.
// - A Schema is declared once at startup and shared read-only by every Entity and Changeset.
// - Validation failures are data, not errors. Returned errors are reserved for storage and
//   transport failures that end the request.
// - The core packages (plasm, dsl, codec, i18n) import nothing outside the standard library,
//   and their tests use plain testing. Packages that do I/O (repo, effect, middleware, config,
//   cmd) test with testify.
//
// Typical usage:
//
//	letter := dsl.Schema("letter").
//	    Field("id", dsl.Integer()).
//	    Field("document", dsl.String(dsl.Required)).
//	    Field("recipients", dsl.String()).
//	    MustBuild()
//
//	create := plasm.Pipe(letter, []string{"document", "recipients"},
//	    plasm.Validation,
//	    repository.Insert,
//	    runner.Wrap(notify),
//	)
//	res, err := create(ctx, body)
package plasm
