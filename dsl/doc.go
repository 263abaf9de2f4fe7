// Package dsl declares plasm schemas.
//
// Entry points
//   - Schema(name): create a builder; chain Field/Required/Optional/Require then Build()/MustBuild().
//   - Integer(), String(), Timestamp(): field descriptors; pass Required to mark a field required.
//
// Example
//
//	var Letter = dsl.Schema("letter").
//	    Field("id", dsl.Integer()).
//	    Field("document", dsl.String(dsl.Required)).
//	    Field("recipients", dsl.String()).
//	    Field("createdAt", dsl.Timestamp()).
//	    MustBuild()
//
// Field order is declaration order and becomes the column order of the table.
// An undeclared "id" is added as the first field.
package dsl
