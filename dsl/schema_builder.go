package dsl

import (
	"fmt"

	"github.com/reoring/plasm"
)

type schemaBuilder struct {
	name     string
	fields   []plasm.NamedField
	index    map[string]int
	required map[string]struct{}
}

type fieldStep struct {
	b    *schemaBuilder
	name string
}

// Schema creates a builder for a schema named name. The name is also the table name.
func Schema(name string) *schemaBuilder {
	return &schemaBuilder{
		name:     name,
		index:    map[string]int{},
		required: map[string]struct{}{},
	}
}

// Field registers a field. Declaring the same name twice replaces the first
// descriptor but keeps its position.
func (b *schemaBuilder) Field(name string, f plasm.Field) *fieldStep {
	if i, ok := b.index[name]; ok {
		b.fields[i].Field = f
	} else {
		b.index[name] = len(b.fields)
		b.fields = append(b.fields, plasm.NamedField{Name: name, Field: f})
	}
	if f.Required {
		b.required[name] = struct{}{}
	} else {
		delete(b.required, name)
	}
	return &fieldStep{b: b, name: name}
}

// Required marks the current field as required and returns the builder.
func (f *fieldStep) Required() *schemaBuilder {
	f.b.required[f.name] = struct{}{}
	return f.b
}

// Optional marks the current field as optional and returns the builder.
func (f *fieldStep) Optional() *schemaBuilder {
	delete(f.b.required, f.name)
	return f.b
}

func (f *fieldStep) Field(name string, fd plasm.Field) *fieldStep { return f.b.Field(name, fd) }
func (f *fieldStep) Require(names ...string) *schemaBuilder       { return f.b.Require(names...) }
func (f *fieldStep) Build() (*plasm.SchemaDefinition, error)      { return f.b.Build() }
func (f *fieldStep) MustBuild() *plasm.SchemaDefinition           { return f.b.MustBuild() }

// Require marks one or more declared fields as required.
func (b *schemaBuilder) Require(names ...string) *schemaBuilder {
	for _, n := range names {
		b.required[n] = struct{}{}
	}
	return b
}

// Build validates the declaration and returns the immutable SchemaDefinition.
func (b *schemaBuilder) Build() (*plasm.SchemaDefinition, error) {
	for n := range b.required {
		if _, ok := b.index[n]; !ok {
			return nil, fmt.Errorf("dsl: schema %s: required field %q is not declared", b.name, n)
		}
	}
	fields := make([]plasm.NamedField, len(b.fields))
	for i, f := range b.fields {
		_, req := b.required[f.Name]
		f.Required = req
		fields[i] = f
	}
	return plasm.NewSchema(b.name, fields...)
}

// MustBuild is Build that panics on error; meant for package-level schema declarations.
func (b *schemaBuilder) MustBuild() *plasm.SchemaDefinition {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
