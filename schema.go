package plasm

import (
	"fmt"
	"regexp"

	js "github.com/reoring/plasm/jsonschema"
)

// IDField is the primary identifier column every table carries.
const IDField = "id"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NamedField pairs a field name with its descriptor, preserving declaration order.
type NamedField struct {
	Name string
	Field
}

// SchemaDefinition is a named, ordered set of field descriptors. It is created
// once at startup and shared read-only by every Entity and Changeset derived from it.
type SchemaDefinition struct {
	name   string
	fields []NamedField
	index  map[string]int
}

// NewSchema validates and assembles a SchemaDefinition. The name doubles as the
// table name. An "id" field is prepended as an optional integer when the
// declaration omits it.
func NewSchema(name string, fields ...NamedField) (*SchemaDefinition, error) {
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("plasm: invalid schema name %q", name)
	}
	s := &SchemaDefinition{name: name, index: make(map[string]int, len(fields)+1)}
	hasID := false
	for _, f := range fields {
		if f.Name == IDField {
			hasID = true
			break
		}
	}
	if !hasID {
		fields = append([]NamedField{{Name: IDField, Field: Field{Kind: KindInteger, Validate: IsInteger}}}, fields...)
	}
	for _, f := range fields {
		if !identRe.MatchString(f.Name) {
			return nil, fmt.Errorf("plasm: schema %s: invalid field name %q", name, f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("plasm: schema %s: duplicate field %q", name, f.Name)
		}
		if f.Name == IDField && f.Kind != KindInteger {
			return nil, fmt.Errorf("plasm: schema %s: %s must be an integer field", name, IDField)
		}
		if f.Validate == nil {
			return nil, fmt.Errorf("plasm: schema %s: field %q has no validator", name, f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// Name returns the schema (and table) name.
func (s *SchemaDefinition) Name() string { return s.name }

// Fields returns the field descriptors in declaration order.
func (s *SchemaDefinition) Fields() []NamedField {
	out := make([]NamedField, len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldNames returns the field names in declaration order.
func (s *SchemaDefinition) FieldNames() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Field looks up a field descriptor by name.
func (s *SchemaDefinition) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i].Field, true
}

// Has reports whether name is a field of the schema.
func (s *SchemaDefinition) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// RequiredNames returns the names of required fields in declaration order.
func (s *SchemaDefinition) RequiredNames() []string {
	var out []string
	for _, f := range s.fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// JSONSchema projects the schema into a JSON Schema object description.
func (s *SchemaDefinition) JSONSchema() *js.Schema {
	props := make(map[string]*js.Schema, len(s.fields))
	for _, f := range s.fields {
		props[f.Name] = &js.Schema{Type: f.Kind.String(), Format: f.Format}
	}
	return &js.Schema{
		Title:                s.name,
		Type:                 "object",
		Properties:           props,
		Required:             s.RequiredNames(),
		AdditionalProperties: false,
	}
}

// Entity is a record value stamped with its schema. Every key of Values is a
// field of Schema. Presence is nil unless the value came from a Cast with
// PresenceExplicit.
type Entity struct {
	Schema   *SchemaDefinition
	Values   map[string]any
	Presence PresenceMap
}

// Changeset is a partial, field-restricted record pending validation and
// persistence. It has the same shape as Entity.
type Changeset Entity

// Instantiate stamps values with the schema's identity. The map is used in
// place, not copied or validated; keys outside the schema are dropped.
func Instantiate(s *SchemaDefinition, values map[string]any) Entity {
	if values == nil {
		values = map[string]any{}
	}
	for k := range values {
		if !s.Has(k) {
			delete(values, k)
		}
	}
	return Entity{Schema: s, Values: values}
}

// Get returns the value stored for name.
func (e Entity) Get(name string) (any, bool) {
	v, ok := e.Values[name]
	return v, ok
}

// ID returns the entity's identifier when it holds a positive integer one.
// Zero and negative ids are treated as absent; the store assigns a new one.
func (e Entity) ID() (int64, bool) {
	v, ok := e.Values[IDField]
	if !ok {
		return 0, false
	}
	id, ok := AsInt64(v)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
