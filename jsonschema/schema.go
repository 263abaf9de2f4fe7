package jsonschema

// Schema is a minimal JSON Schema representation used for export.
// Only the object-of-scalars subset record schemas need is modelled.
type Schema struct {
	// Core
	Title  string `json:"title,omitempty"`
	Type   string `json:"type,omitempty"`
	Format string `json:"format,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
}
