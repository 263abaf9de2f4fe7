package plasm

// Kind is the storage data kind of a field.
type Kind int

const (
	KindInteger Kind = iota // Stored as an integer column.
	KindString              // Stored as a text column.
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Field describes one attribute: its data kind, value validator and required flag.
// Fields are built by the dsl constructors and never mutated afterwards.
type Field struct {
	Kind     Kind
	Validate func(v any) bool
	Required bool
	// Format is an optional format hint exported to JSON Schema (for example "date-time").
	Format string
}

// PresencePolicy controls which input values Cast keeps.
type PresencePolicy int

const (
	// PresenceTruthy keeps only truthy values. Falsy values (nil, 0, "", false)
	// are dropped, so a changeset cannot unset a field.
	PresenceTruthy PresencePolicy = iota
	// PresenceExplicit keeps every non-null value and records an explicit null
	// as a request to unset the field.
	PresenceExplicit
)

// CastOpt bundles changeset construction options.
type CastOpt struct {
	Presence PresencePolicy
}
