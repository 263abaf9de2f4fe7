package plasm

// Presence is the bit flag recorded per field by Cast with PresenceExplicit.
type Presence uint8

const (
	PresenceSeen    Presence = 1 << iota // Field appeared in the input with a value.
	PresenceWasNull                      // Field appeared in the input as an explicit null.
)

// PresenceMap maps field names to Presence flags.
type PresenceMap map[string]Presence

// Seen reports whether name carried a value in the input.
func (pm PresenceMap) Seen(name string) bool { return pm[name]&PresenceSeen != 0 }

// WasNull reports whether name was explicitly nulled in the input.
func (pm PresenceMap) WasNull(name string) bool { return pm[name]&PresenceWasNull != 0 }

// Written reports whether a repository write must include name: with presence
// metadata, non-null values and explicit nulls are written; without it only
// truthy values are.
func Written(e Entity, name string) bool {
	v, ok := e.Values[name]
	if !ok {
		return false
	}
	if e.Presence == nil {
		return Truthy(v)
	}
	if v == nil {
		return e.Presence.WasNull(name)
	}
	return true
}
