package plasm

// Cast builds a Changeset from raw input. Only names present in both allowed
// and the schema's fields are considered; under the default PresenceTruthy
// policy falsy values are dropped. No validation happens here.
func Cast(s *SchemaDefinition, allowed []string, input map[string]any, opts ...CastOpt) Changeset {
	var opt CastOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	changes := make(map[string]any, len(allowed))
	var pm PresenceMap
	if opt.Presence == PresenceExplicit {
		pm = make(PresenceMap, len(allowed))
	}
	for _, name := range allowed {
		if !s.Has(name) {
			continue
		}
		v, ok := input[name]
		if !ok {
			continue
		}
		switch opt.Presence {
		case PresenceExplicit:
			changes[name] = v
			if v == nil {
				pm[name] |= PresenceWasNull
			} else {
				pm[name] |= PresenceSeen
			}
		default:
			if Truthy(v) {
				changes[name] = v
			}
		}
	}
	return Changeset{Schema: s, Values: changes, Presence: pm}
}

// Entity converts the changeset to its entity view without copying.
func (cs Changeset) Entity() Entity { return Entity(cs) }
