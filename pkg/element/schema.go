// Package element provides the primitive element model: a typed wrapper over
// a CRDT-backed property record, with declared persisted/local fields, a
// stash/pop local overlay, derived-field recomputation, and a string-keyed
// registry of element kinds.
package element

// FieldKind classifies where a declared field's writes land.
type FieldKind int

const (
	// Persisted fields live in the CRDT-backed record.
	Persisted FieldKind = iota
	// Local fields live only in memory and are never written to storage.
	Local
)

// Field declares one property of an element kind.
type Field struct {
	Kind    FieldKind
	Default any
}

// DeriveFunc recomputes dependent properties when its dependency field
// changes. It returns a map of field name to new value; the dependency field
// itself is ignored if present.
type DeriveFunc func(m *Model, value any) map[string]any

// Schema describes one element kind.
type Schema struct {
	Type   string
	Fields map[string]Field
	// Derive maps a dependency field name to its recomputation rule.
	Derive map[string]DeriveFunc
	// GroupLike marks kinds that own an ordered childIds list.
	GroupLike bool
	// Connector marks kinds with source/target endpoint references.
	Connector bool
}
