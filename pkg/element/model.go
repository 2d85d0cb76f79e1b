package element

import (
	"github.com/quillboard/goquill/pkg/doc"
	"github.com/quillboard/goquill/pkg/event"
)

// PropChange is one property-level change on a model.
type PropChange struct {
	Key   string
	Value any
	Old   any
	Local bool
}

// Model wraps one element's CRDT-backed record with typed access, a
// stash/pop overlay for persisted fields, in-memory storage for local
// fields, and a per-element props-updated stream.
type Model struct {
	id     string
	typ    string
	schema *Schema
	rec    doc.Record

	local map[string]any
	stash map[string]any

	props     *event.Subject[PropChange]
	unobserve func()
}

func newModel(schema *Schema, id string, rec doc.Record) *Model {
	m := &Model{
		id:     id,
		typ:    schema.Type,
		schema: schema,
		rec:    rec,
		local:  make(map[string]any),
		props:  event.NewSubject[PropChange](),
	}
	m.unobserve = rec.Observe(m.onRecordChange)
	return m
}

// ID returns the element id.
func (m *Model) ID() string { return m.id }

// Type returns the element kind discriminant.
func (m *Model) Type() string { return m.typ }

// Schema returns the element's kind schema.
func (m *Model) Schema() *Schema { return m.schema }

// Record returns the backing storage record.
func (m *Model) Record() doc.Record { return m.rec }

// PropsUpdated is the per-element property change stream.
func (m *Model) PropsUpdated() *event.Subject[PropChange] { return m.props }

// Dispose unhooks the storage observer and closes the props stream.
func (m *Model) Dispose() {
	if m.unobserve != nil {
		m.unobserve()
		m.unobserve = nil
	}
	m.props.Close()
}

// Get returns the current value of a field: the stash overlay if the field
// is stashed, the in-memory value for local fields, the record value for
// persisted ones, falling back to the declared default.
func (m *Model) Get(field string) any {
	if m.stash != nil {
		if v, ok := m.stash[field]; ok {
			return v
		}
	}
	if f, declared := m.schema.Fields[field]; declared && f.Kind == Local {
		if v, ok := m.local[field]; ok {
			return v
		}
		return f.Default
	}
	if v, ok := m.rec.Get(field); ok {
		return v
	}
	if f, declared := m.schema.Fields[field]; declared {
		return f.Default
	}
	return nil
}

// Set writes a field. Stashed fields go to the overlay only; local fields to
// memory; persisted fields to storage. Derived fields recompute on every
// path, including while the dependency is stashed.
func (m *Model) Set(field string, v any) {
	if m.stash != nil {
		if old, ok := m.stash[field]; ok {
			m.stash[field] = v
			m.applyDerive(field, v)
			m.props.Emit(PropChange{Key: field, Value: v, Old: old, Local: true})
			return
		}
	}
	if f, declared := m.schema.Fields[field]; declared && f.Kind == Local {
		old := m.Get(field)
		m.local[field] = v
		m.applyDerive(field, v)
		m.props.Emit(PropChange{Key: field, Value: v, Old: old, Local: true})
		return
	}
	m.rec.Set(field, v)
	m.applyDerive(field, v)
}

// Stash takes a declared persisted field offline: its current value is
// snapshotted into the overlay and subsequent writes stay local until Pop or
// Discard. Stashing a local or undeclared field is a silent no-op, since
// callers may not know a field's persistence class.
func (m *Model) Stash(field string) {
	f, declared := m.schema.Fields[field]
	if !declared || f.Kind != Persisted {
		return
	}
	if m.stash == nil {
		m.stash = make(map[string]any)
	}
	if _, already := m.stash[field]; already {
		return
	}
	if v, ok := m.rec.Get(field); ok {
		m.stash[field] = v
	} else {
		m.stash[field] = f.Default
	}
}

// Pop commits a stashed field's overlay value back to storage in one write
// and ends the stash. No-op if the field is not stashed.
func (m *Model) Pop(field string) {
	if m.stash == nil {
		return
	}
	v, ok := m.stash[field]
	if !ok {
		return
	}
	delete(m.stash, field)
	m.rec.Set(field, v)
}

// Discard drops a stashed field's overlay without writing; the persisted
// value becomes visible again. No-op if the field is not stashed.
func (m *Model) Discard(field string) {
	if m.stash == nil {
		return
	}
	delete(m.stash, field)
}

// Stashed reports whether the field currently has a stash overlay.
func (m *Model) Stashed(field string) bool {
	if m.stash == nil {
		return false
	}
	_, ok := m.stash[field]
	return ok
}

func (m *Model) applyDerive(field string, v any) {
	fn := m.schema.Derive[field]
	if fn == nil {
		return
	}
	for k, dv := range fn(m, v) {
		if k == field {
			continue
		}
		m.Set(k, dv)
	}
}

func (m *Model) onRecordChange(c doc.RecordChange) {
	for _, k := range c.Keys {
		m.props.Emit(PropChange{
			Key:   k,
			Value: m.Get(k),
			Old:   c.Old[k],
			Local: c.Local,
		})
	}
}

// =============================================================================
// Capability accessors used by the graph indices
// =============================================================================

// GroupLike reports whether this element can own children.
func (m *Model) GroupLike() bool { return m.schema.GroupLike }

// IsConnector reports whether this element carries endpoint references.
func (m *Model) IsConnector() bool { return m.schema.Connector }

// ChildIDs returns the ordered child id list, or nil for non-group kinds.
func (m *Model) ChildIDs() []string {
	if !m.schema.GroupLike {
		return nil
	}
	return ToStringSlice(m.Get(PropChildIDs))
}

// SetChildIDs replaces the ordered child id list.
func (m *Model) SetChildIDs(ids []string) {
	if !m.schema.GroupLike {
		return
	}
	if ids == nil {
		ids = []string{}
	}
	m.Set(PropChildIDs, ids)
}

// HasChild reports direct containment.
func (m *Model) HasChild(id string) bool {
	for _, c := range m.ChildIDs() {
		if c == id {
			return true
		}
	}
	return false
}

// SourceID returns the resolved source endpoint id, or "".
func (m *Model) SourceID() string { return EndpointID(m.Get(PropSource)) }

// TargetID returns the resolved target endpoint id, or "".
func (m *Model) TargetID() string { return EndpointID(m.Get(PropTarget)) }

// Index returns the element's fractional ordering key.
func (m *Model) Index() string {
	s, _ := m.Get(PropIndex).(string)
	return s
}

// SetIndex assigns the element's fractional ordering key.
func (m *Model) SetIndex(key string) { m.Set(PropIndex, key) }

// =============================================================================
// Value helpers
// =============================================================================

// ToStringSlice normalizes a stored child-id list, which may arrive as
// []string or (after JSON round-trips) as []any.
func ToStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// EndpointID resolves a connector endpoint value to an element id, or "" if
// the endpoint is unset or position-only.
func EndpointID(v any) string {
	switch t := v.(type) {
	case map[string]any:
		id, _ := t["id"].(string)
		return id
	case string:
		return t
	default:
		return ""
	}
}
