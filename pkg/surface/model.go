// Package surface implements the surface block model: the orchestrator that
// owns the element graph, keeps the group and connector indices consistent
// under arbitrary concurrent (collaborative) mutation, and propagates typed
// change events to rendering and selection layers.
//
// All mutations run inside storage transactions; change events for a
// transaction fire strictly after its writes commit, in commit order. Within
// one batch the indices are updated for every changed key before any event
// is emitted, so no subscriber observes a mid-batch-inconsistent index.
package surface

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quillboard/goquill/pkg/doc"
	"github.com/quillboard/goquill/pkg/element"
	"github.com/quillboard/goquill/pkg/event"
	"github.com/quillboard/goquill/pkg/fractional"
)

// Model is the surface block model. Not safe for concurrent use from
// multiple goroutines; the engine core is event-loop-cooperative.
type Model struct {
	d        doc.Doc
	registry *element.Registry
	log      zerolog.Logger
	newID    func() string
	keys     *fractional.Source

	elements      map[string]*element.Model
	unobserveRecs map[string]func()

	// Group/tree index (owned exclusively by this model).
	parentOf      map[string]string
	childSnapshot map[string][]string

	// Connector endpoint index.
	connectorsByEndpoint map[string]map[string]struct{}
	endpointsOf          map[string]endpointPair

	blocks      BlockResolver
	middlewares []Middleware

	elementAdded   *event.Subject[ElementAddedEvent]
	elementRemoved *event.Subject[ElementRemovedEvent]
	elementUpdated *event.Subject[ElementUpdatedEvent]
	propsUpdated   *event.Subject[PropsUpdatedEvent]

	unobserveMap func()
	unsubSelf    func()
}

// Option configures a Model.
type Option func(*Model)

// WithLogger injects the diagnostic logger (default: no-op).
func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) { m.log = l }
}

// WithRegistry overrides the element type registry (default: built-ins).
func WithRegistry(r *element.Registry) Option {
	return func(m *Model) { m.registry = r }
}

// WithIDSource overrides element id allocation (default: random UUIDs).
func WithIDSource(fn func() string) Option {
	return func(m *Model) { m.newID = fn }
}

// WithKeySource overrides the ordering-key generator.
func WithKeySource(s *fractional.Source) Option {
	return func(m *Model) { m.keys = s }
}

// New constructs a surface model over d. Elements already present in the
// document are mounted and indexed silently, without add events.
func New(d doc.Doc, opts ...Option) *Model {
	m := &Model{
		d:                    d,
		registry:             element.DefaultRegistry(),
		log:                  zerolog.Nop(),
		newID:                uuid.NewString,
		keys:                 fractional.NewSource(),
		elements:             make(map[string]*element.Model),
		unobserveRecs:        make(map[string]func()),
		parentOf:             make(map[string]string),
		childSnapshot:        make(map[string][]string),
		connectorsByEndpoint: make(map[string]map[string]struct{}),
		endpointsOf:          make(map[string]endpointPair),
		elementAdded:         event.NewSubject[ElementAddedEvent](),
		elementRemoved:       event.NewSubject[ElementRemovedEvent](),
		elementUpdated:       event.NewSubject[ElementUpdatedEvent](),
		propsUpdated:         event.NewSubject[PropsUpdatedEvent](),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, id := range d.Elements().Keys() {
		if rec, ok := d.Elements().Get(id); ok {
			m.mount(id, rec)
		}
	}
	m.unobserveMap = d.Elements().Observe(m.onBatch)
	m.unsubSelf = m.elementUpdated.Subscribe(m.onElementUpdated)
	return m
}

// Dispose unhooks all storage observers and closes the event streams.
func (m *Model) Dispose() {
	if m.unobserveMap != nil {
		m.unobserveMap()
		m.unobserveMap = nil
	}
	if m.unsubSelf != nil {
		m.unsubSelf()
		m.unsubSelf = nil
	}
	for id, unob := range m.unobserveRecs {
		unob()
		delete(m.unobserveRecs, id)
	}
	for _, el := range m.elements {
		el.Dispose()
	}
	m.elementAdded.Close()
	m.elementRemoved.Close()
	m.elementUpdated.Close()
	m.propsUpdated.Close()
}

// =============================================================================
// Event streams
// =============================================================================

// ElementAdded is the element-creation stream.
func (m *Model) ElementAdded() *event.Subject[ElementAddedEvent] { return m.elementAdded }

// ElementRemoved is the element-deletion stream.
func (m *Model) ElementRemoved() *event.Subject[ElementRemovedEvent] { return m.elementRemoved }

// ElementUpdated is the per-element property change stream.
func (m *Model) ElementUpdated() *event.Subject[ElementUpdatedEvent] { return m.elementUpdated }

// PropsUpdated is the per-field change stream.
func (m *Model) PropsUpdated() *event.Subject[PropsUpdatedEvent] { return m.propsUpdated }

// =============================================================================
// Public mutation operations
// =============================================================================

// AddElement persists a new element and returns its id. props must carry a
// registered "type". Middlewares may rewrite props before persistence. An
// "index" ordering key is assigned after the current topmost element when
// the caller did not provide one.
func (m *Model) AddElement(props map[string]any) (string, error) {
	if m.d.Readonly() {
		return "", ErrReadonly
	}
	typ, _ := props[element.PropType].(string)
	if typ == "" {
		return "", fmt.Errorf("surface: addElement without a type: %w", element.ErrInvalidElementType)
	}
	if _, ok := m.registry.Schema(typ); !ok {
		return "", fmt.Errorf("surface: %q: %w", typ, element.ErrInvalidElementType)
	}

	p := make(map[string]any, len(props)+2)
	for k, v := range props {
		p[k] = v
	}
	m.applyMiddlewares(HookBeforeAdd, typ, p)

	id := m.newID()
	p[element.PropType] = typ
	p[element.PropID] = id
	if _, has := p[element.PropIndex]; !has {
		p[element.PropIndex] = m.keys.NKeysWithFallback(m.topIndex(), "", "", 1)[0]
	}

	m.d.Transact(func() {
		m.d.Elements().Set(id, p)
	})
	return id, nil
}

// UpdateElement applies each property assignment inside a single
// transaction, batching observer notifications.
func (m *Model) UpdateElement(id string, props map[string]any) error {
	el, ok := m.elements[id]
	if !ok {
		return fmt.Errorf("surface: element %q: %w", id, ErrElementNotFound)
	}
	if m.d.Readonly() {
		return ErrReadonly
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.d.Transact(func() {
		for _, k := range keys {
			el.Set(k, props[k])
		}
	})
	return nil
}

// DeleteElement removes an element and cascades through its group children:
// graph-backed children are collected depth-first and removed post-order
// (children before their former parent), each detached from any parent
// container first; block-backed children are handed to the block resolver.
// Everything happens in one transaction. Deleting an unknown id is a silent
// no-op.
func (m *Model) DeleteElement(id string) error {
	el, ok := m.elements[id]
	if !ok {
		return nil
	}
	if m.d.Readonly() {
		return ErrReadonly
	}
	graphDead, blockDead := m.collectDeletion(el)
	m.d.Transact(func() {
		for _, x := range graphDead {
			m.detachFromParent(x.ID())
			m.d.Elements().Delete(x.ID())
		}
		for _, b := range blockDead {
			m.blocks.DeleteBlock(b.ID())
		}
	})
	return nil
}

// Ungroup dissolves a container: its live children are released to the
// container's level with fresh ordering keys that preserve their relative
// layer order, and the emptied container is deleted by the empty-group
// rule. Unknown ids are a no-op.
func (m *Model) Ungroup(id string) error {
	el, ok := m.elements[id]
	if !ok || !el.GroupLike() {
		return nil
	}
	if m.d.Readonly() {
		return ErrReadonly
	}

	var children []*element.Model
	for _, cid := range el.ChildIDs() {
		if c, live := m.elements[cid]; live {
			children = append(children, c)
		}
	}
	// Layer order within the group is the children's index order, not the
	// stored childIds order.
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Index() < children[j].Index()
	})

	after := el.Index()
	before := m.nextIndexAfter(after, el.ID())
	newKeys := m.keys.NKeysWithFallback(after, before, after, len(children))

	m.d.Transact(func() {
		for i, c := range children {
			if i < len(newKeys) {
				c.SetIndex(newKeys[i])
			}
		}
		el.SetChildIDs(nil)
	})
	return nil
}

// =============================================================================
// Read access
// =============================================================================

// GetElement returns the live model for id.
func (m *Model) GetElement(id string) (*element.Model, bool) {
	el, ok := m.elements[id]
	return el, ok
}

// Elements returns all live models in storage insertion order.
func (m *Model) Elements() []*element.Model {
	out := make([]*element.Model, 0, len(m.elements))
	for _, id := range m.d.Elements().Keys() {
		if el, ok := m.elements[id]; ok {
			out = append(out, el)
		}
	}
	return out
}

// Len returns the number of live elements.
func (m *Model) Len() int { return len(m.elements) }

// =============================================================================
// Storage observer: two-phase index-then-emit
// =============================================================================

type queuedEvent struct {
	added   *ElementAddedEvent
	removed *ElementRemovedEvent
}

func (m *Model) onBatch(b doc.Batch) {
	var queue []queuedEvent
	var disposed []*element.Model

	// Phase 1: mutate models and indices for the whole batch.
	for _, ch := range b.Changes {
		switch ch.Action {
		case doc.ActionAdd:
			if _, exists := m.elements[ch.Key]; exists {
				continue
			}
			rec, ok := m.d.Elements().Get(ch.Key)
			if !ok {
				continue
			}
			if el := m.mount(ch.Key, rec); el != nil {
				queue = append(queue, queuedEvent{added: &ElementAddedEvent{ID: ch.Key, Local: b.Local}})
			}
		case doc.ActionDelete:
			el, ok := m.elements[ch.Key]
			if !ok {
				continue
			}
			m.unmount(ch.Key, el)
			disposed = append(disposed, el)
			queue = append(queue, queuedEvent{removed: &ElementRemovedEvent{
				ID:    ch.Key,
				Type:  el.Type(),
				Model: el,
				Local: b.Local,
			}})
		}
	}

	// Phase 2: emit only after every changed key is indexed.
	for _, q := range queue {
		if q.added != nil {
			m.elementAdded.Emit(*q.added)
		} else {
			m.elementRemoved.Emit(*q.removed)
		}
	}
	for _, el := range disposed {
		el.Dispose()
	}
}

func (m *Model) mount(id string, rec doc.Record) *element.Model {
	el, err := m.registry.New(id, rec)
	if err != nil {
		// A peer (or legacy data) can carry a kind this build does not
		// register; absorb rather than fail the batch.
		m.log.Warn().Str("element", id).Err(err).
			Msg("skipping element with unregistered type")
		return nil
	}
	m.elements[id] = el
	m.unobserveRecs[id] = rec.Observe(func(c doc.RecordChange) {
		m.onRecordChange(id, c)
	})
	if el.GroupLike() {
		m.SyncGroupChildren(id, el.ChildIDs(), nil)
	}
	if el.IsConnector() {
		m.syncConnector(el)
	}
	return el
}

func (m *Model) unmount(id string, el *element.Model) {
	if unob, ok := m.unobserveRecs[id]; ok {
		unob()
		delete(m.unobserveRecs, id)
	}
	delete(m.elements, id)
	if el.GroupLike() {
		m.RemoveGroupChildren(id)
	}
	if el.IsConnector() {
		m.removeConnector(id)
	}
	// Endpoint entries keyed by this id stay: live connectors may still
	// reference a removed element, and the index must mirror their fields.
	delete(m.parentOf, id)
}

func (m *Model) onRecordChange(id string, c doc.RecordChange) {
	el, ok := m.elements[id]
	if !ok {
		return
	}
	// Resync indices before emitting anything.
	props := make(map[string]any, len(c.Keys))
	for _, k := range c.Keys {
		props[k] = el.Get(k)
		switch k {
		case element.PropChildIDs:
			if el.GroupLike() {
				m.SyncGroupChildren(id, el.ChildIDs(), element.ToStringSlice(c.Old[k]))
			}
		case element.PropSource, element.PropTarget:
			if el.IsConnector() {
				m.syncConnector(el)
			}
		}
	}
	for _, k := range c.Keys {
		m.propsUpdated.Emit(PropsUpdatedEvent{ID: id, Key: k, Local: c.Local})
	}
	m.elementUpdated.Emit(ElementUpdatedEvent{
		ID:        id,
		Props:     props,
		OldValues: c.Old,
		Local:     c.Local,
	})
}

// onElementUpdated implements the empty-group self-destruct rule: a
// container whose childIds transitioned to empty is deleted, observed
// through the update stream rather than inline in the mutating call.
func (m *Model) onElementUpdated(e ElementUpdatedEvent) {
	el, ok := m.elements[e.ID]
	if !ok || !el.GroupLike() {
		return
	}
	if _, touched := e.Props[element.PropChildIDs]; !touched {
		return
	}
	if len(el.ChildIDs()) == 0 {
		// Readonly cannot flip mid-cascade in a single-threaded core, but a
		// refused delete here must not break event delivery.
		if err := m.DeleteElement(e.ID); err != nil {
			m.log.Warn().Str("element", e.ID).Err(err).
				Msg("failed to delete emptied container")
		}
	}
}

// =============================================================================
// Deletion closure
// =============================================================================

func (m *Model) collectDeletion(root *element.Model) ([]*element.Model, []BlockEntity) {
	var graphDead []*element.Model
	var blockDead []BlockEntity
	visited := make(map[string]bool)

	var walk func(el *element.Model)
	walk = func(el *element.Model) {
		if visited[el.ID()] {
			return
		}
		visited[el.ID()] = true
		if el.GroupLike() {
			for _, cid := range el.ChildIDs() {
				if child, ok := m.elements[cid]; ok {
					walk(child)
					continue
				}
				if m.blocks != nil {
					if b, ok := m.blocks.Block(cid); ok && !visited[cid] {
						visited[cid] = true
						blockDead = append(blockDead, b)
					}
				}
			}
		}
		// Post-order: children precede their former parent.
		graphDead = append(graphDead, el)
	}
	walk(root)
	return graphDead, blockDead
}

// detachFromParent removes id from its container's child list (graph group
// or block entity) before the element itself leaves storage, so no dangling
// reference exists mid-transaction.
func (m *Model) detachFromParent(id string) {
	gid, ok := m.parentOf[id]
	if !ok {
		return
	}
	if parent, live := m.elements[gid]; live && parent.GroupLike() {
		cur := parent.ChildIDs()
		next := make([]string, 0, len(cur))
		for _, c := range cur {
			if c != id {
				next = append(next, c)
			}
		}
		if len(next) != len(cur) {
			parent.SetChildIDs(next)
		}
	} else if m.blocks != nil {
		if b, found := m.blocks.Block(gid); found && b.HasChild(id) {
			b.RemoveChild(id)
		}
	}
	delete(m.parentOf, id)
}

// =============================================================================
// Ordering helpers
// =============================================================================

// topIndex returns the largest ordering key currently in use, or "".
func (m *Model) topIndex() string {
	top := ""
	for _, el := range m.elements {
		if idx := el.Index(); idx > top {
			top = idx
		}
	}
	return top
}

// nextIndexAfter returns the smallest ordering key strictly greater than
// idx among elements other than excludeID, or "" when idx is topmost.
func (m *Model) nextIndexAfter(idx, excludeID string) string {
	next := ""
	for _, el := range m.elements {
		if el.ID() == excludeID {
			continue
		}
		cur := el.Index()
		if cur > idx && (next == "" || cur < next) {
			next = cur
		}
	}
	return next
}
