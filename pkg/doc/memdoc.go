package doc

import "reflect"

// MemDoc is the in-memory Doc implementation. It provides the same
// observable-transaction semantics the engine expects from a CRDT document:
// writes buffer until the outermost transaction ends, then observers are
// notified in commit order. TransactRemote simulates a peer transaction
// (Local=false) for tests.
//
// Not safe for concurrent use from multiple goroutines; the engine core is
// single-threaded by contract.
type MemDoc struct {
	readonly bool
	elements *memMap

	depth    int
	txnLocal bool
	flushing bool

	pendingMap  []MapChange
	pendingRecs []*memRecord
	queue       []commit
}

type commit struct {
	changes []MapChange
	recs    []recordCommit
	local   bool
}

type recordCommit struct {
	rec    *memRecord
	change RecordChange
}

// NewMemDoc creates an empty document.
func NewMemDoc() *MemDoc {
	d := &MemDoc{}
	d.elements = &memMap{
		doc:       d,
		records:   make(map[string]*memRecord),
		observers: make(map[int]func(Batch)),
	}
	return d
}

// Readonly reports whether the document refuses mutations.
func (d *MemDoc) Readonly() bool { return d.readonly }

// SetReadonly toggles the readonly flag. Enforcement lives in the surface
// layer; MemDoc only carries the state.
func (d *MemDoc) SetReadonly(v bool) { d.readonly = v }

// Elements returns the element map.
func (d *MemDoc) Elements() ElementMap { return d.elements }

// Transact runs fn as one atomic local transaction.
func (d *MemDoc) Transact(fn func()) { d.transact(true, fn) }

// TransactRemote runs fn as one atomic transaction flagged as
// remotely-originated (Local=false on all resulting change notifications).
func (d *MemDoc) TransactRemote(fn func()) { d.transact(false, fn) }

func (d *MemDoc) transact(local bool, fn func()) {
	if d.depth > 0 {
		// Nested transactions join the enclosing one (and its local flag).
		fn()
		return
	}
	d.depth++
	d.txnLocal = local
	fn()
	d.depth--
	if c, ok := d.takeCommit(local); ok {
		d.queue = append(d.queue, c)
		d.flush()
	}
}

// withTxn wraps a bare write in an implicit local transaction.
func (d *MemDoc) withTxn(fn func()) {
	if d.depth > 0 {
		fn()
		return
	}
	d.transact(true, fn)
}

func (d *MemDoc) takeCommit(local bool) (commit, bool) {
	if len(d.pendingMap) == 0 && len(d.pendingRecs) == 0 {
		return commit{}, false
	}
	c := commit{changes: d.pendingMap, local: local}
	for _, rec := range d.pendingRecs {
		c.recs = append(c.recs, recordCommit{
			rec: rec,
			change: RecordChange{
				Keys:  rec.dirtyOrder,
				Old:   rec.dirtyOld,
				Local: local,
			},
		})
		rec.dirtyOrder = nil
		rec.dirtyOld = nil
	}
	d.pendingMap = nil
	d.pendingRecs = nil
	return c, true
}

// flush drains the commit queue. A notification handler may start new
// transactions; those commits append to the queue and are delivered by the
// outermost flush, preserving commit order.
func (d *MemDoc) flush() {
	if d.flushing {
		return
	}
	d.flushing = true
	for len(d.queue) > 0 {
		c := d.queue[0]
		d.queue = d.queue[1:]
		d.elements.notify(Batch{Changes: c.changes, Local: c.local})
		for _, rc := range c.recs {
			rc.rec.notify(rc.change)
		}
	}
	d.flushing = false
}

func (d *MemDoc) noteDirty(r *memRecord) {
	for _, p := range d.pendingRecs {
		if p == r {
			return
		}
	}
	d.pendingRecs = append(d.pendingRecs, r)
}

// =============================================================================
// Element map
// =============================================================================

type memMap struct {
	doc       *MemDoc
	records   map[string]*memRecord
	order     []string
	observers map[int]func(Batch)
	nextID    int
}

func (m *memMap) Get(id string) (Record, bool) {
	r, ok := m.records[id]
	if !ok {
		return nil, false
	}
	return r, true
}

func (m *memMap) Has(id string) bool {
	_, ok := m.records[id]
	return ok
}

func (m *memMap) Keys() []string {
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

func (m *memMap) Len() int { return len(m.records) }

func (m *memMap) Set(id string, props map[string]any) Record {
	var rec *memRecord
	m.doc.withTxn(func() {
		if _, exists := m.records[id]; exists {
			m.delete(id)
		}
		rec = &memRecord{
			doc:       m.doc,
			data:      make(map[string]any, len(props)),
			observers: make(map[int]func(RecordChange)),
		}
		for k, v := range props {
			rec.data[k] = v
		}
		m.records[id] = rec
		m.order = append(m.order, id)
		m.doc.pendingMap = append(m.doc.pendingMap, MapChange{Action: ActionAdd, Key: id})
	})
	return rec
}

func (m *memMap) Delete(id string) {
	m.doc.withTxn(func() {
		m.delete(id)
	})
}

func (m *memMap) delete(id string) {
	if _, exists := m.records[id]; !exists {
		return
	}
	delete(m.records, id)
	for i, k := range m.order {
		if k == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.doc.pendingMap = append(m.doc.pendingMap, MapChange{Action: ActionDelete, Key: id})
}

func (m *memMap) Observe(fn func(Batch)) func() {
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	return func() {
		delete(m.observers, id)
	}
}

func (m *memMap) notify(b Batch) {
	if len(b.Changes) == 0 {
		return
	}
	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	sortInts(ids)
	for _, id := range ids {
		if fn, ok := m.observers[id]; ok {
			fn(b)
		}
	}
}

// =============================================================================
// Record
// =============================================================================

type memRecord struct {
	doc       *MemDoc
	data      map[string]any
	observers map[int]func(RecordChange)
	nextID    int

	dirtyOrder []string
	dirtyOld   map[string]any
}

func (r *memRecord) Get(key string) (any, bool) {
	v, ok := r.data[key]
	return v, ok
}

func (r *memRecord) Has(key string) bool {
	_, ok := r.data[key]
	return ok
}

func (r *memRecord) Keys() []string {
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	return keys
}

func (r *memRecord) ToMap() map[string]any {
	out := make(map[string]any, len(r.data))
	for k, v := range r.data {
		out[k] = v
	}
	return out
}

func (r *memRecord) Set(key string, v any) {
	r.doc.withTxn(func() {
		old, had := r.data[key]
		if had && valuesEqual(old, v) {
			// Identical write: suppress to avoid spurious change events.
			return
		}
		r.mark(key, old)
		r.data[key] = v
	})
}

func (r *memRecord) Delete(key string) {
	r.doc.withTxn(func() {
		old, had := r.data[key]
		if !had {
			return
		}
		r.mark(key, old)
		delete(r.data, key)
	})
}

func (r *memRecord) mark(key string, old any) {
	if r.dirtyOld == nil {
		r.dirtyOld = make(map[string]any)
	}
	if _, seen := r.dirtyOld[key]; !seen {
		r.dirtyOld[key] = old
		r.dirtyOrder = append(r.dirtyOrder, key)
	}
	r.doc.noteDirty(r)
}

func (r *memRecord) Observe(fn func(RecordChange)) func() {
	id := r.nextID
	r.nextID++
	r.observers[id] = fn
	return func() {
		delete(r.observers, id)
	}
}

func (r *memRecord) notify(c RecordChange) {
	if len(c.Keys) == 0 {
		return
	}
	ids := make([]int, 0, len(r.observers))
	for id := range r.observers {
		ids = append(ids, id)
	}
	sortInts(ids)
	for _, id := range ids {
		if fn, ok := r.observers[id]; ok {
			fn(c)
		}
	}
}

// =============================================================================
// Helpers
// =============================================================================

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func sortInts(a []int) {
	for i := 0; i < len(a)-1; i++ {
		for j := i + 1; j < len(a); j++ {
			if a[i] > a[j] {
				a[i], a[j] = a[j], a[i]
			}
		}
	}
}

// Compile-time interface checks
var (
	_ Doc        = (*MemDoc)(nil)
	_ ElementMap = (*memMap)(nil)
	_ Record     = (*memRecord)(nil)
)
