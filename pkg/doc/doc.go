// Package doc defines the storage contract the surface engine expects from
// the underlying collaborative document: an ordered, observable key-value map
// of element records with transactional batched writes. The real CRDT engine
// is an external collaborator; MemDoc is the in-memory implementation used by
// the engine core and its tests.
package doc

// Action classifies a change to the element map.
type Action int

const (
	// ActionAdd means a record appeared under a key.
	ActionAdd Action = iota
	// ActionDelete means the record under a key was removed.
	ActionDelete
)

// MapChange is one changed key within a transaction batch.
type MapChange struct {
	Action Action
	Key    string
}

// Batch is the full set of element-map changes committed by one transaction.
// Local is false for changes replayed from a remote peer.
type Batch struct {
	Changes []MapChange
	Local   bool
}

// RecordChange describes property writes to a single record committed by one
// transaction. Old maps each changed key to its value before the transaction
// (nil for previously-absent keys).
type RecordChange struct {
	Keys  []string
	Old   map[string]any
	Local bool
}

// Record is an observable key-value record holding one element's properties.
// Writes outside an explicit transaction are wrapped in an implicit local one.
type Record interface {
	Get(key string) (any, bool)
	Set(key string, v any)
	Delete(key string)
	Has(key string) bool
	Keys() []string
	ToMap() map[string]any
	// Observe registers fn for committed changes; returns an unobserve func.
	Observe(fn func(RecordChange)) func()
}

// ElementMap is the ordered, observable map of element id to record.
type ElementMap interface {
	Get(id string) (Record, bool)
	Has(id string) bool
	// Keys returns ids in insertion order.
	Keys() []string
	Len() int
	// Set creates (or replaces) the record under id with the given properties
	// and returns it.
	Set(id string, props map[string]any) Record
	// Delete removes the record under id; deleting an absent id is a no-op.
	Delete(id string)
	// Observe registers fn for committed change batches; returns an
	// unobserve func. Observers run strictly after the transaction's writes
	// are committed, in commit order, never interleaved across transactions.
	Observe(fn func(Batch)) func()
}

// Doc is the document handle the surface engine mutates through.
type Doc interface {
	Readonly() bool
	Elements() ElementMap
	// Transact runs fn as one atomic local transaction. Nested calls join
	// the enclosing transaction. Observers fire once, after commit.
	Transact(fn func())
}
