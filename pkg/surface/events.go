package surface

import "github.com/quillboard/goquill/pkg/element"

// ElementAddedEvent fires after an element's transaction commits and its
// model and index entries exist. Local is false for remotely-replayed
// transactions; subscribers must treat both uniformly for correctness.
type ElementAddedEvent struct {
	ID    string
	Local bool
}

// ElementRemovedEvent fires after an element leaves storage and all index
// entries are gone. Model is the final model instance, readable until the
// subscriber returns.
type ElementRemovedEvent struct {
	ID    string
	Type  string
	Model *element.Model
	Local bool
}

// ElementUpdatedEvent fires once per changed element per transaction, after
// index resync. Props holds the new values of changed keys, OldValues the
// values before the transaction.
type ElementUpdatedEvent struct {
	ID        string
	Props     map[string]any
	OldValues map[string]any
	Local     bool
}

// PropsUpdatedEvent fires per changed field, in addition to the
// element-level event.
type PropsUpdatedEvent struct {
	ID    string
	Key   string
	Local bool
}
