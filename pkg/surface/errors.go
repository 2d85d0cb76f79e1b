package surface

import "errors"

var (
	// ErrReadonly means a mutation was attempted while the owning document
	// is read-only. Fatal to the call, not to the system.
	ErrReadonly = errors.New("surface: document is readonly")

	// ErrElementNotFound means an operation addressed an id with no live
	// element. UpdateElement returns it; DeleteElement instead treats a
	// missing id as a silent no-op.
	ErrElementNotFound = errors.New("surface: element not found")
)
