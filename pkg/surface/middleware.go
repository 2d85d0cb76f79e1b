package surface

// Hook names the mutation point a middleware runs at.
type Hook string

// HookBeforeAdd runs before a new element's props are persisted.
const HookBeforeAdd Hook = "beforeAdd"

// MiddlewareContext is handed to each middleware. Props may be mutated in
// place (e.g. default title assignment) before persistence.
type MiddlewareContext struct {
	Hook        Hook
	ElementType string
	Props       map[string]any
}

// Middleware inspects or rewrites a mutation payload. Multiple middlewares
// apply in registration order.
type Middleware func(*MiddlewareContext)

// Use registers a middleware.
func (m *Model) Use(mw Middleware) {
	m.middlewares = append(m.middlewares, mw)
}

func (m *Model) applyMiddlewares(hook Hook, typ string, props map[string]any) {
	ctx := &MiddlewareContext{Hook: hook, ElementType: typ, Props: props}
	for _, mw := range m.middlewares {
		mw(ctx)
	}
}
