package element

import (
	"errors"
	"fmt"

	"github.com/quillboard/goquill/pkg/doc"
)

// ErrInvalidElementType is returned for an unregistered element kind.
var ErrInvalidElementType = errors.New("element: invalid element type")

// Registry maps element kind discriminants to their schemas. New kinds are
// registered at startup; construction validates the discriminant again.
type Registry struct {
	schemas map[string]*Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register adds a kind. The schema must carry a type name, every derive rule
// must reference a declared field, and duplicate registration is an error.
func (r *Registry) Register(s *Schema) error {
	if s == nil || s.Type == "" {
		return fmt.Errorf("element: schema missing type: %w", ErrInvalidElementType)
	}
	if _, exists := r.schemas[s.Type]; exists {
		return fmt.Errorf("element: type %q already registered: %w", s.Type, ErrInvalidElementType)
	}
	for dep := range s.Derive {
		if _, declared := s.Fields[dep]; !declared {
			return fmt.Errorf("element: type %q derive on undeclared field %q: %w",
				s.Type, dep, ErrInvalidElementType)
		}
	}
	r.schemas[s.Type] = s
	return nil
}

// Schema looks up a registered kind.
func (r *Registry) Schema(typ string) (*Schema, bool) {
	s, ok := r.schemas[typ]
	return s, ok
}

// New constructs a typed model over rec, reading the kind discriminant from
// the record's "type" property.
func (r *Registry) New(id string, rec doc.Record) (*Model, error) {
	v, _ := rec.Get(PropType)
	typ, _ := v.(string)
	s, ok := r.schemas[typ]
	if !ok {
		return nil, fmt.Errorf("element: %q: %w", typ, ErrInvalidElementType)
	}
	return newModel(s, id, rec), nil
}
