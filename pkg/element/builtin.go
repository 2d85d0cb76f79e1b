package element

// Built-in element kinds and well-known property names.
const (
	TypeShape     = "shape"
	TypeGroup     = "group"
	TypeConnector = "connector"
	TypeMindMap   = "mindmap"

	PropType     = "type"
	PropID       = "id"
	PropIndex    = "index"
	PropChildIDs = "childIds"
	PropSource   = "source"
	PropTarget   = "target"
)

// ShapeSchema declares the shape kind. Changing shapeType resets rotation to
// its canonical default; display and opacity are render-local and never hit
// storage.
func ShapeSchema() *Schema {
	return &Schema{
		Type: TypeShape,
		Fields: map[string]Field{
			PropIndex:   {Kind: Persisted, Default: "a0"},
			"xywh":      {Kind: Persisted, Default: "[0,0,100,100]"},
			"shapeType": {Kind: Persisted, Default: "rect"},
			"rotation":  {Kind: Persisted, Default: float64(0)},
			"display":   {Kind: Local, Default: true},
			"opacity":   {Kind: Local, Default: float64(1)},
		},
		Derive: map[string]DeriveFunc{
			"shapeType": func(_ *Model, _ any) map[string]any {
				return map[string]any{"rotation": float64(0)}
			},
		},
	}
}

// GroupSchema declares the group kind.
func GroupSchema() *Schema {
	return &Schema{
		Type:      TypeGroup,
		GroupLike: true,
		Fields: map[string]Field{
			PropIndex:    {Kind: Persisted, Default: "a0"},
			PropChildIDs: {Kind: Persisted, Default: []string{}},
			"title":      {Kind: Persisted, Default: ""},
		},
	}
}

// ConnectorSchema declares the connector kind. Endpoints are stored as
// {"id": …} maps; either may be unset.
func ConnectorSchema() *Schema {
	return &Schema{
		Type:      TypeConnector,
		Connector: true,
		Fields: map[string]Field{
			PropIndex:  {Kind: Persisted, Default: "a0"},
			PropSource: {Kind: Persisted, Default: nil},
			PropTarget: {Kind: Persisted, Default: nil},
			"mode":     {Kind: Persisted, Default: "orthogonal"},
		},
	}
}

// MindMapSchema declares the mind-map kind, which is group-compatible like
// group but carries a layout style.
func MindMapSchema() *Schema {
	return &Schema{
		Type:      TypeMindMap,
		GroupLike: true,
		Fields: map[string]Field{
			PropIndex:    {Kind: Persisted, Default: "a0"},
			PropChildIDs: {Kind: Persisted, Default: []string{}},
			"layoutType": {Kind: Persisted, Default: "right"},
			"style":      {Kind: Persisted, Default: float64(1)},
		},
	}
}

// DefaultRegistry returns a registry with all built-in kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []*Schema{ShapeSchema(), GroupSchema(), ConnectorSchema(), MindMapSchema()} {
		// Built-in schemas cannot collide; ignore the error path.
		_ = r.Register(s)
	}
	return r
}

// Endpoint builds the stored form of a connector endpoint reference.
func Endpoint(id string) map[string]any {
	return map[string]any{"id": id}
}
