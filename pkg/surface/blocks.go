package surface

// GroupContainer is anything that can own an ordered set of child element
// ids: a group-compatible graph element or a block-backed entity. The graph
// index treats both uniformly.
type GroupContainer interface {
	ID() string
	ChildIDs() []string
	HasChild(id string) bool
}

// BlockEntity is a document block (from the separate block tree) that is
// also group-compatible.
type BlockEntity interface {
	GroupContainer
	AddChild(id string)
	RemoveChild(id string)
	HasDescendant(id string) bool
}

// BlockResolver is the block-entity collaborator: it resolves block ids to
// group-compatible entities and carries out block deletion when a cascading
// element delete reaches a block-backed child.
type BlockResolver interface {
	Block(id string) (BlockEntity, bool)
	Blocks() []BlockEntity
	DeleteBlock(id string)
}

// RegisterBlocks attaches the block-entity collaborator. Passing nil
// detaches it.
func (m *Model) RegisterBlocks(r BlockResolver) {
	m.blocks = r
}
