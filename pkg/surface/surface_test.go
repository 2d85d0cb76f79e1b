package surface

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillboard/goquill/pkg/doc"
	"github.com/quillboard/goquill/pkg/element"
)

// =============================================================================
// Shared fixtures
// =============================================================================

// newTestModel builds a surface model over a fresh MemDoc with deterministic
// element ids (el-1, el-2, …).
func newTestModel(t *testing.T) (*doc.MemDoc, *Model) {
	t.Helper()
	d := doc.NewMemDoc()
	n := 0
	m := New(d, WithIDSource(func() string {
		n++
		return fmt.Sprintf("el-%d", n)
	}))
	t.Cleanup(m.Dispose)
	return d, m
}

func addShape(t *testing.T, m *Model, extra map[string]any) string {
	t.Helper()
	props := map[string]any{element.PropType: element.TypeShape}
	for k, v := range extra {
		props[k] = v
	}
	id, err := m.AddElement(props)
	require.NoError(t, err)
	return id
}

func addGroup(t *testing.T, m *Model, children []string, extra map[string]any) string {
	t.Helper()
	props := map[string]any{
		element.PropType:     element.TypeGroup,
		element.PropChildIDs: children,
	}
	for k, v := range extra {
		props[k] = v
	}
	id, err := m.AddElement(props)
	require.NoError(t, err)
	return id
}

func addConnector(t *testing.T, m *Model, source, target string) string {
	t.Helper()
	props := map[string]any{element.PropType: element.TypeConnector}
	if source != "" {
		props[element.PropSource] = element.Endpoint(source)
	}
	if target != "" {
		props[element.PropTarget] = element.Endpoint(target)
	}
	id, err := m.AddElement(props)
	require.NoError(t, err)
	return id
}

func mustGet(t *testing.T, m *Model, id string) *element.Model {
	t.Helper()
	el, ok := m.GetElement(id)
	require.True(t, ok, "element %q should be live", id)
	return el
}

// =============================================================================
// Block-entity collaborator double
// =============================================================================

type fakeBlock struct {
	id       string
	children []string
	res      *fakeBlocks
}

func (b *fakeBlock) ID() string          { return b.id }
func (b *fakeBlock) ChildIDs() []string  { return append([]string(nil), b.children...) }
func (b *fakeBlock) AddChild(id string)  { b.children = append(b.children, id) }
func (b *fakeBlock) HasChild(id string) bool {
	for _, c := range b.children {
		if c == id {
			return true
		}
	}
	return false
}

func (b *fakeBlock) RemoveChild(id string) {
	next := b.children[:0]
	for _, c := range b.children {
		if c != id {
			next = append(next, c)
		}
	}
	b.children = next
}

func (b *fakeBlock) HasDescendant(id string) bool {
	visited := map[string]bool{b.id: true}
	stack := b.ChildIDs()
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == id {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if child, ok := b.res.blocks[cur]; ok {
			stack = append(stack, child.ChildIDs()...)
		}
	}
	return false
}

type fakeBlocks struct {
	blocks  map[string]*fakeBlock
	deleted []string
}

func newFakeBlocks() *fakeBlocks {
	return &fakeBlocks{blocks: make(map[string]*fakeBlock)}
}

func (f *fakeBlocks) add(id string, children ...string) *fakeBlock {
	b := &fakeBlock{id: id, children: children, res: f}
	f.blocks[id] = b
	return b
}

func (f *fakeBlocks) Block(id string) (BlockEntity, bool) {
	b, ok := f.blocks[id]
	if !ok {
		return nil, false
	}
	return b, true
}

func (f *fakeBlocks) Blocks() []BlockEntity {
	ids := make([]string, 0, len(f.blocks))
	for id := range f.blocks {
		ids = append(ids, id)
	}
	sortStrings(ids)
	out := make([]BlockEntity, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.blocks[id])
	}
	return out
}

func (f *fakeBlocks) DeleteBlock(id string) {
	delete(f.blocks, id)
	f.deleted = append(f.deleted, id)
}

var _ BlockResolver = (*fakeBlocks)(nil)

func idsOf(els []*element.Model) []string {
	var out []string
	for _, el := range els {
		out = append(out, el.ID())
	}
	return out
}
