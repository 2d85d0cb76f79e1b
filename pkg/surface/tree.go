package surface

import (
	"fmt"

	"github.com/quillboard/goquill/pkg/element"
)

// Tree utilities over the group graph. Malformed data can make the graph
// cyclic, so every walk carries a visited set: a node is processed at most
// once and no ancestor chain is assumed finite.

// Descendants returns the unique elements reachable through containerID's
// child lists. Terminates on cyclic graphs; block-backed children are not
// graph elements and are excluded.
func (m *Model) Descendants(containerID string) []*element.Model {
	visited := map[string]bool{containerID: true}
	var out []*element.Model
	stack := append([]string(nil), m.childIDsOf(containerID)...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		el, ok := m.elements[id]
		if !ok {
			continue
		}
		out = append(out, el)
		if el.GroupLike() {
			stack = append(stack, el.ChildIDs()...)
		}
	}
	return out
}

// HasDescendant reports whether id is reachable through containerID's child
// lists. Cycle-safe.
func (m *Model) HasDescendant(containerID, id string) bool {
	if containerID == id {
		return false
	}
	visited := map[string]bool{containerID: true}
	stack := append([]string(nil), m.childIDsOf(containerID)...)
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
		stack = append(stack, m.childIDsOf(cur)...)
	}
	return false
}

// TopElements returns exactly the input elements that have no ancestor in
// the input set, in input order. Idempotent: applying it to its own output
// returns the same output. Ancestor walks are cycle-guarded; an element on a
// cyclic parent chain with no selected ancestor degrades to top-level.
func (m *Model) TopElements(els []*element.Model) []*element.Model {
	selected := make(map[string]bool, len(els))
	for _, el := range els {
		selected[el.ID()] = true
	}
	var out []*element.Model
	for _, el := range els {
		if !m.hasSelectedAncestor(el.ID(), selected) {
			out = append(out, el)
		}
	}
	return out
}

func (m *Model) hasSelectedAncestor(id string, selected map[string]bool) bool {
	visited := map[string]bool{id: true}
	cur := id
	for {
		g := m.GetGroup(cur)
		if g == nil {
			return false
		}
		gid := g.ID()
		if selected[gid] {
			return true
		}
		if visited[gid] {
			return false
		}
		visited[gid] = true
		cur = gid
	}
}

// CanSafelyInsert reports whether childID may be inserted under containerID
// without creating a containment cycle: the child must not be the container
// itself and the container must not already be a descendant of the child.
func (m *Model) CanSafelyInsert(containerID, childID string) bool {
	if containerID == childID {
		return false
	}
	return !m.HasDescendant(childID, containerID)
}

// AddChildren appends ids to a container's child list in one transaction.
// Ids that would create a cycle are skipped with a warning; already-present
// ids are skipped silently.
func (m *Model) AddChildren(containerID string, ids ...string) error {
	el, ok := m.elements[containerID]
	if !ok || !el.GroupLike() {
		return fmt.Errorf("surface: container %q: %w", containerID, ErrElementNotFound)
	}
	if m.d.Readonly() {
		return ErrReadonly
	}
	next := el.ChildIDs()
	changed := false
	for _, id := range ids {
		if containsString(next, id) {
			continue
		}
		if !m.CanSafelyInsert(containerID, id) {
			m.log.Warn().Str("container", containerID).Str("child", id).
				Msg("skipping child insert that would create a cycle")
			continue
		}
		next = append(next, id)
		changed = true
	}
	if !changed {
		return nil
	}
	m.d.Transact(func() {
		el.SetChildIDs(next)
	})
	return nil
}

// RemoveChildren removes ids from a container's child list in one
// transaction. Missing ids are ignored. If the list empties, the container
// is deleted by the empty-group rule after the transaction commits.
func (m *Model) RemoveChildren(containerID string, ids ...string) error {
	el, ok := m.elements[containerID]
	if !ok || !el.GroupLike() {
		return fmt.Errorf("surface: container %q: %w", containerID, ErrElementNotFound)
	}
	if m.d.Readonly() {
		return ErrReadonly
	}
	cur := el.ChildIDs()
	next := make([]string, 0, len(cur))
	for _, id := range cur {
		if !containsString(ids, id) {
			next = append(next, id)
		}
	}
	if len(next) == len(cur) {
		return nil
	}
	m.d.Transact(func() {
		el.SetChildIDs(next)
	})
	return nil
}

// childIDsOf resolves children for either a graph element or a block entity.
func (m *Model) childIDsOf(id string) []string {
	if el, ok := m.elements[id]; ok {
		return el.ChildIDs()
	}
	if m.blocks != nil {
		if b, ok := m.blocks.Block(id); ok {
			return b.ChildIDs()
		}
	}
	return nil
}
