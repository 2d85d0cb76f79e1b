package surface

// Group/tree index: parentOf maps a child id to its container id,
// childSnapshot holds each container's last indexed child list. The maps are
// owned exclusively by the Model; external code mutates them only through
// the element-mutation API.

// SyncGroupChildren reconciles the index with a container's new child list.
// prev may be nil, in which case the last indexed snapshot is used.
// Idempotent: syncing the same next list twice leaves the index unchanged.
func (m *Model) SyncGroupChildren(containerID string, next []string, prev []string) {
	if prev == nil {
		prev = m.childSnapshot[containerID]
	}
	if stringSlicesEqual(prev, next) {
		return
	}
	for _, id := range prev {
		if !containsString(next, id) && m.parentOf[id] == containerID {
			delete(m.parentOf, id)
		}
	}
	for _, id := range next {
		// Last indexed claim wins when two containers list the same child.
		m.parentOf[id] = containerID
	}
	snap := make([]string, len(next))
	copy(snap, next)
	m.childSnapshot[containerID] = snap
}

// RemoveGroupChildren clears a container's snapshot and purges parent
// pointers that still reference it.
func (m *Model) RemoveGroupChildren(containerID string) {
	for id, gid := range m.parentOf {
		if gid == containerID {
			delete(m.parentOf, id)
		}
	}
	delete(m.childSnapshot, containerID)
}

// GetGroup returns the container that directly owns id, or nil. The O(1)
// parent-index lookup is verified against actual containment; a stale entry
// is purged and a linear scan over all known containers repairs the cache.
func (m *Model) GetGroup(id string) GroupContainer {
	if gid, ok := m.parentOf[id]; ok {
		if c := m.container(gid); c != nil && c.HasChild(id) {
			return c
		}
		// Cached parent no longer contains the child.
		delete(m.parentOf, id)
		m.log.Debug().Str("element", id).Str("container", gid).
			Msg("purged stale parent index entry")
	}
	for _, el := range m.elements {
		if el.GroupLike() && el.HasChild(id) {
			m.parentOf[id] = el.ID()
			return el
		}
	}
	if m.blocks != nil {
		for _, b := range m.blocks.Blocks() {
			if b.HasChild(id) {
				m.parentOf[id] = b.ID()
				return b
			}
		}
	}
	return nil
}

// GetGroups returns the ancestor container chain of id, innermost first.
// A cyclic group graph is detected, logged once, and the chain truncated.
func (m *Model) GetGroups(id string) []GroupContainer {
	var chain []GroupContainer
	visited := map[string]bool{id: true}
	cur := id
	for {
		g := m.GetGroup(cur)
		if g == nil {
			return chain
		}
		if visited[g.ID()] {
			m.log.Warn().Str("element", id).Str("container", g.ID()).
				Msg("group chain contains a cycle, truncating")
			return chain
		}
		visited[g.ID()] = true
		chain = append(chain, g)
		cur = g.ID()
	}
}

// container resolves an id to a group-compatible owner: a group-like graph
// element or a block entity.
func (m *Model) container(id string) GroupContainer {
	if el, ok := m.elements[id]; ok {
		if el.GroupLike() {
			return el
		}
		return nil
	}
	if m.blocks != nil {
		if b, ok := m.blocks.Block(id); ok {
			return b
		}
	}
	return nil
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsString(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}
