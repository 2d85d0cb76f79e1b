package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncGroupChildrenIndexesParents(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	b := addShape(t, m, nil)
	g := addGroup(t, m, []string{a, b}, nil)

	require.NotNil(t, m.GetGroup(a))
	assert.Equal(t, g, m.GetGroup(a).ID())
	assert.Equal(t, g, m.GetGroup(b).ID())
	assert.Nil(t, m.GetGroup(g), "the group itself is top-level")
}

func TestSyncGroupChildrenIsIdempotent(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	b := addShape(t, m, nil)
	g := addGroup(t, m, []string{a, b}, nil)

	snapshotParents := func() map[string]string {
		out := make(map[string]string, len(m.parentOf))
		for k, v := range m.parentOf {
			out[k] = v
		}
		return out
	}

	before := snapshotParents()
	m.SyncGroupChildren(g, []string{a, b}, nil)
	m.SyncGroupChildren(g, []string{a, b}, nil)

	assert.Equal(t, before, snapshotParents(), "re-syncing the same list must change nothing")
	assert.Equal(t, []string{a, b}, m.childSnapshot[g])
}

func TestSyncGroupChildrenRemovesDepartedChildren(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	b := addShape(t, m, nil)
	g := addGroup(t, m, []string{a, b}, nil)

	err := m.UpdateElement(g, map[string]any{"childIds": []string{b}})
	require.NoError(t, err)

	assert.Nil(t, m.GetGroup(a), "departed child loses its parent entry")
	require.NotNil(t, m.GetGroup(b))
	assert.Equal(t, g, m.GetGroup(b).ID())
}

func TestLastIndexedClaimWins(t *testing.T) {
	// Malformed data: two groups list the same child. The index must not
	// crash; the last indexed claim owns the parent pointer.
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	g1 := addGroup(t, m, []string{a}, nil)
	g2 := addGroup(t, m, []string{a}, nil)

	assert.Equal(t, g2, m.parentOf[a])
	got := m.GetGroup(a)
	require.NotNil(t, got)
	assert.Contains(t, []string{g1, g2}, got.ID())
	assert.Equal(t, got.ID(), m.parentOf[a], "index stays internally consistent")
}

func TestGetGroupHealsStaleCacheEntry(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	g := addGroup(t, m, []string{a}, nil)

	// Corrupt the cache with a container that does not exist.
	m.parentOf[a] = "ghost"

	got := m.GetGroup(a)
	require.NotNil(t, got, "scan recovers the real parent")
	assert.Equal(t, g, got.ID())
	assert.Equal(t, g, m.parentOf[a], "recovery updates the cache")
}

func TestGetGroupHealsCacheMiss(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	g := addGroup(t, m, []string{a}, nil)

	delete(m.parentOf, a)

	got := m.GetGroup(a)
	require.NotNil(t, got)
	assert.Equal(t, g, got.ID())
	assert.Equal(t, g, m.parentOf[a])
}

func TestGetGroupPurgesEntryWhenContainmentGone(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	b := addShape(t, m, nil)
	g := addGroup(t, m, []string{a, b}, nil)

	// Make the cached parent claim stale without going through sync.
	mustGet(t, m, g)
	m.parentOf[a] = g
	require.NoError(t, m.UpdateElement(g, map[string]any{"childIds": []string{b}}))
	m.parentOf[a] = g // re-corrupt after the sync fixed it

	assert.Nil(t, m.GetGroup(a), "stale claim purged, scan finds nothing")
	_, cached := m.parentOf[a]
	assert.False(t, cached)
}

func TestRemoveGroupChildrenPurgesPointers(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	b := addShape(t, m, nil)
	g := addGroup(t, m, []string{a, b}, nil)

	m.RemoveGroupChildren(g)

	_, hasSnap := m.childSnapshot[g]
	assert.False(t, hasSnap)
	assert.NotContains(t, m.parentOf, a)
	assert.NotContains(t, m.parentOf, b)
}

func TestGetGroupResolvesBlockContainers(t *testing.T) {
	_, m := newTestModel(t)
	blocks := newFakeBlocks()
	m.RegisterBlocks(blocks)
	a := addShape(t, m, nil)
	blocks.add("blk-1", a)

	got := m.GetGroup(a)
	require.NotNil(t, got, "block-backed containers resolve uniformly")
	assert.Equal(t, "blk-1", got.ID())
	assert.Equal(t, "blk-1", m.parentOf[a])
}

func TestGetGroupsWalksAncestorChain(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	inner := addGroup(t, m, []string{a}, nil)
	outer := addGroup(t, m, []string{inner}, nil)

	chain := m.GetGroups(a)
	require.Len(t, chain, 2)
	assert.Equal(t, inner, chain[0].ID())
	assert.Equal(t, outer, chain[1].ID())
}

func TestGetGroupsTruncatesOnCycle(t *testing.T) {
	_, m := newTestModel(t)
	ga := addGroup(t, m, []string{"placeholder"}, nil)
	gb := addGroup(t, m, []string{ga}, nil)
	require.NoError(t, m.UpdateElement(ga, map[string]any{"childIds": []string{gb}}))

	// ga contains gb, gb contains ga: the chain walk must terminate.
	chain := m.GetGroups(ga)
	assert.LessOrEqual(t, len(chain), 2, "cyclic chain is truncated, not walked forever")
}
