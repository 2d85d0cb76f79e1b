package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillboard/goquill/pkg/element"
)

func TestDescendantsCollectsNestedElements(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	b := addShape(t, m, nil)
	inner := addGroup(t, m, []string{b}, nil)
	outer := addGroup(t, m, []string{a, inner}, nil)

	got := m.Descendants(outer)
	ids := idsOf(got)
	sortStrings(ids)
	want := []string{a, b, inner}
	sortStrings(want)
	assert.Equal(t, want, ids)
}

func TestDescendantsTerminatesOnCycle(t *testing.T) {
	// Group A contains group B, group B contains group A: the walk must
	// return exactly the two elements, not loop or duplicate.
	_, m := newTestModel(t)
	ga := addGroup(t, m, []string{"seed"}, nil)
	gb := addGroup(t, m, []string{ga}, nil)
	require.NoError(t, m.UpdateElement(ga, map[string]any{"childIds": []string{gb}}))

	got := m.Descendants(ga)
	ids := idsOf(got)
	sortStrings(ids)
	want := []string{ga, gb}
	sortStrings(want)
	assert.Equal(t, want, ids, "a 2-cycle yields exactly 2 unique elements")
}

func TestHasDescendant(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	inner := addGroup(t, m, []string{a}, nil)
	outer := addGroup(t, m, []string{inner}, nil)

	assert.True(t, m.HasDescendant(outer, a))
	assert.True(t, m.HasDescendant(outer, inner))
	assert.False(t, m.HasDescendant(inner, outer))
	assert.False(t, m.HasDescendant(a, outer))
	assert.False(t, m.HasDescendant(outer, outer), "an element is not its own descendant")
}

func TestTopElementsExcludesCoveredChildren(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	b := addShape(t, m, nil)
	free := addShape(t, m, nil)
	g := addGroup(t, m, []string{a, b}, nil)

	input := []*element.Model{
		mustGet(t, m, a),
		mustGet(t, m, free),
		mustGet(t, m, b),
		mustGet(t, m, g),
	}
	got := m.TopElements(input)

	assert.Equal(t, []string{free, g}, idsOf(got),
		"children of a selected group are excluded, order preserved")
}

func TestTopElementsIsIdempotent(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	inner := addGroup(t, m, []string{a}, nil)
	outer := addGroup(t, m, []string{inner}, nil)

	input := []*element.Model{mustGet(t, m, a), mustGet(t, m, inner), mustGet(t, m, outer)}
	first := m.TopElements(input)
	second := m.TopElements(first)

	assert.Equal(t, idsOf(first), idsOf(second))
	assert.Equal(t, []string{outer}, idsOf(second))
}

func TestTopElementsSurvivesCyclicParentChain(t *testing.T) {
	_, m := newTestModel(t)
	ga := addGroup(t, m, []string{"seed"}, nil)
	gb := addGroup(t, m, []string{ga}, nil)
	require.NoError(t, m.UpdateElement(ga, map[string]any{"childIds": []string{gb}}))

	// Neither group has a selected ancestor outside the cycle; both degrade
	// to top-level rather than hanging the ancestor walk.
	got := m.TopElements([]*element.Model{mustGet(t, m, ga)})
	assert.Equal(t, []string{ga}, idsOf(got))
}

func TestCanSafelyInsert(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	inner := addGroup(t, m, []string{a}, nil)
	outer := addGroup(t, m, []string{inner}, nil)

	assert.False(t, m.CanSafelyInsert(outer, outer), "self-insert is never safe")
	assert.False(t, m.CanSafelyInsert(inner, outer), "inserting an ancestor under its descendant cycles")
	assert.True(t, m.CanSafelyInsert(outer, a), "re-inserting a descendant elsewhere in the tree is fine")

	b := addShape(t, m, nil)
	assert.True(t, m.CanSafelyInsert(outer, b))
}

func TestAddChildrenSkipsUnsafeInserts(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	inner := addGroup(t, m, []string{a}, nil)
	outer := addGroup(t, m, []string{inner}, nil)
	b := addShape(t, m, nil)

	err := m.AddChildren(inner, b, outer, inner, a)
	require.NoError(t, err)

	got := mustGet(t, m, inner).ChildIDs()
	assert.Equal(t, []string{a, b}, got,
		"cycle-creating and duplicate ids are skipped, safe ones appended")
}

func TestAddChildrenUnknownContainer(t *testing.T) {
	_, m := newTestModel(t)
	err := m.AddChildren("nope", "x")
	require.ErrorIs(t, err, ErrElementNotFound)
}

func TestRemoveChildrenDetachesAndKeepsElements(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	b := addShape(t, m, nil)
	g := addGroup(t, m, []string{a, b}, nil)

	require.NoError(t, m.RemoveChildren(g, a))

	assert.Equal(t, []string{b}, mustGet(t, m, g).ChildIDs())
	assert.Nil(t, m.GetGroup(a))
	_, live := m.GetElement(a)
	assert.True(t, live, "removing from a group does not delete the element")
}

func TestRemoveChildrenEmptyingGroupDeletesIt(t *testing.T) {
	_, m := newTestModel(t)
	a := addShape(t, m, nil)
	b := addShape(t, m, nil)
	g := addGroup(t, m, []string{a, b}, nil)

	var removed []string
	unsub := m.ElementRemoved().Subscribe(func(e ElementRemovedEvent) {
		removed = append(removed, e.ID)
	})
	defer unsub()

	require.NoError(t, m.RemoveChildren(g, a, b))

	assert.Equal(t, []string{g}, removed, "emptied container self-destructs")
	_, live := m.GetElement(g)
	assert.False(t, live)
	_, liveA := m.GetElement(a)
	assert.True(t, liveA)
}
