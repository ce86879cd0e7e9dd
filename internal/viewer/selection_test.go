package viewer

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pointer = engine.Pointer{X: 400, Y: 300}

func TestClickSwitchesSelectionBetweenModels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loadBoth(t)

	h.a.setHit(&engine.Hit{LocalID: 7, Distance: 3})
	sel, err := h.v.Selection.Click(ctx, pointer)
	require.NoError(t, err)
	assert.Equal(t, "A", sel.ModelID)
	assert.Equal(t, int64(7), sel.ElementID)
	assert.Equal(t, []int64{7}, h.a.highlightedIDs())

	h.a.setHit(nil)
	h.b.setHit(&engine.Hit{LocalID: 42, Distance: 8})
	sel, err = h.v.Selection.Click(ctx, pointer)
	require.NoError(t, err)
	assert.Equal(t, "B", sel.ModelID)
	assert.Equal(t, int64(42), sel.ElementID)
	assert.Equal(t, 8.0, sel.Distance)
	assert.Empty(t, h.a.highlightedIDs(), "previous highlight is cleared")
	assert.Equal(t, []int64{42}, h.b.highlightedIDs())
}

func TestClickFirstVisibleHitWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loadBoth(t)

	// B is nearer but A comes first in load order
	h.a.setHit(&engine.Hit{LocalID: 1, Distance: 50})
	h.b.setHit(&engine.Hit{LocalID: 40, Distance: 1})

	sel, err := h.v.Selection.Click(ctx, pointer)
	require.NoError(t, err)
	assert.Equal(t, "A", sel.ModelID)
	assert.Zero(t, h.b.raycasts, "scan stops at the first hit")

	_, err = h.v.Registry.ToggleVisibility(ctx, "A")
	require.NoError(t, err)
	sel, err = h.v.Selection.Click(ctx, pointer)
	require.NoError(t, err)
	assert.Equal(t, "B", sel.ModelID, "hidden models are skipped")
	assert.Equal(t, 1, h.a.raycasts)
}

func TestClickContinuesAfterRaycastError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loadBoth(t)

	h.a.raycastErr = errors.New("worker busy")
	h.b.setHit(&engine.Hit{LocalID: 41})

	sel, err := h.v.Selection.Click(ctx, pointer)
	require.NoError(t, err)
	assert.Equal(t, "B", sel.ModelID)
	assert.Equal(t, int64(41), sel.ElementID)
}

func TestClickOnEmptySpaceClears(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loadBoth(t)

	h.b.setHit(&engine.Hit{LocalID: 42})
	_, err := h.v.Selection.Click(ctx, pointer)
	require.NoError(t, err)

	h.b.setHit(nil)
	sel, err := h.v.Selection.Click(ctx, pointer)
	require.NoError(t, err)
	assert.Equal(t, SelectionState{}, sel)
	assert.Empty(t, h.b.highlightedIDs())

	// nothing loaded at all
	h.v.Registry.Clear(ctx)
	sel, err = h.v.Selection.Click(ctx, pointer)
	require.NoError(t, err)
	assert.True(t, sel.Empty())
}

func TestElementInfo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loadBoth(t)

	prop := func(name string, value any) engine.ItemData {
		attrs := map[string]engine.Attribute{}
		if name != "" {
			attrs[engine.AttrName] = engine.Attribute{Value: name}
		}
		if value != nil {
			attrs[engine.AttrNominalValue] = engine.Attribute{Value: value}
		}
		return engine.ItemData{Attributes: attrs}
	}
	pset := func(name string, props ...engine.ItemData) engine.ItemData {
		item := engine.ItemData{
			Attributes: map[string]engine.Attribute{},
			Relations:  map[string][]engine.ItemData{engine.RelHasProperties: props},
		}
		if name != "" {
			item.Attributes[engine.AttrName] = engine.Attribute{Value: name}
		}
		return item
	}

	h.a.names[3] = "Basic Wall"
	h.a.psets[3] = []engine.ItemData{
		pset("Pset_WallCommon",
			prop("IsExternal", true),
			prop("FireRating", "REI60"),
			prop("Reference", nil),
			prop("", "orphan"),
		),
		pset("", prop("Lost", "value")),
		pset("Pset_Empty", prop("Reference", nil)),
		{Attributes: map[string]engine.Attribute{engine.AttrName: {Value: "NoRelations"}}},
	}

	sel, err := h.v.Selection.Select(ctx, "A", 3)
	require.NoError(t, err)
	assert.Equal(t, "Basic Wall", sel.ElementName)
	assert.Equal(t, []PropertySet{{
		Name: "Pset_WallCommon",
		Properties: []Property{
			{Name: "IsExternal", Value: "true"},
			{Name: "FireRating", Value: "REI60"},
		},
	}}, sel.PropertySets)

	sel, err = h.v.Selection.Select(ctx, "A", 4)
	require.NoError(t, err)
	assert.Equal(t, UnknownElementName, sel.ElementName)
	assert.Empty(t, sel.PropertySets)

	_, err = h.v.Selection.Select(ctx, "Z", 1)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestPropertyFetchErrorKeepsSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loadBoth(t)

	h.a.names[7] = "Door"
	sel, err := h.v.Selection.Select(ctx, "A", 7)
	require.NoError(t, err)
	assert.Equal(t, "Door", sel.ElementName)

	h.b.itemsErr = errors.New("index unavailable")
	h.b.setHit(&engine.Hit{LocalID: 42})
	h.a.setHit(nil)
	sel, err = h.v.Selection.Click(ctx, pointer)
	require.NoError(t, err)
	assert.Equal(t, "B", sel.ModelID)
	assert.Equal(t, int64(42), sel.ElementID)
	assert.Empty(t, sel.ElementName, "no stale name from the previous element")
	assert.Nil(t, sel.PropertySets)
	assert.Equal(t, []int64{42}, h.b.highlightedIDs())
}

func TestStaleClickIsDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loadBoth(t)

	// the first click stalls inside A's ray test
	h.a.setHit(&engine.Hit{LocalID: 1})
	h.a.mu.Lock()
	h.a.raycastGate, h.a.raycastEnter = make(chan struct{}), make(chan struct{})
	gate, enter := h.a.raycastGate, h.a.raycastEnter
	h.a.mu.Unlock()

	done := make(chan SelectionState, 1)
	go func() {
		sel, _ := h.v.Selection.Click(ctx, pointer)
		done <- sel
	}()
	<-enter

	// a second click completes first and selects B
	h.a.setHit(nil)
	h.b.setHit(&engine.Hit{LocalID: 43})
	sel, err := h.v.Selection.Click(ctx, pointer)
	require.NoError(t, err)
	assert.Equal(t, "B", sel.ModelID)

	close(gate)
	stale := <-done
	assert.Equal(t, "B", stale.ModelID, "the stale click reports the current selection")

	sel = h.v.Selection.Selected()
	assert.Equal(t, "B", sel.ModelID)
	assert.Equal(t, int64(43), sel.ElementID)
	assert.Empty(t, h.a.highlightedIDs(), "the stale hit is never highlighted")
}

func TestSelectionExclusivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loadBoth(t)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		switch rnd.Intn(4) {
		case 0:
			h.a.setHit(&engine.Hit{LocalID: int64(1 + rnd.Intn(10))})
		case 1:
			h.a.setHit(nil)
		case 2:
			h.b.setHit(&engine.Hit{LocalID: int64(40 + rnd.Intn(5))})
		case 3:
			h.b.setHit(nil)
		}
		sel, err := h.v.Selection.Click(ctx, pointer)
		require.NoError(t, err)

		total := len(h.a.highlightedIDs()) + len(h.b.highlightedIDs())
		assert.LessOrEqual(t, total, 1)
		assert.Equal(t, sel.ModelID == "", sel.ElementID == 0 && total == 0)
	}
}

func TestSelectRejectsUnknownElement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loadBoth(t)

	_, err := h.v.Selection.Select(ctx, "A", 7)
	require.NoError(t, err)

	sel, err := h.v.Selection.Select(ctx, "A", 999999)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Equal(t, int64(7), sel.ElementID, "the previous selection stays")
	assert.Equal(t, []int64{7}, h.a.highlightedIDs())

	// ids of another model do not count
	_, err = h.v.Selection.Select(ctx, "B", 7)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Empty(t, h.b.highlightedIDs())
}
