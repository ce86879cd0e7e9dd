package viewer

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/scene"
)

// UnknownElementName is shown for elements without a Name attribute
const UnknownElementName = "Unknown element"

// Property is one name/value pair of a property set
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PropertySet is a named group of properties
type PropertySet struct {
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// SelectionState is the single selection slot. ModelID is empty exactly when
// nothing is selected.
type SelectionState struct {
	ModelID      string        `json:"modelId,omitempty"`
	ElementID    int64         `json:"elementId,omitempty"`
	ElementName  string        `json:"elementName,omitempty"`
	PropertySets []PropertySet `json:"propertySets,omitempty"`
	// Distance is the ray distance of the hit that made the selection
	Distance float64 `json:"distance,omitempty"`
}

// Empty reports whether nothing is selected
func (s SelectionState) Empty() bool {
	return s.ModelID == ""
}

// Selection resolves pointer clicks to elements and keeps the highlight
type Selection struct {
	v        *Viewer
	material *scene.Material

	mu    sync.Mutex
	gen   uint64
	state SelectionState
}

func newSelection(v *Viewer, mat *scene.Material) *Selection {
	return &Selection{v: v, material: mat}
}

// Selected returns a snapshot of the selection
func (s *Selection) Selected() SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s SelectionState) clone() SelectionState {
	c := s
	c.PropertySets = slices.Clone(s.PropertySets)
	return c
}

// Click ray-tests the visible models in load order and selects the element
// of the first model that reports a hit. A click on empty space clears the
// selection. When a newer click or a clear happens before this one finishes,
// its result is discarded.
func (s *Selection) Click(ctx context.Context, p engine.Pointer) (SelectionState, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	world := s.v.World
	in := engine.RaycastInput{
		Camera:         world.Camera(),
		Pointer:        p,
		Viewport:       world.Viewport(),
		ClippingPlanes: world.Scene.ClippingPlanes(),
	}

	var (
		found *ModelRecord
		hit   *engine.Hit
	)
	for _, rec := range s.v.Registry.Models() {
		if !rec.Visible {
			continue
		}
		h, err := rec.Model.Raycast(ctx, in)
		if err != nil {
			s.v.Log.Warn("raycast failed", "error", &RaycastError{ModelID: rec.ID, Err: err})
			continue
		}
		if h != nil {
			found, hit = &rec, h
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return s.Selected(), err
	}

	if found == nil {
		s.apply(ctx, gen, nil, 0, 0)
		return s.Selected(), nil
	}
	return s.selectElement(ctx, gen, found, hit.LocalID, hit.Distance)
}

// Select selects an element programmatically, e.g. from a search result.
// Ids the model does not enumerate are rejected and leave the selection as
// it is.
func (s *Selection) Select(ctx context.Context, modelID string, localID int64) (SelectionState, error) {
	rec, ok := s.v.Registry.Get(modelID)
	if !ok {
		return s.Selected(), fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	}
	found, err := hasElement(ctx, rec.Model, localID)
	if err != nil {
		return s.Selected(), fmt.Errorf("look up element %d of %s: %w", localID, modelID, err)
	}
	if !found {
		return s.Selected(), fmt.Errorf("%w: %s #%d", ErrElementNotFound, modelID, localID)
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()
	return s.selectElement(ctx, gen, &rec, localID, 0)
}

// hasElement reports whether one of the model's categories lists id
func hasElement(ctx context.Context, m engine.Model, id int64) (bool, error) {
	cats, err := m.Categories(ctx)
	if err != nil {
		return false, err
	}
	for _, cat := range cats {
		refs, err := m.ItemsOfCategory(ctx, cat)
		if err != nil {
			return false, err
		}
		if slices.Contains(engine.ResolveAll(ctx, refs), id) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Selection) selectElement(ctx context.Context, gen uint64, rec *ModelRecord, id int64, distance float64) (SelectionState, error) {
	if !s.apply(ctx, gen, rec, id, distance) {
		return s.Selected(), nil
	}

	name, sets, err := elementInfo(ctx, rec.Model, id)
	if err != nil {
		s.v.Log.Warn("element info failed", "error", &PropertyFetchError{ModelID: rec.ID, LocalID: id, Err: err})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state.ModelID != rec.ID || s.state.ElementID != id {
		return s.state.clone(), nil
	}
	s.state.ElementName = name
	s.state.PropertySets = sets
	return s.state.clone(), nil
}

// apply moves the highlight and writes the selection slot. It returns false
// when the click is stale.
func (s *Selection) apply(ctx context.Context, gen uint64, rec *ModelRecord, id int64, distance float64) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.v.Log.Debug("discarding stale click")
		return false
	}
	prev := s.state
	s.resetHighlight(ctx, prev)
	if rec != nil {
		if err := rec.Model.Highlight(ctx, []int64{id}, s.material); err != nil {
			s.v.Log.Warn("highlight failed", "model", rec.ID, "element", id, "error", err)
		}
		s.state = SelectionState{ModelID: rec.ID, ElementID: id, Distance: distance}
	} else {
		s.state = SelectionState{}
	}
	s.mu.Unlock()

	s.v.refresh(ctx)
	return true
}

// resetHighlight clears the highlight of a previous selection if its model
// is still loaded. Callers hold s.mu.
func (s *Selection) resetHighlight(ctx context.Context, prev SelectionState) {
	if prev.Empty() {
		return
	}
	rec, ok := s.v.Registry.Get(prev.ModelID)
	if !ok {
		return
	}
	if err := rec.Model.ResetHighlight(ctx, []int64{prev.ElementID}); err != nil {
		s.v.Log.Warn("reset highlight failed", "model", prev.ModelID, "error", err)
	}
}

// Clear drops the selection and its highlight
func (s *Selection) Clear(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	prev := s.state
	s.resetHighlight(ctx, prev)
	s.state = SelectionState{}
	s.mu.Unlock()
}

// ClearIfModel drops the selection if it belongs to the model. Pending
// clicks are invalidated either way since they may target the model.
func (s *Selection) ClearIfModel(modelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.state.ModelID != modelID {
		return false
	}
	s.state = SelectionState{}
	return true
}

// elementInfo fetches the display name and the property sets of an element.
// Sets without a name and properties without a name or value are skipped.
func elementInfo(ctx context.Context, m engine.Model, id int64) (string, []PropertySet, error) {
	items, err := m.ItemsData(ctx, []int64{id}, engine.PropertyQuery())
	if err != nil {
		return "", nil, err
	}
	if len(items) == 0 {
		return "", nil, fmt.Errorf("no data for element %d", id)
	}
	item := items[0]

	name := UnknownElementName
	if v, ok := item.Attr(engine.AttrName); ok {
		name = fmt.Sprint(v)
	}

	var sets []PropertySet
	for _, rel := range item.Relations[engine.RelIsDefinedBy] {
		setName, ok := rel.Attr(engine.AttrName)
		if !ok {
			continue
		}
		props, ok := rel.Relations[engine.RelHasProperties]
		if !ok {
			continue
		}
		set := PropertySet{Name: fmt.Sprint(setName)}
		for _, p := range props {
			pname, ok := p.Attr(engine.AttrName)
			if !ok || pname == "" {
				continue
			}
			value, ok := p.Attr(engine.AttrNominalValue)
			if !ok {
				continue
			}
			set.Properties = append(set.Properties, Property{Name: fmt.Sprint(pname), Value: fmt.Sprint(value)})
		}
		if len(set.Properties) > 0 {
			sets = append(sets, set)
		}
	}
	return name, sets, nil
}
