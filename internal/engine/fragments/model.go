package fragments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/propindex"
	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/pkg/frag"
	"github.com/philipparndt/gobim/pkg/geometry"
)

// ErrDisposed is returned by every operation on a disposed model
var ErrDisposed = errors.New("model disposed")

// Model implements engine.Model over a decoded fragment
type Model struct {
	id         string
	scene      *scene.Scene
	index      *propindex.Index
	object     *scene.Object
	parts      map[int64]*scene.Part
	categories map[string][]int64
	bbox       geometry.BoundingBox
	disposed   atomic.Bool
}

var _ engine.Model = (*Model)(nil)

func newModel(id string, f *frag.Fragment, s *scene.Scene, idx *propindex.Index) *Model {
	m := &Model{
		id:         id,
		scene:      s,
		index:      idx,
		parts:      make(map[int64]*scene.Part, len(f.Elements)),
		categories: f.Categories(),
		bbox:       f.BoundingBox(),
	}
	m.object = &scene.Object{
		ID:      id,
		Name:    f.Name,
		Kind:    "model",
		Visible: true,
	}

	materials := make(map[string]*scene.Material)
	for i := range f.Elements {
		el := &f.Elements[i]
		mat, ok := materials[el.Category]
		if !ok {
			mat = categoryMaterial(el.Category)
			materials[el.Category] = mat
			m.object.Materials = append(m.object.Materials, mat)
		}
		part := &scene.Part{ID: el.LocalID, Box: el.Box(), Visible: true, Material: mat}
		m.parts[el.LocalID] = part
		m.object.Parts = append(m.object.Parts, part)
	}
	return m
}

func (m *Model) check(ctx context.Context) error {
	if m.disposed.Load() {
		return fmt.Errorf("%w: %s", ErrDisposed, m.id)
	}
	return ctx.Err()
}

func (m *Model) dispose() {
	m.disposed.Store(true)
}

// ID returns the model id
func (m *Model) ID() string { return m.id }

// Object returns the scene node of the model
func (m *Model) Object() *scene.Object { return m.object }

// BoundingBox returns the box enclosing all elements
func (m *Model) BoundingBox() geometry.BoundingBox { return m.bbox }

// Categories returns the category names in sorted order
func (m *Model) Categories(ctx context.Context) ([]string, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m.categories))
	for name := range m.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ItemsOfCategory returns references to the elements of a category
func (m *Model) ItemsOfCategory(ctx context.Context, category string) ([]engine.ElementRef, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	ids := m.categories[category]
	refs := make([]engine.ElementRef, len(ids))
	for i, id := range ids {
		refs[i] = engine.NumericRef(id)
	}
	return refs, nil
}

// Raycast returns the closest visible element box hit by the pointer ray.
// Parts of boxes on the clipped side of a clipping plane do not count.
func (m *Model) Raycast(ctx context.Context, in engine.RaycastInput) (*engine.Hit, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	ray, ok := in.Ray()
	if !ok {
		return nil, fmt.Errorf("raycast %s: empty viewport", m.id)
	}

	var hit *engine.Hit
	m.scene.View(func(_ []*scene.Object, _ []geometry.Plane) {
		if !m.object.Visible {
			return
		}
		best := math.MaxFloat64
		for _, part := range m.object.Parts {
			if !part.Visible {
				continue
			}
			tNear, tFar, ok := part.Box.IntersectRay(ray)
			for _, plane := range in.ClippingPlanes {
				if !ok {
					break
				}
				tNear, tFar, ok = plane.ClipInterval(ray, tNear, tFar)
			}
			if !ok || tNear >= best {
				continue
			}
			best = tNear
			hit = &engine.Hit{LocalID: part.ID, Distance: tNear, Point: ray.At(tNear)}
		}
	})
	return hit, nil
}

// Highlight draws the given elements with mat
func (m *Model) Highlight(ctx context.Context, ids []int64, mat *scene.Material) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.scene.Mutate(func() {
		for _, id := range ids {
			if part, ok := m.parts[id]; ok {
				part.Highlight = mat
			}
		}
	})
	return nil
}

// ResetHighlight restores the default material; nil ids resets all elements
func (m *Model) ResetHighlight(ctx context.Context, ids []int64) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.scene.Mutate(func() {
		if ids == nil {
			for _, part := range m.object.Parts {
				part.Highlight = nil
			}
			return
		}
		for _, id := range ids {
			if part, ok := m.parts[id]; ok {
				part.Highlight = nil
			}
		}
	})
	return nil
}

// SetVisible shows or hides the given elements
func (m *Model) SetVisible(ctx context.Context, ids []int64, visible bool) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.scene.Mutate(func() {
		for _, id := range ids {
			if part, ok := m.parts[id]; ok {
				part.Visible = visible
			}
		}
	})
	return nil
}

// ItemsData returns attribute and relation trees for the given elements
func (m *Model) ItemsData(ctx context.Context, ids []int64, q engine.ItemsQuery) ([]engine.ItemData, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	items := make([]engine.ItemData, 0, len(ids))
	for _, id := range ids {
		rec, err := m.index.Element(ctx, m.id, id)
		if err != nil {
			return nil, err
		}
		item := engine.ItemData{LocalID: id, Attributes: map[string]engine.Attribute{}}
		if q.DefaultAttributes {
			item.Attributes[engine.AttrCategory] = engine.Attribute{Value: rec.Category}
			item.Attributes[engine.AttrGUID] = engine.Attribute{Value: rec.GUID, Type: "IFCGLOBALLYUNIQUEID"}
			for name, value := range map[string]string{
				engine.AttrName: rec.Name,
				"Description":   rec.Description,
				"ObjectType":    rec.ObjectType,
				"Tag":           rec.Tag,
			} {
				if value != "" {
					item.Attributes[name] = engine.Attribute{Value: value, Type: "IFCLABEL"}
				}
			}
		}

		if rq, ok := q.Relations[engine.RelIsDefinedBy]; ok {
			sets, err := m.index.PropertySets(ctx, m.id, id)
			if err != nil {
				return nil, err
			}
			item.Relations = map[string][]engine.ItemData{
				engine.RelIsDefinedBy: propertySetItems(sets, rq),
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func propertySetItems(sets []frag.PropertySet, rq engine.RelationQuery) []engine.ItemData {
	out := make([]engine.ItemData, 0, len(sets))
	for _, set := range sets {
		item := engine.ItemData{LocalID: set.ID}
		if rq.Attributes {
			item.Attributes = map[string]engine.Attribute{
				engine.AttrName: {Value: set.Name, Type: "IFCLABEL"},
			}
		}
		if rq.Relations {
			props := make([]engine.ItemData, 0, len(set.Properties))
			for _, p := range set.Properties {
				attrs := map[string]engine.Attribute{
					engine.AttrName: {Value: p.Name, Type: "IFCIDENTIFIER"},
				}
				if !p.Null {
					attrs[engine.AttrNominalValue] = engine.Attribute{Value: p.Value, Type: p.Type}
				}
				props = append(props, engine.ItemData{Attributes: attrs})
			}
			item.Relations = map[string][]engine.ItemData{engine.RelHasProperties: props}
		}
		out = append(out, item)
	}
	return out
}
