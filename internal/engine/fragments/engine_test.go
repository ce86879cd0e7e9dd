package fragments

import (
	"context"
	"os"
	"testing"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/propindex"
	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/philipparndt/gobim/pkg/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	scene  *scene.Scene
	engine *Engine
	model  engine.Model
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	idx, err := propindex.Open(ctx, propindex.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	s := scene.New()
	e := New(s, idx, Options{Workers: 2})
	t.Cleanup(e.Close)

	data, err := os.ReadFile("testdata/sample.ifc")
	require.NoError(t, err)
	fragBytes, err := e.Import(ctx, data, "sample")
	require.NoError(t, err)

	m, err := e.Load(ctx, "sample", fragBytes)
	require.NoError(t, err)
	s.Add(m.Object())
	return &fixture{scene: s, engine: e, model: m}
}

// frontRay looks along -Z at height y through the middle of the first wall
func frontRay(y float64, planes ...geometry.Plane) engine.RaycastInput {
	cam := viewer.NewCamera(geometry.NewBoundingBox())
	cam.SetLookAt(geometry.NewVector3(5, y, 10), geometry.NewVector3(5, y, 0))
	return engine.RaycastInput{
		Camera:         *cam,
		Pointer:        engine.Pointer{X: 50, Y: 50},
		Viewport:       scene.Viewport{Width: 100, Height: 100},
		ClippingPlanes: planes,
	}
}

func TestLoadBuildsParts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	obj := f.model.Object()
	assert.Equal(t, "sample", obj.ID)
	assert.True(t, obj.Visible)
	assert.Len(t, obj.Parts, 4)
	assert.Len(t, obj.Materials, 3, "one material per category")
	for _, mat := range obj.Materials {
		assert.True(t, mat.Clippable)
	}

	cats, err := f.model.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"IFCDOOR", "IFCWALL", "IFCWINDOW"}, cats)

	refs, err := f.model.ItemsOfCategory(ctx, "IFCWALL")
	require.NoError(t, err)
	assert.Equal(t, []int64{25, 33}, engine.ResolveAll(ctx, refs))

	refs, err = f.model.ItemsOfCategory(ctx, "IFCSLAB")
	require.NoError(t, err)
	assert.Empty(t, refs)

	bbox := f.model.BoundingBox()
	assert.InDelta(t, 10.0, bbox.Size().X, 1e-9)
	assert.InDelta(t, 6.0, bbox.Size().Y, 1e-9)
}

func TestLoadRejectsDuplicatesAndGarbage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Load(ctx, "sample", nil)
	assert.ErrorIs(t, err, ErrDuplicateModel)

	_, err = f.engine.Load(ctx, "other", []byte("not a fragment"))
	assert.Error(t, err)
	_, ok := f.engine.Model("other")
	assert.False(t, ok)

	_, err = f.engine.Import(ctx, []byte("garbage"), "x.ifc")
	assert.Error(t, err)
}

func TestRaycast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hit, err := f.model.Raycast(ctx, frontRay(1.5))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, int64(25), hit.LocalID)
	assert.InDelta(t, 10.0, hit.Distance, 1e-9)
	assert.InDelta(t, 0.0, hit.Point.Z, 1e-9)

	// above the first wall the ray reaches the upper one
	hit, err = f.model.Raycast(ctx, frontRay(4))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, int64(33), hit.LocalID)
	assert.InDelta(t, 15.0, hit.Distance, 1e-9)

	hit, err = f.model.Raycast(ctx, frontRay(20))
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestRaycastHonoursClippingPlanes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hit, err := f.model.Raycast(ctx, frontRay(1.5, geometry.SectionPlane(geometry.AxisY, 1)))
	require.NoError(t, err)
	assert.Nil(t, hit, "geometry above the cut is not pickable")

	hit, err = f.model.Raycast(ctx, frontRay(1.5, geometry.SectionPlane(geometry.AxisY, 2)))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, int64(25), hit.LocalID)
}

func TestRaycastSkipsHiddenParts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.model.SetVisible(ctx, []int64{25}, false))
	hit, err := f.model.Raycast(ctx, frontRay(1.5))
	require.NoError(t, err)
	assert.Nil(t, hit)

	require.NoError(t, f.model.SetVisible(ctx, []int64{25, 999}, true))
	hit, err = f.model.Raycast(ctx, frontRay(1.5))
	require.NoError(t, err)
	require.NotNil(t, hit)

	f.scene.Mutate(func() { f.model.Object().Visible = false })
	hit, err = f.model.Raycast(ctx, frontRay(1.5))
	require.NoError(t, err)
	assert.Nil(t, hit)

	_, err = f.model.Raycast(ctx, engine.RaycastInput{})
	assert.Error(t, err, "empty viewport")
}

func TestHighlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gold := &scene.Material{Name: "highlight"}

	parts := map[int64]*scene.Part{}
	for _, p := range f.model.Object().Parts {
		parts[p.ID] = p
	}

	require.NoError(t, f.model.Highlight(ctx, []int64{25, 47}, gold))
	assert.Same(t, gold, parts[25].Highlight)
	assert.Same(t, gold, parts[47].Highlight)

	require.NoError(t, f.model.ResetHighlight(ctx, []int64{25}))
	assert.Nil(t, parts[25].Highlight)
	assert.Same(t, gold, parts[47].Highlight)

	require.NoError(t, f.model.ResetHighlight(ctx, nil))
	assert.Nil(t, parts[47].Highlight)
}

func TestItemsData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items, err := f.model.ItemsData(ctx, []int64{25, 56}, engine.PropertyQuery())
	require.NoError(t, err)
	require.Len(t, items, 2)

	wall := items[0]
	name, ok := wall.Attr(engine.AttrName)
	require.True(t, ok)
	assert.Equal(t, "Basic Wall:Exterior", name)
	category, _ := wall.Attr(engine.AttrCategory)
	assert.Equal(t, "IFCWALL", category)

	sets := wall.Relations[engine.RelIsDefinedBy]
	require.Len(t, sets, 2)
	setName, _ := sets[0].Attr(engine.AttrName)
	assert.Equal(t, "Pset_WallCommon", setName)

	props := sets[0].Relations[engine.RelHasProperties]
	require.Len(t, props, 4)
	value, ok := props[0].Attr(engine.AttrNominalValue)
	require.True(t, ok)
	assert.Equal(t, "true", value)
	_, ok = props[3].Attr(engine.AttrNominalValue)
	assert.False(t, ok, "null property has no nominal value")

	window := items[1]
	_, ok = window.Attr(engine.AttrName)
	assert.False(t, ok, "window has no name")
	assert.Empty(t, window.Relations[engine.RelIsDefinedBy])

	_, err = f.model.ItemsData(ctx, []int64{12345}, engine.PropertyQuery())
	assert.ErrorIs(t, err, propindex.ErrNotFound)
}

func TestDispose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Dispose(ctx, "sample"))
	_, err := f.model.Categories(ctx)
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = f.model.Raycast(ctx, frontRay(1.5))
	assert.ErrorIs(t, err, ErrDisposed)

	assert.ErrorIs(t, f.engine.Dispose(ctx, "sample"), ErrUnknownModel)
	require.NoError(t, f.engine.Update(ctx, true))
	assert.Equal(t, uint64(1), f.scene.Revision())
}

func TestPool(t *testing.T) {
	p := NewPool(1)
	ctx := context.Background()

	require.NoError(t, p.Do(ctx, func() error { return nil }))
	err := p.Do(ctx, func() error { panic("boom") })
	assert.ErrorContains(t, err, "boom")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, p.Do(cancelled, func() error { return nil }), context.Canceled)

	p.Close()
	assert.ErrorIs(t, p.Do(ctx, func() error { return nil }), ErrPoolClosed)
}

func TestCategoryMaterial(t *testing.T) {
	win := categoryMaterial("IFCWINDOW")
	assert.True(t, win.Transparent)
	assert.Equal(t, 0.5, win.Opacity)

	a := categoryMaterial("IFCFLOWTERMINAL")
	b := categoryMaterial("IFCFLOWTERMINAL")
	assert.Equal(t, a.Color, b.Color, "unknown categories get a stable color")
	assert.NotSame(t, a, b)
}
