package scene

import (
	"testing"

	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/philipparndt/gobim/pkg/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRemove(t *testing.T) {
	s := New()
	a := &Object{ID: "a", Visible: true}
	b := &Object{ID: "b", Visible: true}

	s.Add(a)
	s.Add(b)
	assert.True(t, s.Contains("a"))
	assert.Equal(t, []*Object{a, b}, s.Objects())

	replacement := &Object{ID: "a"}
	s.Add(replacement)
	assert.Equal(t, []*Object{replacement, b}, s.Objects(), "same id replaces in place")

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, []*Object{b}, s.Objects())
}

func TestUpdateNotifiesListeners(t *testing.T) {
	s := New()
	mat := &Material{NeedsUpdate: true}
	s.Add(&Object{ID: "a", Materials: []*Material{mat}})

	var seen []uint64
	s.OnUpdate(func(rev uint64) {
		// listeners may read the scene
		_ = s.Objects()
		seen = append(seen, rev)
	})

	assert.Equal(t, uint64(1), s.Update(true))
	assert.Equal(t, uint64(2), s.Update(false))
	assert.Equal(t, []uint64{1, 2}, seen)
	assert.Equal(t, uint64(2), s.Revision())
	assert.False(t, mat.NeedsUpdate)
}

func TestClippingPlanesAreCopied(t *testing.T) {
	s := New()
	planes := []geometry.Plane{geometry.SectionPlane(geometry.AxisY, 1)}
	s.SetClippingPlanes(planes)
	planes[0].Constant = 99

	got := s.ClippingPlanes()
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Constant)

	s.SetClippingPlanes(nil)
	assert.Empty(t, s.ClippingPlanes())
}

func TestObjectBoundingBox(t *testing.T) {
	obj := &Object{Parts: []*Part{
		{Box: geometry.BoxFromPoints(geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 1, 1))},
		{Box: geometry.BoxFromPoints(geometry.NewVector3(2, -1, 0), geometry.NewVector3(3, 0, 4))},
	}}
	b := obj.BoundingBox()
	assert.Equal(t, geometry.NewVector3(0, -1, 0), b.Min)
	assert.Equal(t, geometry.NewVector3(3, 1, 4), b.Max)

	assert.True(t, (&Object{}).BoundingBox().IsEmpty())
}

func TestMaterial(t *testing.T) {
	m := &Material{Opacity: 0.5, Transparent: true, ClippingPlanes: []geometry.Plane{{Constant: 1}}}
	assert.Equal(t, uint8(127), m.RGBA().A)

	c := m.Clone()
	c.ClippingPlanes[0].Constant = 2
	assert.Equal(t, 1.0, m.ClippingPlanes[0].Constant)
}

func TestViewportNDC(t *testing.T) {
	v := Viewport{Left: 100, Top: 50, Width: 200, Height: 100}

	x, y, ok := v.NDC(200, 100)
	require.True(t, ok)
	assert.InDelta(t, 0.0, x, 1e-12)
	assert.InDelta(t, 0.0, y, 1e-12)

	x, y, _ = v.NDC(100, 50)
	assert.InDelta(t, -1.0, x, 1e-12)
	assert.InDelta(t, 1.0, y, 1e-12)

	_, _, ok = Viewport{}.NDC(1, 1)
	assert.False(t, ok)
	assert.Equal(t, 2.0, v.Aspect())
}

func TestWorldCamera(t *testing.T) {
	w := NewWorld(New())
	w.UpdateCamera(func(c *viewer.Camera) { c.Distance = 42 })
	assert.Equal(t, 42.0, w.Camera().Distance)

	w.SetViewport(Viewport{Width: 10, Height: 20})
	assert.Equal(t, 10.0, w.Viewport().Width)
}
