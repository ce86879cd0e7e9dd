package app

import (
	"image/color"
	"testing"

	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/philipparndt/gobim/pkg/viewer"
	"github.com/stretchr/testify/assert"
)

var filled = ViewSettings{showFilled: true}

func cubeWorld() (*scene.World, *scene.Part) {
	box := geometry.BoxFromPoints(geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 1, 1))
	part := &scene.Part{
		ID:      1,
		Box:     box,
		Visible: true,
		Material: &scene.Material{
			Color:     color.RGBA{R: 200, G: 200, B: 200, A: 255},
			Opacity:   1,
			Clippable: true,
		},
	}
	w := scene.NewWorld(scene.New())
	w.Scene.Add(&scene.Object{ID: "cube", Kind: "model", Visible: true, Parts: []*scene.Part{part}})
	w.UpdateCamera(func(c *viewer.Camera) { c.Fit(box) })
	return w, part
}

func TestRenderDrawsVisibleParts(t *testing.T) {
	w, _ := cubeWorld()
	img := renderScene(w, 64, 64, filled)

	assert.NotEqual(t, backgroundColor, img.RGBAAt(32, 32))
	assert.Equal(t, backgroundColor, img.RGBAAt(0, 0))
}

func TestRenderSkipsHiddenParts(t *testing.T) {
	w, part := cubeWorld()
	part.Visible = false
	img := renderScene(w, 64, 64, filled)
	assert.Equal(t, backgroundColor, img.RGBAAt(32, 32))

	part.Visible = true
	w.Scene.Objects()[0].Visible = false
	img = renderScene(w, 64, 64, filled)
	assert.Equal(t, backgroundColor, img.RGBAAt(32, 32), "hidden object hides all parts")
}

func TestRenderUsesHighlight(t *testing.T) {
	w, part := cubeWorld()
	plain := renderScene(w, 64, 64, filled).RGBAAt(32, 32)

	part.Highlight = &scene.Material{Color: color.RGBA{R: 255, G: 215, B: 0, A: 255}, Opacity: 1}
	lit := renderScene(w, 64, 64, filled).RGBAAt(32, 32)

	assert.NotEqual(t, plain, lit)
	assert.Greater(t, lit.R, lit.B)
}

func TestRenderHonoursClipPlanes(t *testing.T) {
	w, part := cubeWorld()
	w.Scene.SetClippingPlanes([]geometry.Plane{geometry.SectionPlane(geometry.AxisY, -1)})
	img := renderScene(w, 64, 64, filled)
	assert.Equal(t, backgroundColor, img.RGBAAt(32, 32), "global plane below the cube")

	w.Scene.SetClippingPlanes(nil)
	part.Material.ClippingPlanes = []geometry.Plane{geometry.SectionPlane(geometry.AxisY, -1)}
	img = renderScene(w, 64, 64, filled)
	assert.Equal(t, backgroundColor, img.RGBAAt(32, 32), "material plane below the cube")

	part.Material.Clippable = false
	img = renderScene(w, 64, 64, filled)
	assert.NotEqual(t, backgroundColor, img.RGBAAt(32, 32), "material planes need a clippable material")
}

func TestRenderDoesNotClipHelpers(t *testing.T) {
	w, _ := cubeWorld()
	w.Scene.SetClippingPlanes([]geometry.Plane{geometry.SectionPlane(geometry.AxisY, -1)})

	a := geometry.NewVector3(-1, -1, 0.5)
	b := geometry.NewVector3(2, -1, 0.5)
	c := geometry.NewVector3(2, 2, 0.5)
	d := geometry.NewVector3(-1, 2, 0.5)
	w.Scene.Add(&scene.Object{
		ID:      "helper",
		Kind:    "helper",
		Visible: true,
		Materials: []*scene.Material{{
			Color:       color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 255},
			Opacity:     0.5,
			Transparent: true,
		}},
		Mesh: []geometry.Triangle{{V1: a, V2: b, V3: c}, {V1: a, V2: c, V3: d}},
	})

	img := renderScene(w, 64, 64, filled)
	px := img.RGBAAt(32, 32)
	assert.NotEqual(t, backgroundColor, px)
	assert.Greater(t, px.B, px.R, "translucent blue over the background")
}

func TestRenderWireframe(t *testing.T) {
	w, _ := cubeWorld()
	img := renderScene(w, 64, 64, ViewSettings{showWireframe: true})

	assert.Equal(t, backgroundColor, img.RGBAAt(32, 32), "faces are not filled")
	drawn := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if img.RGBAAt(x, y) != backgroundColor {
				drawn++
			}
		}
	}
	assert.Positive(t, drawn)
}

func TestEdgeColor(t *testing.T) {
	fill := color.RGBA{R: 200, G: 100, B: 50, A: 255}
	assert.Equal(t, fill, edgeColor(fill, false))
	assert.Equal(t, color.RGBA{R: 100, G: 50, B: 25, A: 255}, edgeColor(fill, true))
}

func TestGridSpacing(t *testing.T) {
	tests := []struct {
		size, want float64
	}{
		{size: 150, want: 10},
		{size: 30, want: 2},
		{size: 60, want: 5},
		{size: 14, want: 1},
		{size: 0, want: 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, gridSpacing(tt.size), 1e-9, "gridSpacing(%v)", tt.size)
	}
}

func TestRenderGrid(t *testing.T) {
	w, _ := cubeWorld()

	grid := renderScene(w, 64, 64, ViewSettings{showGrid: true})
	drawn := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if grid.RGBAAt(x, y) != backgroundColor {
				drawn++
			}
		}
	}
	assert.Positive(t, drawn, "grid lines under the model")

	plain := renderScene(w, 64, 64, filled)
	withGrid := renderScene(w, 64, 64, ViewSettings{showFilled: true, showGrid: true})
	assert.Equal(t, plain.RGBAAt(32, 32), withGrid.RGBAAt(32, 32), "the model covers the grid")

	w.Scene.Objects()[0].Visible = false
	empty := renderScene(w, 64, 64, ViewSettings{showGrid: true})
	assert.Equal(t, backgroundColor, empty.RGBAAt(32, 48), "no grid without visible models")
}
