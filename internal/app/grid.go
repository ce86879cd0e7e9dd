package app

import (
	"image/color"
	"math"

	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/philipparndt/gobim/pkg/viewer"
)

var (
	gridColor      = color.RGBA{R: 62, G: 64, B: 72, A: 255}
	majorGridColor = color.RGBA{R: 92, G: 95, B: 106, A: 255}
)

// gridPadding extends the grid beyond the models on every side
const gridPadding = 0.2

// nearDistance keeps grid lines from wrapping around behind the camera
const nearDistance = 0.05

// gridSpacing returns a round spacing (1, 2 or 5 times a power of ten) that
// gives about fifteen lines across size
func gridSpacing(size float64) float64 {
	if size <= 0 {
		return 1
	}
	rough := size / 15
	magnitude := math.Pow(10, math.Floor(math.Log10(rough)))
	for _, mult := range []float64{1, 2, 5} {
		if magnitude*mult >= rough {
			return magnitude * mult
		}
	}
	return magnitude * 10
}

// modelBounds unions the boxes of all visible model objects
func modelBounds(objects []*scene.Object) geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, obj := range objects {
		if obj.Visible && obj.Kind == "model" {
			bbox.Union(obj.BoundingBox())
		}
	}
	return bbox
}

// drawGrid draws a ground grid on the XZ plane under bounds. Every fifth
// line is a major line. Geometry drawn afterwards covers the grid.
func drawGrid(frame *viewer.Frame, cam *viewer.Camera, bounds geometry.BoundingBox) {
	if bounds.IsEmpty() {
		return
	}
	size := bounds.Size()
	extent := math.Max(size.X, size.Z) * (1 + 2*gridPadding)
	spacing := gridSpacing(extent)
	center := bounds.Center()
	y := bounds.Min.Y

	minX := math.Floor((center.X-extent/2)/spacing) * spacing
	maxX := math.Ceil((center.X+extent/2)/spacing) * spacing
	minZ := math.Floor((center.Z-extent/2)/spacing) * spacing
	maxZ := math.Ceil((center.Z+extent/2)/spacing) * spacing

	forward := cam.Target.Sub(cam.Position).Normalize()
	frame.SetClippingPlanes([]geometry.Plane{{
		Normal:   forward,
		Constant: -forward.Dot(cam.Position) - nearDistance,
	}})
	defer frame.SetClippingPlanes(nil)

	lineColor := func(v float64) color.RGBA {
		if math.Mod(math.Round(v/spacing), 5) == 0 {
			return majorGridColor
		}
		return gridColor
	}
	for x := minX; x <= maxX+spacing/2; x += spacing {
		frame.DrawSegment(cam, geometry.NewVector3(x, y, minZ), geometry.NewVector3(x, y, maxZ), lineColor(x))
	}
	for z := minZ; z <= maxZ+spacing/2; z += spacing {
		frame.DrawSegment(cam, geometry.NewVector3(minX, y, z), geometry.NewVector3(maxX, y, z), lineColor(z))
	}
}

func (app *App) toggleGrid() {
	app.View.showGrid = !app.View.showGrid
	app.view.Refresh()
}
