package app

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/philipparndt/gobim/pkg/viewer"
)

var backgroundColor = color.RGBA{R: 30, G: 32, B: 38, A: 255}

// SceneView draws the shared scene and forwards pointer input to the viewer
type SceneView struct {
	widget.BaseWidget
	app    *App
	raster *canvas.Raster
}

func newSceneView(app *App) *SceneView {
	v := &SceneView{app: app}
	v.raster = canvas.NewRaster(v.draw)
	v.ExtendBaseWidget(v)
	return v
}

// CreateRenderer creates the renderer for the widget
func (v *SceneView) CreateRenderer() fyne.WidgetRenderer {
	return &sceneWidgetRenderer{
		view:    v,
		objects: []fyne.CanvasObject{v.raster},
	}
}

// Resize keeps the viewer viewport in sync with the widget. Pointer events
// and the viewport share fyne's device independent units.
func (v *SceneView) Resize(size fyne.Size) {
	v.app.session.Viewer.World.SetViewport(scene.Viewport{
		Width:  float64(size.Width),
		Height: float64(size.Height),
	})
	v.BaseWidget.Resize(size)
}

// draw renders the scene at the raster's pixel size
func (v *SceneView) draw(w, h int) image.Image {
	return renderScene(v.app.session.Viewer.World, w, h, v.app.View)
}

type sceneWidgetRenderer struct {
	view    *SceneView
	objects []fyne.CanvasObject
}

func (r *sceneWidgetRenderer) Layout(size fyne.Size) {
	r.view.raster.Resize(size)
}

func (r *sceneWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 400)
}

func (r *sceneWidgetRenderer) Refresh() {
	r.view.raster.Refresh()
}

func (r *sceneWidgetRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *sceneWidgetRenderer) Destroy() {}

// drawCall is one batch of triangles sharing a color and clip planes
type drawCall struct {
	tris   []geometry.Triangle
	box    *geometry.BoundingBox
	color  color.RGBA
	planes []geometry.Plane
}

// renderScene rasterizes the visible parts of all visible objects over the
// optional ground grid. Opaque geometry is drawn first so translucent parts
// blend over it. Model parts honour the global clip planes and their
// material's planes; helpers are never clipped.
func renderScene(world *scene.World, width, height int, settings ViewSettings) *image.RGBA {
	frame := viewer.NewFrame(width, height, backgroundColor)
	cam := world.Camera()

	var (
		opaque, translucent []drawCall
		bounds              geometry.BoundingBox
	)
	world.Scene.View(func(objects []*scene.Object, clips []geometry.Plane) {
		bounds = modelBounds(objects)
		for _, obj := range objects {
			if !obj.Visible {
				continue
			}
			for _, part := range obj.Parts {
				if !part.Visible {
					continue
				}
				mat := part.Material
				if part.Highlight != nil {
					mat = part.Highlight
				}
				if mat == nil {
					continue
				}
				box := part.Box
				call := drawCall{
					tris:   box.Faces(),
					box:    &box,
					color:  mat.RGBA(),
					planes: partPlanes(mat, clips),
				}
				if call.color.A < 255 {
					translucent = append(translucent, call)
				} else {
					opaque = append(opaque, call)
				}
			}
			if len(obj.Mesh) > 0 {
				col := color.RGBA{R: 200, G: 200, B: 200, A: 255}
				if len(obj.Materials) > 0 {
					col = obj.Materials[0].RGBA()
				}
				call := drawCall{tris: obj.Mesh, color: col}
				if col.A < 255 {
					translucent = append(translucent, call)
				} else {
					opaque = append(opaque, call)
				}
			}
		}
	})

	if settings.showGrid {
		drawGrid(frame, &cam, bounds)
	}
	for _, call := range opaque {
		call.draw(frame, &cam, settings)
	}
	for _, call := range translucent {
		call.draw(frame, &cam, settings)
	}
	return frame.Image
}

func partPlanes(mat *scene.Material, clips []geometry.Plane) []geometry.Plane {
	planes := append([]geometry.Plane(nil), clips...)
	if mat.Clippable {
		planes = append(planes, mat.ClippingPlanes...)
	}
	return planes
}

func (c drawCall) draw(frame *viewer.Frame, cam *viewer.Camera, settings ViewSettings) {
	frame.SetClippingPlanes(c.planes)
	if settings.showFilled {
		for _, tri := range c.tris {
			frame.FillTriangle(cam, tri, c.color)
		}
	}
	if settings.showWireframe && c.box != nil {
		drawWireframe(frame, cam, *c.box, edgeColor(c.color, settings.showFilled))
	}
}
