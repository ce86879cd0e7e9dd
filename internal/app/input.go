package app

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/viewer"
)

var (
	_ fyne.Tappable     = (*SceneView)(nil)
	_ fyne.Scrollable   = (*SceneView)(nil)
	_ fyne.Draggable    = (*SceneView)(nil)
	_ desktop.Mouseable = (*SceneView)(nil)
)

// Tapped selects the element under the pointer
func (v *SceneView) Tapped(ev *fyne.PointEvent) {
	v.app.pick(float64(ev.Position.X), float64(ev.Position.Y))
}

// Scrolled moves an active section plane, otherwise zooms
func (v *SceneView) Scrolled(ev *fyne.ScrollEvent) {
	v.app.scroll(float64(ev.Scrolled.DY))
}

// MouseDown picks between orbit and pan for the following drag. The
// secondary button or shift pans.
func (v *SceneView) MouseDown(ev *desktop.MouseEvent) {
	v.app.Interaction.panning = ev.Button == desktop.MouseButtonSecondary ||
		ev.Modifier&fyne.KeyModifierShift != 0
}

// MouseUp is required by desktop.Mouseable
func (v *SceneView) MouseUp(*desktop.MouseEvent) {}

// Dragged orbits or pans the camera
func (v *SceneView) Dragged(ev *fyne.DragEvent) {
	dx, dy := float64(ev.Dragged.DX), float64(ev.Dragged.DY)
	if v.app.Interaction.panning {
		v.app.doPan(dx, dy)
		return
	}
	v.app.rotate(dx, dy)
}

// DragEnd handles the end of a drag event
func (v *SceneView) DragEnd() {
	v.app.Interaction.panning = false
}

// pick resolves a click off the UI goroutine. Only the latest click's
// result survives in the selection, so the panel shows the snapshot taken
// after the click returns.
func (app *App) pick(x, y float64) {
	go func() {
		if _, err := app.session.Viewer.Selection.Click(app.ctx, engine.Pointer{X: x, Y: y}); err != nil {
			app.log.Warn("pick failed", "error", err)
		}
		state := app.session.Viewer.Selection.Selected()
		fyne.Do(func() { app.showSelection(state) })
	}()
}

// scroll forwards the wheel to the section tool. fyne reports positive DY
// when scrolling up, the wheel handler expects positive deltas for down.
func (app *App) scroll(dy float64) {
	ev := &viewer.WheelEvent{DeltaY: -dy}
	state, handled, err := app.session.Viewer.Wheel.Handle(app.ctx, ev)
	if err != nil {
		app.log.Warn("section wheel failed", "error", err)
	}
	if handled {
		app.UI.section.show(state)
	}
	if ev.DefaultPrevented() {
		return
	}
	app.zoom(-dy * 0.001)
}

// handleKey maps keyboard shortcuts to view actions
func (app *App) handleKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeyEscape:
		go func() {
			app.session.Viewer.Selection.Clear(app.ctx)
			fyne.Do(func() { app.showSelection(viewer.SelectionState{}) })
		}()
	case fyne.KeyF:
		app.fitCamera()
	case fyne.KeyR:
		app.resetCameraView()
	case fyne.Key1:
		app.setCameraFrontView()
	case fyne.Key2:
		app.setCameraBackView()
	case fyne.Key3:
		app.setCameraLeftView()
	case fyne.Key4:
		app.setCameraRightView()
	case fyne.Key5:
		app.setCameraTopView()
	case fyne.Key6:
		app.setCameraBottomView()
	case fyne.KeyW:
		app.View.showWireframe = !app.View.showWireframe
		app.view.Refresh()
	case fyne.KeyG:
		app.toggleGrid()
	}
}
