package app

import (
	"math"

	"github.com/philipparndt/gobim/pkg/viewer"
)

// updateCamera mutates the shared camera and redraws
func (app *App) updateCamera(fn func(c *viewer.Camera)) {
	app.session.Viewer.World.UpdateCamera(fn)
	app.view.Refresh()
}

// rememberCamera stores the current view as the reset target
func (app *App) rememberCamera() {
	c := app.session.Viewer.World.Camera()
	app.Camera = CameraState{
		fitted:        true,
		defaultDist:   c.Distance,
		defaultAngleX: c.RotationX,
		defaultAngleY: c.RotationY,
		defaultTarget: c.Target,
	}
}

// resetCameraView resets the camera to the view after the first fit
func (app *App) resetCameraView() {
	if !app.Camera.fitted {
		app.fitCamera()
		return
	}
	app.updateCamera(func(c *viewer.Camera) {
		c.Distance = app.Camera.defaultDist
		c.RotationX = app.Camera.defaultAngleX
		c.RotationY = app.Camera.defaultAngleY
		c.Target = app.Camera.defaultTarget
		c.UpdatePosition()
	})
}

// fitCamera frames all loaded models
func (app *App) fitCamera() {
	app.session.FitCamera()
	app.rememberCamera()
	app.view.Refresh()
}

// setView points the camera at the default target from the given angles
func (app *App) setView(angleX, angleY float64) {
	target := app.Camera.defaultTarget
	app.updateCamera(func(c *viewer.Camera) {
		c.RotationX = angleX
		c.RotationY = angleY
		if app.Camera.fitted {
			c.Target = target
		}
		c.UpdatePosition()
	})
}

// setCameraTopView looks straight down
func (app *App) setCameraTopView() { app.setView(math.Pi/2, 0) }

// setCameraBottomView looks straight up
func (app *App) setCameraBottomView() { app.setView(-math.Pi/2, 0) }

// setCameraFrontView looks along -Z
func (app *App) setCameraFrontView() { app.setView(0, 0) }

// setCameraBackView looks along +Z
func (app *App) setCameraBackView() { app.setView(0, math.Pi) }

// setCameraLeftView looks along +X
func (app *App) setCameraLeftView() { app.setView(0, -math.Pi/2) }

// setCameraRightView looks along -X
func (app *App) setCameraRightView() { app.setView(0, math.Pi/2) }

// rotate orbits the camera by a pointer drag
func (app *App) rotate(dx, dy float64) {
	app.updateCamera(func(c *viewer.Camera) {
		c.Rotate(-dy*0.01, dx*0.01)
	})
}

// zoom scales the camera distance
func (app *App) zoom(delta float64) {
	app.updateCamera(func(c *viewer.Camera) {
		c.Zoom(delta)
	})
}

// doPan moves the camera target in the view plane by a pointer drag
func (app *App) doPan(dx, dy float64) {
	app.updateCamera(func(c *viewer.Camera) {
		forward := c.Target.Sub(c.Position).Normalize()
		right := forward.Cross(c.Up).Normalize()
		up := right.Cross(forward).Normalize()

		// pan speed based on distance from target
		speed := c.Distance * 0.001
		c.Target = c.Target.Add(right.Mul(-dx * speed)).Add(up.Mul(dy * speed))
		c.UpdatePosition()
	})
}
