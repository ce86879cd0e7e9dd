package viewer

import (
	"math"
	"testing"

	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitBox() geometry.BoundingBox {
	return geometry.BoxFromPoints(geometry.NewVector3(-1, -1, -1), geometry.NewVector3(1, 1, 1))
}

func TestNewCameraLooksAtCenter(t *testing.T) {
	cam := NewCamera(unitBox())

	assert.Equal(t, geometry.NewVector3(0, 0, 0), cam.Target)
	assert.InDelta(t, 4.0, cam.Distance, 1e-10)
	assert.Equal(t, geometry.NewVector3(0, 0, 4), cam.Position)
}

func TestNewCameraEmptyBox(t *testing.T) {
	cam := NewCamera(geometry.NewBoundingBox())
	assert.Greater(t, cam.Distance, 0.0)
}

func TestProjectCenterHitsScreenCenter(t *testing.T) {
	cam := NewCamera(unitBox())

	x, y, z := cam.Project(geometry.NewVector3(0, 0, 0), 800, 600)
	assert.InDelta(t, 400.0, x, 1e-9)
	assert.InDelta(t, 300.0, y, 1e-9)
	assert.InDelta(t, 4.0, z, 1e-9)
}

func TestUnprojectInvertsProject(t *testing.T) {
	cam := NewCamera(unitBox())
	cam.Rotate(0.3, 0.7)

	point := geometry.NewVector3(0.5, -0.25, 0.75)
	sx, sy, _ := cam.Project(point, 640, 480)
	origin, dir := cam.Unproject(sx, sy, 640, 480)

	// the point lies on the ray
	toPoint := point.Sub(origin)
	t0 := toPoint.Dot(dir)
	closest := origin.Add(dir.Mul(t0))
	assert.InDelta(t, 0.0, closest.Distance(point), 1e-6)
}

func TestSetLookAtRoundTrip(t *testing.T) {
	cam := NewCamera(unitBox())
	cam.SetLookAt(geometry.NewVector3(3, 4, 0), geometry.NewVector3(0, 0, 0))

	assert.InDelta(t, 5.0, cam.Distance, 1e-10)
	before := cam.Position
	cam.UpdatePosition()
	assert.InDelta(t, 0.0, cam.Position.Distance(before), 1e-9)
}

func TestCanonicalViews(t *testing.T) {
	box := geometry.BoxFromPoints(geometry.NewVector3(0, 0, 0), geometry.NewVector3(10, 4, 20))
	center := box.Center()

	for _, tc := range []struct {
		axis geometry.Axis
		want geometry.Vector3
	}{
		{geometry.AxisX, geometry.NewVector3(20, 2, 10)},
		{geometry.AxisY, geometry.NewVector3(5, 8, 10)},
		{geometry.AxisZ, geometry.NewVector3(5, 2, 40)},
	} {
		cam := NewCamera(box)
		cam.CanonicalView(tc.axis, box)
		assert.Equal(t, tc.want, cam.Position, tc.axis.String())
		assert.Equal(t, center, cam.Target)
	}
}

func TestTopDownViewHasUsableBasis(t *testing.T) {
	cam := NewCamera(unitBox())
	cam.CanonicalView(geometry.AxisY, unitBox())

	forward, right, up := cam.basis()
	require.InDelta(t, 1.0, right.Length(), 1e-9)
	assert.InDelta(t, 1.0, up.Length(), 1e-9)
	assert.InDelta(t, -1.0, forward.Y, 1e-9)

	x, y, _ := cam.Project(geometry.NewVector3(0, 0, 0), 100, 100)
	assert.False(t, math.IsNaN(x) || math.IsNaN(y))
}

func TestRayFromNDCCenter(t *testing.T) {
	cam := NewCamera(unitBox())
	ray := cam.RayFromNDC(0, 0, 1)

	assert.Equal(t, cam.Position, ray.Origin)
	assert.InDelta(t, -1.0, ray.Direction.Z, 1e-9)
}
