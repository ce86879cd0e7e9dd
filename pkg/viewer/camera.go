package viewer

import (
	"math"

	"github.com/philipparndt/gobim/pkg/geometry"
)

// Camera represents a 3D camera orbiting a target point
type Camera struct {
	Position  geometry.Vector3
	Target    geometry.Vector3
	Up        geometry.Vector3
	FOV       float64 // Field of view in radians
	Distance  float64
	RotationX float64 // Elevation above the XZ plane
	RotationY float64 // Azimuth around the Y axis
}

// NewCamera creates a new camera positioned to view a bounding box
func NewCamera(bbox geometry.BoundingBox) *Camera {
	center := bbox.Center()
	size := bbox.Size()
	distance := math.Max(size.X, math.Max(size.Y, size.Z)) * 2.0
	if distance <= 0 {
		distance = 10
	}

	return &Camera{
		Position: center.Add(geometry.NewVector3(0, 0, distance)),
		Target:   center,
		Up:       geometry.NewVector3(0, 1, 0),
		FOV:      math.Pi / 4,
		Distance: distance,
	}
}

// Fit re-targets the camera on a bounding box keeping the current angles
func (c *Camera) Fit(bbox geometry.BoundingBox) {
	if bbox.IsEmpty() {
		return
	}
	size := bbox.Size()
	c.Target = bbox.Center()
	c.Distance = math.Max(size.X, math.Max(size.Y, size.Z)) * 2.0
	if c.Distance <= 0 {
		c.Distance = 10
	}
	c.UpdatePosition()
}

// UpdatePosition updates camera position based on rotation angles
func (c *Camera) UpdatePosition() {
	x := c.Distance * math.Cos(c.RotationX) * math.Sin(c.RotationY)
	y := c.Distance * math.Sin(c.RotationX)
	z := c.Distance * math.Cos(c.RotationX) * math.Cos(c.RotationY)

	c.Position = c.Target.Add(geometry.NewVector3(x, y, z))
}

// SetLookAt places the camera at position looking at target
func (c *Camera) SetLookAt(position, target geometry.Vector3) {
	offset := position.Sub(target)
	c.Position = position
	c.Target = target
	c.Distance = offset.Length()
	if c.Distance == 0 {
		return
	}
	c.RotationX = math.Asin(math.Max(-1, math.Min(1, offset.Y/c.Distance)))
	c.RotationY = math.Atan2(offset.X, offset.Z)
}

// Rotate rotates the camera by the given angles
func (c *Camera) Rotate(deltaX, deltaY float64) {
	c.RotationX += deltaX
	c.RotationY += deltaY

	// Clamp X rotation to prevent gimbal lock
	maxAngle := math.Pi/2 - 0.1
	if c.RotationX > maxAngle {
		c.RotationX = maxAngle
	}
	if c.RotationX < -maxAngle {
		c.RotationX = -maxAngle
	}

	c.UpdatePosition()
}

// Zoom changes the camera distance
func (c *Camera) Zoom(delta float64) {
	c.Distance *= (1.0 + delta)
	if c.Distance < 0.1 {
		c.Distance = 0.1
	}
	c.UpdatePosition()
}

// basis returns the camera's forward, right and up vectors. When looking
// straight along Up the world -Z axis is used as the screen up direction.
func (c *Camera) basis() (forward, right, up geometry.Vector3) {
	forward = c.Target.Sub(c.Position).Normalize()
	worldUp := c.Up
	if math.Abs(forward.Dot(worldUp.Normalize())) > 0.999 {
		worldUp = geometry.NewVector3(0, 0, -1)
	}
	right = forward.Cross(worldUp).Normalize()
	up = right.Cross(forward).Normalize()
	return forward, right, up
}

// Project projects a 3D point to 2D screen coordinates. The third value is
// the depth along the view direction.
func (c *Camera) Project(point geometry.Vector3, width, height float64) (float64, float64, float64) {
	forward, right, up := c.basis()

	relative := point.Sub(c.Position)
	x := relative.Dot(right)
	y := relative.Dot(up)
	z := relative.Dot(forward)

	if z <= 0.01 {
		z = 0.01
	}

	aspect := width / height
	fovScale := math.Tan(c.FOV / 2)

	screenX := (x/(z*fovScale*aspect))*(width/2) + (width / 2)
	screenY := (-y/(z*fovScale))*(height/2) + (height / 2)

	return screenX, screenY, z
}

// Unproject converts 2D screen coordinates back to 3D ray
func (c *Camera) Unproject(screenX, screenY, width, height float64) (origin, direction geometry.Vector3) {
	ndcX := (2.0 * screenX / width) - 1.0
	ndcY := 1.0 - (2.0 * screenY / height)
	ray := c.RayFromNDC(ndcX, ndcY, width/height)
	return ray.Origin, ray.Direction
}

// RayFromNDC builds the pick ray through normalized device coordinates
// (-1..1 on both axes, +Y up).
func (c *Camera) RayFromNDC(ndcX, ndcY, aspect float64) geometry.Ray {
	forward, right, up := c.basis()
	fovScale := math.Tan(c.FOV / 2)

	dir := forward.Add(right.Mul(ndcX * fovScale * aspect)).Add(up.Mul(ndcY * fovScale))
	return geometry.Ray{Origin: c.Position, Direction: dir.Normalize()}
}

// CanonicalView moves the camera to the standard view for a section axis:
// from the side for X, from above for Y and from the front for Z.
func (c *Camera) CanonicalView(axis geometry.Axis, bbox geometry.BoundingBox) {
	center := bbox.Center()
	size := bbox.Size()
	pos := center.WithComponent(axis, center.Component(axis)+size.Component(axis)*1.5)
	if pos == center {
		pos = center.WithComponent(axis, center.Component(axis)+1)
	}
	c.SetLookAt(pos, center)
}
