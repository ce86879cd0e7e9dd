package geometry

import "math"

// Ray is a half line starting at Origin. Direction is expected to be normalized.
type Ray struct {
	Origin    Vector3
	Direction Vector3
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vector3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Plane is the set of points p with Normal·p + Constant = 0.
// Points with a negative signed distance are on the clipped side.
type Plane struct {
	Normal   Vector3
	Constant float64
}

// SectionPlane returns the plane that keeps everything at or below value
// along axis and clips the rest.
func SectionPlane(axis Axis, value float64) Plane {
	return Plane{Normal: axis.Unit().Mul(-1), Constant: value}
}

// DistanceToPoint returns the signed distance of p to the plane
func (p Plane) DistanceToPoint(point Vector3) float64 {
	return p.Normal.Dot(point) + p.Constant
}

// Clips reports whether point lies on the clipped side of the plane
func (p Plane) Clips(point Vector3) bool {
	return p.DistanceToPoint(point) < 0
}

// ClipInterval narrows [tMin, tMax] along ray to the part on the kept side
// of the plane. ok is false when nothing of the interval survives.
func (p Plane) ClipInterval(ray Ray, tMin, tMax float64) (float64, float64, bool) {
	// distance along the ray: a + b*t
	a := p.DistanceToPoint(ray.Origin)
	b := p.Normal.Dot(ray.Direction)
	if math.Abs(b) < 1e-12 {
		if a < 0 {
			return 0, 0, false
		}
		return tMin, tMax, true
	}
	t := -a / b
	if b > 0 {
		tMin = math.Max(tMin, t)
	} else {
		tMax = math.Min(tMax, t)
	}
	if tMin > tMax {
		return 0, 0, false
	}
	return tMin, tMax, true
}

// IntersectSegment returns the point where the segment a-b crosses the plane
func (p Plane) IntersectSegment(a, b Vector3) (Vector3, bool) {
	da := p.DistanceToPoint(a)
	db := p.DistanceToPoint(b)
	if (da < 0) == (db < 0) || da == db {
		return Vector3{}, false
	}
	t := da / (da - db)
	return a.Add(b.Sub(a).Mul(t)), true
}
