package geometry

// Triangle represents a triangular facet in 3D space
type Triangle struct {
	Normal     Vector3
	V1, V2, V3 Vector3
}

// NewTriangle creates a new triangle
func NewTriangle(normal, v1, v2, v3 Vector3) Triangle {
	return Triangle{
		Normal: normal,
		V1:     v1,
		V2:     v2,
		V3:     v3,
	}
}

// CalculateNormal computes the normal vector for the triangle
func (t Triangle) CalculateNormal() Vector3 {
	edge1 := t.V2.Sub(t.V1)
	edge2 := t.V3.Sub(t.V1)
	return edge1.Cross(edge2).Normalize()
}

// Area returns the surface area of the triangle
func (t Triangle) Area() float64 {
	edge1 := t.V2.Sub(t.V1)
	edge2 := t.V3.Sub(t.V1)
	cross := edge1.Cross(edge2)
	return cross.Length() / 2.0
}

// Center returns the centroid of the triangle
func (t Triangle) Center() Vector3 {
	return Vector3{
		X: (t.V1.X + t.V2.X + t.V3.X) / 3.0,
		Y: (t.V1.Y + t.V2.Y + t.V3.Y) / 3.0,
		Z: (t.V1.Z + t.V2.Z + t.V3.Z) / 3.0,
	}
}

// boxFaces lists the corner indices of the six quads of a box, wound
// counter-clockwise when seen from outside.
var boxFaces = [6][4]int{
	{0, 3, 2, 1}, // -z
	{4, 5, 6, 7}, // +z
	{0, 1, 5, 4}, // -y
	{3, 7, 6, 2}, // +y
	{0, 4, 7, 3}, // -x
	{1, 2, 6, 5}, // +x
}

// Faces tessellates the box surface into twelve outward facing triangles
func (b BoundingBox) Faces() []Triangle {
	if b.IsEmpty() {
		return nil
	}
	c := b.Corners()
	tris := make([]Triangle, 0, 12)
	for _, f := range boxFaces {
		for _, idx := range [2][3]int{{f[0], f[1], f[2]}, {f[0], f[2], f[3]}} {
			tri := Triangle{V1: c[idx[0]], V2: c[idx[1]], V3: c[idx[2]]}
			tri.Normal = tri.CalculateNormal()
			tris = append(tris, tri)
		}
	}
	return tris
}
