package viewer

import (
	"image"
	"image/color"
	"math"

	"github.com/philipparndt/gobim/pkg/geometry"
)

// Frame is a software render target with a depth buffer. Geometry on the
// clipped side of any of its planes is not drawn.
type Frame struct {
	Image  *image.RGBA
	Width  int
	Height int
	depth  []float64
	clips  []geometry.Plane
}

// NewFrame allocates a frame cleared to the background color
func NewFrame(width, height int, background color.RGBA) *Frame {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	f := &Frame{
		Image:  image.NewRGBA(image.Rect(0, 0, width, height)),
		Width:  width,
		Height: height,
		depth:  make([]float64, width*height),
	}
	for i := range f.depth {
		f.depth[i] = math.MaxFloat64
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			f.Image.SetRGBA(x, y, background)
		}
	}
	return f
}

// SetClippingPlanes replaces the planes applied to subsequent draw calls
func (f *Frame) SetClippingPlanes(planes []geometry.Plane) {
	f.clips = append(f.clips[:0], planes...)
}

// FillTriangle draws a flat shaded triangle. Opaque colors write depth,
// translucent ones are blended over whatever is closer.
func (f *Frame) FillTriangle(cam *Camera, tri geometry.Triangle, col color.RGBA) {
	poly := []geometry.Vector3{tri.V1, tri.V2, tri.V3}
	for _, plane := range f.clips {
		poly = clipPolygon(poly, plane)
		if len(poly) < 3 {
			return
		}
	}

	forward, _, _ := cam.basis()
	normal := tri.Normal
	if normal == (geometry.Vector3{}) {
		normal = tri.CalculateNormal()
	}
	light := 0.35 + 0.65*math.Abs(normal.Dot(forward))
	shaded := color.RGBA{
		R: uint8(float64(col.R) * light),
		G: uint8(float64(col.G) * light),
		B: uint8(float64(col.B) * light),
		A: col.A,
	}

	w, h := float64(f.Width), float64(f.Height)
	pts := make([][3]float64, len(poly))
	for i, p := range poly {
		x, y, z := cam.Project(p, w, h)
		pts[i] = [3]float64{x, y, z}
	}
	for i := 1; i+1 < len(pts); i++ {
		f.fill(pts[0], pts[i], pts[i+1], shaded)
	}
}

// DrawSegment draws a line between two world points, clipped by the frame planes
func (f *Frame) DrawSegment(cam *Camera, a, b geometry.Vector3, col color.RGBA) {
	for _, plane := range f.clips {
		var ok bool
		a, b, ok = clipSegment(a, b, plane)
		if !ok {
			return
		}
	}
	w, h := float64(f.Width), float64(f.Height)
	x1, y1, _ := cam.Project(a, w, h)
	x2, y2, _ := cam.Project(b, w, h)
	f.line(int(math.Round(x1)), int(math.Round(y1)), int(math.Round(x2)), int(math.Round(y2)), col)
}

// fill rasterizes one screen-space triangle using edge functions
func (f *Frame) fill(p0, p1, p2 [3]float64, col color.RGBA) {
	area := edge(p0, p1, p2[0], p2[1])
	if math.Abs(area) < 1e-9 {
		return
	}
	minX := int(math.Max(0, math.Floor(math.Min(p0[0], math.Min(p1[0], p2[0])))))
	maxX := int(math.Min(float64(f.Width-1), math.Ceil(math.Max(p0[0], math.Max(p1[0], p2[0])))))
	minY := int(math.Max(0, math.Floor(math.Min(p0[1], math.Min(p1[1], p2[1])))))
	maxY := int(math.Min(float64(f.Height-1), math.Ceil(math.Max(p0[1], math.Max(p1[1], p2[1])))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(p1, p2, px, py) / area
			w1 := edge(p2, p0, px, py) / area
			w2 := edge(p0, p1, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*p0[2] + w1*p1[2] + w2*p2[2]
			idx := y*f.Width + x
			if z >= f.depth[idx] {
				continue
			}
			if col.A == 255 {
				f.depth[idx] = z
				f.Image.SetRGBA(x, y, col)
				continue
			}
			f.Image.SetRGBA(x, y, blend(f.Image.RGBAAt(x, y), col))
		}
	}
}

// line draws a line using Bresenham's algorithm
func (f *Frame) line(x1, y1, x2, y2 int, col color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	// a line spanning far outside the frame is not worth walking
	if dx > 8*f.Width || dy > 8*f.Height {
		return
	}

	for {
		if x1 >= 0 && x1 < f.Width && y1 >= 0 && y1 < f.Height {
			f.Image.SetRGBA(x1, y1, col)
		}
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func edge(a, b [3]float64, x, y float64) float64 {
	return (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
}

func blend(dst, src color.RGBA) color.RGBA {
	a := float64(src.A) / 255
	mix := func(d, s uint8) uint8 {
		return uint8(float64(s)*a + float64(d)*(1-a))
	}
	return color.RGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}

// clipPolygon keeps the part of a convex polygon on the kept side of plane
func clipPolygon(poly []geometry.Vector3, plane geometry.Plane) []geometry.Vector3 {
	out := make([]geometry.Vector3, 0, len(poly)+1)
	for i, cur := range poly {
		prev := poly[(i+len(poly)-1)%len(poly)]
		curIn := !plane.Clips(cur)
		prevIn := !plane.Clips(prev)
		if curIn != prevIn {
			if p, ok := plane.IntersectSegment(prev, cur); ok {
				out = append(out, p)
			}
		}
		if curIn {
			out = append(out, cur)
		}
	}
	return out
}

func clipSegment(a, b geometry.Vector3, plane geometry.Plane) (geometry.Vector3, geometry.Vector3, bool) {
	aIn, bIn := !plane.Clips(a), !plane.Clips(b)
	switch {
	case aIn && bIn:
		return a, b, true
	case !aIn && !bIn:
		return a, b, false
	}
	p, ok := plane.IntersectSegment(a, b)
	if !ok {
		return a, b, aIn
	}
	if aIn {
		return a, p, true
	}
	return p, b, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
