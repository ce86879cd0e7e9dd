package app

import (
	"image/color"

	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/philipparndt/gobim/pkg/viewer"
)

// drawWireframe outlines the twelve edges of a box
func drawWireframe(frame *viewer.Frame, cam *viewer.Camera, box geometry.BoundingBox, col color.RGBA) {
	corners := box.Corners()
	for _, e := range geometry.BoxEdges {
		frame.DrawSegment(cam, corners[e[0]], corners[e[1]], col)
	}
}

// edgeColor darkens the fill color for outlines drawn over filled faces.
// Without faces the full color is used.
func edgeColor(fill color.RGBA, filled bool) color.RGBA {
	if !filled {
		return fill
	}
	return color.RGBA{R: fill.R / 2, G: fill.G / 2, B: fill.B / 2, A: fill.A}
}
