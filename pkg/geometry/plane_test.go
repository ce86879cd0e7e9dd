package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionPlane(t *testing.T) {
	p := SectionPlane(AxisY, 5)

	assert.Equal(t, NewVector3(0, -1, 0), p.Normal)
	assert.Equal(t, 5.0, p.Constant)

	assert.False(t, p.Clips(NewVector3(0, 4, 0)))
	assert.False(t, p.Clips(NewVector3(100, 5, -3)), "points on the plane are kept")
	assert.True(t, p.Clips(NewVector3(0, 6, 0)))
	assert.InDelta(t, -1.0, p.DistanceToPoint(NewVector3(0, 6, 0)), 1e-10)
}

func TestPlaneClipInterval(t *testing.T) {
	p := SectionPlane(AxisZ, 0)
	down := Ray{Origin: NewVector3(0, 0, 10), Direction: NewVector3(0, 0, -1)}

	lo, hi, ok := p.ClipInterval(down, 0, 20)
	require.True(t, ok)
	assert.InDelta(t, 10.0, lo, 1e-10)
	assert.InDelta(t, 20.0, hi, 1e-10)

	_, _, ok = p.ClipInterval(down, 0, 5)
	assert.False(t, ok, "interval entirely above the cut")

	up := Ray{Origin: NewVector3(0, 0, -10), Direction: NewVector3(0, 0, 1)}
	lo, hi, ok = p.ClipInterval(up, 0, 20)
	require.True(t, ok)
	assert.InDelta(t, 0.0, lo, 1e-10)
	assert.InDelta(t, 10.0, hi, 1e-10)

	flat := Ray{Origin: NewVector3(0, 0, 1), Direction: NewVector3(1, 0, 0)}
	_, _, ok = p.ClipInterval(flat, 0, 20)
	assert.False(t, ok)
}

func TestPlaneIntersectSegment(t *testing.T) {
	p := SectionPlane(AxisX, 1)

	pt, ok := p.IntersectSegment(NewVector3(0, 0, 0), NewVector3(4, 4, 0))
	require.True(t, ok)
	assert.InDelta(t, 1.0, pt.X, 1e-10)
	assert.InDelta(t, 1.0, pt.Y, 1e-10)

	_, ok = p.IntersectSegment(NewVector3(0, 0, 0), NewVector3(0.5, 0, 0))
	assert.False(t, ok)
}
