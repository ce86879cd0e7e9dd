package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector3Arithmetic(t *testing.T) {
	v1 := NewVector3(1, 2, 3)
	v2 := NewVector3(4, 5, 6)

	assert.Equal(t, NewVector3(5, 7, 9), v1.Add(v2))
	assert.Equal(t, NewVector3(3, 3, 3), v2.Sub(v1))
	assert.Equal(t, NewVector3(2, 4, 6), v1.Mul(2))
	assert.InDelta(t, 32.0, v1.Dot(v2), 1e-10)
	assert.Equal(t, NewVector3(0, 0, 1), NewVector3(1, 0, 0).Cross(NewVector3(0, 1, 0)))
}

func TestVector3Length(t *testing.T) {
	assert.InDelta(t, 5.0, NewVector3(3, 4, 0).Length(), 1e-10)
	assert.InDelta(t, 5.0, NewVector3(0, 0, 0).Distance(NewVector3(3, 4, 0)), 1e-10)
	assert.Equal(t, Vector3{}, Vector3{}.Normalize())
	assert.InDelta(t, 1.0, NewVector3(2, 2, 1).Normalize().Length(), 1e-10)
}

func TestVector3Component(t *testing.T) {
	v := NewVector3(1, 2, 3)

	assert.Equal(t, 1.0, v.Component(AxisX))
	assert.Equal(t, 2.0, v.Component(AxisY))
	assert.Equal(t, 3.0, v.Component(AxisZ))

	assert.Equal(t, NewVector3(1, 9, 3), v.WithComponent(AxisY, 9))
	assert.Equal(t, NewVector3(1, 2, 3), v, "WithComponent must not mutate the receiver")
}

func TestParseAxis(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Axis
	}{
		{"x", AxisX},
		{"Y", AxisY},
		{" z ", AxisZ},
	} {
		got, err := ParseAxis(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.want.String(), got.String())
	}

	_, err := ParseAxis("w")
	assert.Error(t, err)
}

func TestAxisText(t *testing.T) {
	var a Axis
	require.NoError(t, a.UnmarshalText([]byte("z")))
	assert.Equal(t, AxisZ, a)

	text, err := AxisX.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "x", string(text))

	assert.Error(t, a.UnmarshalText([]byte("up")))
	assert.Equal(t, NewVector3(0, 1, 0), AxisY.Unit())
}
