package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIcosahedronTriangleCounts(t *testing.T) {
	cases := []struct {
		detail int
		tris   int
	}{
		{0, 20},
		{1, 80},
		{2, 180},
		{6, 980},
		{14, 4500},
	}
	for _, tc := range cases {
		g := NewIcosahedron(15, tc.detail)
		assert.Equal(t, tc.tris, g.TriangleCount(), "detail %d", tc.detail)
		assert.Equal(t, tc.tris*3, len(g.Rest))
	}
}

func TestIcosahedronVerticesLieOnSphere(t *testing.T) {
	g := NewIcosahedron(10, 3)
	for i, p := range g.Positions {
		assert.InDelta(t, 10, p.Len(), 1e-9)
		assert.InDelta(t, 1, g.Normals[i].Len(), 1e-9)
	}
}

func TestPlaneLayout(t *testing.T) {
	g := NewPlane(100, 50, 4, 2)
	require.Equal(t, 16, g.TriangleCount())

	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, p := range g.Positions {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		assert.Equal(t, 0.0, p.Z)
	}
	assert.Equal(t, -50.0, minX)
	assert.Equal(t, 50.0, maxX)
	for _, uv := range g.UVs {
		assert.True(t, uv.X >= 0 && uv.X <= 1 && uv.Y >= 0 && uv.Y <= 1)
	}
}

func TestMeshDisposeIsIdempotent(t *testing.T) {
	m := NewMesh(NewPlane(1, 1, 1, 1), NewMaterial(nil))
	assert.False(t, m.Disposed())

	m.Dispose()
	m.Dispose()
	assert.True(t, m.Disposed())
	assert.Nil(t, m.Geometry.Positions)
}

func TestEulerRotate(t *testing.T) {
	v := Euler{Z: math.Pi / 2}.Rotate(Vec3{X: 1})
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 1, v.Y, 1e-12)

	v = Euler{Y: math.Pi / 2}.Rotate(Vec3{X: 1})
	assert.InDelta(t, -1, v.Z, 1e-12)
}

func TestCameraProject(t *testing.T) {
	cam := NewPerspectiveCamera(1)

	x, y, depth, ok := cam.Project(Vec3{})
	require.True(t, ok)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
	assert.Equal(t, 40.0, depth)

	_, _, _, ok = cam.Project(Vec3{Z: 45})
	assert.False(t, ok, "behind the camera")

	halfHeight := 40 * math.Tan(75*math.Pi/360)
	_, y, _, ok = cam.Project(Vec3{Y: halfHeight})
	require.True(t, ok)
	assert.InDelta(t, 1, y, 1e-9)
}
