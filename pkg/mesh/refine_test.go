package mesh_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/mesh"
)

func area(m mesh.Mesh) float64 {
	total := 0.0
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		u, v := b.Sub(a), c.Sub(a)
		cx := u.Y*v.Z - u.Z*v.Y
		cy := u.Z*v.X - u.X*v.Z
		cz := u.X*v.Y - u.Y*v.X
		total += math.Sqrt(cx*cx+cy*cy+cz*cz) / 2
	}
	return total
}

func TestRefine_BoundsEveryEdge(t *testing.T) {
	in := mesh.Mesh{0, 0, 0, 4, 0, 0, 0, 3, 0}
	before := in.Clone()

	out, splits, err := mesh.Refine(in, 1)
	require.NoError(t, err)
	assert.Greater(t, splits, 0)
	assert.Equal(t, 1+splits, out.TriangleCount())
	assert.LessOrEqual(t, mesh.MaxEdge(out), 1+1e-12)
	assert.InDelta(t, 6.0, area(out), 1e-9)
	assert.Equal(t, before, in, "input must not be modified")
}

func TestRefine_ShortEdgesAreCopied(t *testing.T) {
	in := mesh.Plane(2, 2, 0)
	out, splits, err := mesh.Refine(in, 5)
	require.NoError(t, err)
	assert.Zero(t, splits)
	assert.Equal(t, in, out)

	out[0] = 42
	assert.NotEqual(t, 42.0, in[0], "result must not alias the input")
}

func TestRefine_SplitsInPlace(t *testing.T) {
	// b→c is the longest edge: c moves to its midpoint, (mid, c, a) is appended.
	in := mesh.Mesh{0, 0, 0, 2, 0, 0, 0, 1, 0}
	out, splits, err := mesh.Refine(in, 2.1)
	require.NoError(t, err)
	assert.Equal(t, 1, splits)
	assert.Equal(t, mesh.Mesh{
		0, 0, 0, 2, 0, 0, 1, 0.5, 0,
		1, 0.5, 0, 0, 1, 0, 0, 0, 0,
	}, out)
}

func TestRefine_TiesPreferEarlierEdge(t *testing.T) {
	// b→c and c→a have the same length; b→c wins.
	in := mesh.Mesh{0, 0, 0, 2, 0, 0, 1, 2, 0}
	out, _, err := mesh.Refine(in, 2.1)
	require.NoError(t, err)
	assert.Equal(t, mesh.Mesh{0, 0, 0, 2, 0, 0, 1.5, 1, 0}, out[:9])
}

func TestRefine_Idempotent(t *testing.T) {
	first, _, err := mesh.Refine(mesh.Plane(10, 1, 0), 1.5)
	require.NoError(t, err)
	second, splits, err := mesh.Refine(first, 1.5)
	require.NoError(t, err)
	assert.Zero(t, splits)
	assert.Equal(t, first, second)
}

func TestRefine_Preconditions(t *testing.T) {
	_, _, err := mesh.Refine(mesh.Mesh{0, 0, 0, 1, 1, 1, 2, 2}, 1)
	assert.ErrorIs(t, err, mesh.ErrNotTriangleSoup)

	for _, limit := range []float64{0, -1, math.NaN()} {
		_, _, err := mesh.Refine(mesh.Plane(1, 1, 0), limit)
		assert.ErrorIs(t, err, mesh.ErrInvalidEdgeLength)
	}

	for _, bad := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		_, _, err := mesh.Refine(mesh.Mesh{0, 0, 0, bad, 0, 0, 0, 1, 0}, 1)
		assert.ErrorIs(t, err, geom.ErrNotFinite)
	}
}

func TestRefine_Empty(t *testing.T) {
	out, splits, err := mesh.Refine(nil, 1)
	require.NoError(t, err)
	assert.Zero(t, splits)
	assert.Empty(t, out)
}
