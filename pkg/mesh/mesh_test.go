package mesh_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/mesh"
	"github.com/aretw0/nonplanar/pkg/transform"
)

func TestPlane(t *testing.T) {
	p := mesh.Plane(4, 2, 0.5)
	require.NoError(t, p.Validate())
	assert.Equal(t, 8, p.TriangleCount())

	b := mesh.Bounds(p)
	assert.Equal(t, geom.Pt(-2, -2, 0.5), b.Min)
	assert.Equal(t, geom.Pt(2, 2, 0.5), b.Max)
	assert.InDelta(t, math.Sqrt(8), mesh.MaxEdge(p), 1e-12)

	assert.Equal(t, 2, mesh.Plane(1, 0, 0).TriangleCount())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, mesh.Mesh{1, 2, 3}.Validate(), mesh.ErrNotTriangleSoup)

	bad := mesh.Plane(1, 1, 0)
	bad[4] = math.NaN()
	err := bad.Validate()
	var numErr *geom.NumericError
	require.True(t, errors.As(err, &numErr))
	assert.Contains(t, err.Error(), "vertex 1")
}

func TestForward_Identity(t *testing.T) {
	p := mesh.Plane(3, 3, 1)
	out, err := mesh.Forward(p, transform.Identity{})
	require.NoError(t, err)
	assert.Equal(t, p, out)
}

func TestForward_Conical(t *testing.T) {
	out, err := mesh.Forward(mesh.Mesh{3, 4, 0, 0, 0, 0, 0, 0, 1}, transform.NewConical(45))
	require.NoError(t, err)
	assert.InDelta(t, 5, out[2], 1e-9)
	assert.Equal(t, 0.0, out[5])
	assert.Equal(t, 1.0, out[8])
}

func TestForward_NonFinite(t *testing.T) {
	logZ, err := transform.NewCustom("x", "y", "log(z)")
	require.NoError(t, err)

	_, err = mesh.Forward(mesh.Plane(2, 1, -1), logZ)
	var numErr *geom.NumericError
	require.True(t, errors.As(err, &numErr), "got %v", err)
	assert.ErrorIs(t, err, geom.ErrNotFinite)
	assert.Contains(t, err.Error(), "vertex 0")

	_, err = mesh.Forward(mesh.Mesh{1, 2, 3, 4}, transform.Identity{})
	assert.ErrorIs(t, err, mesh.ErrNotTriangleSoup)
}

func TestInverse_RoundTrip(t *testing.T) {
	cone := transform.NewConical(30)
	surface, _, err := mesh.Refine(mesh.Plane(10, 2, 1), 2)
	require.NoError(t, err)

	flat, err := mesh.Inverse(surface, cone, nil)
	require.NoError(t, err)
	back, err := mesh.Forward(flat, cone)
	require.NoError(t, err)

	require.Len(t, back, len(surface))
	for i := range surface {
		assert.InDelta(t, surface[i], back[i], 1e-6, "value %d", i)
	}
}

func TestInverse_ReportsVertex(t *testing.T) {
	diverging := transform.Func(func(p geom.Point3) geom.Point3 {
		return geom.Pt(math.Cbrt(p.X-1), p.Y, p.Z)
	})
	_, err := mesh.Inverse(mesh.Mesh{0, 0, 0, 1, 0, 0, 0, 1, 0}, diverging, transform.NewSolver())
	require.Error(t, err)
	var convErr *transform.ConvergenceError
	assert.True(t, errors.As(err, &convErr))
	assert.Contains(t, err.Error(), "vertex 0")
}

func TestApply(t *testing.T) {
	in := mesh.Mesh{1, 2, 3, 4, 5, 6, 7, 8, 9}
	out := mesh.Apply(in, func(p geom.Point3) geom.Point3 { return p.Scale(2) })
	assert.Equal(t, mesh.Mesh{2, 4, 6, 8, 10, 12, 14, 16, 18}, out)
	assert.Equal(t, 1.0, in[0])
}
