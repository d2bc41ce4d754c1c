package transform_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/transform"
)

func TestCustom_Evaluate(t *testing.T) {
	c, err := transform.NewCustom("x", "y", "z + 0.5*sqrt(x*x + y*y)")
	require.NoError(t, err)

	got := c.Evaluate(geom.Pt(3, 4, 1))
	assert.InDelta(t, 3, got.X, 1e-12)
	assert.InDelta(t, 4, got.Y, 1e-12)
	assert.InDelta(t, 3.5, got.Z, 1e-12)
}

func TestCustom_MatchesConical(t *testing.T) {
	c, err := transform.NewCustom("x", "y", "z + tan(pi/6) * hypot(x, y)")
	require.NoError(t, err)
	cone := transform.NewConical(30)

	s := transform.NewSolver()
	for _, p := range samplePoints() {
		assertNear(t, cone.Evaluate(p), c.Evaluate(p), 1e-9)
		back, err := s.Inverse(c, c.Evaluate(p), geom.Origin)
		require.NoError(t, err)
		assertNear(t, p, back, 1e-6)
	}
}

func TestCustom_IntegerExpressions(t *testing.T) {
	c, err := transform.NewCustom("2", "y*2", "pow(z, 2)")
	require.NoError(t, err)
	got := c.Evaluate(geom.Pt(9, 1.5, 3))
	assert.Equal(t, geom.Pt(2, 3, 9), got)
}

func TestCustom_CompileError(t *testing.T) {
	_, err := transform.NewCustom("x", "y +", "z")
	require.Error(t, err)
	var cfgErr *transform.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "y", cfgErr.Key)

	_, err = transform.NewCustom("x", "y", "w")
	assert.Error(t, err, "unknown variables are rejected at compile time")
}

func TestCustom_RuntimeFailureIsNaN(t *testing.T) {
	c, err := transform.NewCustom("x", "y", "log(z)")
	require.NoError(t, err)
	got := c.Evaluate(geom.Pt(0, 0, -1))
	assert.True(t, math.IsNaN(got.Z))

	_, err = transform.NewSolver().Inverse(c, geom.Pt(0, 0, 1), geom.Pt(0, 0, -1))
	var numErr *geom.NumericError
	assert.True(t, errors.As(err, &numErr))
}
