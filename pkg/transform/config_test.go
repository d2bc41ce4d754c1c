package transform_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/transform"
)

func TestConfig_Build(t *testing.T) {
	tests := []struct {
		name string
		cfg  transform.Config
		in   geom.Point3
		want geom.Point3
	}{
		{"Empty Is Identity", transform.Config{}, geom.Pt(1, 2, 3), geom.Pt(1, 2, 3)},
		{"Planar Alias", transform.Config{Kind: "planar"}, geom.Pt(1, 2, 3), geom.Pt(1, 2, 3)},
		{"Conical", transform.Config{Kind: "conical", Angle: 45}, geom.Pt(3, 4, 0), geom.Pt(3, 4, 5)},
		{"Conical Up", transform.Config{Kind: "conical-up", Angle: 45}, geom.Pt(3, 4, 0), geom.Pt(3, 4, 5)},
		{"Conical Down", transform.Config{Kind: "conical-down", Angle: 45}, geom.Pt(3, 4, 0), geom.Pt(3, 4, -5)},
		{"Parabolic", transform.Config{Kind: "Parabolic"}, geom.Pt(1, 2, 0), geom.Pt(1, 2, 5)},
		{"Custom Defaults", transform.Config{Kind: "custom", Z: "z+1"}, geom.Pt(1, 2, 3), geom.Pt(1, 2, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := tt.cfg.Build()
			require.NoError(t, err)
			assertNear(t, tt.want, tr.Evaluate(tt.in), 1e-12)
		})
	}
}

func TestConfig_Errors(t *testing.T) {
	_, err := transform.Config{Kind: "spherical"}.Build()
	assert.ErrorIs(t, err, transform.ErrUnknownKind)

	_, err = transform.Config{Kind: "conical", Angle: 90}.Build()
	var cfgErr *transform.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "angle", cfgErr.Key)
}

func TestDecode(t *testing.T) {
	t.Run("Weakly Typed", func(t *testing.T) {
		cfg, err := transform.Decode(map[string]any{"kind": "conical", "angle": "30"})
		require.NoError(t, err)
		assert.Equal(t, transform.Config{Kind: "conical", Angle: 30}, cfg)
	})

	t.Run("Unknown Field", func(t *testing.T) {
		_, err := transform.Decode(map[string]any{"kind": "conical", "slope": 1})
		assert.Error(t, err)
	})

	t.Run("FromMap", func(t *testing.T) {
		tr, err := transform.FromMap(map[string]any{"kind": "custom", "x": "x", "y": "y", "z": "z*2"})
		require.NoError(t, err)
		assertNear(t, geom.Pt(1, 1, 4), tr.Evaluate(geom.Pt(1, 1, 2)), 1e-12)
	})
}

func TestParseSpec(t *testing.T) {
	cfg, err := transform.ParseSpec("conical:30")
	require.NoError(t, err)
	assert.Equal(t, transform.Config{Kind: "conical", Angle: 30}, cfg)
	assert.Equal(t, "conical:30", cfg.String())

	cfg, err = transform.ParseSpec("custom:x;y;z+atan2(y,x)")
	require.NoError(t, err)
	assert.Equal(t, "z+atan2(y,x)", cfg.Z)

	cfg, err = transform.ParseSpec("parabolic")
	require.NoError(t, err)
	assert.Equal(t, "parabolic", cfg.String())

	_, err = transform.ParseSpec("conical")
	assert.Error(t, err)
	_, err = transform.ParseSpec("custom:x;y")
	assert.Error(t, err)
}
