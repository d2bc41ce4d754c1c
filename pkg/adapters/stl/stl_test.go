package stl_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nonplanar/pkg/adapters/stl"
	"github.com/aretw0/nonplanar/pkg/mesh"
)

func TestToSolid_Normals(t *testing.T) {
	s, err := stl.ToSolid(mesh.Mesh{0, 0, 0, 1, 0, 0, 0, 1, 0}, "tri", true)
	require.NoError(t, err)
	require.Len(t, s.Triangles, 1)
	assert.Equal(t, float32(1), s.Triangles[0].Normal[2])

	_, err = stl.ToSolid(mesh.Mesh{1, 2}, "bad", true)
	assert.ErrorIs(t, err, mesh.ErrNotTriangleSoup)
}

func TestFileRoundTrip(t *testing.T) {
	in := mesh.Plane(4, 2, 1.5)
	for _, ascii := range []bool{true, false} {
		path := filepath.Join(t.TempDir(), "plane.stl")
		require.NoError(t, stl.WriteFile(path, in, "plane", ascii))

		out, _, err := stl.ReadFile(path)
		require.NoError(t, err)
		// Plane coordinates are exact in float32.
		assert.Equal(t, in, out)
	}
}
