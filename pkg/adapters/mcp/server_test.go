package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nonplanar"
	"github.com/aretw0/nonplanar/pkg/adapters/memory"
	"github.com/aretw0/nonplanar/pkg/geom"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng, err := nonplanar.New(nonplanar.WithStore(memory.NewStore()))
	require.NoError(t, err)
	return NewServer(eng)
}

func TestServer_EvaluateAndInvert(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	fwd, err := s.handleEvaluate(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"x": 3.0, "y": 4.0, "z": 1.0, "transform": "conical:45",
	})
	require.NoError(t, err)
	assert.InDelta(t, 6.0, fwd.Point[2], 1e-9)
	assert.InDelta(t, 1.0, fwd.Det, 1e-6)

	inv, err := s.handleInvert(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"x": 3.0, "y": 4.0, "z": 6.0, "transform": "conical:45",
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, inv.Point[2], 1e-6)
	assert.Greater(t, inv.Iterations, 0)
}

func TestServer_DefaultTransform(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.handleEvaluate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"x": 1.0, "y": 2.0, "z": 3.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "identity", resp.Transform)
	assert.Equal(t, [3]float64{1, 2, 3}, resp.Point)
}

func TestServer_BadArguments(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleEvaluate(ctx, mcp.CallToolRequest{}, map[string]interface{}{"x": 1.0, "y": "two", "z": 0.0})
	assert.ErrorContains(t, err, `"y"`)

	_, err = s.handleEvaluate(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"x": 1.0, "y": 2.0, "z": 0.0, "transform": "spiral",
	})
	assert.Error(t, err)
}

func TestServer_EvaluateNonFinite(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleEvaluate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"x": 0.0, "y": 0.0, "z": -1.0, "transform": "custom:x;y;log(z)",
	})
	assert.ErrorIs(t, err, geom.ErrNotFinite)
}

func TestServer_GCodeTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	program := "G1 X0 Y0 Z0.2 F1200\nG1 X3 Y0 E0.3"

	seg, err := s.handleResegment(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"gcode": program, "max_segment": 1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "resegment", seg.Kind)
	assert.Equal(t, 4, seg.Stats.Emitted)

	up, err := s.handleReproject(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"gcode": seg.Output, "transform": "conical:20",
	})
	require.NoError(t, err)
	assert.Equal(t, "reproject", up.Kind)

	down, err := s.handleUnproject(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"gcode": up.Output, "transform": "conical:20",
	})
	require.NoError(t, err)
	assert.Equal(t, seg.Stats.Emitted, down.Stats.Emitted)

	stored, err := s.engine.Job(ctx, down.ID)
	require.NoError(t, err)
	assert.Equal(t, down.Output, stored.Output)
}

func TestServer_ResegmentRejectsNonPositive(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleResegment(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"gcode": "G1 X1", "max_segment": 0.0,
	})
	assert.ErrorContains(t, err, "job failed")
}
