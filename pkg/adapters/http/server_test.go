package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nonplanar"
	api "github.com/aretw0/nonplanar/pkg/adapters/http"
	"github.com/aretw0/nonplanar/pkg/adapters/memory"
	"github.com/aretw0/nonplanar/pkg/domain"
	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/observability"
	"github.com/aretw0/nonplanar/pkg/transform"
)

const program = "G28\nG1 X0 Y0 Z0.2 F3000\nG1 X10 Y0 E0.5\nG1 X10 Y10 E1"

func newServer(t *testing.T, opts ...nonplanar.Option) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	n := 0
	base := []nonplanar.Option{
		nonplanar.WithStore(memory.NewStore()),
		nonplanar.WithMetrics(observability.NewMetrics(reg)),
		nonplanar.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("job-%d", n)
		}),
	}
	eng, err := nonplanar.New(append(base, opts...)...)
	require.NoError(t, err)

	handler, err := api.NewHandler(eng, reg)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path string, body any) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestLoadSpec(t *testing.T) {
	doc, err := api.LoadSpec(context.Background())
	require.NoError(t, err)
	assert.Contains(t, doc.Components.Schemas, "MotionRequest")
	assert.NotNil(t, doc.Paths.Find("/v1/gcode/reproject"))
}

func TestServer_Health(t *testing.T) {
	srv := newServer(t)

	resp, body := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = get(t, srv, "/info")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var info map[string]string
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.Equal(t, "identity", info["transform"])
}

func TestServer_ReprojectMatchesLibrary(t *testing.T) {
	srv := newServer(t)

	resp, body := post(t, srv, "/v1/gcode/reproject", map[string]any{
		"gcode":     program,
		"transform": map[string]any{"kind": "conical", "angle": 30},
		"offset":    []float64{5, 5, 0},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var job domain.Job
	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, domain.KindReproject, job.Kind)
	assert.Equal(t, domain.StatusSucceeded, job.Status)

	eng, err := nonplanar.New(nonplanar.WithTransformConfig(transform.Config{Kind: "conical", Angle: 30}))
	require.NoError(t, err)
	want, err := eng.Reproject(context.Background(), program, nonplanar.MotionOptions{Offset: geom.Pt(5, 5, 0)})
	require.NoError(t, err)
	assert.Equal(t, want.Output, job.Output)
	assert.Equal(t, want.Stats, job.Stats)

	// The job was persisted.
	resp, body = get(t, srv, "/v1/jobs/"+job.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stored domain.Job
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Equal(t, job.Output, stored.Output)

	resp, body = get(t, srv, "/v1/jobs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"jobs":["job-1"]}`, string(body))
}

func TestServer_Resegment(t *testing.T) {
	srv := newServer(t)

	resp, body := post(t, srv, "/v1/gcode/resegment", map[string]any{
		"gcode":       program,
		"max_segment": 2.5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var job domain.Job
	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, 4, job.Stats.Lines)
	// 0.2 mm lift, then two 10 mm moves in four pieces each.
	assert.Equal(t, 10, job.Stats.Emitted)
}

func TestServer_SchemaViolation(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"missing gcode", "/v1/gcode/resegment", map[string]any{"max_segment": 1}},
		{"non-positive segment", "/v1/gcode/resegment", map[string]any{"gcode": program, "max_segment": 0}},
		{"unknown kind", "/v1/gcode/reproject", map[string]any{"gcode": program, "transform": map[string]any{"kind": "spiral"}}},
		{"angle out of range", "/v1/gcode/reproject", map[string]any{"gcode": program, "transform": map[string]any{"kind": "conical", "angle": 90}}},
		{"empty points", "/v1/transform/inverse", map[string]any{"points": []any{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
			assert.Contains(t, string(body), `"error"`)
		})
	}
}

func TestServer_InvalidJSON(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+"/v1/gcode/reproject", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_MeshPreconditions(t *testing.T) {
	srv := newServer(t)

	resp, body := post(t, srv, "/v1/mesh/refine", map[string]any{
		"mesh":     []float64{0, 0, 0, 1, 0, 0, 0, 1},
		"max_edge": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
}

func TestServer_DivergenceIs422(t *testing.T) {
	diverging := transform.Func(func(p geom.Point3) geom.Point3 {
		return geom.Pt(math.Cbrt(p.X-1), p.Y, p.Z)
	})
	srv := newServer(t, nonplanar.WithTransform(diverging))

	resp, body := post(t, srv, "/v1/gcode/unproject", map[string]any{
		"gcode": "G1 X0 Y0 Z0",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Contains(t, payload["error"], "line 1")
	assert.Equal(t, "job-1", payload["job_id"])

	// Failed jobs are still recorded.
	resp, body = get(t, srv, "/v1/jobs/job-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var job domain.Job
	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, domain.StatusFailed, job.Status)
}

func TestServer_TransformPoints(t *testing.T) {
	srv := newServer(t)
	cfg := map[string]any{"kind": "conical", "angle": 45}

	resp, body := post(t, srv, "/v1/transform/evaluate", map[string]any{
		"transform": cfg,
		"points":    [][]float64{{3, 4, 1}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var fwd api.PointsResponse
	require.NoError(t, json.Unmarshal(body, &fwd))
	require.Len(t, fwd.Points, 1)
	assert.InDelta(t, 6.0, fwd.Points[0][2], 1e-9)
	assert.InDelta(t, 1.0, fwd.Det[0], 1e-6)

	resp, body = post(t, srv, "/v1/transform/inverse", map[string]any{
		"transform": cfg,
		"points":    [][]float64{{3, 4, 6}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var inv api.PointsResponse
	require.NoError(t, json.Unmarshal(body, &inv))
	require.Len(t, inv.Points, 1)
	assert.InDelta(t, 1.0, inv.Points[0][2], 1e-6)
	assert.NotEmpty(t, inv.Iterations)
}

func TestServer_NonFiniteIs422(t *testing.T) {
	srv := newServer(t)
	logZ := map[string]any{"kind": "custom", "z": "log(z)"}

	resp, body := post(t, srv, "/v1/transform/evaluate", map[string]any{
		"transform": logZ,
		"points":    [][]float64{{1, 1, 1}, {0, 0, -1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))
	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Contains(t, payload["error"], "point 1")

	resp, body = post(t, srv, "/v1/mesh/transform", map[string]any{
		"transform": logZ,
		"direction": "forward",
		"mesh":      []float64{0, 0, -1, 1, 0, -1, 0, 1, -1},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.NotEmpty(t, payload["job_id"])
}

func TestServer_MeshTransform(t *testing.T) {
	srv := newServer(t)

	tri := []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}
	resp, body := post(t, srv, "/v1/mesh/transform", map[string]any{
		"mesh":      tri,
		"direction": "forward",
		"transform": map[string]any{"kind": "parabolic"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var job domain.Job
	require.NoError(t, json.Unmarshal(body, &job))
	require.Len(t, job.Mesh, 9)
	assert.Equal(t, 1, job.Stats.Triangles)
}

func TestServer_JobNotFound(t *testing.T) {
	srv := newServer(t)

	resp, body := get(t, srv, "/v1/jobs/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "job not found")
}

func TestServer_Preview(t *testing.T) {
	srv := newServer(t)

	resp, body := post(t, srv, "/v1/gcode/resegment", map[string]any{"gcode": program, "max_segment": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = get(t, srv, "/v1/jobs/job-1/preview.png?view=xy")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG\r\n\x1a\n")))

	resp, _ = get(t, srv, "/v1/jobs/job-1/preview.png?view=iso")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	srv := newServer(t)

	resp, _ := post(t, srv, "/v1/gcode/resegment", map[string]any{"gcode": program, "max_segment": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `nonplanar_jobs_total{kind="resegment",status="succeeded"} 1`)
}

func TestServer_CORS(t *testing.T) {
	srv := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/gcode/reproject", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
