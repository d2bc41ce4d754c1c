package http

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/nonplanar"
	"github.com/aretw0/nonplanar/internal/plot"
	"github.com/aretw0/nonplanar/pkg/domain"
	"github.com/aretw0/nonplanar/pkg/gcode"
	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/mesh"
	"github.com/aretw0/nonplanar/pkg/transform"
)

//go:embed openapi.yaml
var rawSpec []byte

// MaxBodyBytes bounds request bodies; G-code files can be large.
const MaxBodyBytes = 64 << 20

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// Server serves the engine over HTTP.
type Server struct {
	Engine   *nonplanar.Engine
	Gatherer prometheus.Gatherer
	spec     *openapi3.T
}

// NewHandler creates a new HTTP handler for the engine. A nil gatherer exposes the
// default Prometheus registry on /metrics.
func NewHandler(engine *nonplanar.Engine, gatherer prometheus.Gatherer) (http.Handler, error) {
	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{Engine: engine, Gatherer: gatherer, spec: spec}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/gcode/resegment", s.Resegment)
		r.Post("/gcode/reproject", s.Reproject)
		r.Post("/gcode/unproject", s.Unproject)
		r.Post("/mesh/refine", s.RefineMesh)
		r.Post("/mesh/transform", s.TransformMesh)
		r.Post("/transform/evaluate", s.Evaluate)
		r.Post("/transform/inverse", s.Invert)
		r.Get("/jobs", s.ListJobs)
		r.Get("/jobs/{id}", s.GetJob)
		r.Get("/jobs/{id}/preview.png", s.PreviewJob)
	})
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Request bodies.

type selectionBody struct {
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
}

func (b selectionBody) selection() nonplanar.Selection {
	return nonplanar.Selection{StartOffset: b.StartOffset, EndOffset: b.EndOffset}
}

type resegmentBody struct {
	selectionBody
	GCode      string  `json:"gcode"`
	MaxSegment float64 `json:"max_segment"`
}

type motionBody struct {
	selectionBody
	GCode     string            `json:"gcode"`
	Transform *transform.Config `json:"transform"`
	Offset    []float64         `json:"offset"`
	Center    bool              `json:"center"`
	Anchor    []float64         `json:"anchor"`
	ZFloor    *float64          `json:"z_floor"`
}

type refineBody struct {
	Mesh    []float64 `json:"mesh"`
	MaxEdge float64   `json:"max_edge"`
}

type meshTransformBody struct {
	Mesh      []float64         `json:"mesh"`
	Direction string            `json:"direction"`
	Transform *transform.Config `json:"transform"`
}

type pointsBody struct {
	Transform *transform.Config `json:"transform"`
	Points    [][]float64       `json:"points"`
}

// PointsResponse is returned by the transform endpoints.
type PointsResponse struct {
	Transform  string       `json:"transform"`
	Points     [][3]float64 `json:"points"`
	Det        []float64    `json:"det,omitempty"`
	Iterations []int        `json:"iterations,omitempty"`
}

// decode reads the body, validates it against the named schema and unmarshals it
// into dst. It writes the error response itself and reports whether to continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return false
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		slog.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	ref, ok := s.spec.Components.Schemas[schema]
	if !ok || ref.Value == nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("schema %s missing", schema))
		return false
	}
	if err := ref.Value.VisitJSON(generic); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid %s: %w", schema, err))
		slog.Warn("Request rejected by schema", "schema", schema, "error", err)
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

// engineFor applies a per-request transform.
func (s *Server) engineFor(cfg *transform.Config) (*nonplanar.Engine, error) {
	if cfg == nil {
		return s.Engine, nil
	}
	t, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return s.Engine.With(t), nil
}

func point(v []float64) geom.Point3 {
	if len(v) != 3 {
		return geom.Origin
	}
	return geom.Pt(v[0], v[1], v[2])
}

// Resegment handles POST /v1/gcode/resegment.
func (s *Server) Resegment(w http.ResponseWriter, r *http.Request) {
	var body resegmentBody
	if !s.decode(w, r, "ResegmentRequest", &body) {
		return
	}
	job, err := s.Engine.Resegment(r.Context(), body.GCode, body.MaxSegment, body.selection())
	s.writeJob(w, job, err)
}

// Reproject handles POST /v1/gcode/reproject.
func (s *Server) Reproject(w http.ResponseWriter, r *http.Request) {
	s.motion(w, r, (*nonplanar.Engine).Reproject)
}

// Unproject handles POST /v1/gcode/unproject.
func (s *Server) Unproject(w http.ResponseWriter, r *http.Request) {
	s.motion(w, r, (*nonplanar.Engine).Unproject)
}

type motionFunc func(*nonplanar.Engine, context.Context, string, nonplanar.MotionOptions) (*domain.Job, error)

func (s *Server) motion(w http.ResponseWriter, r *http.Request, fn motionFunc) {
	var body motionBody
	if !s.decode(w, r, "MotionRequest", &body) {
		return
	}
	eng, err := s.engineFor(body.Transform)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts := nonplanar.MotionOptions{
		Selection: body.selection(),
		Offset:    point(body.Offset),
		Center:    body.Center,
		Anchor:    point(body.Anchor),
		ZFloor:    body.ZFloor,
	}
	job, err := fn(eng, r.Context(), body.GCode, opts)
	s.writeJob(w, job, err)
}

// RefineMesh handles POST /v1/mesh/refine.
func (s *Server) RefineMesh(w http.ResponseWriter, r *http.Request) {
	var body refineBody
	if !s.decode(w, r, "RefineRequest", &body) {
		return
	}
	job, err := s.Engine.RefineMesh(r.Context(), body.Mesh, body.MaxEdge)
	s.writeJob(w, job, err)
}

// TransformMesh handles POST /v1/mesh/transform.
func (s *Server) TransformMesh(w http.ResponseWriter, r *http.Request) {
	var body meshTransformBody
	if !s.decode(w, r, "MeshTransformRequest", &body) {
		return
	}
	eng, err := s.engineFor(body.Transform)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	job, err := eng.TransformMesh(r.Context(), body.Mesh, nonplanar.Direction(body.Direction))
	s.writeJob(w, job, err)
}

// Evaluate handles POST /v1/transform/evaluate.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var body pointsBody
	if !s.decode(w, r, "PointsRequest", &body) {
		return
	}
	eng, err := s.engineFor(body.Transform)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t := eng.Transform()
	solver := eng.Solver()
	resp := PointsResponse{Transform: transform.Describe(t)}
	for i, v := range body.Points {
		p := point(v)
		q := t.Evaluate(p)
		det := solver.Det(t, p)
		if !q.Finite() || math.IsNaN(det) || math.IsInf(det, 0) {
			err := &geom.NumericError{Op: fmt.Sprintf("evaluate %v", p), Cond: math.NaN(), Err: geom.ErrNotFinite}
			writeError(w, statusFor(err), fmt.Errorf("point %d: %w", i, err))
			return
		}
		resp.Points = append(resp.Points, [3]float64{q.X, q.Y, q.Z})
		resp.Det = append(resp.Det, det)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Invert handles POST /v1/transform/inverse.
func (s *Server) Invert(w http.ResponseWriter, r *http.Request) {
	var body pointsBody
	if !s.decode(w, r, "PointsRequest", &body) {
		return
	}
	eng, err := s.engineFor(body.Transform)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t := eng.Transform()
	solver := eng.Solver()
	resp := PointsResponse{Transform: transform.Describe(t)}
	for i, v := range body.Points {
		target := point(v)
		x, err := solver.Inverse(t, target, target)
		if err != nil {
			writeError(w, statusFor(err), fmt.Errorf("point %d: %w", i, err))
			return
		}
		resp.Points = append(resp.Points, [3]float64{x.X, x.Y, x.Z})
		resp.Iterations = append(resp.Iterations, solver.Iterations())
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListJobs handles GET /v1/jobs.
func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Jobs(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"jobs": ids})
}

// GetJob handles GET /v1/jobs/{id}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.Engine.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// PreviewJob handles GET /v1/jobs/{id}/preview.png. Only G-code jobs have a
// toolpath to draw.
func (s *Server) PreviewJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.Engine.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	proj, err := plot.ParseProjection(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pts := gcode.Points(gcode.Parse(job.Output))
	p, err := plot.Toolpath(fmt.Sprintf("%s %s", job.Kind, job.ID), proj, plot.Series{Name: string(job.Kind), Points: pts})
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	var buf bytes.Buffer
	if err := plot.WritePNG(&buf, p, plot.Width, plot.Height); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "nonplanar-http",
		"version":     strings.TrimSpace(nonplanar.Version),
		"api_version": apiVersion,
		"transform":   transform.Describe(s.Engine.Transform()),
	})
}

// writeJob writes the job, or the error with the job ID when the run failed.
func (s *Server) writeJob(w http.ResponseWriter, job *domain.Job, err error) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Job failed", "error", err)
		}
		resp := map[string]string{"error": err.Error()}
		if job != nil {
			resp["job_id"] = job.ID
		}
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var (
		convErr *transform.ConvergenceError
		numErr  *geom.NumericError
		cfgErr  *transform.ConfigError
	)
	switch {
	case errors.As(err, &convErr), errors.As(err, &numErr), errors.Is(err, gcode.ErrZeroVolume):
		return http.StatusUnprocessableEntity
	case errors.As(err, &cfgErr),
		errors.Is(err, gcode.ErrInvalidSegmentLength),
		errors.Is(err, mesh.ErrNotTriangleSoup),
		errors.Is(err, mesh.ErrInvalidEdgeLength):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, nonplanar.ErrNoStore):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}
