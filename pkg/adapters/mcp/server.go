package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/nonplanar"
	"github.com/aretw0/nonplanar/pkg/domain"
	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/transform"
)

// PointResponse is returned by the point tools.
type PointResponse struct {
	Transform  string     `json:"transform" jsonschema_description:"The transform that was applied"`
	Point      [3]float64 `json:"point" jsonschema_description:"The resulting point (x, y, z)"`
	Det        float64    `json:"det,omitempty" jsonschema_description:"Jacobian determinant at the input point"`
	Iterations int        `json:"iterations,omitempty" jsonschema_description:"Newton iterations used by the inverse"`
}

// JobResponse summarises a G-code job.
type JobResponse struct {
	ID     string       `json:"id" jsonschema_description:"Job identifier"`
	Kind   string       `json:"kind" jsonschema_description:"Operation that ran"`
	Stats  domain.Stats `json:"stats" jsonschema_description:"Line and move counters"`
	Output string       `json:"output" jsonschema_description:"The rewritten G-code"`
}

// Server wraps the nonplanar Engine and exposes it as an MCP Server.
type Server struct {
	engine    *nonplanar.Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine *nonplanar.Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("nonplanar-mcp", strings.TrimSpace(nonplanar.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	transformArg := mcp.WithString("transform",
		mcp.Description("Transform spec such as conical:30, parabolic or custom:x;y;z+0.1*x (defaults to the server transform)"))

	// TOOL: evaluate_point
	s.mcpServer.AddTool(mcp.NewTool("evaluate_point",
		mcp.WithDescription("Map a planar point into nonplanar space."),
		mcp.WithNumber("x", mcp.Required()),
		mcp.WithNumber("y", mcp.Required()),
		mcp.WithNumber("z", mcp.Required()),
		transformArg,
		mcp.WithOutputSchema[PointResponse](),
	), mcp.NewStructuredToolHandler(s.handleEvaluate))

	// TOOL: invert_point
	s.mcpServer.AddTool(mcp.NewTool("invert_point",
		mcp.WithDescription("Find the planar point that the transform maps onto the given point."),
		mcp.WithNumber("x", mcp.Required()),
		mcp.WithNumber("y", mcp.Required()),
		mcp.WithNumber("z", mcp.Required()),
		transformArg,
		mcp.WithOutputSchema[PointResponse](),
	), mcp.NewStructuredToolHandler(s.handleInvert))

	// TOOL: resegment_gcode
	s.mcpServer.AddTool(mcp.NewTool("resegment_gcode",
		mcp.WithDescription("Split long G-code moves so none exceeds max_segment millimetres."),
		mcp.WithString("gcode", mcp.Required(), mcp.Description("G-code program text")),
		mcp.WithNumber("max_segment", mcp.Required(), mcp.Description("Maximum move length in mm")),
		mcp.WithNumber("start_offset", mcp.Description("Motion moves to skip at the start")),
		mcp.WithNumber("end_offset", mcp.Description("Motion moves to skip at the end")),
		mcp.WithOutputSchema[JobResponse](),
	), mcp.NewStructuredToolHandler(s.handleResegment))

	// TOOL: reproject_gcode
	s.mcpServer.AddTool(mcp.NewTool("reproject_gcode",
		mcp.WithDescription("Bend planar G-code through the transform."),
		mcp.WithString("gcode", mcp.Required(), mcp.Description("G-code program text")),
		transformArg,
		mcp.WithBoolean("center", mcp.Description("Centre the transform on the selected moves")),
		mcp.WithNumber("start_offset", mcp.Description("Motion moves to skip at the start")),
		mcp.WithNumber("end_offset", mcp.Description("Motion moves to skip at the end")),
		mcp.WithOutputSchema[JobResponse](),
	), mcp.NewStructuredToolHandler(s.handleReproject))

	// TOOL: unproject_gcode
	s.mcpServer.AddTool(mcp.NewTool("unproject_gcode",
		mcp.WithDescription("Flatten nonplanar G-code back through the inverse transform."),
		mcp.WithString("gcode", mcp.Required(), mcp.Description("G-code program text")),
		transformArg,
		mcp.WithBoolean("center", mcp.Description("Centre the transform on the selected moves")),
		mcp.WithNumber("start_offset", mcp.Description("Motion moves to skip at the start")),
		mcp.WithNumber("end_offset", mcp.Description("Motion moves to skip at the end")),
		mcp.WithOutputSchema[JobResponse](),
	), mcp.NewStructuredToolHandler(s.handleUnproject))

	// TOOL: get_job
	s.mcpServer.AddTool(mcp.NewTool("get_job",
		mcp.WithDescription("Fetch a stored job by ID."),
		mcp.WithString("id", mcp.Required()),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := request.GetArguments()["id"].(string)
		job, err := s.engine.Job(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get job failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(job)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// engineFor applies the optional "transform" argument.
func (s *Server) engineFor(args map[string]interface{}) (*nonplanar.Engine, error) {
	spec, _ := args["transform"].(string)
	if strings.TrimSpace(spec) == "" {
		return s.engine, nil
	}
	cfg, err := transform.ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	t, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return s.engine.With(t), nil
}

func pointArg(args map[string]interface{}) (geom.Point3, error) {
	var p geom.Point3
	for k, name := range []string{"x", "y", "z"} {
		v, ok := args[name].(float64)
		if !ok {
			return p, fmt.Errorf("argument %q must be a number", name)
		}
		p = p.WithAxis(k, v)
	}
	return p, nil
}

func intArg(args map[string]interface{}, name string) int {
	v, _ := args[name].(float64)
	return int(v)
}

func selection(args map[string]interface{}) nonplanar.Selection {
	return nonplanar.Selection{StartOffset: intArg(args, "start_offset"), EndOffset: intArg(args, "end_offset")}
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PointResponse, error) {
	eng, err := s.engineFor(args)
	if err != nil {
		return PointResponse{}, err
	}
	p, err := pointArg(args)
	if err != nil {
		return PointResponse{}, err
	}
	t := eng.Transform()
	q := t.Evaluate(p)
	det := eng.Solver().Det(t, p)
	if !q.Finite() || math.IsNaN(det) || math.IsInf(det, 0) {
		return PointResponse{}, &geom.NumericError{Op: fmt.Sprintf("evaluate %v", p), Cond: math.NaN(), Err: geom.ErrNotFinite}
	}
	return PointResponse{
		Transform: transform.Describe(t),
		Point:     [3]float64{q.X, q.Y, q.Z},
		Det:       det,
	}, nil
}

func (s *Server) handleInvert(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PointResponse, error) {
	eng, err := s.engineFor(args)
	if err != nil {
		return PointResponse{}, err
	}
	target, err := pointArg(args)
	if err != nil {
		return PointResponse{}, err
	}
	t := eng.Transform()
	solver := eng.Solver()
	x, err := solver.Inverse(t, target, target)
	if err != nil {
		return PointResponse{}, fmt.Errorf("inverse failed: %w", err)
	}
	return PointResponse{
		Transform:  transform.Describe(t),
		Point:      [3]float64{x.X, x.Y, x.Z},
		Iterations: solver.Iterations(),
	}, nil
}

func (s *Server) handleResegment(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (JobResponse, error) {
	text, _ := args["gcode"].(string)
	maxSegment, _ := args["max_segment"].(float64)
	job, err := s.engine.Resegment(ctx, text, maxSegment, selection(args))
	return jobResponse(job, err)
}

func (s *Server) handleReproject(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (JobResponse, error) {
	return s.motion(ctx, args, (*nonplanar.Engine).Reproject)
}

func (s *Server) handleUnproject(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (JobResponse, error) {
	return s.motion(ctx, args, (*nonplanar.Engine).Unproject)
}

func (s *Server) motion(ctx context.Context, args map[string]interface{}, fn func(*nonplanar.Engine, context.Context, string, nonplanar.MotionOptions) (*domain.Job, error)) (JobResponse, error) {
	eng, err := s.engineFor(args)
	if err != nil {
		return JobResponse{}, err
	}
	text, _ := args["gcode"].(string)
	center, _ := args["center"].(bool)
	job, err := fn(eng, ctx, text, nonplanar.MotionOptions{Selection: selection(args), Center: center})
	return jobResponse(job, err)
}

func jobResponse(job *domain.Job, err error) (JobResponse, error) {
	if err != nil {
		if job != nil {
			slog.Warn("MCP job failed", "id", job.ID, "kind", job.Kind, "error", err)
		}
		return JobResponse{}, fmt.Errorf("job failed: %w", err)
	}
	if job == nil {
		return JobResponse{}, errors.New("job failed: no result")
	}
	return JobResponse{ID: job.ID, Kind: string(job.Kind), Stats: job.Stats, Output: job.Output}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: nonplanar://transform
	s.mcpServer.AddResource(mcp.NewResource("nonplanar://transform", "Active Transform",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(map[string]string{
			"transform": transform.Describe(s.engine.Transform()),
			"version":   strings.TrimSpace(nonplanar.Version),
		})
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "nonplanar://transform",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
