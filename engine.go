package nonplanar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/nonplanar/pkg/domain"
	"github.com/aretw0/nonplanar/pkg/gcode"
	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/mesh"
	"github.com/aretw0/nonplanar/pkg/observability"
	"github.com/aretw0/nonplanar/pkg/ports"
	"github.com/aretw0/nonplanar/pkg/transform"
)

// ErrNoStore is returned by job queries on an engine without a store.
var ErrNoStore = errors.New("engine has no job store")

// Engine is the high-level entry point of the library. It binds a transform to the
// G-code and mesh pipelines and records every run as a domain.Job.
//
// An Engine is safe for concurrent use: each call gets its own solver.
type Engine struct {
	transform  transform.Transform
	solverOpts []transform.SolverOption
	store      ports.JobStore
	metrics    *observability.Metrics
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	newID      func() string
	cfgErr     error
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithTransform sets the transform used by every pipeline (default: identity).
func WithTransform(t transform.Transform) Option {
	return func(e *Engine) {
		e.transform = t
	}
}

// WithTransformConfig builds the transform from a config; build errors are
// returned by New.
func WithTransformConfig(cfg transform.Config) Option {
	return func(e *Engine) {
		t, err := cfg.Build()
		if err != nil {
			e.cfgErr = err
			return
		}
		e.transform = t
	}
}

// WithSolverOptions tunes the Newton solver used for Jacobians and inversion.
func WithSolverOptions(opts ...transform.SolverOption) Option {
	return func(e *Engine) {
		e.solverOpts = append(e.solverOpts, opts...)
	}
}

// WithStore persists every job.
func WithStore(s ports.JobStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithMetrics records job and solver metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIDGenerator replaces the random job ID source.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// New initializes an Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.cfgErr != nil {
		return nil, fmt.Errorf("invalid transform: %w", eng.cfgErr)
	}
	if eng.transform == nil {
		eng.transform = transform.Identity{}
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.DiscardHandler)
	}
	if eng.newID == nil {
		eng.newID = uuid.NewString
	}
	return eng, nil
}

// Transform returns the engine's transform.
func (e *Engine) Transform() transform.Transform {
	return e.transform
}

// With returns a copy of the engine that uses t. Store, metrics and hooks are shared.
func (e *Engine) With(t transform.Transform) *Engine {
	c := *e
	c.transform = t
	return &c
}

// Solver returns a new solver configured with the engine's options.
func (e *Engine) Solver() *transform.Solver {
	opts := e.solverOpts
	if e.metrics != nil {
		opts = append(append([]transform.SolverOption(nil), opts...), transform.WithObserver(e.metrics.ObserveInversion))
	}
	return transform.NewSolver(opts...)
}

// Selection skips leading and trailing motion moves.
type Selection struct {
	StartOffset int
	EndOffset   int
}

func (s Selection) rangeFor(p gcode.Program) gcode.Range {
	if s.StartOffset == 0 && s.EndOffset == 0 {
		return gcode.All()
	}
	return gcode.RangeFromOffsets(p.MotionCount(), s.StartOffset, s.EndOffset)
}

// MotionOptions configures Reproject and Unproject.
type MotionOptions struct {
	Selection

	// Offset shifts the transform frame. Ignored when Center is set.
	Offset geom.Point3
	// Center derives the offset so the selected moves are centred on Anchor.
	Center bool
	Anchor geom.Point3
	// ZFloor clamps reprojected Z from below; nil disables the clamp.
	ZFloor *float64
}

func (o MotionOptions) gcodeOptions(p gcode.Program, solver *transform.Solver) ([]gcode.ReprojectOption, geom.Point3) {
	rng := o.rangeFor(p)
	offset := o.Offset
	if o.Center {
		offset = gcode.CenterOffset(p, rng, o.Anchor)
	}
	opts := []gcode.ReprojectOption{
		gcode.WithRange(rng),
		gcode.WithOffset(offset),
		gcode.WithSolver(solver),
	}
	if o.ZFloor != nil {
		opts = append(opts, gcode.WithZFloor(*o.ZFloor))
	}
	return opts, offset
}

// Resegment splits the selected moves of a G-code program so none is longer
// than maxLength.
func (e *Engine) Resegment(ctx context.Context, text string, maxLength float64, sel Selection) (*domain.Job, error) {
	params := map[string]any{"max_segment": maxLength, "start_offset": sel.StartOffset, "end_offset": sel.EndOffset}
	return e.run(ctx, domain.KindResegment, params, func(job *domain.Job) error {
		prog := gcode.Parse(text)
		out, st, err := gcode.Resegment(prog, maxLength, sel.rangeFor(prog))
		if err != nil {
			return err
		}
		job.Stats = motionStats(st)
		job.Output = out.String()
		e.logger.DebugContext(ctx, "resegmented", "moves", st.Selected, "added", st.Added())
		return nil
	})
}

// Reproject maps the selected moves of a G-code program through the transform.
func (e *Engine) Reproject(ctx context.Context, text string, opts MotionOptions) (*domain.Job, error) {
	return e.motion(ctx, domain.KindReproject, text, opts, gcode.Reproject)
}

// Unproject maps a reprojected program back through the inverse transform.
func (e *Engine) Unproject(ctx context.Context, text string, opts MotionOptions) (*domain.Job, error) {
	return e.motion(ctx, domain.KindUnproject, text, opts, gcode.Unproject)
}

type motionPass func(gcode.Program, transform.Transform, ...gcode.ReprojectOption) (gcode.Program, gcode.Stats, error)

func (e *Engine) motion(ctx context.Context, kind domain.JobKind, text string, opts MotionOptions, pass motionPass) (*domain.Job, error) {
	params := map[string]any{"start_offset": opts.StartOffset, "end_offset": opts.EndOffset, "center": opts.Center}
	if opts.ZFloor != nil {
		params["z_floor"] = *opts.ZFloor
	}
	return e.run(ctx, kind, params, func(job *domain.Job) error {
		prog := gcode.Parse(text)
		gopts, offset := opts.gcodeOptions(prog, e.Solver())
		job.Params["offset"] = []float64{offset.X, offset.Y, offset.Z}

		out, st, err := pass(prog, e.transform, gopts...)
		job.Stats = motionStats(st)
		if err != nil {
			return err
		}
		job.Output = out.String()
		e.logger.DebugContext(ctx, string(kind), "moves", st.Selected, "changed", st.Changed, "offset", offset)
		return nil
	})
}

// RefineMesh splits triangles until no edge exceeds maxEdge.
func (e *Engine) RefineMesh(ctx context.Context, m mesh.Mesh, maxEdge float64) (*domain.Job, error) {
	return e.run(ctx, domain.KindRefine, map[string]any{"max_edge": maxEdge}, func(job *domain.Job) error {
		out, splits, err := mesh.Refine(m, maxEdge)
		if err != nil {
			return err
		}
		job.Stats.Triangles = out.TriangleCount()
		job.Stats.Splits = splits
		job.Mesh = out
		e.logger.DebugContext(ctx, "refined", "triangles", out.TriangleCount(), "splits", splits)
		return nil
	})
}

// Direction selects which way a mesh is mapped.
type Direction string

const (
	// Forward shows what a planar print of the mesh becomes.
	Forward Direction = "forward"
	// Inverse produces the mesh to slice so the reprojected print matches the input.
	Inverse Direction = "inverse"
)

// TransformMesh maps every vertex of m forward through the transform or back
// through its inverse. Refine first so long edges bend with the surface.
func (e *Engine) TransformMesh(ctx context.Context, m mesh.Mesh, dir Direction) (*domain.Job, error) {
	return e.run(ctx, domain.KindMesh, map[string]any{"direction": string(dir)}, func(job *domain.Job) error {
		if err := m.Validate(); err != nil {
			return err
		}
		var (
			out mesh.Mesh
			err error
		)
		switch dir {
		case Forward:
			out, err = mesh.Forward(m, e.transform)
		case Inverse:
			out, err = mesh.Inverse(m, e.transform, e.Solver())
		default:
			err = fmt.Errorf("unknown direction %q", dir)
		}
		if err != nil {
			return err
		}
		job.Stats.Triangles = out.TriangleCount()
		job.Mesh = out
		return nil
	})
}

// LayerSurface bends a flat square layer at height z through the transform, so
// the shape of one nonplanar layer can be previewed.
func (e *Engine) LayerSurface(ctx context.Context, size float64, divisions int, z float64) (*domain.Job, error) {
	params := map[string]any{"size": size, "divisions": divisions, "z": z}
	return e.run(ctx, domain.KindLayer, params, func(job *domain.Job) error {
		if !(size > 0) {
			return fmt.Errorf("layer size must be positive, got %g", size)
		}
		out, err := mesh.Forward(mesh.Plane(size, divisions, z), e.transform)
		if err != nil {
			return err
		}
		job.Stats.Triangles = out.TriangleCount()
		job.Mesh = out
		return nil
	})
}

// Check measures how well the inverse undoes the transform: for every sample p it
// inverts F(p) and records the largest distance back to p. Inversion failures
// abort the check.
func (e *Engine) Check(ctx context.Context, samples []geom.Point3) (*domain.Job, error) {
	return e.run(ctx, domain.KindCheck, map[string]any{"samples": len(samples)}, func(job *domain.Job) error {
		solver := e.Solver()
		worst := 0.0
		for i, p := range samples {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			q := e.transform.Evaluate(p)
			x, err := solver.Inverse(e.transform, q, q)
			if err != nil {
				return fmt.Errorf("sample %d %v: %w", i, p, err)
			}
			worst = math.Max(worst, x.Sub(p).Length())
		}
		job.Stats.Samples = len(samples)
		job.Stats.MaxError = worst
		return nil
	})
}

// GridSamples returns points on a regular grid over box, n per axis (n ≥ 2; flat
// axes get one sample).
func GridSamples(box geom.Box, n int) []geom.Point3 {
	if box.Empty() {
		return nil
	}
	n = max(n, 2)
	size := box.Size()
	steps := [3]int{}
	for k := 0; k < 3; k++ {
		steps[k] = n
		if size.Axis(k) == 0 {
			steps[k] = 1
		}
	}
	pts := make([]geom.Point3, 0, steps[0]*steps[1]*steps[2])
	at := func(k, i int) float64 {
		if steps[k] == 1 {
			return box.Min.Axis(k)
		}
		return box.Min.Axis(k) + size.Axis(k)*float64(i)/float64(steps[k]-1)
	}
	for i := 0; i < steps[0]; i++ {
		for j := 0; j < steps[1]; j++ {
			for k := 0; k < steps[2]; k++ {
				pts = append(pts, geom.Pt(at(0, i), at(1, j), at(2, k)))
			}
		}
	}
	return pts
}

// Job loads a stored job.
func (e *Engine) Job(ctx context.Context, id string) (*domain.Job, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.Load(ctx, id)
}

// Jobs lists stored job IDs, most recent first.
func (e *Engine) Jobs(ctx context.Context) ([]string, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.List(ctx)
}

// run executes fn as a job: it fires hooks, records metrics and persists the result.
// The job is returned even when fn fails.
func (e *Engine) run(ctx context.Context, kind domain.JobKind, params map[string]any, fn func(*domain.Job) error) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	job := domain.NewJob(e.newID(), kind)
	job.Transform = transform.Describe(e.transform)
	for k, v := range params {
		job.Params[k] = v
	}

	if e.hooks.OnJobStart != nil {
		e.hooks.OnJobStart(ctx, &domain.JobEvent{Timestamp: time.Now(), Type: domain.EventJobStart, JobID: job.ID, Kind: kind})
	}

	start := time.Now()
	err := fn(job)
	job.Duration = time.Since(start)
	if err != nil {
		job.Fail(err)
		e.logger.WarnContext(ctx, "job failed", "job_id", job.ID, "kind", kind, "err", err)
	} else {
		e.logger.InfoContext(ctx, "job finished", "job_id", job.ID, "kind", kind, "duration", job.Duration)
	}

	e.metrics.ObserveStats(job)
	if e.hooks.OnJobFinish != nil {
		e.hooks.OnJobFinish(ctx, &domain.JobEvent{Timestamp: time.Now(), Type: domain.EventJobFinish, JobID: job.ID, Kind: kind, Status: job.Status, Err: err})
	}

	if e.store != nil {
		if serr := e.store.Save(ctx, job); serr != nil {
			e.logger.ErrorContext(ctx, "failed to save job", "job_id", job.ID, "err", serr)
			if err == nil {
				err = fmt.Errorf("save job %s: %w", job.ID, serr)
			}
		}
	}
	return job, err
}

func motionStats(st gcode.Stats) domain.Stats {
	return domain.Stats{
		Lines:    st.Lines,
		Motion:   st.Motion,
		Selected: st.Selected,
		Changed:  st.Changed,
		Emitted:  st.Emitted,
	}
}
