package nonplanar_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nonplanar"
	"github.com/aretw0/nonplanar/pkg/adapters/memory"
	"github.com/aretw0/nonplanar/pkg/domain"
	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/mesh"
	"github.com/aretw0/nonplanar/pkg/observability"
	"github.com/aretw0/nonplanar/pkg/transform"
)

const program = `G28
G1 X0 Y0 Z0.2 F3000
G1 X10 Y0 E0.5
G1 X10 Y10 E1
G1 X0 Y10 E1.5`

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("job-%d", n)
	}
}

func newEngine(t *testing.T, opts ...nonplanar.Option) (*nonplanar.Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	opts = append([]nonplanar.Option{nonplanar.WithStore(store), nonplanar.WithIDGenerator(sequentialIDs())}, opts...)
	eng, err := nonplanar.New(opts...)
	require.NoError(t, err)
	return eng, store
}

func TestNew_Defaults(t *testing.T) {
	eng, err := nonplanar.New()
	require.NoError(t, err)
	assert.Equal(t, transform.Identity{}, eng.Transform())

	_, err = eng.Jobs(context.Background())
	assert.ErrorIs(t, err, nonplanar.ErrNoStore)
}

func TestNew_InvalidTransform(t *testing.T) {
	_, err := nonplanar.New(nonplanar.WithTransformConfig(transform.Config{Kind: "spiral"}))
	assert.ErrorIs(t, err, transform.ErrUnknownKind)
}

func TestEngine_ResegmentPersists(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	job, err := eng.Resegment(ctx, program, 2, nonplanar.Selection{StartOffset: 1})
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, domain.KindResegment, job.Kind)
	assert.Equal(t, 3, job.Stats.Selected)
	// G28 and the first move are copied; each 10 mm move becomes five pieces.
	assert.Equal(t, 2+3*5, job.Stats.Emitted)

	loaded, err := eng.Job(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Output, loaded.Output)

	ids, err := eng.Jobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, ids)
}

func TestEngine_ReprojectAndBack(t *testing.T) {
	eng, _ := newEngine(t, nonplanar.WithTransformConfig(transform.Config{Kind: "conical", Angle: 20}))
	ctx := context.Background()

	fine, err := eng.Resegment(ctx, program, 1, nonplanar.Selection{})
	require.NoError(t, err)

	opts := nonplanar.MotionOptions{Center: true, Anchor: geom.Pt(5, 5, 0)}
	bent, err := eng.Reproject(ctx, fine.Output, opts)
	require.NoError(t, err)
	assert.Equal(t, "conical(20°)", bent.Transform)
	assert.Equal(t, []float64{0, 0, 0}, bent.Params["offset"])
	assert.Greater(t, bent.Stats.Changed, 0)

	back, err := eng.Unproject(ctx, bent.Output, nonplanar.MotionOptions{})
	require.NoError(t, err)
	assert.Equal(t, fine.Stats.Emitted, back.Stats.Emitted)
}

func TestEngine_ZFloor(t *testing.T) {
	eng, _ := newEngine(t, nonplanar.WithTransform(transform.NewConical(-45)))
	floor := 0.2
	job, err := eng.Reproject(context.Background(), "G1 X3 Y4 Z0.2", nonplanar.MotionOptions{ZFloor: &floor})
	require.NoError(t, err)
	// The clamp lands exactly on the original position, so the line is kept.
	assert.Equal(t, "G1 X3 Y4 Z0.2", job.Output)
	assert.Equal(t, 0.2, job.Params["z_floor"])
}

func TestEngine_FailedJobIsStored(t *testing.T) {
	diverging := transform.Func(func(p geom.Point3) geom.Point3 {
		return geom.Pt(math.Cbrt(p.X-1), p.Y, p.Z)
	})
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	var finished []*domain.JobEvent
	hooks := domain.LifecycleHooks{
		OnJobFinish: func(_ context.Context, e *domain.JobEvent) { finished = append(finished, e) },
	}
	eng, store := newEngine(t, nonplanar.WithTransform(diverging), nonplanar.WithMetrics(metrics), nonplanar.WithLifecycleHooks(hooks))
	ctx := context.Background()

	job, err := eng.Unproject(ctx, "G1 X0 Y0 Z0", nonplanar.MotionOptions{})
	require.Error(t, err)
	var convErr *transform.ConvergenceError
	assert.True(t, errors.As(err, &convErr))
	require.NotNil(t, job)
	assert.Equal(t, domain.StatusFailed, job.Status)

	stored, err := store.Load(ctx, job.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Error, "line 1")

	require.Len(t, finished, 1)
	assert.Equal(t, domain.StatusFailed, finished[0].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Inversions.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Jobs.WithLabelValues("unproject", "failed")))
}

func TestEngine_RefineAndTransformMesh(t *testing.T) {
	eng, _ := newEngine(t, nonplanar.WithTransform(transform.NewConical(30)))
	ctx := context.Background()

	refined, err := eng.RefineMesh(ctx, mesh.Plane(10, 1, 1), 1)
	require.NoError(t, err)
	assert.Greater(t, refined.Stats.Splits, 0)
	assert.Equal(t, len(refined.Mesh)/9, refined.Stats.Triangles)

	flat, err := eng.TransformMesh(ctx, refined.Mesh, nonplanar.Inverse)
	require.NoError(t, err)
	bent, err := eng.TransformMesh(ctx, flat.Mesh, nonplanar.Forward)
	require.NoError(t, err)
	for i := range refined.Mesh {
		assert.InDelta(t, refined.Mesh[i], bent.Mesh[i], 1e-6)
	}

	_, err = eng.TransformMesh(ctx, refined.Mesh, "sideways")
	assert.Error(t, err)
	_, err = eng.RefineMesh(ctx, mesh.Mesh{1}, 1)
	assert.ErrorIs(t, err, mesh.ErrNotTriangleSoup)
}

func TestEngine_LayerSurface(t *testing.T) {
	eng, _ := newEngine(t, nonplanar.WithTransform(transform.Parabolic{}))
	job, err := eng.LayerSurface(context.Background(), 4, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, job.Stats.Triangles)
	b := mesh.Bounds(job.Mesh)
	assert.InDelta(t, 8, b.Max.Z, 1e-12)

	_, err = eng.LayerSurface(context.Background(), 0, 2, 0)
	assert.Error(t, err)
}

func TestEngine_NonFiniteMeshFails(t *testing.T) {
	logZ, err := transform.NewCustom("x", "y", "log(z)")
	require.NoError(t, err)
	eng, store := newEngine(t, nonplanar.WithTransform(logZ))
	ctx := context.Background()

	job, err := eng.TransformMesh(ctx, mesh.Plane(2, 1, -1), nonplanar.Forward)
	assert.ErrorIs(t, err, geom.ErrNotFinite)
	require.NotNil(t, job)
	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Empty(t, job.Mesh)

	job, err = eng.LayerSurface(ctx, 2, 1, -1)
	var numErr *geom.NumericError
	require.True(t, errors.As(err, &numErr), "got %v", err)
	assert.Equal(t, domain.StatusFailed, job.Status)

	stored, err := store.Load(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
}

func TestEngine_Check(t *testing.T) {
	eng, _ := newEngine(t, nonplanar.WithTransform(transform.NewConical(30)))
	var box geom.Box
	box.Extend(geom.Pt(-20, -20, 0))
	box.Extend(geom.Pt(20, 20, 10))
	samples := nonplanar.GridSamples(box, 5)
	assert.Len(t, samples, 125)

	job, err := eng.Check(context.Background(), samples)
	require.NoError(t, err)
	assert.Equal(t, 125, job.Stats.Samples)
	assert.Less(t, job.Stats.MaxError, 1e-6)
}

func TestGridSamples_FlatAxis(t *testing.T) {
	var box geom.Box
	box.Extend(geom.Pt(0, 0, 1))
	box.Extend(geom.Pt(2, 2, 1))
	pts := nonplanar.GridSamples(box, 3)
	assert.Len(t, pts, 9)
	assert.Empty(t, nonplanar.GridSamples(geom.Box{}, 3))
}

func TestEngine_CanceledContext(t *testing.T) {
	eng, _ := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Resegment(ctx, program, 1, nonplanar.Selection{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_With(t *testing.T) {
	eng, store := newEngine(t)
	cone := eng.With(transform.NewConical(10))
	job, err := cone.Reproject(context.Background(), "G1 X1 Y0 Z0", nonplanar.MotionOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, "G1 X1 Y0 Z0", job.Output)
	assert.Equal(t, transform.Identity{}, eng.Transform())

	_, err = store.Load(context.Background(), job.ID)
	assert.NoError(t, err)
}
