package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nonplanar/pkg/domain"
	"github.com/aretw0/nonplanar/pkg/observability"
)

func TestMetrics_ObserveStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	job := domain.NewJob("a", domain.KindResegment)
	job.Stats.Lines = 10
	job.Stats.Emitted = 25
	job.Stats.Selected = 4
	job.Duration = 5 * time.Millisecond
	m.ObserveStats(job)

	refine := domain.NewJob("b", domain.KindRefine)
	refine.Stats.Splits = 7
	m.ObserveStats(refine)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Jobs.WithLabelValues("resegment", "succeeded")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Moves.WithLabelValues("resegment")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.LinesAdded))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Splits))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_ObserveInversion(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.ObserveInversion(3, nil)
	m.ObserveInversion(16, errors.New("diverged"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inversions.WithLabelValues("converged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inversions.WithLabelValues("failed")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.ObserveStats(domain.NewJob("x", domain.KindCheck))
		m.ObserveInversion(1, nil)
	})
}

func TestHooks_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.Hooks(logger)
	ctx := context.Background()

	hooks.OnJobStart(ctx, &domain.JobEvent{JobID: "j1", Kind: domain.KindReproject})
	hooks.OnJobFinish(ctx, &domain.JobEvent{JobID: "j1", Kind: domain.KindReproject, Status: domain.StatusFailed, Err: errors.New("no convergence")})

	out := buf.String()
	assert.Contains(t, out, "job_start")
	assert.Contains(t, out, "job_id=j1")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "no convergence")
}
