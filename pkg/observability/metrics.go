package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/nonplanar/pkg/domain"
)

// Metrics holds the engine collectors.
type Metrics struct {
	Jobs       *prometheus.CounterVec
	Moves      *prometheus.CounterVec
	LinesAdded prometheus.Counter
	Splits     prometheus.Counter
	Inversions *prometheus.CounterVec
	Iterations prometheus.Histogram
	Duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is useful when only the values matter.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nonplanar_jobs_total",
			Help: "Jobs run by kind and status",
		}, []string{"kind", "status"}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nonplanar_moves_processed_total",
			Help: "Motion moves selected for processing, by stage",
		}, []string{"stage"}),
		LinesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nonplanar_lines_added_total",
			Help: "Lines added by resegmentation",
		}),
		Splits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nonplanar_mesh_splits_total",
			Help: "Triangle splits performed by mesh refinement",
		}),
		Inversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nonplanar_inversions_total",
			Help: "Newton inversions by outcome",
		}, []string{"outcome"}),
		Iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nonplanar_newton_iterations",
			Help:    "Newton iterations per inversion",
			Buckets: prometheus.LinearBuckets(0, 2, 9),
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "nonplanar_job_duration_seconds",
			Help: "Duration of jobs by kind",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Jobs, m.Moves, m.LinesAdded, m.Splits, m.Inversions, m.Iterations, m.Duration)
	}
	return m
}

// ObserveStats records the counters of a finished job.
func (m *Metrics) ObserveStats(job *domain.Job) {
	if m == nil {
		return
	}
	m.Jobs.WithLabelValues(string(job.Kind), string(job.Status)).Inc()
	m.Duration.WithLabelValues(string(job.Kind)).Observe(job.Duration.Seconds())
	if job.Stats.Selected > 0 {
		m.Moves.WithLabelValues(string(job.Kind)).Add(float64(job.Stats.Selected))
	}
	if added := job.Stats.Emitted - job.Stats.Lines; job.Kind == domain.KindResegment && added > 0 {
		m.LinesAdded.Add(float64(added))
	}
	if job.Stats.Splits > 0 {
		m.Splits.Add(float64(job.Stats.Splits))
	}
}

// ObserveInversion records one Newton solve.
func (m *Metrics) ObserveInversion(iterations int, err error) {
	if m == nil {
		return
	}
	outcome := "converged"
	if err != nil {
		outcome = "failed"
	}
	m.Inversions.WithLabelValues(outcome).Inc()
	m.Iterations.Observe(float64(iterations))
}

// Hooks returns lifecycle hooks that log job events. A nil logger discards them.
func Hooks(logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return domain.LifecycleHooks{
		OnJobStart: func(ctx context.Context, e *domain.JobEvent) {
			logger.DebugContext(ctx, "job_start", "job_id", e.JobID, "kind", e.Kind)
		},
		OnJobFinish: func(ctx context.Context, e *domain.JobEvent) {
			attrs := []any{"job_id", e.JobID, "kind", e.Kind, "status", e.Status}
			if e.Err != nil {
				logger.WarnContext(ctx, "job_finish", append(attrs, "err", e.Err)...)
			} else {
				logger.InfoContext(ctx, "job_finish", attrs...)
			}
		},
	}
}
