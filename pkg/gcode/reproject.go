package gcode

import (
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/transform"
)

// ErrZeroVolume is returned by Unproject when the transform collapses volume at
// a move, so its extrusion cannot be restored.
var ErrZeroVolume = errors.New("jacobian determinant is zero")

type reprojectConfig struct {
	rng    Range
	offset geom.Point3
	zFloor float64
	solver *transform.Solver
}

// ReprojectOption configures Reproject and Unproject.
type ReprojectOption func(*reprojectConfig)

// WithRange limits the pass to the selected motion moves.
func WithRange(r Range) ReprojectOption {
	return func(c *reprojectConfig) {
		c.rng = r
	}
}

// WithOffset evaluates the transform in a frame shifted by offset: points are
// translated by +offset before the transform and by -offset after it.
func WithOffset(offset geom.Point3) ReprojectOption {
	return func(c *reprojectConfig) {
		c.offset = offset
	}
}

// WithZFloor clamps reprojected Z values to be at least floor.
func WithZFloor(floor float64) ReprojectOption {
	return func(c *reprojectConfig) {
		c.zFloor = floor
	}
}

// WithSolver reuses an existing solver and its scratch state.
func WithSolver(s *transform.Solver) ReprojectOption {
	return func(c *reprojectConfig) {
		c.solver = s
	}
}

func newReprojectConfig(opts []ReprojectOption) *reprojectConfig {
	c := &reprojectConfig{
		rng:    All(),
		zFloor: math.Inf(-1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.solver == nil {
		c.solver = transform.NewSolver()
	}
	return c
}

// Reproject maps every selected move through t.
//
// For a move resolved to p the new target is t(p + offset) - offset, clamped to
// the Z floor, and its extrusion is scaled by det J(p + offset) so the deposited
// volume follows the local volume change of the map. Feed rates pass through.
// A selected move whose position and extrusion come out unchanged keeps its
// original text, so the identity transform returns the program as it was.
func Reproject(p Program, t transform.Transform, opts ...ReprojectOption) (Program, Stats, error) {
	cfg := newReprojectConfig(opts)
	out := make(Program, 0, len(p))
	st := Stats{Lines: len(p)}
	var state MachineState
	ordinal := -1

	for _, m := range p {
		if !m.IsMotion() {
			out = append(out, m)
			continue
		}
		ordinal++
		st.Motion++

		pos := state.Advance(m)
		if !cfg.rng.Contains(ordinal) {
			out = append(out, m)
			continue
		}
		st.Selected++

		src := pos.Add(cfg.offset)
		q := t.Evaluate(src).Sub(cfg.offset)
		det := cfg.solver.Det(t, src)
		if q.Z < cfg.zFloor {
			q.Z = cfg.zFloor
		}
		e := m.E * det

		if !q.Finite() || math.IsNaN(e) || math.IsInf(e, 0) {
			return nil, st, fmt.Errorf("line %d: reproject %v: %w", m.Line, pos,
				&geom.NumericError{Op: "evaluate", Cond: math.NaN(), Err: geom.ErrNotFinite})
		}
		if q == pos && e == m.E {
			out = append(out, m)
			continue
		}
		st.Changed++
		out = append(out, linearMove(q, e, m.F, m.Line))
	}

	st.Emitted = len(out)
	return out, st, nil
}

// Unproject is the inverse of Reproject: every selected move is pulled back
// through t with Newton inversion and its extrusion divided by the Jacobian
// determinant at the recovered point. The Z floor option is ignored.
//
// Inversion failures are returned with the offending source line.
func Unproject(p Program, t transform.Transform, opts ...ReprojectOption) (Program, Stats, error) {
	cfg := newReprojectConfig(opts)
	out := make(Program, 0, len(p))
	st := Stats{Lines: len(p)}
	var state MachineState
	ordinal := -1

	for _, m := range p {
		if !m.IsMotion() {
			out = append(out, m)
			continue
		}
		ordinal++
		st.Motion++

		pos := state.Advance(m)
		if !cfg.rng.Contains(ordinal) {
			out = append(out, m)
			continue
		}
		st.Selected++

		target := pos.Add(cfg.offset)
		x, err := cfg.solver.Inverse(t, target, target)
		if err != nil {
			return nil, st, fmt.Errorf("line %d: %w", m.Line, err)
		}
		det := cfg.solver.Det(t, x)
		if det == 0 {
			return nil, st, fmt.Errorf("line %d: %w", m.Line, ErrZeroVolume)
		}
		q := x.Sub(cfg.offset)
		e := m.E / det
		if q == pos && e == m.E {
			out = append(out, m)
			continue
		}
		st.Changed++
		out = append(out, linearMove(q, e, m.F, m.Line))
	}

	st.Emitted = len(out)
	return out, st, nil
}
