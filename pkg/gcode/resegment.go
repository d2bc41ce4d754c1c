package gcode

import (
	"errors"
	"math"
)

// ErrInvalidSegmentLength is returned for a non-positive maximum segment length.
var ErrInvalidSegmentLength = errors.New("maximum segment length must be positive")

// Stats summarises one pass over a program.
type Stats struct {
	Lines    int // lines in the input
	Motion   int // motion moves in the input
	Selected int // motion moves inside the range
	Changed  int // selected moves whose text changed
	Emitted  int // lines in the output
}

// Added returns the number of lines the pass added.
func (s Stats) Added() int {
	return s.Emitted - s.Lines
}

// Resegment splits every selected move into ceil(distance/maxLength) straight
// G1 sub-moves (at least one). Positions are interpolated linearly from the
// previous machine position, the move's extrusion is shared equally between
// the sub-moves, and the feed rate is only repeated on the first one.
//
// Moves outside r and passthrough lines are copied unchanged.
func Resegment(p Program, maxLength float64, r Range) (Program, Stats, error) {
	if !(maxLength > 0) || math.IsInf(maxLength, 1) {
		return nil, Stats{}, ErrInvalidSegmentLength
	}

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

		prev := state.Position
		target := state.Advance(m)
		if !r.Contains(ordinal) {
			out = append(out, m)
			continue
		}
		st.Selected++

		segments := int(math.Ceil(math.Sqrt(prev.DistanceSq(target)) / maxLength))
		if segments < 1 {
			segments = 1
		}
		e := m.E / float64(segments)
		for i := 1; i <= segments; i++ {
			pt := target
			if i < segments {
				pt = prev.Lerp(target, float64(i)/float64(segments))
			}
			f := Axis{}
			if i == 1 {
				f = m.F
			}
			out = append(out, linearMove(pt, e, f, m.Line))
		}
		if segments > 1 || out[len(out)-1].Raw != m.Raw {
			st.Changed++
		}
	}

	st.Emitted = len(out)
	return out, st, nil
}
