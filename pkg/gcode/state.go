package gcode

import (
	"math"

	"github.com/aretw0/nonplanar/pkg/geom"
)

// MachineState is the last known absolute position, carried across a program.
// It starts at the origin and is only ever advanced, never reset.
type MachineState struct {
	Position geom.Point3
}

// Resolve returns the absolute target of m, filling unset axes from the state.
func (s *MachineState) Resolve(m Move) geom.Point3 {
	return geom.Point3{
		X: m.X.Or(s.Position.X),
		Y: m.Y.Or(s.Position.Y),
		Z: m.Z.Or(s.Position.Z),
	}
}

// Advance resolves m and moves the state to its target.
func (s *MachineState) Advance(m Move) geom.Point3 {
	s.Position = s.Resolve(m)
	return s.Position
}

// Range selects motion moves by ordinal, both ends inclusive.
type Range struct {
	First int
	Last  int
}

// All selects every motion move.
func All() Range {
	return Range{First: 0, Last: math.MaxInt}
}

// RangeFromOffsets skips start leading and end trailing moves of a program
// with total motion moves.
func RangeFromOffsets(total, start, end int) Range {
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	return Range{First: start, Last: total - end - 1}
}

// Contains reports whether ordinal i is selected.
func (r Range) Contains(i int) bool {
	return i >= r.First && i <= r.Last
}

// Points returns the resolved absolute position of every motion move.
func Points(p Program) []geom.Point3 {
	var st MachineState
	pts := make([]geom.Point3, 0, len(p))
	for _, m := range p {
		if m.IsMotion() {
			pts = append(pts, st.Advance(m))
		}
	}
	return pts
}

// Bounds returns the bounding box of the motion moves selected by r.
func Bounds(p Program, r Range) geom.Box {
	var box geom.Box
	for i, pt := range Points(p) {
		if r.Contains(i) {
			box.Extend(pt)
		}
	}
	return box
}

// CenterOffset returns the translation that moves the centre of the selected
// moves onto anchor (for example the centre of the matching mesh), with no
// vertical component. Reproject with this offset evaluates the transform as if
// the print were centred on anchor.
func CenterOffset(p Program, r Range, anchor geom.Point3) geom.Point3 {
	off := anchor.Sub(Bounds(p, r).Center())
	off.Z = 0
	return off
}
