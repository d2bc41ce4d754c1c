package gcode

import (
	"strings"

	"github.com/aretw0/nonplanar/pkg/geom"
)

// Kind tells motion moves apart from passthrough lines.
type Kind int

const (
	// Passthrough lines are comments, blank lines and non-motion commands.
	Passthrough Kind = iota
	// Motion lines are G1/G2/G3 moves with at least one of X, Y, Z.
	Motion
)

func (k Kind) String() string {
	if k == Motion {
		return "motion"
	}
	return "passthrough"
}

// Command is the G number of a motion move.
type Command int

const (
	Linear Command = 1
	ArcCW  Command = 2
	ArcCCW Command = 3
)

// Axis is an optional coordinate. An unset axis carries the last known value forward.
type Axis struct {
	Value float64
	Set   bool
}

// Val returns a set Axis holding v.
func Val(v float64) Axis {
	return Axis{Value: v, Set: true}
}

// Or returns the axis value, or def when unset.
func (a Axis) Or(def float64) float64 {
	if a.Set {
		return a.Value
	}
	return def
}

// Move is one line of a program.
type Move struct {
	Kind    Kind
	Command Command
	X, Y, Z Axis
	E       float64 // extrusion; 0 when absent
	F       Axis    // feed rate

	// Raw is the text emitted for this move: the source line for parsed moves,
	// the formatted command for generated ones.
	Raw string
	// Line is the 1-based source line this move came from.
	Line int
}

// IsMotion reports whether m counts toward motion ordinals.
func (m Move) IsMotion() bool {
	return m.Kind == Motion
}

func (m Move) String() string {
	return m.Raw
}

// linearMove builds a generated G1 move to p.
func linearMove(p geom.Point3, e float64, f Axis, line int) Move {
	return Move{
		Kind:    Motion,
		Command: Linear,
		X:       Val(p.X),
		Y:       Val(p.Y),
		Z:       Val(p.Z),
		E:       e,
		F:       f,
		Raw:     FormatLinear(p, e, f),
		Line:    line,
	}
}

// Program is an ordered sequence of moves.
type Program []Move

// Lines returns the emitted text of every move.
func (p Program) Lines() []string {
	out := make([]string, len(p))
	for i, m := range p {
		out[i] = m.Raw
	}
	return out
}

// String joins the program lines with newlines.
func (p Program) String() string {
	return strings.Join(p.Lines(), "\n")
}

// MotionCount returns the number of motion moves.
func (p Program) MotionCount() int {
	n := 0
	for _, m := range p {
		if m.IsMotion() {
			n++
		}
	}
	return n
}
