package transform

import (
	"fmt"
	"math"

	"github.com/aretw0/nonplanar/pkg/geom"
)

// Transform is a spatial map R³ -> R³.
// Evaluate must be pure and total: finite-difference sampling relies on it.
type Transform interface {
	Evaluate(p geom.Point3) geom.Point3
}

// Differentiable is implemented by transforms that know their exact Jacobian.
// The Solver prefers it over finite differences.
type Differentiable interface {
	Jacobian(p geom.Point3) geom.Matrix3
}

// Func adapts a plain function to the Transform interface.
type Func func(p geom.Point3) geom.Point3

// Evaluate calls f(p).
func (f Func) Evaluate(p geom.Point3) geom.Point3 {
	return f(p)
}

// Identity maps every point to itself.
type Identity struct{}

// Evaluate returns p.
func (Identity) Evaluate(p geom.Point3) geom.Point3 {
	return p
}

// Jacobian is the identity matrix everywhere.
func (Identity) Jacobian(geom.Point3) geom.Matrix3 {
	return geom.Identity3()
}

func (Identity) String() string { return "identity" }

// Conical lifts z by slope·sqrt(x²+y²), turning planar layers into cones.
// A negative angle flips the cone.
type Conical struct {
	angle float64
	slope float64
}

// NewConical builds a conical transform for a cone angle in degrees.
func NewConical(angleDeg float64) Conical {
	return Conical{
		angle: angleDeg,
		slope: math.Tan(angleDeg * math.Pi / 180),
	}
}

// Angle returns the cone angle in degrees.
func (c Conical) Angle() float64 { return c.angle }

// Slope returns tan(angle).
func (c Conical) Slope() float64 { return c.slope }

// Evaluate maps (x, y, z) to (x, y, z + slope·sqrt(x²+y²)).
func (c Conical) Evaluate(p geom.Point3) geom.Point3 {
	return geom.Point3{
		X: p.X,
		Y: p.Y,
		Z: math.Sqrt(p.X*p.X+p.Y*p.Y)*c.slope + p.Z,
	}
}

func (c Conical) String() string {
	return fmt.Sprintf("conical(%g°)", c.angle)
}

// Parabolic lifts z by x²+y².
type Parabolic struct{}

// Evaluate maps (x, y, z) to (x, y, z + x² + y²).
func (Parabolic) Evaluate(p geom.Point3) geom.Point3 {
	return geom.Point3{
		X: p.X,
		Y: p.Y,
		Z: p.X*p.X + p.Y*p.Y + p.Z,
	}
}

func (Parabolic) String() string { return "parabolic" }

// Translated evaluates t in a frame shifted by offset: the point is moved by
// +offset, mapped, and moved back.
type Translated struct {
	T      Transform
	Offset geom.Point3
}

// Evaluate returns T(p + offset) - offset.
func (tr Translated) Evaluate(p geom.Point3) geom.Point3 {
	return tr.T.Evaluate(p.Add(tr.Offset)).Sub(tr.Offset)
}

// Describe returns a short human readable name for t.
func Describe(t Transform) string {
	if s, ok := t.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", t)
}
