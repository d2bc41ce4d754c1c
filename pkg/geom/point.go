package geom

import (
	"fmt"
	"math"
)

// Point3 is an ordered triple of real coordinates.
type Point3 struct {
	X, Y, Z float64
}

// Origin is the zero point.
var Origin = Point3{}

// Pt is shorthand for Point3{x, y, z}.
func Pt(x, y, z float64) Point3 {
	return Point3{X: x, Y: y, Z: z}
}

// Add returns p + q.
func (p Point3) Add(q Point3) Point3 {
	return Point3{p.X + q.X, p.Y + q.Y, p.Z + q.Z}
}

// Sub returns p - q.
func (p Point3) Sub(q Point3) Point3 {
	return Point3{p.X - q.X, p.Y - q.Y, p.Z - q.Z}
}

// Scale returns p * s.
func (p Point3) Scale(s float64) Point3 {
	return Point3{p.X * s, p.Y * s, p.Z * s}
}

// Dot returns the dot product of p and q.
func (p Point3) Dot(q Point3) float64 {
	return p.X*q.X + p.Y*q.Y + p.Z*q.Z
}

// LengthSq returns the squared Euclidean norm.
func (p Point3) LengthSq() float64 {
	return p.Dot(p)
}

// Length returns the Euclidean norm.
func (p Point3) Length() float64 {
	return math.Sqrt(p.LengthSq())
}

// DistanceSq returns the squared distance between p and q.
func (p Point3) DistanceSq(q Point3) float64 {
	return p.Sub(q).LengthSq()
}

// Lerp interpolates linearly from p (t=0) to q (t=1).
func (p Point3) Lerp(q Point3, t float64) Point3 {
	return Point3{
		p.X + (q.X-p.X)*t,
		p.Y + (q.Y-p.Y)*t,
		p.Z + (q.Z-p.Z)*t,
	}
}

// Axis returns coordinate k (0=X, 1=Y, 2=Z).
func (p Point3) Axis(k int) float64 {
	switch k {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// WithAxis returns a copy of p with coordinate k replaced by v.
func (p Point3) WithAxis(k int, v float64) Point3 {
	switch k {
	case 0:
		p.X = v
	case 1:
		p.Y = v
	default:
		p.Z = v
	}
	return p
}

// Min returns the component-wise minimum of p and q.
func (p Point3) Min(q Point3) Point3 {
	return Point3{math.Min(p.X, q.X), math.Min(p.Y, q.Y), math.Min(p.Z, q.Z)}
}

// Max returns the component-wise maximum of p and q.
func (p Point3) Max(q Point3) Point3 {
	return Point3{math.Max(p.X, q.X), math.Max(p.Y, q.Y), math.Max(p.Z, q.Z)}
}

// Finite reports whether no coordinate is NaN or Inf.
func (p Point3) Finite() bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (p Point3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}

// Box is an axis-aligned bounding box. The zero Box is empty.
type Box struct {
	Min, Max Point3
	valid    bool
}

// Extend grows the box to contain p.
func (b *Box) Extend(p Point3) {
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Empty reports whether no point was added.
func (b Box) Empty() bool {
	return !b.valid
}

// Center returns the midpoint of the box, or the origin for an empty box.
func (b Box) Center() Point3 {
	if !b.valid {
		return Origin
	}
	return b.Min.Lerp(b.Max, 0.5)
}

// Size returns the extent of the box along each axis.
func (b Box) Size() Point3 {
	if !b.valid {
		return Origin
	}
	return b.Max.Sub(b.Min)
}
