package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix3 is a 3x3 real matrix stored row-major:
//
//	| m[0] m[1] m[2] |
//	| m[3] m[4] m[5] |
//	| m[6] m[7] m[8] |
//
// It represents a local linear map such as the Jacobian of a transform.
type Matrix3 [9]float64

// Identity3 returns the identity matrix.
func Identity3() Matrix3 {
	return Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// FromColumns builds a matrix whose columns are c0, c1 and c2.
func FromColumns(c0, c1, c2 Point3) Matrix3 {
	return Matrix3{
		c0.X, c1.X, c2.X,
		c0.Y, c1.Y, c2.Y,
		c0.Z, c1.Z, c2.Z,
	}
}

// At returns the element at row r, column c.
func (m Matrix3) At(r, c int) float64 {
	return m[r*3+c]
}

// SetColumn replaces column c with v.
func (m *Matrix3) SetColumn(c int, v Point3) {
	m[c] = v.X
	m[3+c] = v.Y
	m[6+c] = v.Z
}

// Column returns column c.
func (m Matrix3) Column(c int) Point3 {
	return Point3{m[c], m[3+c], m[6+c]}
}

// Det returns the determinant, the local volume scale of the map.
func (m Matrix3) Det() float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// MulVec returns m * p.
func (m Matrix3) MulVec(p Point3) Point3 {
	return Point3{
		m[0]*p.X + m[1]*p.Y + m[2]*p.Z,
		m[3]*p.X + m[4]*p.Y + m[5]*p.Z,
		m[6]*p.X + m[7]*p.Y + m[8]*p.Z,
	}
}

// Finite reports whether every element is a finite number.
func (m Matrix3) Finite() bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Inverse returns the inverse of m. A singular or ill-conditioned matrix
// yields a *NumericError.
func (m Matrix3) Inverse() (Matrix3, error) {
	src := m
	var dst mat.Dense
	if err := InvertDense(&dst, mat.NewDense(3, 3, src[:])); err != nil {
		return Matrix3{}, err
	}
	var out Matrix3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = dst.At(r, c)
		}
	}
	return out, nil
}

// InvertDense stores the inverse of the 3x3 matrix src into dst, which must be
// empty or 3x3. It is the allocation-free path used by solvers that keep their
// own scratch matrices.
func InvertDense(dst, src *mat.Dense) error {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := src.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &NumericError{Op: "invert", Cond: math.NaN(), Err: ErrNotFinite}
			}
		}
	}
	if err := dst.Inverse(src); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return &NumericError{Op: "invert", Cond: float64(cond), Err: err}
		}
		return &NumericError{Op: "invert", Cond: math.Inf(1), Err: err}
	}
	return nil
}

// ErrNotFinite is wrapped by NumericError when a matrix or point holds NaN or Inf.
var ErrNotFinite = errors.New("non-finite value")

// NumericError reports a numeric failure: a matrix that is singular or
// ill-conditioned, or a computation that produced NaN or Inf.
type NumericError struct {
	Op   string
	Cond float64 // condition number estimate; +Inf when exactly singular
	Err  error
}

func (e *NumericError) Error() string {
	if math.IsInf(e.Cond, 1) {
		return fmt.Sprintf("%s: matrix is singular", e.Op)
	}
	if math.IsNaN(e.Cond) {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: matrix is ill-conditioned (condition number %.3g)", e.Op, e.Cond)
}

func (e *NumericError) Unwrap() error {
	return e.Err
}
