package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aretw0/nonplanar/pkg/geom"
)

const (
	// DefaultStep is the forward-difference step used for Jacobians.
	DefaultStep = 1e-8
	// DefaultTolerance is the residual norm at which inversion stops.
	DefaultTolerance = 1e-8
	// MaxIterations bounds the Newton loop.
	MaxIterations = 16
)

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithStep sets the finite-difference step h.
func WithStep(h float64) SolverOption {
	return func(s *Solver) {
		if h > 0 {
			s.h = h
		}
	}
}

// WithTolerance sets the inversion tolerance eps; Inverse succeeds once
// ‖F(X) - target‖² < eps².
func WithTolerance(eps float64) SolverOption {
	return func(s *Solver) {
		if eps > 0 {
			s.eps = eps
		}
	}
}

// WithObserver registers fn to be called after every Inverse with the number of
// Newton steps taken and the returned error.
func WithObserver(fn func(iterations int, err error)) SolverOption {
	return func(s *Solver) {
		s.observe = fn
	}
}

// Solver evaluates Jacobians and inverts transforms with Newton-Raphson.
//
// It owns the scratch matrices used by every call, so a Solver may be reused
// across any number of points without allocating. It is not safe for
// concurrent use; give each goroutine its own.
type Solver struct {
	h   float64
	eps float64

	jac     geom.Matrix3
	jacView *mat.Dense
	inv     *mat.Dense
	res     [3]float64
	resView *mat.VecDense
	step    [3]float64
	stepVec *mat.VecDense

	iterations int
	observe    func(int, error)
}

// NewSolver creates a solver with the default step and tolerance.
func NewSolver(opts ...SolverOption) *Solver {
	s := &Solver{
		h:   DefaultStep,
		eps: DefaultTolerance,
		inv: mat.NewDense(3, 3, nil),
	}
	s.jacView = mat.NewDense(3, 3, s.jac[:])
	s.resView = mat.NewVecDense(3, s.res[:])
	s.stepVec = mat.NewVecDense(3, s.step[:])
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Step returns the finite-difference step.
func (s *Solver) Step() float64 { return s.h }

// Tolerance returns the inversion tolerance.
func (s *Solver) Tolerance() float64 { return s.eps }

// Iterations returns the number of Newton steps taken by the last Inverse call.
func (s *Solver) Iterations() int { return s.iterations }

// Jacobian returns the derivative matrix of t at p. Column k is
// (F(p + h·e_k) - F(p)) / h unless t implements Differentiable.
func (s *Solver) Jacobian(t Transform, p geom.Point3) geom.Matrix3 {
	if d, ok := t.(Differentiable); ok {
		s.jac = d.Jacobian(p)
		return s.jac
	}
	s.jacobianAt(t, p, t.Evaluate(p))
	return s.jac
}

// jacobianAt fills s.jac given fp = F(p).
func (s *Solver) jacobianAt(t Transform, p, fp geom.Point3) {
	if d, ok := t.(Differentiable); ok {
		s.jac = d.Jacobian(p)
		return
	}
	inv := 1 / s.h
	for k := 0; k < 3; k++ {
		q := p.WithAxis(k, p.Axis(k)+s.h)
		s.jac.SetColumn(k, t.Evaluate(q).Sub(fp).Scale(inv))
	}
}

// Det returns the Jacobian determinant of t at p.
func (s *Solver) Det(t Transform, p geom.Point3) float64 {
	return s.Jacobian(t, p).Det()
}

// Inverse finds X with ‖F(X) - target‖ < eps, starting from guess.
// Each step is X ← X - J(X)⁻¹·(F(X) - target). It returns a *ConvergenceError
// after MaxIterations steps and a *geom.NumericError when J(X) is singular.
func (s *Solver) Inverse(t Transform, target, guess geom.Point3) (geom.Point3, error) {
	x, err := s.inverse(t, target, guess)
	if s.observe != nil {
		s.observe(s.iterations, err)
	}
	return x, err
}

func (s *Solver) inverse(t Transform, target, guess geom.Point3) (geom.Point3, error) {
	x := guess
	epsSq := s.eps * s.eps
	s.iterations = 0

	for i := 0; i < MaxIterations; i++ {
		fx := t.Evaluate(x)
		r := fx.Sub(target)
		if r.LengthSq() < epsSq {
			s.iterations = i
			return x, nil
		}

		s.jacobianAt(t, x, fx)
		if err := geom.InvertDense(s.inv, s.jacView); err != nil {
			s.iterations = i
			return x, fmt.Errorf("newton step %d at %v: %w", i, x, err)
		}

		s.res = [3]float64{r.X, r.Y, r.Z}
		s.stepVec.MulVec(s.inv, s.resView)
		x = x.Sub(geom.Point3{X: s.step[0], Y: s.step[1], Z: s.step[2]})
	}

	s.iterations = MaxIterations
	return x, &ConvergenceError{
		Target:     target,
		Last:       x,
		Iterations: MaxIterations,
		Residual:   math.Sqrt(t.Evaluate(x).Sub(target).LengthSq()),
	}
}

// Jacobian evaluates the Jacobian of t at p with a fresh default solver.
func Jacobian(t Transform, p geom.Point3) geom.Matrix3 {
	return NewSolver().Jacobian(t, p)
}

// Inverse inverts t at target with a fresh default solver, starting from the origin.
func Inverse(t Transform, target geom.Point3) (geom.Point3, error) {
	return NewSolver().Inverse(t, target, geom.Origin)
}
