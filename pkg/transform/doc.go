/*
Package transform implements the spatial maps used to bend a planar print onto a
non-planar surface, and the numeric machinery shared by all of them.

A Transform only has to supply Evaluate. Derivatives and inversion are provided
generically by a Solver:

	s := transform.NewSolver()
	t := transform.NewConical(30)

	q := t.Evaluate(p)                     // forward map
	det := s.Jacobian(t, p).Det()          // local volume scale at p
	back, err := s.Inverse(t, q, q)        // Newton-Raphson, q as first guess

Inverse gives up after MaxIterations Newton steps with a *ConvergenceError, and
returns a *geom.NumericError when the Jacobian cannot be inverted.

Transforms are built from configuration with Config.Build or FromMap, which accept
the kinds "identity", "conical", "conical-up", "conical-down", "parabolic" and
"custom".
*/
package transform
