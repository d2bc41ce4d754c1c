package transform

import (
	"errors"
	"fmt"

	"github.com/aretw0/nonplanar/pkg/geom"
)

// ErrUnknownKind is wrapped by ConfigError when a transform kind is not recognised.
var ErrUnknownKind = errors.New("unknown transform kind")

// ConvergenceError is returned when Newton inversion does not reach the
// tolerance within MaxIterations steps.
//
// The tolerance is tested before each step, so the iterate produced by the last
// step is never tested. Residual may therefore already be below the tolerance;
// the inversion still counts as failed.
type ConvergenceError struct {
	Target     geom.Point3
	Last       geom.Point3 // last iterate
	Iterations int
	Residual   float64 // ‖F(Last) - Target‖
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("inverse of %v failed to converge after %d iterations (residual %.3g)",
		e.Target, e.Iterations, e.Residual)
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Key    string // Field name
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("config field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config field %q: %s (got %v)", e.Key, e.Reason, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
