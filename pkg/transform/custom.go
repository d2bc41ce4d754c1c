package transform

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/aretw0/nonplanar/pkg/geom"
)

// exprEnv is the variable set visible to custom expressions.
type exprEnv struct {
	X  float64 `expr:"x"`
	Y  float64 `expr:"y"`
	Z  float64 `expr:"z"`
	Pi float64 `expr:"pi"`
}

// Custom evaluates three user-supplied scalar expressions of x, y and z.
// It has no closed-form derivative and always goes through finite differences.
//
// Expressions may use + - * / ^ ** % and the functions sqrt, abs, sin, cos, tan,
// asin, acos, atan, atan2, hypot, exp, log, pow, min and max, plus the constant pi.
type Custom struct {
	src   [3]string
	progs [3]*vm.Program
}

// NewCustom compiles the three component expressions.
func NewCustom(fx, fy, fz string) (*Custom, error) {
	c := &Custom{src: [3]string{fx, fy, fz}}
	opts := append([]expr.Option{expr.Env(exprEnv{}), expr.AsFloat64()}, mathFunctions()...)
	for i, src := range c.src {
		prog, err := expr.Compile(src, opts...)
		if err != nil {
			return nil, &ConfigError{Key: axisNames[i], Reason: "invalid expression", Value: src, Err: err}
		}
		c.progs[i] = prog
	}
	return c, nil
}

var axisNames = [3]string{"x", "y", "z"}

// Expressions returns the source of the three component expressions.
func (c *Custom) Expressions() (fx, fy, fz string) {
	return c.src[0], c.src[1], c.src[2]
}

// Evaluate runs the three expressions at p. A component whose expression fails
// at runtime evaluates to NaN, which the solver reports as a numeric error.
func (c *Custom) Evaluate(p geom.Point3) geom.Point3 {
	env := exprEnv{X: p.X, Y: p.Y, Z: p.Z, Pi: math.Pi}
	var out [3]float64
	for i, prog := range c.progs {
		v, err := expr.Run(prog, env)
		if err != nil {
			out[i] = math.NaN()
			continue
		}
		f, ok := v.(float64)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = f
	}
	return geom.Point3{X: out[0], Y: out[1], Z: out[2]}
}

func (c *Custom) String() string {
	return fmt.Sprintf("custom(x=%s, y=%s, z=%s)", c.src[0], c.src[1], c.src[2])
}

func mathFunctions() []expr.Option {
	unary := map[string]func(float64) float64{
		"sqrt": math.Sqrt,
		"sin":  math.Sin,
		"cos":  math.Cos,
		"tan":  math.Tan,
		"asin": math.Asin,
		"acos": math.Acos,
		"atan": math.Atan,
		"exp":  math.Exp,
		"log":  math.Log,
		"cbrt": math.Cbrt,
	}
	binary := map[string]func(float64, float64) float64{
		"atan2": math.Atan2,
		"hypot": math.Hypot,
		"pow":   math.Pow,
	}

	opts := make([]expr.Option, 0, len(unary)+len(binary))
	for name, fn := range unary {
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(params))
			}
			a, err := toFloat(params[0])
			if err != nil {
				return nil, err
			}
			return fn(a), nil
		}, new(func(float64) float64)))
	}
	for name, fn := range binary {
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("%s expects 2 arguments, got %d", name, len(params))
			}
			a, err := toFloat(params[0])
			if err != nil {
				return nil, err
			}
			b, err := toFloat(params[1])
			if err != nil {
				return nil, err
			}
			return fn(a, b), nil
		}, new(func(float64, float64) float64)))
	}
	return opts
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
