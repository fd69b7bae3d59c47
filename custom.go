package mamdani

import (
	"math"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/pkg/errors"
)

// Custom is a membership function defined by a user-supplied expression
// over the variable x. The expression is compiled once, when the set is
// constructed, and evaluated through the CEL runtime.
//
// Besides the CEL arithmetic operators, the functions exp(x), pow(x, y),
// fabs(x) and sqrt(x) are available. All operands are doubles; write
// literals with a decimal point (1.0, not 1).
//
// The native code generator accepts a Custom set only if its expression
// fits the portable arithmetic subset; see the native package.
type Custom struct {
	// Expr is the source expression, e.g. "1.0 / (1.0 + x * x)".
	Expr string

	prg cel.Program
}

func (*Custom) fuzzySet() {}

// NewCustom parses, checks and compiles the expression. The expression
// must produce a double.
func NewCustom(expr string) (*Custom, error) {
	env, err := customEnv()
	if err != nil {
		return nil, err
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "compiling expression %q", expr)
	}
	if !ast.OutputType().IsExactType(cel.DoubleType) {
		return nil, errors.Errorf("expression %q must produce a double, produces %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "generating program for %q", expr)
	}
	return &Custom{Expr: expr, prg: prg}, nil
}

// Degree evaluates the expression at x. The result is clamped to [0, 1];
// an evaluation fault (such as a division by zero) yields 0.
func (c *Custom) Degree(x float64) float64 {
	if c.prg == nil {
		return 0
	}
	out, _, err := c.prg.Eval(map[string]interface{}{"x": x})
	if err != nil {
		return 0
	}
	v, ok := out.Value().(float64)
	if !ok {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// customEnv declares the evaluation environment for custom membership
// expressions: the probe variable x plus a few math helpers that also
// exist in the generated C.
func customEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("x", cel.DoubleType),
		unaryMath("exp", math.Exp),
		unaryMath("fabs", math.Abs),
		unaryMath("sqrt", math.Sqrt),
		cel.Function("pow",
			cel.Overload("pow_double_double",
				[]*cel.Type{cel.DoubleType, cel.DoubleType},
				cel.DoubleType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					a, ok := lhs.(types.Double)
					if !ok {
						return types.NewErr("pow: expected double, got %v", lhs.Type())
					}
					b, ok := rhs.(types.Double)
					if !ok {
						return types.NewErr("pow: expected double, got %v", rhs.Type())
					}
					return types.Double(math.Pow(float64(a), float64(b)))
				}))),
	)
}

func unaryMath(name string, f func(float64) float64) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_double",
			[]*cel.Type{cel.DoubleType},
			cel.DoubleType,
			cel.UnaryBinding(func(v ref.Val) ref.Val {
				d, ok := v.(types.Double)
				if !ok {
					return types.NewErr("%s: expected double, got %v", name, v.Type())
				}
				return types.Double(f(float64(d)))
			})))
}
