// Package native compiles a fuzzy inference system into a native routine.
//
// The pipeline lowers every rule of a FIS into a single scalar C
// expression over the raw input variables, renders it into a fixed
// procedural skeleton, compiles the result into a shared library with the
// system C toolchain and binds the two generated entry points as callable
// functions. The compiled routine reproduces the interpreted evaluator
// within floating-point rounding; it exists purely for speed.
//
// Compilation failures (missing toolchain, a custom membership expression
// outside the portable subset) never affect the interpreted path.
package native

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ezachrisen/mamdani"
	"github.com/gobuffalo/plush"
	"github.com/markbates/inflect"
	"github.com/pkg/errors"
)

// DefaultFunctionName is the entry-point name used when no override is
// given; the crisp entry point appends "_crisp".
const DefaultFunctionName = "f"

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Names that already mean something inside the generated source.
var reservedIdents = map[string]bool{
	"min": true, "max": true, "mean": true, "weighted_mean": true,
	"min_val": true, "max_val": true, "increment": true, "result": true,
	"values": true, "weights": true, "x": true, "i": true, "n": true,
	"double": true, "int": true, "return": true, "if": true, "else": true,
	"for": true, "while": true, "free": true, "malloc": true,
}

// Generate renders the complete C source for the model: the fixed helper
// skeleton plus the lowered rule expression, with the given entry-point
// name. The FIS is validated first; an invalid model never reaches the
// toolchain.
func Generate(f *mamdani.FIS, name string) (string, error) {
	if name == "" {
		name = DefaultFunctionName
	}
	if !identRe.MatchString(name) || reservedIdents[name] {
		return "", errors.Errorf("invalid function name %q", name)
	}
	if err := f.Validate(); err != nil {
		return "", errors.Wrap(err, "generating model")
	}

	idents, err := identifiers(f)
	if err != nil {
		return "", err
	}

	code, err := lower(f, idents)
	if err != nil {
		return "", err
	}

	listed := make([]string, len(f.Inputs))
	typed := make([]string, len(f.Inputs))
	for i, v := range f.Inputs {
		listed[i] = idents[v.Name]
		typed[i] = "double " + idents[v.Name]
	}

	ctx := plush.NewContext()
	ctx.Set("name", name)
	ctx.Set("target", idents[f.Target.Name])
	ctx.Set("code", code)
	ctx.Set("inputs_listed", strings.Join(listed, ", "))
	ctx.Set("inputs_typed", strings.Join(typed, ", "))

	src, err := plush.Render(modelTemplate, ctx)
	if err != nil {
		return "", errors.Wrap(err, "rendering model template")
	}
	return src, nil
}

// identifiers derives a C identifier for every declared variable and
// checks the result is collision-free.
func identifiers(f *mamdani.FIS) (map[string]string, error) {
	idents := make(map[string]string, len(f.Inputs)+1)
	seen := make(map[string]string, len(f.Inputs)+1)

	vars := append([]*mamdani.Variable{}, f.Inputs...)
	vars = append(vars, f.Target)
	for _, v := range vars {
		id := cIdent(v.Name)
		if !identRe.MatchString(id) {
			return nil, errors.Errorf("variable %q does not map to a C identifier (got %q)", v.Name, id)
		}
		if reservedIdents[id] {
			return nil, errors.Errorf("variable %q maps to the reserved identifier %q", v.Name, id)
		}
		if prev, ok := seen[id]; ok {
			return nil, errors.Errorf("variables %q and %q map to the same identifier %q", prev, v.Name, id)
		}
		seen[id] = v.Name
		idents[v.Name] = id
	}
	return idents, nil
}

// cIdent converts a variable name to a C identifier.
func cIdent(name string) string {
	id := inflect.Underscore(strings.TrimSpace(name))
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r == ' ' || r == '-':
			return '_'
		}
		return -1
	}, id)
	return id
}

// --------------------------------------------------
// Expression lowering

// lower translates the whole rule set into one scalar expression of the
// raw inputs and the target probe variable: each rule becomes
// min(consequent MF, antecedent * weight), and the rules aggregate by
// max.
func lower(f *mamdani.FIS, idents map[string]string) (string, error) {
	parts := make([]string, len(f.Rules))
	for i, r := range f.Rules {
		src, err := ruleSource(f, r, idents)
		if err != nil {
			return "", errors.Wrapf(err, "rule %d", i)
		}
		parts[i] = src
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return fmt.Sprintf("max(%d, %s)", len(parts), strings.Join(parts, ", ")), nil
}

func ruleSource(f *mamdani.FIS, r mamdani.Rule, idents map[string]string) (string, error) {
	mf, err := setSource(f.Target.Values[r.Consequent.Value], idents[f.Target.Name])
	if err != nil {
		return "", err
	}
	ante, err := propositionSource(f, r.Antecedent, idents)
	if err != nil {
		return "", err
	}
	strength := fmt.Sprintf("(%s)", ante)
	if r.Weight != 1 {
		strength = fmt.Sprintf("(%s) * %s", ante, lit(r.Weight))
	}
	return fmt.Sprintf("min(2, %s, %s)", mf, strength), nil
}

func propositionSource(f *mamdani.FIS, p mamdani.Proposition, idents map[string]string) (string, error) {
	switch n := p.(type) {
	case mamdani.Is:
		v, ok := f.Variable(n.Variable)
		if !ok {
			return "", errors.Errorf("unknown variable %s", n.Variable)
		}
		return setSource(v.Values[n.Value], idents[n.Variable])

	case mamdani.And:
		return narySource(f, "min", n.Children, idents)

	case mamdani.Or:
		return narySource(f, "max", n.Children, idents)

	case mamdani.Not:
		child, err := propositionSource(f, n.Child, idents)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("1 - (%s)", child), nil

	default:
		return "", errors.Errorf("unknown proposition type %T", p)
	}
}

func narySource(f *mamdani.FIS, fn string, children []mamdani.Proposition, idents map[string]string) (string, error) {
	parts := make([]string, len(children))
	for i, c := range children {
		src, err := propositionSource(f, c, idents)
		if err != nil {
			return "", err
		}
		parts[i] = src
	}
	return fmt.Sprintf("%s(%d, %s)", fn, len(children), strings.Join(parts, ", ")), nil
}

// setSource lowers a membership function to a scalar C expression over
// arg. Degenerate parameters (zero-width ramps, zero scales) are resolved
// here, at generation time, to the same boundary behavior the interpreted
// Set variants implement.
func setSource(s mamdani.Set, arg string) (string, error) {
	switch m := s.(type) {
	case mamdani.Gaussian:
		return gaussianSource(m, arg), nil

	case mamdani.DoubleGaussian:
		left := gaussianSource(mamdani.Gaussian{Scale: m.Scale1, Center: m.Center1}, arg)
		right := gaussianSource(mamdani.Gaussian{Scale: m.Scale2, Center: m.Center2}, arg)
		// Branch order matters when Center1 > Center2; keep it identical
		// to DoubleGaussian.Degree.
		return fmt.Sprintf("(%s < %s ? %s : (%s > %s ? %s : 1.0))",
			arg, lit(m.Center1), left, arg, lit(m.Center2), right), nil

	case mamdani.Trapezoidal:
		return fmt.Sprintf("max(2, min(3, %s, 1.0, %s), 0.0)",
			rampUpSource(arg, m.A, m.B), rampDownSource(arg, m.C, m.D)), nil

	case mamdani.Triangular:
		return fmt.Sprintf("max(2, min(2, %s, %s), 0.0)",
			rampUpSource(arg, m.A, m.B), rampDownSource(arg, m.B, m.C)), nil

	case mamdani.SShaped:
		if m.A == m.B {
			return fmt.Sprintf("(%s <= %s ? 0.0 : 1.0)", arg, lit(m.A)), nil
		}
		return fmt.Sprintf("(%s <= %s ? 0.0 : (%s >= %s ? 1.0 : (%s <= %s ? 2 * pow((%s - %s) / %s, 2) : 1 - 2 * pow((%s - %s) / %s, 2))))",
			arg, lit(m.A),
			arg, lit(m.B),
			arg, lit((m.A+m.B)/2),
			arg, lit(m.A), lit(m.B-m.A),
			arg, lit(m.B), lit(m.B-m.A)), nil

	case mamdani.ZShaped:
		if m.A == m.B {
			return fmt.Sprintf("(%s <= %s ? 1.0 : 0.0)", arg, lit(m.A)), nil
		}
		return fmt.Sprintf("(%s <= %s ? 1.0 : (%s >= %s ? 0.0 : (%s <= %s ? 1 - 2 * pow((%s - %s) / %s, 2) : 2 * pow((%s - %s) / %s, 2))))",
			arg, lit(m.A),
			arg, lit(m.B),
			arg, lit((m.A+m.B)/2),
			arg, lit(m.A), lit(m.B-m.A),
			arg, lit(m.B), lit(m.B-m.A)), nil

	case *mamdani.Custom:
		return customSource(m, arg)

	default:
		return "", errors.Errorf("membership function %T cannot be lowered to C", s)
	}
}

func gaussianSource(g mamdani.Gaussian, arg string) string {
	if g.Scale == 0 {
		return fmt.Sprintf("(%s == %s ? 1.0 : 0.0)", arg, lit(g.Center))
	}
	return fmt.Sprintf("exp(-pow((%s - %s) / %s, 2) / 2)", arg, lit(g.Center), lit(g.Scale))
}

func rampUpSource(arg string, a, b float64) string {
	if a == b {
		return fmt.Sprintf("(%s < %s ? 0.0 : 1.0)", arg, lit(a))
	}
	return fmt.Sprintf("((%s - %s) / %s)", arg, lit(a), lit(b-a))
}

func rampDownSource(arg string, c, d float64) string {
	if c == d {
		return fmt.Sprintf("(%s > %s ? 0.0 : 1.0)", arg, lit(d))
	}
	return fmt.Sprintf("((%s - %s) / %s)", arg, lit(d), lit(c-d))
}

// --------------------------------------------------
// Custom expressions

// customFuncs are the helper functions a custom expression may call; each
// has the same meaning in CEL and in C.
var customFuncs = []string{"exp", "pow", "fabs", "sqrt"}

// customCharset is what remains of a portable expression once the helper
// function names are removed: numbers, the variable x, arithmetic
// operators, parentheses, commas and whitespace.
var customCharset = regexp.MustCompile(`^[0-9x\s.+\-*/(),]*$`)

var customVar = regexp.MustCompile(`\bx\b`)

// customSource translates a custom membership expression to C. Only the
// portable arithmetic subset is accepted; anything else is a generation
// error (the interpreted path still evaluates it through CEL).
func customSource(c *mamdani.Custom, arg string) (string, error) {
	stripped := c.Expr
	for _, fn := range customFuncs {
		stripped = strings.ReplaceAll(stripped, fn, "")
	}
	if !customCharset.MatchString(stripped) {
		return "", errors.Errorf("custom expression %q is outside the portable subset (allowed: arithmetic on x and %s)",
			c.Expr, strings.Join(customFuncs, ", "))
	}
	body := customVar.ReplaceAllString(c.Expr, "("+arg+")")
	// The interpreted path clamps to [0, 1]; do the same here.
	return fmt.Sprintf("max(2, 0.0, min(2, 1.0, (%s)))", body), nil
}

// lit formats a float64 as a C double literal.
func lit(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	if f < 0 {
		return "(" + s + ")"
	}
	return s
}
