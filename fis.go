package mamdani

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrMissingInput is returned when the input map omits a declared input
// variable. A missing input is an error, never a default of zero.
var ErrMissingInput = errors.New("missing input")

// Evaluator is the interface implemented by types that can produce a
// crisp output for a crisp input vector: the interpreted *FIS and the
// compiled *native.CompiledFIS.
type Evaluator interface {
	Eval(inputs map[string]float64) (float64, error)
}

// Defuzzification selects how the aggregated output set is reduced to a
// crisp value.
type Defuzzification string

// Centroid is the only supported defuzzification method: the weighted
// mean of the sampled output domain.
const Centroid Defuzzification = "centroid"

// FIS is a Mamdani fuzzy inference system: input variables, a rule set
// and a single output (target) variable.
type FIS struct {
	Inputs          []*Variable
	Rules           RuleSet
	Target          *Variable
	Defuzzification Defuzzification
}

// New builds and validates a FIS with centroid defuzzification.
func New(inputs []*Variable, rules RuleSet, target *Variable) (*FIS, error) {
	f := &FIS{
		Inputs:          inputs,
		Rules:           rules,
		Target:          target,
		Defuzzification: Centroid,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the model invariants: valid variables with unique
// names, at least one input and one rule, well-formed rule trees, and
// every referenced (variable, value) pair declared. Violations are fatal;
// nothing is silently repaired.
func (f *FIS) Validate() error {
	if len(f.Inputs) == 0 {
		return errors.New("at least one input variable is required")
	}
	if f.Target == nil {
		return errors.New("target variable is required")
	}
	if f.Defuzzification != Centroid {
		return fmt.Errorf("unsupported defuzzification method %q", f.Defuzzification)
	}

	names := make(map[string]bool, len(f.Inputs)+1)
	for _, v := range f.Inputs {
		if v == nil {
			return errors.New("nil input variable")
		}
		if err := v.Validate(); err != nil {
			return err
		}
		if names[v.Name] {
			return fmt.Errorf("duplicate variable name %s", v.Name)
		}
		names[v.Name] = true
	}
	if err := f.Target.Validate(); err != nil {
		return err
	}
	if names[f.Target.Name] {
		return fmt.Errorf("target %s collides with an input variable", f.Target.Name)
	}

	if len(f.Rules) == 0 {
		return errors.New("at least one rule is required")
	}
	for i, r := range f.Rules {
		if r.Weight < 0 || r.Weight > 1 {
			return fmt.Errorf("rule %d: weight %v outside [0, 1]", i, r.Weight)
		}
		if r.Antecedent == nil {
			return fmt.Errorf("rule %d: no antecedent", i)
		}
		if err := f.checkTree(r.Antecedent); err != nil {
			return pkgerrors.Wrapf(err, "rule %d", i)
		}
		if r.Consequent.Variable != f.Target.Name {
			return fmt.Errorf("rule %d: consequent %q does not refer to the target %s",
				i, r.Consequent, f.Target.Name)
		}
		if _, ok := f.Target.Values[r.Consequent.Value]; !ok {
			return fmt.Errorf("rule %d: target has no value %s", i, r.Consequent.Value)
		}
	}
	return nil
}

// checkTree validates node arity and that every Is leaf refers to a
// declared variable and one of its values.
func (f *FIS) checkTree(p Proposition) error {
	switch n := p.(type) {
	case Is:
		v, ok := f.Variable(n.Variable)
		if !ok {
			return fmt.Errorf("unknown variable %s", n.Variable)
		}
		if _, ok := v.Values[n.Value]; !ok {
			return fmt.Errorf("variable %s has no value %s", n.Variable, n.Value)
		}
		return nil
	case And:
		if len(n.Children) < 2 {
			return fmt.Errorf("and with %d children", len(n.Children))
		}
		for _, c := range n.Children {
			if err := f.checkTree(c); err != nil {
				return err
			}
		}
		return nil
	case Or:
		if len(n.Children) < 2 {
			return fmt.Errorf("or with %d children", len(n.Children))
		}
		for _, c := range n.Children {
			if err := f.checkTree(c); err != nil {
				return err
			}
		}
		return nil
	case Not:
		if n.Child == nil {
			return errors.New("not without a child")
		}
		return f.checkTree(n.Child)
	default:
		return fmt.Errorf("unknown proposition type %T", p)
	}
}

// Variable finds a declared variable (input or target) by name.
func (f *FIS) Variable(name string) (*Variable, bool) {
	for _, v := range f.Inputs {
		if v.Name == name {
			return v, true
		}
	}
	if f.Target != nil && f.Target.Name == name {
		return f.Target, true
	}
	return nil, false
}

// Fuzzify computes the membership degree of every declared (input
// variable, value) pair for the given crisp inputs. Every declared input
// must be present in the map.
func (f *FIS) Fuzzify(inputs map[string]float64) (Degrees, error) {
	degrees := make(Degrees)
	for _, v := range f.Inputs {
		x, ok := inputs[v.Name]
		if !ok {
			return nil, pkgerrors.Wrap(ErrMissingInput, v.Name)
		}
		for value, set := range v.Values {
			degrees[Is{Variable: v.Name, Value: value}] = set.Degree(x)
		}
	}
	return degrees, nil
}

// Output runs fuzzification, rule evaluation and aggregation, returning
// the aggregated output fuzzy set over the target domain: each rule's
// consequent membership function clipped by the rule's firing strength,
// combined across rules by pointwise maximum.
func (f *FIS) Output(inputs map[string]float64) (Set, error) {
	degrees, err := f.Fuzzify(inputs)
	if err != nil {
		return nil, err
	}
	contributions := make([]Set, 0, len(f.Rules))
	for i, r := range f.Rules {
		s, err := r.Strength(degrees)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "rule %d", i)
		}
		contributions = append(contributions, Clip(f.Target.Values[r.Consequent.Value], s))
	}
	return Union(contributions...), nil
}

// Eval returns the crisp output for the inputs: the centroid of the
// aggregated output set over the target domain. Returns ErrNoActivation
// if no rule fired at all, and ErrMissingInput if a declared input is
// absent.
func (f *FIS) Eval(inputs map[string]float64) (float64, error) {
	out, err := f.Output(inputs)
	if err != nil {
		return 0, err
	}
	return f.Target.Domain.Centroid(out)
}
