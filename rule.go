package mamdani

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// --------------------------------------------------
// Propositions

// Proposition is a node in a rule's antecedent tree. The variant set is
// closed: Is, And, Or and Not. Trees are immutable once constructed and
// are evaluated by exhaustive match in Evaluate.
type Proposition interface {
	fmt.Stringer

	proposition() // restricts implementations to this package
}

// Is is the elemental proposition "<variable> is <value>".
type Is struct {
	Variable string
	Value    string
}

// And is the fuzzy conjunction of two or more propositions (Zadeh t-norm,
// minimum).
type And struct {
	Children []Proposition
}

// Or is the fuzzy disjunction of two or more propositions (Zadeh
// t-conorm, maximum).
type Or struct {
	Children []Proposition
}

// Not is the fuzzy negation 1 - p.
type Not struct {
	Child Proposition
}

func (Is) proposition()  {}
func (And) proposition() {}
func (Or) proposition()  {}
func (Not) proposition() {}

// NewAnd builds a conjunction. At least two children are required;
// a single-operand conjunction is rejected rather than treated as a
// pass-through.
func NewAnd(children ...Proposition) (And, error) {
	if len(children) < 2 {
		return And{}, errors.Errorf("and requires at least 2 children, got %d", len(children))
	}
	return And{Children: children}, nil
}

// NewOr builds a disjunction. At least two children are required.
func NewOr(children ...Proposition) (Or, error) {
	if len(children) < 2 {
		return Or{}, errors.Errorf("or requires at least 2 children, got %d", len(children))
	}
	return Or{Children: children}, nil
}

func (p Is) String() string { return fmt.Sprintf("%s is %s", p.Variable, p.Value) }

func (p And) String() string { return joinChildren(p.Children, " and ") }
func (p Or) String() string  { return joinChildren(p.Children, " or ") }

func (p Not) String() string {
	if p.Child == nil {
		return "not ()"
	}
	return fmt.Sprintf("not (%s)", p.Child)
}

func joinChildren(children []Proposition, sep string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = fmt.Sprintf("(%s)", c)
	}
	return strings.Join(parts, sep)
}

// --------------------------------------------------
// Evaluation

// Degrees holds the precomputed membership degrees for one input vector,
// keyed by (variable, value). See FIS.Fuzzify.
type Degrees map[Is]float64

// Evaluate computes the degree of a proposition tree against precomputed
// fuzzification degrees. And is the minimum over its children, Or the
// maximum, Not is 1-x and Is looks up the precomputed degree.
//
// A missing (variable, value) pair is an internal-consistency failure: a
// validated FIS always fuzzifies every pair a rule can reference.
//
// And short-circuits at 0 and Or at 1; min and max are monotone, so
// further operands cannot change the result.
func Evaluate(p Proposition, degrees Degrees) (float64, error) {
	switch n := p.(type) {
	case Is:
		d, ok := degrees[n]
		if !ok {
			return 0, errors.Errorf("no fuzzified degree for %q", n)
		}
		return d, nil

	case And:
		if len(n.Children) < 2 {
			return 0, errors.Errorf("malformed and: %d children", len(n.Children))
		}
		out := 1.0
		for _, c := range n.Children {
			d, err := Evaluate(c, degrees)
			if err != nil {
				return 0, err
			}
			if d < out {
				out = d
			}
			if out == 0 {
				break
			}
		}
		return out, nil

	case Or:
		if len(n.Children) < 2 {
			return 0, errors.Errorf("malformed or: %d children", len(n.Children))
		}
		out := 0.0
		for _, c := range n.Children {
			d, err := Evaluate(c, degrees)
			if err != nil {
				return 0, err
			}
			if d > out {
				out = d
			}
			if out == 1 {
				break
			}
		}
		return out, nil

	case Not:
		if n.Child == nil {
			return 0, errors.New("malformed not: no child")
		}
		d, err := Evaluate(n.Child, degrees)
		if err != nil {
			return 0, err
		}
		return 1 - d, nil

	default:
		return 0, errors.Errorf("unknown proposition type %T", p)
	}
}

// --------------------------------------------------
// Rules

// Rule is a weighted implication: if <antecedent> then <target is value>.
// The consequent always refers to the FIS output variable.
type Rule struct {
	Antecedent Proposition
	Consequent Is
	Weight     float64
}

// If builds a rule with weight 1.
func If(antecedent Proposition, consequent Is) Rule {
	return Rule{Antecedent: antecedent, Consequent: consequent, Weight: 1}
}

// Weighted returns a copy of the rule with the given weight.
func (r Rule) Weighted(w float64) Rule {
	r.Weight = w
	return r
}

// Strength is the rule's firing strength for the fuzzified inputs: the
// antecedent degree scaled by the rule weight.
func (r Rule) Strength(degrees Degrees) (float64, error) {
	d, err := Evaluate(r.Antecedent, degrees)
	if err != nil {
		return 0, err
	}
	return d * r.Weight, nil
}

func (r Rule) String() string {
	return fmt.Sprintf("if (%s) then (%s) [%f]", r.Antecedent, r.Consequent, r.Weight)
}

// RuleSet is an ordered list of rules. Order has no semantic effect; it
// is preserved for display and serialization.
type RuleSet []Rule
