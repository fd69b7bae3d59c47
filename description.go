package mamdani

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// The JSON shape is shared with the persistence collaborators:
//
//	{
//	  "variables": [...],
//	  "rules": {"rule_list": [...]},
//	  "target": {...},
//	  "defuzzification": "centroid"
//	}
//
// Membership functions and antecedent trees are encoded as tagged
// objects; see setDescription and propositionDescription.

type fisDescription struct {
	Variables       []variableDescription `json:"variables"`
	Rules           ruleSetDescription    `json:"rules"`
	Target          variableDescription   `json:"target"`
	Defuzzification string                `json:"defuzzification"`
}

type variableDescription struct {
	Name   string                     `json:"name"`
	Values map[string]json.RawMessage `json:"values"`
	Domain domainDescription          `json:"domain"`
}

type domainDescription struct {
	Type  string  `json:"type"`
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Steps int     `json:"steps"`
}

type ruleSetDescription struct {
	RuleList []ruleDescription `json:"rule_list"`
}

type ruleDescription struct {
	Antecedent json.RawMessage `json:"antecedent"`
	Consequent isDescription   `json:"consequent"`
	Weight     float64         `json:"weight"`
}

type isDescription struct {
	Type     string `json:"type"`
	Variable string `json:"variable"`
	Value    string `json:"value"`
}

// setDescription is the decode side of the membership-function encoding:
// the union of every variant's parameters, with Type selecting which are
// meaningful. Encoding goes through per-variant structs in describeSet so
// each spec carries exactly its own parameters, zero-valued ones included.
type setDescription struct {
	Type string `json:"type"`

	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`

	A1 float64 `json:"a1"`
	C1 float64 `json:"c1"`
	A2 float64 `json:"a2"`
	C2 float64 `json:"c2"`

	Expression string `json:"expression"`
}

// propositionDescription is the tagged encoding of an antecedent node.
type propositionDescription struct {
	Type     string            `json:"type"`
	Variable string            `json:"variable,omitempty"`
	Value    string            `json:"value,omitempty"`
	Children []json.RawMessage `json:"children,omitempty"`
	Child    json.RawMessage   `json:"child,omitempty"`
}

// --------------------------------------------------
// Marshalling

// MarshalJSON encodes the FIS in the shared persistence shape.
func (f *FIS) MarshalJSON() ([]byte, error) {
	d := fisDescription{
		Defuzzification: string(f.Defuzzification),
	}
	for _, v := range f.Inputs {
		vd, err := describeVariable(v)
		if err != nil {
			return nil, err
		}
		d.Variables = append(d.Variables, vd)
	}
	td, err := describeVariable(f.Target)
	if err != nil {
		return nil, err
	}
	d.Target = td

	d.Rules.RuleList = make([]ruleDescription, 0, len(f.Rules))
	for _, r := range f.Rules {
		ante, err := describeProposition(r.Antecedent)
		if err != nil {
			return nil, err
		}
		d.Rules.RuleList = append(d.Rules.RuleList, ruleDescription{
			Antecedent: ante,
			Consequent: isDescription{Type: "is", Variable: r.Consequent.Variable, Value: r.Consequent.Value},
			Weight:     r.Weight,
		})
	}
	return json.Marshal(d)
}

func describeVariable(v *Variable) (variableDescription, error) {
	vd := variableDescription{
		Name:   v.Name,
		Values: make(map[string]json.RawMessage, len(v.Values)),
		Domain: domainDescription{
			Type:  "FloatDomain",
			Name:  v.Domain.Name,
			Min:   v.Domain.Min,
			Max:   v.Domain.Max,
			Steps: v.Domain.Steps,
		},
	}
	for label, s := range v.Values {
		raw, err := describeSet(s)
		if err != nil {
			return vd, errors.Wrapf(err, "variable %s, value %s", v.Name, label)
		}
		vd.Values[label] = raw
	}
	return vd, nil
}

func describeSet(s Set) (json.RawMessage, error) {
	type ab struct {
		Type string  `json:"type"`
		A    float64 `json:"a"`
		B    float64 `json:"b"`
	}
	switch m := s.(type) {
	case Gaussian:
		return json.Marshal(struct {
			Type string  `json:"type"`
			A    float64 `json:"a"`
			C    float64 `json:"c"`
		}{"gaussian", m.Scale, m.Center})
	case DoubleGaussian:
		return json.Marshal(struct {
			Type string  `json:"type"`
			A1   float64 `json:"a1"`
			C1   float64 `json:"c1"`
			A2   float64 `json:"a2"`
			C2   float64 `json:"c2"`
		}{"gaussian2", m.Scale1, m.Center1, m.Scale2, m.Center2})
	case Trapezoidal:
		return json.Marshal(struct {
			Type string  `json:"type"`
			A    float64 `json:"a"`
			B    float64 `json:"b"`
			C    float64 `json:"c"`
			D    float64 `json:"d"`
		}{"trapezoidal", m.A, m.B, m.C, m.D})
	case Triangular:
		return json.Marshal(struct {
			Type string  `json:"type"`
			A    float64 `json:"a"`
			B    float64 `json:"b"`
			C    float64 `json:"c"`
		}{"triangular", m.A, m.B, m.C})
	case SShaped:
		return json.Marshal(ab{"s_shaped", m.A, m.B})
	case ZShaped:
		return json.Marshal(ab{"z_shaped", m.A, m.B})
	case *Custom:
		return json.Marshal(struct {
			Type       string `json:"type"`
			Expression string `json:"expression"`
		}{"custom", m.Expr})
	default:
		return nil, errors.Errorf("membership function %T is not serializable", s)
	}
}

func describeProposition(p Proposition) (json.RawMessage, error) {
	switch n := p.(type) {
	case Is:
		return json.Marshal(propositionDescription{Type: "is", Variable: n.Variable, Value: n.Value})
	case And:
		children, err := describeChildren(n.Children)
		if err != nil {
			return nil, err
		}
		return json.Marshal(propositionDescription{Type: "and", Children: children})
	case Or:
		children, err := describeChildren(n.Children)
		if err != nil {
			return nil, err
		}
		return json.Marshal(propositionDescription{Type: "or", Children: children})
	case Not:
		child, err := describeProposition(n.Child)
		if err != nil {
			return nil, err
		}
		return json.Marshal(propositionDescription{Type: "not", Child: child})
	default:
		return nil, errors.Errorf("unknown proposition type %T", p)
	}
}

func describeChildren(children []Proposition) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(children))
	for i, c := range children {
		raw, err := describeProposition(c)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

// --------------------------------------------------
// Unmarshalling

// UnmarshalJSON decodes and validates a FIS from the shared persistence
// shape.
func (f *FIS) UnmarshalJSON(data []byte) error {
	var d fisDescription
	if err := json.Unmarshal(data, &d); err != nil {
		return errors.Wrap(err, "decoding model")
	}

	inputs := make([]*Variable, 0, len(d.Variables))
	for _, vd := range d.Variables {
		v, err := variableFromDescription(vd)
		if err != nil {
			return err
		}
		inputs = append(inputs, v)
	}
	target, err := variableFromDescription(d.Target)
	if err != nil {
		return err
	}

	rules := make(RuleSet, 0, len(d.Rules.RuleList))
	for i, rd := range d.Rules.RuleList {
		ante, err := propositionFromDescription(rd.Antecedent)
		if err != nil {
			return errors.Wrapf(err, "rule %d", i)
		}
		if rd.Consequent.Type != "is" {
			return errors.Errorf("rule %d: consequent must be an is node, got %q", i, rd.Consequent.Type)
		}
		rules = append(rules, Rule{
			Antecedent: ante,
			Consequent: Is{Variable: rd.Consequent.Variable, Value: rd.Consequent.Value},
			Weight:     rd.Weight,
		})
	}

	*f = FIS{
		Inputs:          inputs,
		Rules:           rules,
		Target:          target,
		Defuzzification: Defuzzification(d.Defuzzification),
	}
	return f.Validate()
}

func variableFromDescription(vd variableDescription) (*Variable, error) {
	if vd.Domain.Type != "FloatDomain" {
		return nil, errors.Errorf("variable %s: unknown domain type %q", vd.Name, vd.Domain.Type)
	}
	v := &Variable{
		Name: vd.Name,
		Domain: Domain{
			Name:  vd.Domain.Name,
			Min:   vd.Domain.Min,
			Max:   vd.Domain.Max,
			Steps: vd.Domain.Steps,
		},
		Values: make(map[string]Set, len(vd.Values)),
	}
	for label, raw := range vd.Values {
		s, err := setFromDescription(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "variable %s, value %s", vd.Name, label)
		}
		v.Values[label] = s
	}
	return v, nil
}

func setFromDescription(raw json.RawMessage) (Set, error) {
	var d setDescription
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	switch d.Type {
	case "gaussian":
		return Gaussian{Scale: d.A, Center: d.C}, nil
	case "gaussian2":
		return DoubleGaussian{Scale1: d.A1, Center1: d.C1, Scale2: d.A2, Center2: d.C2}, nil
	case "trapezoidal":
		return Trapezoidal{A: d.A, B: d.B, C: d.C, D: d.D}, nil
	case "triangular":
		return Triangular{A: d.A, B: d.B, C: d.C}, nil
	case "s_shaped":
		return SShaped{A: d.A, B: d.B}, nil
	case "z_shaped":
		return ZShaped{A: d.A, B: d.B}, nil
	case "custom":
		return NewCustom(d.Expression)
	default:
		return nil, errors.Errorf("unknown membership function type %q", d.Type)
	}
}

func propositionFromDescription(raw json.RawMessage) (Proposition, error) {
	var d propositionDescription
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	switch d.Type {
	case "is":
		return Is{Variable: d.Variable, Value: d.Value}, nil
	case "and":
		children, err := childrenFromDescription(d.Children)
		if err != nil {
			return nil, err
		}
		and, err := NewAnd(children...)
		if err != nil {
			return nil, err
		}
		return and, nil
	case "or":
		children, err := childrenFromDescription(d.Children)
		if err != nil {
			return nil, err
		}
		or, err := NewOr(children...)
		if err != nil {
			return nil, err
		}
		return or, nil
	case "not":
		if d.Child == nil {
			return nil, errors.New("not node without a child")
		}
		child, err := propositionFromDescription(d.Child)
		if err != nil {
			return nil, err
		}
		return Not{Child: child}, nil
	default:
		return nil, errors.Errorf("unknown proposition type %q", d.Type)
	}
}

func childrenFromDescription(raws []json.RawMessage) ([]Proposition, error) {
	out := make([]Proposition, len(raws))
	for i, raw := range raws {
		p, err := propositionFromDescription(raw)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// --------------------------------------------------
// Files

// Save writes the FIS definition to a file.
func (f *FIS) Save(path string) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads and validates a FIS definition from a file.
func Load(path string) (*FIS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &FIS{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return f, nil
}
