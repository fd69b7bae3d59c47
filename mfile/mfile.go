// Package mfile imports MATLAB-style .fis files.
//
// The format is a sectioned key/value file: a [System] section with the
// inference options, one [Input#]/[Output1] section per variable and a
// [Rules] section with one line per rule. Only the Mamdani operator set
// this engine implements is accepted (min AND, max OR, min implication,
// max aggregation, centroid defuzzification, one output); anything else
// is a parse error. The importer produces a fully validated FIS or fails;
// there is no partial recovery.
package mfile

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ezachrisen/mamdani"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// DefaultSteps is the sampling step count assigned to every imported
// domain; the file format carries only the variable ranges.
const DefaultSteps = 100

// Read imports a .fis file with DefaultSteps sampling steps per domain.
func Read(path string) (*mamdani.FIS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, DefaultSteps)
}

// Parse imports the .fis file contents, assigning the given number of
// sampling steps to every domain.
func Parse(data []byte, steps int) (*mamdani.FIS, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, stripComments(data))
	if err != nil {
		return nil, errors.Wrap(err, "parsing fis file")
	}

	sys := cfg.Section("System")
	numInputs, err := sys.Key("NumInputs").Int()
	if err != nil {
		return nil, errors.Wrap(err, "reading NumInputs")
	}
	numOutputs, err := sys.Key("NumOutputs").Int()
	if err != nil {
		return nil, errors.Wrap(err, "reading NumOutputs")
	}
	if numOutputs != 1 {
		return nil, errors.Errorf("only one output is supported, file declares %d", numOutputs)
	}
	for key, want := range map[string]string{
		"Type":         "mamdani",
		"AndMethod":    "min",
		"OrMethod":     "max",
		"ImpMethod":    "min",
		"AggMethod":    "max",
		"DefuzzMethod": "centroid",
	} {
		if got := unquote(sys.Key(key).String()); got != want {
			return nil, errors.Errorf("unsupported %s %q (only %q is implemented)", key, got, want)
		}
	}

	inputs := make([]variable, numInputs)
	for i := 1; i <= numInputs; i++ {
		v, err := parseVariable(cfg.Section(fmt.Sprintf("Input%d", i)), steps)
		if err != nil {
			return nil, errors.Wrapf(err, "Input%d", i)
		}
		inputs[i-1] = v
	}
	output, err := parseVariable(cfg.Section("Output1"), steps)
	if err != nil {
		return nil, errors.Wrap(err, "Output1")
	}

	var rules mamdani.RuleSet
	for _, key := range cfg.Section("Rules").Keys() {
		for _, op := range key.ValueWithShadows() {
			r, err := parseRule(key.Name(), op, inputs, output)
			if err != nil {
				return nil, errors.Wrapf(err, "rule %q", key.Name())
			}
			rules = append(rules, r)
		}
	}

	vars := make([]*mamdani.Variable, len(inputs))
	for i := range inputs {
		vars[i] = inputs[i].v
	}
	return mamdani.New(vars, rules, output.v)
}

// variable pairs an imported variable with its labels in declaration
// order; rules reference membership functions by position.
type variable struct {
	v      *mamdani.Variable
	labels []string
}

func parseVariable(sec *ini.Section, steps int) (variable, error) {
	name := unquote(sec.Key("Name").String())
	if name == "" {
		return variable{}, errors.New("missing Name")
	}

	bounds := strings.Fields(strings.Trim(sec.Key("Range").String(), "[]"))
	if len(bounds) != 2 {
		return variable{}, errors.Errorf("malformed Range %q", sec.Key("Range").String())
	}
	min, err := strconv.ParseFloat(bounds[0], 64)
	if err != nil {
		return variable{}, errors.Wrap(err, "parsing Range")
	}
	max, err := strconv.ParseFloat(bounds[1], 64)
	if err != nil {
		return variable{}, errors.Wrap(err, "parsing Range")
	}

	numMFs, err := sec.Key("NumMFs").Int()
	if err != nil {
		return variable{}, errors.Wrap(err, "reading NumMFs")
	}

	v := variable{
		v: &mamdani.Variable{
			Name:   name,
			Domain: mamdani.Domain{Name: name, Min: min, Max: max, Steps: steps},
			Values: make(map[string]mamdani.Set, numMFs),
		},
		labels: make([]string, 0, numMFs),
	}
	for j := 1; j <= numMFs; j++ {
		label, set, err := parseMF(sec.Key(fmt.Sprintf("MF%d", j)).String())
		if err != nil {
			return variable{}, errors.Wrapf(err, "MF%d", j)
		}
		if _, ok := v.v.Values[label]; ok {
			return variable{}, errors.Errorf("duplicate membership function label %q", label)
		}
		v.v.Values[label] = set
		v.labels = append(v.labels, label)
	}
	return v, nil
}

var mfRe = regexp.MustCompile(`^'(.*)':'(.*)',\[(.*)\]$`)

// parseMF parses a membership-function line such as
// 'poor':'gaussmf',[1.5 0].
func parseMF(description string) (string, mamdani.Set, error) {
	m := mfRe.FindStringSubmatch(strings.TrimSpace(description))
	if m == nil {
		return "", nil, errors.Errorf("malformed membership function %q", description)
	}
	label, kind := m[1], m[2]

	fields := strings.Fields(m[3])
	params := make([]float64, len(fields))
	for i, f := range fields {
		p, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return "", nil, errors.Wrapf(err, "membership function %q", label)
		}
		params[i] = p
	}

	set, err := makeSet(kind, params)
	if err != nil {
		return "", nil, errors.Wrapf(err, "membership function %q", label)
	}
	return label, set, nil
}

func makeSet(kind string, p []float64) (mamdani.Set, error) {
	arity := map[string]int{
		"trimf": 3, "trapmf": 4, "gaussmf": 2, "gauss2mf": 4, "smf": 2, "zmf": 2,
	}
	want, ok := arity[kind]
	if !ok {
		return nil, errors.Errorf("unknown membership function type %q", kind)
	}
	if len(p) != want {
		return nil, errors.Errorf("%s takes %d parameters, got %d", kind, want, len(p))
	}

	switch kind {
	case "trimf":
		return mamdani.Triangular{A: p[0], B: p[1], C: p[2]}, nil
	case "trapmf":
		return mamdani.Trapezoidal{A: p[0], B: p[1], C: p[2], D: p[3]}, nil
	case "gaussmf":
		return mamdani.Gaussian{Scale: p[0], Center: p[1]}, nil
	case "gauss2mf":
		return mamdani.DoubleGaussian{Scale1: p[0], Center1: p[1], Scale2: p[2], Center2: p[3]}, nil
	case "smf":
		return mamdani.SShaped{A: p[0], B: p[1]}, nil
	default: // zmf
		return mamdani.ZShaped{A: p[0], B: p[1]}, nil
	}
}

var ruleRe = regexp.MustCompile(`^(.*), (.*) \((.*)\)$`)

// parseRule parses a rule line. The key part lists one membership-function
// index per input (0 = not used, negative = negated), the consequent index
// and the weight; the value part selects the connective (1 = and, 2 = or).
func parseRule(rule, op string, inputs []variable, output variable) (mamdani.Rule, error) {
	m := ruleRe.FindStringSubmatch(strings.TrimSpace(rule))
	if m == nil {
		return mamdani.Rule{}, errors.Errorf("malformed rule %q", rule)
	}

	indexes := strings.Fields(m[1])
	if len(indexes) != len(inputs) {
		return mamdani.Rule{}, errors.Errorf("rule references %d inputs, file declares %d", len(indexes), len(inputs))
	}

	var children []mamdani.Proposition
	for i, f := range indexes {
		idx, err := strconv.Atoi(f)
		if err != nil {
			return mamdani.Rule{}, errors.Wrap(err, "parsing antecedent index")
		}
		if idx == 0 {
			// Zero means the input takes no part in this rule.
			continue
		}
		label, err := inputs[i].label(idx)
		if err != nil {
			return mamdani.Rule{}, err
		}
		var p mamdani.Proposition = mamdani.Is{Variable: inputs[i].v.Name, Value: label}
		if idx < 0 {
			p = mamdani.Not{Child: p}
		}
		children = append(children, p)
	}

	antecedent, err := connect(op, children)
	if err != nil {
		return mamdani.Rule{}, err
	}

	target, err := strconv.Atoi(strings.TrimSpace(m[2]))
	if err != nil {
		return mamdani.Rule{}, errors.Wrap(err, "parsing consequent index")
	}
	if target < 1 {
		return mamdani.Rule{}, errors.Errorf("negated or unused consequents are not supported (index %d)", target)
	}
	targetLabel, err := output.label(target)
	if err != nil {
		return mamdani.Rule{}, err
	}

	weight, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return mamdani.Rule{}, errors.Wrap(err, "parsing weight")
	}

	return mamdani.Rule{
		Antecedent: antecedent,
		Consequent: mamdani.Is{Variable: output.v.Name, Value: targetLabel},
		Weight:     weight,
	}, nil
}

// connect joins the antecedent children with the file's connective. A
// single surviving child stands on its own: the tree model has no 1-ary
// and/or nodes.
func connect(op string, children []mamdani.Proposition) (mamdani.Proposition, error) {
	switch {
	case len(children) == 0:
		return nil, errors.New("rule has an empty antecedent")
	case len(children) == 1:
		return children[0], nil
	}
	switch strings.TrimSpace(op) {
	case "1":
		return mamdani.And{Children: children}, nil
	case "2":
		return mamdani.Or{Children: children}, nil
	default:
		return nil, errors.Errorf("unknown connective %q", op)
	}
}

func (v variable) label(idx int) (string, error) {
	i := idx
	if i < 0 {
		i = -i
	}
	if i > len(v.labels) {
		return "", errors.Errorf("variable %s has no membership function %d", v.v.Name, i)
	}
	return v.labels[i-1], nil
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), "'")
}

// stripComments removes MATLAB-style % comments, which the ini reader
// does not know about.
func stripComments(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if idx := strings.IndexByte(line, '%'); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return []byte(strings.Join(lines, "\n"))
}
