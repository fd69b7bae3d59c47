// Package tune fits membership-function parameters by exhaustive grid
// search.
//
// Parameters are addressed by encoded codes over the serialized model:
// var_<variable>_<label>_<param> for input variables and
// target_<variable>_<label>_<param> for the output. Underscores inside
// variable or label names are not supported by the encoding.
package tune

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/ezachrisen/mamdani"
	"github.com/pkg/errors"
)

// Param is one tunable parameter with its current value.
type Param struct {
	Code    string
	Default float64
}

// Params lists every numeric membership-function parameter of the model,
// sorted by code. The parameter names are the serialized ones (a, b, c,
// a1, ...).
func Params(f *mamdani.FIS) ([]Param, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var desc struct {
		Variables []variableParams `json:"variables"`
		Target    variableParams   `json:"target"`
	}
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, err
	}

	var out []Param
	for _, v := range desc.Variables {
		out = append(out, v.params("var")...)
	}
	out = append(out, desc.Target.params("target")...)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type variableParams struct {
	Name   string                            `json:"name"`
	Values map[string]map[string]interface{} `json:"values"`
}

func (v variableParams) params(prefix string) []Param {
	var out []Param
	for label, set := range v.Values {
		for param, value := range set {
			f, ok := value.(float64)
			if !ok || param == "type" {
				continue
			}
			out = append(out, Param{
				Code:    prefix + "_" + v.Name + "_" + label + "_" + param,
				Default: f,
			})
		}
	}
	return out
}

// Apply returns a copy of the model with the encoded parameters changed.
// The original FIS is never mutated.
func Apply(f *mamdani.FIS, params map[string]float64) (*mamdani.FIS, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var desc map[string]interface{}
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, err
	}

	for code, value := range params {
		if err := applyOne(desc, code, value); err != nil {
			return nil, err
		}
	}

	patched, err := json.Marshal(desc)
	if err != nil {
		return nil, err
	}
	tuned := &mamdani.FIS{}
	if err := json.Unmarshal(patched, tuned); err != nil {
		return nil, errors.Wrap(err, "rebuilding tuned model")
	}
	return tuned, nil
}

func applyOne(desc map[string]interface{}, code string, value float64) error {
	parts := strings.Split(code, "_")
	if len(parts) != 4 {
		return errors.Errorf("parameter not supported: %s", code)
	}
	kind, name, label, param := parts[0], parts[1], parts[2], parts[3]

	var target map[string]interface{}
	switch kind {
	case "var":
		variables, ok := desc["variables"].([]interface{})
		if !ok {
			return errors.Errorf("parameter %s: malformed description", code)
		}
		for _, raw := range variables {
			v, ok := raw.(map[string]interface{})
			if ok && v["name"] == name {
				target = v
				break
			}
		}
	case "target":
		v, ok := desc["target"].(map[string]interface{})
		if ok && v["name"] == name {
			target = v
		}
	default:
		return errors.Errorf("parameter not supported: %s", code)
	}
	if target == nil {
		return errors.Errorf("parameter %s: no variable %s", code, name)
	}

	values, ok := target["values"].(map[string]interface{})
	if !ok {
		return errors.Errorf("parameter %s: malformed variable %s", code, name)
	}
	set, ok := values[label].(map[string]interface{})
	if !ok {
		return errors.Errorf("parameter %s: variable %s has no value %s", code, name, label)
	}
	set[param] = value
	return nil
}

// Result is the outcome of a grid search.
type Result struct {
	// Best maps each tuned code to its best value.
	Best map[string]float64

	// Score is the root-mean-squared error of the best candidate.
	Score float64

	// FIS is the tuned model.
	FIS *mamdani.FIS

	// Evaluated is the number of candidates scored.
	Evaluated int
}

// GridSearch scores every combination of the grid values against the
// observations (X inputs, y expected outputs) and returns the candidate
// with the lowest RMSE. Candidates that fail to evaluate any observation
// are skipped.
func GridSearch(f *mamdani.FIS, grid map[string][]float64, X []map[string]float64, y []float64) (*Result, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, errors.Errorf("need matching observations, got %d inputs and %d outputs", len(X), len(y))
	}
	codes := make([]string, 0, len(grid))
	for code, values := range grid {
		if len(values) == 0 {
			return nil, errors.Errorf("empty grid for parameter %s", code)
		}
		codes = append(codes, code)
	}
	sort.Strings(codes)

	best := &Result{Score: math.Inf(1)}
	candidate := make(map[string]float64, len(codes))

	var search func(i int) error
	search = func(i int) error {
		if i == len(codes) {
			best.Evaluated++
			tuned, err := Apply(f, candidate)
			if err != nil {
				return err
			}
			score, ok := rmse(tuned, X, y)
			if ok && score < best.Score {
				best.Score = score
				best.FIS = tuned
				best.Best = make(map[string]float64, len(candidate))
				for k, v := range candidate {
					best.Best[k] = v
				}
			}
			return nil
		}
		for _, v := range grid[codes[i]] {
			candidate[codes[i]] = v
			if err := search(i + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := search(0); err != nil {
		return nil, err
	}

	if best.FIS == nil {
		return nil, errors.New("no grid candidate could be evaluated")
	}
	return best, nil
}

// rmse scores a model against the observations. Rows the model cannot
// evaluate (no rule fires) disqualify the candidate.
func rmse(f *mamdani.FIS, X []map[string]float64, y []float64) (float64, bool) {
	var sum float64
	for i, inputs := range X {
		v, err := f.Eval(inputs)
		if err != nil {
			return 0, false
		}
		d := v - y[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(X))), true
}
