package mamdani_test

import (
	"errors"
	"testing"

	"github.com/ezachrisen/mamdani"
	"github.com/matryer/is"
)

// tipper builds the classic restaurant tipping controller: two inputs
// (food quality, service quality) and the tip percentage as output.
func tipper(t *testing.T) *mamdani.FIS {
	t.Helper()

	food := mamdani.NewVariable(
		mamdani.Domain{Name: "food", Min: 0, Max: 10, Steps: 100},
		map[string]mamdani.Set{
			"rancid":    mamdani.Trapezoidal{A: -2, B: 0, C: 1, D: 3},
			"delicious": mamdani.Trapezoidal{A: 7, B: 9, C: 10, D: 12},
		})
	service := mamdani.NewVariable(
		mamdani.Domain{Name: "service", Min: 0, Max: 10, Steps: 100},
		map[string]mamdani.Set{
			"poor":      mamdani.Gaussian{Scale: 1.5, Center: 0},
			"good":      mamdani.Gaussian{Scale: 1.5, Center: 5},
			"excellent": mamdani.Gaussian{Scale: 1.5, Center: 10},
		})
	tip := mamdani.NewVariable(
		mamdani.Domain{Name: "tip", Min: 0, Max: 30, Steps: 100},
		map[string]mamdani.Set{
			"cheap":    mamdani.Triangular{A: 0, B: 5, C: 10},
			"average":  mamdani.Triangular{A: 10, B: 15, C: 20},
			"generous": mamdani.Triangular{A: 20, B: 25, C: 30},
		})

	cheap, err := mamdani.NewOr(service.Is("poor"), food.Is("rancid"))
	if err != nil {
		t.Fatal(err)
	}
	generous, err := mamdani.NewOr(service.Is("excellent"), food.Is("delicious"))
	if err != nil {
		t.Fatal(err)
	}

	fis, err := mamdani.New(
		[]*mamdani.Variable{food, service},
		mamdani.RuleSet{
			mamdani.If(cheap, tip.Is("cheap")),
			mamdani.If(service.Is("good"), tip.Is("average")),
			mamdani.If(generous, tip.Is("generous")),
		},
		tip,
	)
	if err != nil {
		t.Fatal(err)
	}
	return fis
}

func TestTipping(t *testing.T) {
	is := is.New(t)
	fis := tipper(t)

	// Bad food but good service: the tip lands between average and
	// generous territory.
	v, err := fis.Eval(map[string]float64{"food": 0, "service": 8})
	is.NoErr(err)
	is.True(v > 15 && v < 25)

	// Great food and service pushes the tip up.
	hi, err := fis.Eval(map[string]float64{"food": 10, "service": 10})
	is.NoErr(err)
	lo, err := fis.Eval(map[string]float64{"food": 0, "service": 0})
	is.NoErr(err)
	is.True(hi > 20)
	is.True(lo < 10)
	is.True(lo < v && v < hi)
}

func TestEvalDeterministic(t *testing.T) {
	is := is.New(t)
	fis := tipper(t)

	inputs := map[string]float64{"food": 3.7, "service": 6.2}
	a, err := fis.Eval(inputs)
	is.NoErr(err)
	for i := 0; i < 10; i++ {
		b, err := fis.Eval(inputs)
		is.NoErr(err)
		is.Equal(a, b)
	}
}

func TestEvalMissingInput(t *testing.T) {
	is := is.New(t)
	fis := tipper(t)

	_, err := fis.Eval(map[string]float64{"food": 5})
	is.True(errors.Is(err, mamdani.ErrMissingInput))

	_, err = fis.Eval(nil)
	is.True(errors.Is(err, mamdani.ErrMissingInput))

	// Extra keys are ignored.
	_, err = fis.Eval(map[string]float64{"food": 5, "service": 5, "mood": 1})
	is.NoErr(err)
}

func TestEvalNoActivation(t *testing.T) {
	is := is.New(t)

	// Triangular sets have bounded support, so inputs outside it leave
	// every rule at strength zero.
	temp := mamdani.NewVariable(
		mamdani.Domain{Name: "temp", Min: 0, Max: 100, Steps: 100},
		map[string]mamdani.Set{"cold": mamdani.Triangular{A: 0, B: 10, C: 20}})
	fan := mamdani.NewVariable(
		mamdani.Domain{Name: "fan", Min: 0, Max: 10, Steps: 100},
		map[string]mamdani.Set{"slow": mamdani.Triangular{A: 0, B: 2, C: 4}})

	fis, err := mamdani.New(
		[]*mamdani.Variable{temp},
		mamdani.RuleSet{mamdani.If(temp.Is("cold"), fan.Is("slow"))},
		fan,
	)
	is.NoErr(err)

	_, err = fis.Eval(map[string]float64{"temp": 80})
	is.True(errors.Is(err, mamdani.ErrNoActivation))

	// Inside the support the same model produces a value.
	v, err := fis.Eval(map[string]float64{"temp": 10})
	is.NoErr(err)
	is.True(v > 0 && v < 4)
}

func TestSingleStepDomain(t *testing.T) {
	is := is.New(t)

	// With one sampling step the centroid collapses to the single mesh
	// point, the domain maximum.
	x := mamdani.NewVariable(
		mamdani.Domain{Name: "x", Min: 0, Max: 10, Steps: 100},
		map[string]mamdani.Set{"high": mamdani.SShaped{A: 0, B: 10}})
	y := mamdani.NewVariable(
		mamdani.Domain{Name: "y", Min: 0, Max: 1, Steps: 1},
		map[string]mamdani.Set{"on": mamdani.SShaped{A: 0, B: 1}})

	fis, err := mamdani.New(
		[]*mamdani.Variable{x},
		mamdani.RuleSet{mamdani.If(x.Is("high"), y.Is("on"))},
		y,
	)
	is.NoErr(err)

	v, err := fis.Eval(map[string]float64{"x": 8})
	is.NoErr(err)
	is.Equal(v, 1.0)
}

func TestWeightScalesContribution(t *testing.T) {
	is := is.New(t)

	x := mamdani.NewVariable(
		mamdani.Domain{Name: "x", Min: 0, Max: 10, Steps: 100},
		map[string]mamdani.Set{
			"low":  mamdani.ZShaped{A: 0, B: 10},
			"high": mamdani.SShaped{A: 0, B: 10},
		})
	out := mamdani.NewVariable(
		mamdani.Domain{Name: "out", Min: 0, Max: 10, Steps: 100},
		map[string]mamdani.Set{
			"small": mamdani.Triangular{A: 0, B: 2, C: 4},
			"large": mamdani.Triangular{A: 6, B: 8, C: 10},
		})

	build := func(w float64) *mamdani.FIS {
		fis, err := mamdani.New(
			[]*mamdani.Variable{x},
			mamdani.RuleSet{
				mamdani.If(x.Is("low"), out.Is("small")),
				mamdani.If(x.Is("high"), out.Is("large")).Weighted(w),
			},
			out,
		)
		is.NoErr(err)
		return fis
	}

	inputs := map[string]float64{"x": 6}
	full, err := build(1).Eval(inputs)
	is.NoErr(err)
	damped, err := build(0.2).Eval(inputs)
	is.NoErr(err)

	// Damping the "large" rule pulls the centroid toward "small".
	is.True(damped < full)
}

func TestValidate(t *testing.T) {
	fis := tipper(t)

	cases := []struct {
		name    string
		corrupt func(f *mamdani.FIS)
	}{
		{"no inputs", func(f *mamdani.FIS) { f.Inputs = nil }},
		{"no rules", func(f *mamdani.FIS) { f.Rules = nil }},
		{"no target", func(f *mamdani.FIS) { f.Target = nil }},
		{"weight above one", func(f *mamdani.FIS) { f.Rules[0].Weight = 1.5 }},
		{"negative weight", func(f *mamdani.FIS) { f.Rules[0].Weight = -0.1 }},
		{"unknown variable", func(f *mamdani.FIS) {
			f.Rules[1].Antecedent = mamdani.Is{Variable: "mood", Value: "good"}
		}},
		{"unknown value", func(f *mamdani.FIS) {
			f.Rules[1].Antecedent = mamdani.Is{Variable: "service", Value: "stellar"}
		}},
		{"consequent not on target", func(f *mamdani.FIS) {
			f.Rules[1].Consequent = mamdani.Is{Variable: "service", Value: "good"}
		}},
		{"single-child and", func(f *mamdani.FIS) {
			f.Rules[1].Antecedent = mamdani.And{Children: []mamdani.Proposition{
				mamdani.Is{Variable: "service", Value: "good"},
			}}
		}},
		{"duplicate names", func(f *mamdani.FIS) { f.Inputs[1].Name = f.Inputs[0].Name }},
		{"bad defuzzification", func(f *mamdani.FIS) { f.Defuzzification = "bisector" }},
		{"inverted domain", func(f *mamdani.FIS) { f.Inputs[0].Domain.Min = 20 }},
		{"zero steps", func(f *mamdani.FIS) { f.Inputs[0].Domain.Steps = 0 }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := tipper(t)
			c.corrupt(f)
			if err := f.Validate(); err == nil {
				t.Fatalf("expected a validation error")
			}
		})
	}

	if err := fis.Validate(); err != nil {
		t.Fatalf("valid model rejected: %v", err)
	}
}

func TestOutputSet(t *testing.T) {
	is := is.New(t)
	fis := tipper(t)

	out, err := fis.Output(map[string]float64{"food": 0, "service": 0})
	is.NoErr(err)

	// Poor service and rancid food fire the "cheap" rule at full
	// strength; the aggregate peaks at the cheap triangle's apex.
	is.True(out.Degree(5) > 0.9)
	is.True(out.Degree(5) > out.Degree(25))
}

var _ mamdani.Evaluator = (*mamdani.FIS)(nil)
