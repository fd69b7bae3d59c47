package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ezachrisen/mamdani"
	"github.com/ezachrisen/mamdani/server"
	"github.com/matryer/is"
)

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
	fis, err := mamdani.New(
		[]*mamdani.Variable{food, service},
		mamdani.RuleSet{
			mamdani.If(cheap, tip.Is("cheap")),
			mamdani.If(service.Is("good"), tip.Is("average")),
		},
		tip,
	)
	if err != nil {
		t.Fatal(err)
	}
	return fis
}

func post(t *testing.T, ts *httptest.Server, path string, body, out interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp
}

func TestPredict(t *testing.T) {
	is := is.New(t)
	fis := tipper(t)
	ts := httptest.NewServer(server.New(fis).Handler())
	defer ts.Close()

	var got server.PredictResponse
	resp := post(t, ts, "/oto/FIS.Predict",
		server.PredictRequest{Inputs: map[string]float64{"food": 3, "service": 6}}, &got)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(got.Error, "")

	want, err := fis.Eval(map[string]float64{"food": 3, "service": 6})
	is.NoErr(err)
	is.Equal(got.Value, want)
}

func TestPredictEvalError(t *testing.T) {
	is := is.New(t)
	ts := httptest.NewServer(server.New(tipper(t)).Handler())
	defer ts.Close()

	// A missing input is an evaluation error: it travels in the payload,
	// not as an HTTP failure.
	var got server.PredictResponse
	resp := post(t, ts, "/oto/FIS.Predict",
		server.PredictRequest{Inputs: map[string]float64{"food": 3}}, &got)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(got.Error != "")
	is.Equal(got.Value, 0.0)
}

func TestInfo(t *testing.T) {
	is := is.New(t)
	fis := tipper(t)
	ts := httptest.NewServer(server.New(fis).Handler())
	defer ts.Close()

	var got server.InfoResponse
	resp := post(t, ts, "/oto/FIS.Info", struct{}{}, &got)
	is.Equal(resp.StatusCode, http.StatusOK)

	// The payload is the persistence format: it decodes back into an
	// equivalent model.
	restored := &mamdani.FIS{}
	is.NoErr(json.Unmarshal(got.Model, restored))
	a, err := fis.Eval(map[string]float64{"food": 2, "service": 4})
	is.NoErr(err)
	b, err := restored.Eval(map[string]float64{"food": 2, "service": 4})
	is.NoErr(err)
	is.Equal(a, b)
}

func TestVersion(t *testing.T) {
	is := is.New(t)
	ts := httptest.NewServer(server.New(tipper(t)).Handler())
	defer ts.Close()

	var got server.VersionResponse
	resp := post(t, ts, "/oto/FIS.Version", struct{}{}, &got)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(got.Version, server.Version)
}

func TestUnknownMethod(t *testing.T) {
	is := is.New(t)
	ts := httptest.NewServer(server.New(tipper(t)).Handler())
	defer ts.Close()

	resp := post(t, ts, "/oto/FIS.Explain", struct{}{}, nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

// A custom evaluator (here a stub standing in for a compiled model) takes
// over Predict while Info still describes the source model.
func TestCompiledEvaluator(t *testing.T) {
	is := is.New(t)
	fis := tipper(t)
	ts := httptest.NewServer(server.NewCompiled(fis, constEvaluator(42)).Handler())
	defer ts.Close()

	var got server.PredictResponse
	post(t, ts, "/oto/FIS.Predict",
		server.PredictRequest{Inputs: map[string]float64{"food": 3, "service": 6}}, &got)
	is.Equal(got.Value, 42.0)

	var info server.InfoResponse
	post(t, ts, "/oto/FIS.Info", struct{}{}, &info)
	restored := &mamdani.FIS{}
	is.NoErr(json.Unmarshal(info.Model, restored))
}

type constEvaluator float64

func (c constEvaluator) Eval(map[string]float64) (float64, error) {
	return float64(c), nil
}
