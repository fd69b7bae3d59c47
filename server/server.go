// Package server exposes a fuzzy inference system over HTTP.
//
// Three methods are registered on an oto RPC server under the FIS
// service: Predict evaluates the model for one input vector, Info returns
// the model description in the persistence format, and Version reports
// the library version. Evaluation errors (a missing input, no rule
// firing) travel in the response payload; transport problems use HTTP
// status codes.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/ezachrisen/mamdani"
	"github.com/pacedotdev/oto/otohttp"
)

// Version is reported by the Version method.
const Version = "1.0.0"

// Service serves one fuzzy inference system. Evaluation goes through the
// Evaluator, which may be the FIS itself or a compiled version of it.
type Service struct {
	fis  *mamdani.FIS
	eval mamdani.Evaluator
}

// New builds a service that evaluates through the interpreted FIS.
func New(fis *mamdani.FIS) *Service {
	return &Service{fis: fis, eval: fis}
}

// NewCompiled builds a service that evaluates through eval (typically a
// *native.CompiledFIS) but still describes fis in Info.
func NewCompiled(fis *mamdani.FIS, eval mamdani.Evaluator) *Service {
	return &Service{fis: fis, eval: eval}
}

// PredictRequest is one crisp input vector, keyed by variable name. All
// declared input variables must be present.
type PredictRequest struct {
	Inputs map[string]float64 `json:"inputs"`
}

// PredictResponse carries the crisp output, or the evaluation error.
type PredictResponse struct {
	Value float64 `json:"value"`
	Error string  `json:"error,omitempty"`
}

// InfoResponse carries the model description in the persistence format.
type InfoResponse struct {
	Model json.RawMessage `json:"model"`
}

// VersionResponse reports the library version.
type VersionResponse struct {
	Version string `json:"version"`
}

// Handler returns the HTTP handler with all methods registered.
func (s *Service) Handler() http.Handler {
	srv := otohttp.NewServer()
	srv.Register("FIS", "Predict", s.predict)
	srv.Register("FIS", "Info", s.info)
	srv.Register("FIS", "Version", s.version)
	return srv
}

func (s *Service) predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := otohttp.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v, err := s.eval.Eval(req.Inputs)
	if err != nil {
		encode(w, r, PredictResponse{Error: err.Error()})
		return
	}
	encode(w, r, PredictResponse{Value: v})
}

func (s *Service) info(w http.ResponseWriter, r *http.Request) {
	model, err := json.Marshal(s.fis)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	encode(w, r, InfoResponse{Model: model})
}

func (s *Service) version(w http.ResponseWriter, r *http.Request) {
	encode(w, r, VersionResponse{Version: Version})
}

func encode(w http.ResponseWriter, r *http.Request, v interface{}) {
	if err := otohttp.Encode(w, r, http.StatusOK, v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
