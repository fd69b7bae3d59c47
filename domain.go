package mamdani

import (
	"errors"
	"fmt"
)

// ErrNoActivation is returned when no rule fired for the given inputs and
// the aggregated output set is zero everywhere, leaving the centroid
// undefined. It is deliberately distinct from a crisp result of 0.0.
var ErrNoActivation = errors.New("no rule applies")

// Domain is the real interval a variable is defined on, together with the
// number of points sampled across it for centroid integration.
type Domain struct {
	Name  string
	Min   float64
	Max   float64
	Steps int
}

// Validate checks the domain invariants: a non-empty interval and at least
// one sample point.
func (d Domain) Validate() error {
	if d.Name == "" {
		return errors.New("domain name is required")
	}
	if !(d.Min < d.Max) {
		return fmt.Errorf("domain %s: min (%v) must be < max (%v)", d.Name, d.Min, d.Max)
	}
	if d.Steps < 1 {
		return fmt.Errorf("domain %s: steps must be >= 1, got %d", d.Name, d.Steps)
	}
	return nil
}

// Mesh returns the sample points of the domain. The points are equally
// spaced across (min, max]: the first sample is one increment above the
// minimum and the last equals the maximum. The compiled path uses the
// same discretization, so the two agree point for point.
func (d Domain) Mesh() []float64 {
	inc := (d.Max - d.Min) / float64(d.Steps)
	mesh := make([]float64, d.Steps)
	x := d.Min
	for i := range mesh {
		x += inc
		mesh[i] = x
	}
	return mesh
}

// Centroid defuzzifies a set over the domain: the weighted mean of the
// mesh points, weighted by the membership degree at each point.
// Returns ErrNoActivation if the set is zero at every sample.
func (d Domain) Centroid(s Set) (float64, error) {
	inc := (d.Max - d.Min) / float64(d.Steps)
	var sum, weights float64
	x := d.Min
	for i := 0; i < d.Steps; i++ {
		x += inc
		w := s.Degree(x)
		sum += x * w
		weights += w
	}
	if weights == 0 {
		return 0, ErrNoActivation
	}
	return sum / weights, nil
}
