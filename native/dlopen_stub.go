//go:build !cgo || windows

package native

import "math"

const libSupported = false

const maxInputs = 10

type library struct{}

func open(path, name string, inputs int) (*library, error) {
	return nil, ErrUnsupported
}

func (l *library) callRaw(x float64, args []float64) float64 { return math.NaN() }

func (l *library) callCrisp(min, max float64, n int, args []float64) float64 { return math.NaN() }

func (l *library) close() error { return nil }
