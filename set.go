package mamdani

import "math"

// --------------------------------------------------
// Membership functions

// Set is a fuzzy set: a membership function mapping a real value to a
// degree in [0, 1]. The variant list is closed; the native code generator
// knows how to lower each one to a scalar C expression.
type Set interface {
	// Degree returns the membership degree of x, always in [0, 1].
	Degree(x float64) float64

	fuzzySet() // restricts implementations to this package
}

// Gaussian is the bell curve exp(-((x-center)/scale)^2 / 2).
type Gaussian struct {
	Scale  float64
	Center float64
}

// DoubleGaussian joins two Gaussian flanks with a plateau of 1 between
// the centers. Below Center1 the left flank applies, above Center2 the
// right one. The branch order is significant when Center1 > Center2 and
// is kept identical in the generated C.
type DoubleGaussian struct {
	Scale1  float64
	Center1 float64
	Scale2  float64
	Center2 float64
}

// Trapezoidal is 0 outside [a, d], rises linearly a->b, holds 1 on [b, c]
// and falls linearly c->d.
type Trapezoidal struct {
	A, B, C, D float64
}

// Triangular is 0 outside [a, c] with a linear peak of 1 at b.
type Triangular struct {
	A, B, C float64
}

// SShaped is the quadratic smoothstep: 0 for x<=a, 1 for x>=b, with the
// inflection at the midpoint.
type SShaped struct {
	A, B float64
}

// ZShaped is the mirror of SShaped: 1 for x<=a, 0 for x>=b.
type ZShaped struct {
	A, B float64
}

// SetFunc adapts a plain function to the Set interface. Function-backed
// sets evaluate but do not serialize and cannot be compiled.
type SetFunc func(x float64) float64

func (Gaussian) fuzzySet()       {}
func (DoubleGaussian) fuzzySet() {}
func (Trapezoidal) fuzzySet()    {}
func (Triangular) fuzzySet()     {}
func (SShaped) fuzzySet()        {}
func (ZShaped) fuzzySet()        {}
func (SetFunc) fuzzySet()        {}

func (g Gaussian) Degree(x float64) float64 {
	// Zero scale degenerates to the indicator of the center.
	if g.Scale == 0 {
		if x == g.Center {
			return 1
		}
		return 0
	}
	r := (x - g.Center) / g.Scale
	return math.Exp(-r * r / 2)
}

func (g DoubleGaussian) Degree(x float64) float64 {
	switch {
	case x < g.Center1:
		return Gaussian{Scale: g.Scale1, Center: g.Center1}.Degree(x)
	case x > g.Center2:
		return Gaussian{Scale: g.Scale2, Center: g.Center2}.Degree(x)
	default:
		return 1
	}
}

func (t Trapezoidal) Degree(x float64) float64 {
	m := math.Min(math.Min(rampUp(x, t.A, t.B), 1), rampDown(x, t.C, t.D))
	return math.Max(m, 0)
}

func (t Triangular) Degree(x float64) float64 {
	m := math.Min(rampUp(x, t.A, t.B), rampDown(x, t.B, t.C))
	return math.Max(m, 0)
}

func (s SShaped) Degree(x float64) float64 {
	switch {
	case x <= s.A:
		return 0
	case x >= s.B:
		return 1
	}
	w := s.B - s.A
	if x <= (s.A+s.B)/2 {
		r := (x - s.A) / w
		return 2 * r * r
	}
	r := (x - s.B) / w
	return 1 - 2*r*r
}

func (z ZShaped) Degree(x float64) float64 {
	switch {
	case x <= z.A:
		return 1
	case x >= z.B:
		return 0
	}
	w := z.B - z.A
	if x <= (z.A+z.B)/2 {
		r := (x - z.A) / w
		return 1 - 2*r*r
	}
	r := (x - z.B) / w
	return 2 * r * r
}

func (f SetFunc) Degree(x float64) float64 { return f(x) }

// rampUp is the linear ramp that is 0 at a and 1 at b. A zero-width ramp
// degenerates to a step at the breakpoint instead of dividing by zero.
func rampUp(x, a, b float64) float64 {
	if a == b {
		if x < a {
			return 0
		}
		return 1
	}
	return (x - a) / (b - a)
}

// rampDown is the linear ramp that is 1 at c and 0 at d.
func rampDown(x, c, d float64) float64 {
	if c == d {
		if x > d {
			return 0
		}
		return 1
	}
	return (d - x) / (d - c)
}

// --------------------------------------------------
// Derived sets

// Clip limits a set pointwise to at most level: implication by minimum.
func Clip(s Set, level float64) Set {
	return SetFunc(func(x float64) float64 {
		return math.Min(s.Degree(x), level)
	})
}

// Union aggregates sets by pointwise maximum. The union of no sets is the
// zero set.
func Union(sets ...Set) Set {
	return SetFunc(func(x float64) float64 {
		var out float64
		for _, s := range sets {
			if d := s.Degree(x); d > out {
				out = d
			}
		}
		return out
	})
}

// Complement returns the pointwise negation 1 - s(x).
func Complement(s Set) Set {
	return SetFunc(func(x float64) float64 {
		return 1 - s.Degree(x)
	})
}
