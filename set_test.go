package mamdani_test

import (
	"math"
	"testing"

	"github.com/ezachrisen/mamdani"
	"github.com/matryer/is"
)

func TestGaussian(t *testing.T) {
	is := is.New(t)

	g := mamdani.Gaussian{Scale: 1.5, Center: 5}
	is.Equal(g.Degree(5), 1.0)
	is.True(closeTo(g.Degree(6.5), math.Exp(-0.5), 1e-12))
	is.True(g.Degree(100) > 0) // gaussians have unbounded support

	// A zero scale degenerates to the indicator of the center.
	z := mamdani.Gaussian{Scale: 0, Center: 2}
	is.Equal(z.Degree(2), 1.0)
	is.Equal(z.Degree(2.0000001), 0.0)
}

func TestDoubleGaussian(t *testing.T) {
	is := is.New(t)

	g := mamdani.DoubleGaussian{Scale1: 1, Center1: 2, Scale2: 2, Center2: 6}
	is.Equal(g.Degree(2), 1.0)
	is.Equal(g.Degree(4), 1.0)
	is.Equal(g.Degree(6), 1.0)
	is.True(closeTo(g.Degree(1), math.Exp(-0.5), 1e-12)) // left flank
	is.True(closeTo(g.Degree(8), math.Exp(-0.5), 1e-12)) // right flank
}

func TestDoubleGaussianInvertedCenters(t *testing.T) {
	// With Center1 > Center2 the comparisons select branches with no
	// plateau; the branch order is part of the contract.
	is := is.New(t)

	g := mamdani.DoubleGaussian{Scale1: 1, Center1: 5, Scale2: 1, Center2: 2}
	is.True(closeTo(g.Degree(3), math.Exp(-2), 1e-12)) // x < 5: left gaussian
	is.True(closeTo(g.Degree(6), math.Exp(-8), 1e-12)) // x >= 5, x > 2: right gaussian
	is.True(closeTo(g.Degree(1), math.Exp(-8), 1e-12)) // x < 5: left gaussian wins
}

func TestTriangularLimits(t *testing.T) {
	is := is.New(t)

	n := mamdani.Triangular{A: 0, B: 0, C: 1}
	is.Equal(n.Degree(-1), 0.0)
	is.Equal(n.Degree(0), 1.0)
	is.True(math.Abs(n.Degree(1)) < 1e-6)

	n = mamdani.Triangular{A: 1, B: 1, C: 2}
	is.Equal(n.Degree(-1), 0.0)
	is.Equal(n.Degree(1), 1.0)
	is.True(math.Abs(n.Degree(2)) < 1e-6)

	// Peak is exactly 1 at the breakpoint.
	n = mamdani.Triangular{A: 0, B: 5, C: 10}
	is.Equal(n.Degree(5), 1.0)
	is.Equal(n.Degree(2.5), 0.5)
	is.Equal(n.Degree(7.5), 0.5)
}

func TestTrapezoidalLimits(t *testing.T) {
	is := is.New(t)

	n := mamdani.Trapezoidal{A: 0, B: 0, C: 1, D: 1}
	is.Equal(n.Degree(-1), 0.0)
	is.Equal(n.Degree(0), 1.0)
	is.Equal(n.Degree(0.5), 1.0)
	is.Equal(n.Degree(1), 1.0)
	is.Equal(n.Degree(2), 0.0)

	// Plateau breakpoints are exactly 1.
	n = mamdani.Trapezoidal{A: 1, B: 2, C: 3, D: 4}
	is.Equal(n.Degree(2), 1.0)
	is.Equal(n.Degree(3), 1.0)
	is.Equal(n.Degree(1.5), 0.5)
	is.Equal(n.Degree(3.5), 0.5)
}

func TestSShaped(t *testing.T) {
	is := is.New(t)

	s := mamdani.SShaped{A: 1, B: 3}
	is.Equal(s.Degree(0), 0.0)
	is.Equal(s.Degree(1), 0.0)
	is.Equal(s.Degree(2), 0.5) // inflection at the midpoint
	is.Equal(s.Degree(3), 1.0)
	is.Equal(s.Degree(4), 1.0)
	is.True(closeTo(s.Degree(1.5), 0.125, 1e-12))
	is.True(closeTo(s.Degree(2.5), 0.875, 1e-12))

	// Zero width degenerates to a step.
	s = mamdani.SShaped{A: 2, B: 2}
	is.Equal(s.Degree(2), 0.0)
	is.Equal(s.Degree(2.0000001), 1.0)
}

func TestZShaped(t *testing.T) {
	is := is.New(t)

	z := mamdani.ZShaped{A: 1, B: 3}
	is.Equal(z.Degree(0), 1.0)
	is.Equal(z.Degree(1), 1.0)
	is.Equal(z.Degree(2), 0.5)
	is.Equal(z.Degree(3), 0.0)
	is.Equal(z.Degree(4), 0.0)
	is.True(closeTo(z.Degree(1.5), 0.875, 1e-12))
	is.True(closeTo(z.Degree(2.5), 0.125, 1e-12))
}

// All variants stay within [0, 1] across their domains, including far
// outside the support.
func TestDegreesWithinUnitInterval(t *testing.T) {
	sets := map[string]mamdani.Set{
		"gaussian":        mamdani.Gaussian{Scale: 1.5, Center: 5},
		"gaussian-zero":   mamdani.Gaussian{Scale: 0, Center: 5},
		"double-gaussian": mamdani.DoubleGaussian{Scale1: 1, Center1: 2, Scale2: 2, Center2: 6},
		"inverted":        mamdani.DoubleGaussian{Scale1: 1, Center1: 6, Scale2: 2, Center2: 2},
		"trapezoidal":     mamdani.Trapezoidal{A: -2, B: 0, C: 1, D: 3},
		"triangular":      mamdani.Triangular{A: 0, B: 5, C: 10},
		"degenerate-tri":  mamdani.Triangular{A: 5, B: 5, C: 5},
		"s-shaped":        mamdani.SShaped{A: 1, B: 3},
		"z-shaped":        mamdani.ZShaped{A: 1, B: 3},
	}

	for name, s := range sets {
		for x := -50.0; x <= 50.0; x += 0.25 {
			d := s.Degree(x)
			if d < 0 || d > 1 || math.IsNaN(d) {
				t.Fatalf("%s: degree %v at x=%v outside [0,1]", name, d, x)
			}
		}
	}
}

func TestDerivedSets(t *testing.T) {
	is := is.New(t)

	tri := mamdani.Triangular{A: 0, B: 5, C: 10}

	clipped := mamdani.Clip(tri, 0.3)
	is.Equal(clipped.Degree(5), 0.3)
	is.Equal(clipped.Degree(0), 0.0)

	other := mamdani.Triangular{A: 5, B: 10, C: 15}
	u := mamdani.Union(tri, other)
	is.Equal(u.Degree(5), 1.0)
	is.Equal(u.Degree(10), 1.0)
	is.Equal(u.Degree(7.5), 0.5)

	is.Equal(mamdani.Union().Degree(3), 0.0) // empty union is the zero set

	c := mamdani.Complement(tri)
	is.Equal(c.Degree(5), 0.0)
	is.Equal(c.Degree(20), 1.0)
}

func closeTo(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}
