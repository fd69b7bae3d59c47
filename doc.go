// Package mamdani implements Mamdani-style fuzzy inference systems.
//
// A fuzzy inference system (FIS) maps crisp numeric inputs to a crisp
// numeric output in four steps: fuzzification of the inputs through
// membership functions, evaluation of a tree of fuzzy-logic rules,
// aggregation of the rules' clipped output sets, and centroid
// defuzzification over the output domain.
//
// The model is built from a small set of types:
//
//	Domain    the sampled real interval a variable lives on
//	Set       a membership function (Gaussian, Trapezoidal, ...)
//	Variable  a domain plus labelled membership functions
//	Rule      if <antecedent tree> then <variable is value> [weight]
//	FIS       inputs, rules and the output variable
//
// Evaluation is a pure function of the inputs: a validated FIS may be
// shared by concurrent readers as long as nothing mutates it.
//
// The native subpackage translates a FIS into C, compiles it with the
// system toolchain and evaluates through the compiled routine instead of
// the tree walker. Both paths produce the same results; the compiled one
// exists purely for speed.
package mamdani
