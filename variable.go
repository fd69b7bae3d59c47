package mamdani

import (
	"fmt"

	"github.com/pkg/errors"
)

// Variable is a fuzzy variable: a domain plus a mapping of linguistic
// labels ("poor", "good", ...) to the membership functions that define
// them. A variable is owned by the FIS that declares it as an input or as
// the output.
type Variable struct {
	Name   string
	Domain Domain
	Values map[string]Set
}

// NewVariable creates a variable named after its domain.
func NewVariable(domain Domain, values map[string]Set) *Variable {
	return &Variable{Name: domain.Name, Domain: domain, Values: values}
}

// Validate checks the variable invariants: a valid domain and a non-empty
// label set.
func (v *Variable) Validate() error {
	if v.Name == "" {
		return errors.New("variable name is required")
	}
	if err := v.Domain.Validate(); err != nil {
		return errors.Wrapf(err, "variable %s", v.Name)
	}
	if len(v.Values) == 0 {
		return fmt.Errorf("variable %s has no values", v.Name)
	}
	for label, s := range v.Values {
		if label == "" {
			return fmt.Errorf("variable %s has an empty value label", v.Name)
		}
		if s == nil {
			return fmt.Errorf("variable %s, value %s has no membership function", v.Name, label)
		}
	}
	return nil
}

// Is builds the elemental proposition "<variable> is <value>".
func (v *Variable) Is(value string) Is {
	return Is{Variable: v.Name, Value: value}
}
