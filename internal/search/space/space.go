// Package space defines discrete hyperparameter search spaces: named,
// ordered candidate sets and the Cartesian-product indexing over them.
package space

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
)

// Parameter is a named, ordered set of candidate values for one dimension
// of the search space.
type Parameter struct {
	Name   string
	Values []float64
}

// Values creates a parameter from an explicit list of candidate values.
func Values[T constraints.Integer | constraints.Float](name string, vals ...T) Parameter {
	if len(vals) == 0 {
		panic(fmt.Sprintf("parameter %q must have at least one value", name))
	}
	values := make([]float64, len(vals))
	for i, v := range vals {
		values[i] = float64(v)
	}
	return Parameter{Name: name, Values: values}
}

// Span creates a parameter with n equally spaced values from min to max
// inclusive.
func Span(name string, min, max float64, n int) Parameter {
	if n < 2 {
		panic(fmt.Sprintf("parameter %q needs at least 2 points, got %d", name, n))
	}
	if min >= max {
		panic(fmt.Sprintf("parameter %q needs min < max, got [%v, %v]", name, min, max))
	}
	return Parameter{Name: name, Values: floats.Span(make([]float64, n), min, max)}
}

// LogSpan creates a parameter with n logarithmically spaced values from min
// to max inclusive. Both bounds must be positive.
func LogSpan(name string, min, max float64, n int) Parameter {
	if n < 2 {
		panic(fmt.Sprintf("parameter %q needs at least 2 points, got %d", name, n))
	}
	if min <= 0 || min >= max {
		panic(fmt.Sprintf("parameter %q needs 0 < min < max, got [%v, %v]", name, min, max))
	}
	return Parameter{Name: name, Values: floats.LogSpan(make([]float64, n), min, max)}
}

// Space is an immutable Cartesian product of parameters. Cell indices
// enumerate the product in row-major order: the last declared parameter
// varies fastest.
type Space struct {
	params []Parameter
	size   int
}

// New creates a search space from the given parameters. Parameter names must
// be unique and non-empty, every parameter must have at least one value, and
// the total number of combinations must fit in an int.
func New(params ...Parameter) (*Space, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("search space must have at least one parameter")
	}

	seen := make(map[string]bool, len(params))
	size := 1
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter name must not be empty")
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = true

		if len(p.Values) == 0 {
			return nil, fmt.Errorf("parameter %q must have at least one value", p.Name)
		}
		if size > math.MaxInt/len(p.Values) {
			return nil, fmt.Errorf("search space too large: product of value counts overflows int")
		}
		size *= len(p.Values)
	}

	// Copy so callers cannot mutate the space after construction.
	owned := make([]Parameter, len(params))
	for i, p := range params {
		owned[i] = Parameter{
			Name:   p.Name,
			Values: append([]float64(nil), p.Values...),
		}
	}

	return &Space{params: owned, size: size}, nil
}

// MustNew is like New but panics on error. Intended for statically declared
// spaces.
func MustNew(params ...Parameter) *Space {
	s, err := New(params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Size returns the total number of combinations in the space.
func (s *Space) Size() int {
	return s.size
}

// Names returns the parameter names in declaration order.
func (s *Space) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Parameters returns a copy of the parameter definitions in declaration order.
func (s *Space) Parameters() []Parameter {
	params := make([]Parameter, len(s.params))
	for i, p := range s.params {
		params[i] = Parameter{
			Name:   p.Name,
			Values: append([]float64(nil), p.Values...),
		}
	}
	return params
}

// At decodes the flat cell index i into the parameter assignment at that
// cell. It panics when i is out of range.
func (s *Space) At(i int) map[string]float64 {
	if i < 0 || i >= s.size {
		panic(fmt.Sprintf("cell index %d out of range for space of size %d", i, s.size))
	}

	point := make(map[string]float64, len(s.params))
	repeat := s.size
	for _, p := range s.params {
		repeat /= len(p.Values)
		point[p.Name] = p.Values[(i/repeat)%len(p.Values)]
	}
	return point
}
