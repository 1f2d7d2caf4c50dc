package space

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSpec is the YAML layout of a space definition file. Each parameter is
// either an explicit value list or a min/max/count range.
type fileSpec struct {
	Parameters []paramSpec `yaml:"parameters"`
}

type paramSpec struct {
	Name   string    `yaml:"name"`
	Values []float64 `yaml:"values,omitempty"`
	Min    float64   `yaml:"min,omitempty"`
	Max    float64   `yaml:"max,omitempty"`
	Count  int       `yaml:"count,omitempty"`
	Scale  string    `yaml:"scale,omitempty"` // "linear" (default) or "log"
}

// LoadFile reads a YAML space definition from path.
func LoadFile(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read space file: %w", err)
	}

	s, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("invalid space file %s: %w", path, err)
	}
	return s, nil
}

// ParseYAML parses a YAML space definition. Unlike the constructors, it
// validates every parameter and returns an error instead of panicking, since
// the input comes from outside the program.
func ParseYAML(data []byte) (*Space, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(spec.Parameters) == 0 {
		return nil, fmt.Errorf("space definition must declare at least one parameter")
	}

	params := make([]Parameter, 0, len(spec.Parameters))
	for _, p := range spec.Parameters {
		param, err := p.toParameter()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}

	return New(params...)
}

func (p paramSpec) toParameter() (Parameter, error) {
	if p.Name == "" {
		return Parameter{}, fmt.Errorf("parameter is missing a name")
	}

	hasValues := len(p.Values) > 0
	hasRange := p.Count != 0 || p.Min != 0 || p.Max != 0

	switch {
	case hasValues && hasRange:
		return Parameter{}, fmt.Errorf("parameter %q declares both values and a min/max range", p.Name)
	case hasValues:
		return Parameter{Name: p.Name, Values: append([]float64(nil), p.Values...)}, nil
	case !hasRange:
		return Parameter{}, fmt.Errorf("parameter %q declares neither values nor a min/max range", p.Name)
	}

	if p.Count < 2 {
		return Parameter{}, fmt.Errorf("parameter %q needs a count of at least 2, got %d", p.Name, p.Count)
	}
	if p.Min >= p.Max {
		return Parameter{}, fmt.Errorf("parameter %q needs min < max, got [%v, %v]", p.Name, p.Min, p.Max)
	}

	switch p.Scale {
	case "", "linear":
		return Span(p.Name, p.Min, p.Max, p.Count), nil
	case "log":
		if p.Min <= 0 {
			return Parameter{}, fmt.Errorf("parameter %q uses log scale and needs min > 0, got %v", p.Name, p.Min)
		}
		return LogSpan(p.Name, p.Min, p.Max, p.Count), nil
	default:
		return Parameter{}, fmt.Errorf("parameter %q has unknown scale %q, expected linear or log", p.Name, p.Scale)
	}
}
