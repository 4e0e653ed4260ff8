package sim

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ParamSchema binds parameter names to positions in the flat parameter vector.
// It is declared once per equation and is immutable after construction.
type ParamSchema struct {
	names []string
	index map[string]int
}

// NewParamSchema creates a schema from an ordered list of unique, non-empty names.
func NewParamSchema(names ...string) (*ParamSchema, error) {
	s := &ParamSchema{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, configErrorf("params", "parameter %d has an empty name", i)
		}
		if _, dup := s.index[n]; dup {
			return nil, configErrorf("params", "duplicate parameter name %q", n)
		}
		s.names[i] = n
		s.index[n] = i
	}
	return s, nil
}

// MustParamSchema is NewParamSchema for package-level model declarations.
func MustParamSchema(names ...string) *ParamSchema {
	s, err := NewParamSchema(names...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of declared parameters.
func (s *ParamSchema) Len() int { return len(s.names) }

// Names returns a copy of the declared names in vector order.
func (s *ParamSchema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Index resolves a name to its vector position.
func (s *ParamSchema) Index(name string) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return -1, configErrorf("params", "unknown parameter %q", name)
	}
	return i, nil
}

// MustIndex resolves a name and panics if it is not declared.
// Models call it at construction, never while integrating.
func (s *ParamSchema) MustIndex(name string) int {
	i, err := s.Index(name)
	if err != nil {
		panic(err)
	}
	return i
}

// Bind validates a positional vector against the schema.
func (s *ParamSchema) Bind(values []float64) (Params, error) {
	if len(values) != len(s.names) {
		return Params{}, configErrorf("params", "expected %d values (%s), got %d",
			len(s.names), strings.Join(s.names, ", "), len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Params{}, configErrorf("params", "%s is not finite (%v)", s.names[i], v)
		}
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return Params{schema: s, values: vals}, nil
}

// FromMap binds parameters by name. Missing and unknown names are both errors.
func (s *ParamSchema) FromMap(m map[string]float64) (Params, error) {
	var unknown []string
	for k := range m {
		if _, ok := s.index[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Params{}, configErrorf("params", "unknown parameters: %s", strings.Join(unknown, ", "))
	}
	values := make([]float64, len(s.names))
	for i, n := range s.names {
		v, ok := m[n]
		if !ok {
			return Params{}, configErrorf("params", "missing parameter %q", n)
		}
		values[i] = v
	}
	return s.Bind(values)
}

// Params is a bound, read-only parameter vector.
type Params struct {
	schema *ParamSchema
	values []float64
}

// At returns the value at a resolved index.
func (p Params) At(i int) float64 { return p.values[i] }

// Get returns a value by name; the boolean is false for undeclared names.
func (p Params) Get(name string) (float64, bool) {
	if p.schema == nil {
		return 0, false
	}
	i, ok := p.schema.index[name]
	if !ok {
		return 0, false
	}
	return p.values[i], true
}

// Len returns the vector length.
func (p Params) Len() int { return len(p.values) }

// Values returns a copy of the underlying vector.
func (p Params) Values() []float64 {
	out := make([]float64, len(p.values))
	copy(out, p.values)
	return out
}

// Schema returns the schema the vector was bound against.
func (p Params) Schema() *ParamSchema { return p.schema }

func (p Params) String() string {
	if p.schema == nil {
		return fmt.Sprint(p.values)
	}
	parts := make([]string, len(p.values))
	for i, v := range p.values {
		parts[i] = fmt.Sprintf("%s=%g", p.schema.names[i], v)
	}
	return "{" + strings.Join(parts, " ") + "}"
}
