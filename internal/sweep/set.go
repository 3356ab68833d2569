// Package sweep plans parametric sweeps: it combines named sets of
// co-varying parameter sequences into one flat, deterministic execution
// plan ordered to minimize structural rebuilds.
package sweep

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// ParameterSet is an immutable named collection of parameter sequences
// swept in serial: step i assigns every parameter its i-th value. Sets
// whose parameters alter geometry carry RequiresRebuild so the planner
// can schedule them to change as rarely as possible.
type ParameterSet struct {
	name            string
	names           []string // sorted parameter names
	values          map[string][]cty.Value
	steps           int
	requiresRebuild bool
}

// NewSet validates and constructs a parameter set. Every value sequence
// must be non-empty and of the same length; violations return ShapeError.
func NewSet(name string, requiresRebuild bool, parameters map[string][]cty.Value) (*ParameterSet, error) {
	if name == "" {
		return nil, &ShapeError{Set: name, Detail: "set name must not be empty"}
	}
	if len(parameters) == 0 {
		return nil, &ShapeError{Set: name, Detail: "at least one parameter must be specified"}
	}

	names := make([]string, 0, len(parameters))
	for p := range parameters {
		names = append(names, p)
	}
	sort.Strings(names)

	steps := len(parameters[names[0]])
	values := make(map[string][]cty.Value, len(parameters))
	for _, p := range names {
		seq := parameters[p]
		if len(seq) == 0 {
			return nil, &ShapeError{Set: name, Detail: "parameter " + p + " has no values"}
		}
		if len(seq) != steps {
			return nil, &ShapeError{Set: name, Detail: "parameters must all have the same number of values"}
		}
		values[p] = append([]cty.Value(nil), seq...)
	}

	return &ParameterSet{
		name:            name,
		names:           names,
		values:          values,
		steps:           steps,
		requiresRebuild: requiresRebuild,
	}, nil
}

// Name returns the set's name, unique within a sweep.
func (s *ParameterSet) Name() string { return s.name }

// RequiresRebuild reports whether varying this set invalidates the
// structural artifact and forces a rebuild.
func (s *ParameterSet) RequiresRebuild() bool { return s.requiresRebuild }

// Steps returns the number of steps in the set.
func (s *ParameterSet) Steps() int { return s.steps }

// Parameters returns the parameter names in sorted order.
func (s *ParameterSet) Parameters() []string {
	return append([]string(nil), s.names...)
}

// ValueAt returns the value of a parameter at a given step.
func (s *ParameterSet) ValueAt(parameter string, step int) (cty.Value, bool) {
	seq, ok := s.values[parameter]
	if !ok || step < 0 || step >= len(seq) {
		return cty.NilVal, false
	}
	return seq[step], true
}

// Merge joins another set's parameters into this one, producing a new set
// that keeps the receiver's name and rebuild flag. Both sets must have the
// same step count and disjoint parameter names.
func (s *ParameterSet) Merge(other *ParameterSet) (*ParameterSet, error) {
	if other.steps != s.steps {
		return nil, &ShapeError{Set: s.name, Detail: "merged sets must have the same number of steps"}
	}
	combined := make(map[string][]cty.Value, len(s.names)+len(other.names))
	for p, seq := range s.values {
		combined[p] = seq
	}
	for p, seq := range other.values {
		if _, exists := combined[p]; exists {
			return nil, &NameCollisionError{Parameter: p, First: s.name, Second: other.name}
		}
		combined[p] = seq
	}
	return NewSet(s.name, s.requiresRebuild, combined)
}

// valuesAt returns the full name-to-value assignment at a step.
func (s *ParameterSet) valuesAt(step int) map[string]cty.Value {
	out := make(map[string]cty.Value, len(s.names))
	for _, p := range s.names {
		out[p] = s.values[p][step]
	}
	return out
}
