package sweep

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/fieldsim/sweep-core/pkg/params"
)

// SweepStep is one fully resolved parameter assignment in a plan.
// Values maps every swept parameter to its value for this step; Levels
// records which step of each set produced the combination. Steps are
// owned by the plan and must be treated as read-only.
type SweepStep struct {
	Index  int
	Values map[string]cty.Value
	Levels map[string]int
	Dirty  bool
}

// ParameterSweep is the cross product of one or more parameter sets,
// flattened into an ordered plan of steps.
//
// Sets requiring a rebuild are placed outermost so they vary least often:
// in a nested cross product the innermost dimension changes every step
// while the outermost changes once per product of the inner step counts.
// With that ordering the number of rebuild events is bounded by the
// product of the step counts of only the rebuild-requiring sets, no
// matter how large the non-rebuild sets are.
type ParameterSweep struct {
	sets  []*ParameterSet // rebuild sets first, caller order within each class
	steps []SweepStep
}

// NewSweep validates the sets, orders them and builds the full plan.
// Planning is all-or-nothing: any validation failure returns an error and
// no partial plan. The plan is deterministic in the inputs.
func NewSweep(sets ...*ParameterSet) (*ParameterSweep, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("at least one parameter set must be specified")
	}

	setNames := make(map[string]string, len(sets))
	owner := make(map[string]string)
	for _, set := range sets {
		if _, dup := setNames[set.name]; dup {
			return nil, fmt.Errorf("duplicate parameter set name %q", set.name)
		}
		setNames[set.name] = set.name
		for _, p := range set.names {
			if first, claimed := owner[p]; claimed {
				return nil, &NameCollisionError{Parameter: p, First: first, Second: set.name}
			}
			owner[p] = set.name
		}
	}

	ordered := append([]*ParameterSet(nil), sets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].requiresRebuild && !ordered[j].requiresRebuild
	})

	sw := &ParameterSweep{sets: ordered}
	sw.steps = sw.buildPlan()
	return sw, nil
}

// buildPlan enumerates the cross product in nested-loop order, innermost
// (last-ordered) set index fastest, and tags each step's dirtiness.
func (sw *ParameterSweep) buildPlan() []SweepStep {
	total := sw.Len()
	steps := make([]SweepStep, 0, total)
	indices := make([]int, len(sw.sets))

	var previous map[string]cty.Value
	for t := 0; t < total; t++ {
		values := make(map[string]cty.Value)
		levels := make(map[string]int, len(sw.sets))
		for k, set := range sw.sets {
			levels[set.name] = indices[k]
			for p, v := range set.valuesAt(indices[k]) {
				values[p] = v
			}
		}

		steps = append(steps, SweepStep{
			Index:  t,
			Values: values,
			Levels: levels,
			Dirty:  t == 0 || sw.structuralChange(previous, values),
		})
		previous = values

		// Advance the odometer, rightmost digit fastest.
		for k := len(indices) - 1; k >= 0; k-- {
			indices[k]++
			if indices[k] < sw.sets[k].steps {
				break
			}
			indices[k] = 0
		}
	}
	return steps
}

// structuralChange reports whether any parameter owned by a
// rebuild-requiring set differs between two consecutive assignments.
// Non-rebuild sets never contribute, whatever their values do.
func (sw *ParameterSweep) structuralChange(prev, next map[string]cty.Value) bool {
	for _, set := range sw.sets {
		if !set.requiresRebuild {
			continue
		}
		for _, p := range set.names {
			if !params.Equal(prev[p], next[p]) {
				return true
			}
		}
	}
	return false
}

// Len returns the total number of steps: the product of the step counts
// of every set.
func (sw *ParameterSweep) Len() int {
	total := 1
	for _, set := range sw.sets {
		total *= set.steps
	}
	return total
}

// Steps returns the ordered plan. The slice and its steps are owned by
// the sweep and must not be mutated.
func (sw *ParameterSweep) Steps() []SweepStep { return sw.steps }

// OrderedSets returns the sets in their scheduled order, outermost first.
func (sw *ParameterSweep) OrderedSets() []*ParameterSet {
	return append([]*ParameterSet(nil), sw.sets...)
}

// ExpectedRebuilds returns the rebuild bound the ordering guarantees: the
// product of the step counts of the rebuild-requiring sets, assuming each
// such set's consecutive values are pairwise distinct. With no rebuild
// sets only the initial build remains.
func (sw *ParameterSweep) ExpectedRebuilds() int {
	total := 1
	for _, set := range sw.sets {
		if set.requiresRebuild {
			total *= set.steps
		}
	}
	return total
}

// DirtyCount returns the number of steps tagged dirty in the plan.
func (sw *ParameterSweep) DirtyCount() int {
	count := 0
	for _, step := range sw.steps {
		if step.Dirty {
			count++
		}
	}
	return count
}

// ParameterNames returns the union of parameter names across all sets in
// sorted order.
func (sw *ParameterSweep) ParameterNames() []string {
	var names []string
	for _, set := range sw.sets {
		names = append(names, set.names...)
	}
	sort.Strings(names)
	return names
}
