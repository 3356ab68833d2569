// Package solver drives a simulation model through a sweep plan,
// rebuilding the model's structure only on steps the plan tags dirty and
// recording one outcome per step no matter how many steps fail.
package solver

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Solution is the opaque per-step payload a model produces. The driver
// never inspects it; consumers of the results assert the concrete type
// their model returns.
type Solution = any

// Model is the capability interface the driver sequences. The driver
// calls Configure for every step, Rebuild only when the step requires a
// fresh structure, then Solve. A model instance is stateful: the
// structure built on one step is reused unchanged by later clean steps,
// so a model must not be shared between concurrent runs.
type Model interface {
	// Configure applies a full parameter assignment to the model without
	// rebuilding or solving. A rejected assignment is a configure failure.
	Configure(ctx context.Context, values map[string]cty.Value) error

	// Rebuild regenerates the structural artifact (mesh, geometry) from
	// the configured structure-affecting parameters.
	Rebuild(ctx context.Context) error

	// Solve computes the result for the current structural and physics
	// configuration.
	Solve(ctx context.Context) (Solution, error)
}
