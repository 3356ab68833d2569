package field

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/fieldsim/sweep-core/pkg/params"
)

// Values is a full parameter assignment handed to the model per step.
type Values = map[string]cty.Value

// GeometryFunc places domains into a fresh geometry from the
// structure-affecting parameters. It runs only on rebuilds.
type GeometryFunc func(g *ModelGeometry, v Values) error

// MaterialsFunc applies physics parameters (conductivities, source
// amplitudes) to an already-built geometry. It runs on every solve, so
// physics parameters never trigger a rebuild.
type MaterialsFunc func(g *ModelGeometry, v Values) error

// ValidateFunc rejects parameter assignments the model cannot accept,
// before any rebuild or solve work happens.
type ValidateFunc func(v Values) error

// Options configures a TankModel's fixed environment.
type Options struct {
	Tank       Rect
	WaterSigma float64
	NX, NY     int
}

// TankModel is a 2-D electrostatic model in a grounded rectangular
// water tank. It carries mutable structural state (the current mesh)
// between steps and therefore must not be shared across runs.
type TankModel struct {
	opts      Options
	geometry  GeometryFunc
	materials MaterialsFunc
	validate  ValidateFunc

	values Values
	geom   *ModelGeometry
	mesh   *Mesh
}

// NewTankModel validates the options and constructs a model. geometry is
// required; materials and validate may be nil.
func NewTankModel(opts Options, geometry GeometryFunc, materials MaterialsFunc, validate ValidateFunc) (*TankModel, error) {
	if geometry == nil {
		return nil, fmt.Errorf("a geometry function is required")
	}
	if opts.WaterSigma <= 0 {
		return nil, fmt.Errorf("water conductivity must be positive, got %g", opts.WaterSigma)
	}
	if opts.Tank.Width() <= 0 || opts.Tank.Height() <= 0 {
		return nil, fmt.Errorf("tank has no area")
	}
	if opts.NX < 3 || opts.NY < 3 {
		return nil, fmt.Errorf("grid must be at least 3x3 nodes, got %dx%d", opts.NX, opts.NY)
	}
	return &TankModel{
		opts:      opts,
		geometry:  geometry,
		materials: materials,
		validate:  validate,
	}, nil
}

// Configure applies a parameter assignment without rebuilding or
// solving. Parameters the model does not know are ignored, matching the
// convention that one assignment feeds every collaborator.
func (m *TankModel) Configure(_ context.Context, values Values) error {
	if m.validate != nil {
		if err := m.validate(values); err != nil {
			return err
		}
	}
	copied := make(Values, len(values))
	for k, v := range values {
		copied[k] = v
	}
	m.values = copied
	return nil
}

// Rebuild regenerates the geometry and mesh from the configured values.
func (m *TankModel) Rebuild(_ context.Context) error {
	geom := NewModelGeometry()
	if err := m.geometry(geom, m.values); err != nil {
		return err
	}
	mesh, err := BuildMesh(m.opts.Tank, geom, m.opts.NX, m.opts.NY)
	if err != nil {
		return err
	}
	m.geom = geom
	m.mesh = mesh
	return nil
}

// Solve applies the physics parameters to the current geometry and
// solves the field on the mesh built by the last successful Rebuild.
func (m *TankModel) Solve(_ context.Context) (any, error) {
	if m.mesh == nil {
		return nil, fmt.Errorf("model has not been built")
	}
	if m.materials != nil {
		if err := m.materials(m.geom, m.values); err != nil {
			return nil, err
		}
	}

	domains := m.geom.Domains()
	sigma := make([]float64, m.mesh.Nodes())
	source := make([]float64, m.mesh.Nodes())
	for k, label := range m.mesh.Labels {
		if label >= 0 {
			sigma[k] = domains[label].Sigma
			source[k] = domains[label].Source
		} else {
			sigma[k] = m.opts.WaterSigma
		}
	}

	return solvePoisson(m.mesh, sigma, source)
}

// Mesh exposes the current structural artifact, mainly for tests.
func (m *TankModel) Mesh() *Mesh { return m.mesh }

// FloatParam extracts a named float parameter, falling back to a default
// when the parameter is absent.
func FloatParam(v Values, name string, fallback float64) (float64, error) {
	cv, ok := v[name]
	if !ok {
		return fallback, nil
	}
	f, err := params.Float(cv)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", name, err)
	}
	return f, nil
}

// RequireFloatParam extracts a named float parameter that must be set.
func RequireFloatParam(v Values, name string) (float64, error) {
	cv, ok := v[name]
	if !ok {
		return 0, fmt.Errorf("parameter %s is required", name)
	}
	f, err := params.Float(cv)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", name, err)
	}
	return f, nil
}

// NewPreyModel builds the bundled demonstration model: a fixed emitter
// disc at the tank center and a movable conductive prey disc.
//
// Structural parameters: prey_x, prey_y (required), prey_r (default
// tank width / 40). Physics parameters: prey_sigma (default 1),
// eod_amp (default 1). Everything else is ignored.
func NewPreyModel(opts Options) (*TankModel, error) {
	emitterR := opts.Tank.Width() / 50

	geometry := func(g *ModelGeometry, v Values) error {
		cx := opts.Tank.MinX + opts.Tank.Width()/2
		cy := opts.Tank.MinY + opts.Tank.Height()/2
		emitter, err := NewCircle(cx, cy, emitterR)
		if err != nil {
			return err
		}
		if err := g.AddSource("emitter", emitter, opts.WaterSigma, 1); err != nil {
			return err
		}

		px, err := RequireFloatParam(v, "prey_x")
		if err != nil {
			return err
		}
		py, err := RequireFloatParam(v, "prey_y")
		if err != nil {
			return err
		}
		pr, err := FloatParam(v, "prey_r", opts.Tank.Width()/40)
		if err != nil {
			return err
		}
		prey, err := NewCircle(px, py, pr)
		if err != nil {
			return err
		}
		return g.AddDomain("prey", prey, 1)
	}

	materials := func(g *ModelGeometry, v Values) error {
		preySigma, err := FloatParam(v, "prey_sigma", 1)
		if err != nil {
			return err
		}
		if err := g.SetSigma("prey", preySigma); err != nil {
			return err
		}
		amp, err := FloatParam(v, "eod_amp", 1)
		if err != nil {
			return err
		}
		return g.SetSource("emitter", amp)
	}

	validate := func(v Values) error {
		for _, name := range []string{"prey_x", "prey_y", "prey_r", "prey_sigma", "eod_amp"} {
			if cv, ok := v[name]; ok {
				if _, err := params.Float(cv); err != nil {
					return fmt.Errorf("parameter %s: %w", name, err)
				}
			}
		}
		if sigma, err := FloatParam(v, "prey_sigma", 1); err != nil || sigma <= 0 {
			return fmt.Errorf("prey_sigma must be a positive number")
		}
		return nil
	}

	return NewTankModel(opts, geometry, materials, validate)
}
