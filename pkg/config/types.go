package config

// Scenario is a complete sweep description: the model to drive, the
// parameter sets to cross and the values held fixed across every step.
type Scenario struct {
	Name            string             `yaml:"name"`
	Model           ModelSpec          `yaml:"model"`
	ParameterSets   []ParameterSetSpec `yaml:"parameter_sets"`
	FixedParameters map[string]any     `yaml:"fixed_parameters,omitempty"`
	CallbackURL     string             `yaml:"callback_url,omitempty"`
}

// ModelSpec selects and sizes the model under sweep.
type ModelSpec struct {
	Type       string   `yaml:"type"` // currently only "prey"
	Tank       TankSpec `yaml:"tank,omitempty"`
	WaterSigma float64  `yaml:"water_sigma,omitempty"` // defaults to 1.0
	Grid       GridSpec `yaml:"grid,omitempty"`
}

// TankSpec is the rectangular solution domain.
type TankSpec struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

// GridSpec is the structured-mesh resolution in nodes per axis.
type GridSpec struct {
	NX int `yaml:"nx"`
	NY int `yaml:"ny"`
}

// ParameterSetSpec is one co-varied group of parameters. All value
// lists in a set must have the same length; sets marked rebuild_mesh
// are ordered outermost so mesh regeneration happens as rarely as the
// cross product allows.
type ParameterSetSpec struct {
	Name        string           `yaml:"name"`
	RebuildMesh bool             `yaml:"rebuild_mesh,omitempty"`
	Parameters  map[string][]any `yaml:"parameters"`
}
