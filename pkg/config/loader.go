// Package config defines the YAML scenario format for sweep runs and
// its loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
)

// LoadScenario loads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	scenario, err := ParseScenarioYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	return scenario, nil
}

// validateScenario performs validation on a scenario after defaults.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario name cannot be empty")
	}

	if s.Model.Type != "prey" {
		return fmt.Errorf("unknown model type: %s", s.Model.Type)
	}
	if s.Model.Tank.MaxX <= s.Model.Tank.MinX || s.Model.Tank.MaxY <= s.Model.Tank.MinY {
		return fmt.Errorf("tank has no area")
	}
	if s.Model.WaterSigma <= 0 {
		return fmt.Errorf("water_sigma must be positive")
	}
	if s.Model.Grid.NX < 3 || s.Model.Grid.NY < 3 {
		return fmt.Errorf("grid must be at least 3x3 nodes")
	}

	if len(s.ParameterSets) == 0 {
		return fmt.Errorf("at least one parameter set must be defined")
	}
	setNames := make(map[string]bool)
	paramOwner := make(map[string]string)
	for _, set := range s.ParameterSets {
		if set.Name == "" {
			return fmt.Errorf("parameter set name cannot be empty")
		}
		if setNames[set.Name] {
			return fmt.Errorf("duplicate parameter set name: %s", set.Name)
		}
		setNames[set.Name] = true

		if len(set.Parameters) == 0 {
			return fmt.Errorf("parameter set %s: at least one parameter must be defined", set.Name)
		}
		steps := -1
		for name, values := range set.Parameters {
			if name == "" {
				return fmt.Errorf("parameter set %s: parameter name cannot be empty", set.Name)
			}
			if owner, dup := paramOwner[name]; dup {
				return fmt.Errorf("parameter %s defined in both %s and %s", name, owner, set.Name)
			}
			paramOwner[name] = set.Name
			if len(values) == 0 {
				return fmt.Errorf("parameter set %s: parameter %s has no values", set.Name, name)
			}
			if steps == -1 {
				steps = len(values)
			} else if len(values) != steps {
				return fmt.Errorf("parameter set %s: value lists have unequal lengths", set.Name)
			}
		}
	}

	for name := range s.FixedParameters {
		if owner, dup := paramOwner[name]; dup {
			return fmt.Errorf("fixed parameter %s also swept by set %s", name, owner)
		}
	}

	if s.CallbackURL != "" {
		u, err := url.Parse(s.CallbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("callback_url must be an http(s) URL")
		}
	}

	return nil
}
