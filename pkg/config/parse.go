package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseScenarioYAML parses a Scenario from YAML bytes, applies defaults
// and validates it. This is used for APIs where the scenario is provided
// as payload (not via filesystem).
func ParseScenarioYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario yaml: %w", err)
	}

	applyScenarioDefaults(&scenario)
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ParseScenarioYAMLString parses a Scenario from a YAML string.
func ParseScenarioYAMLString(yamlText string) (*Scenario, error) {
	return ParseScenarioYAML([]byte(yamlText))
}

func applyScenarioDefaults(s *Scenario) {
	if s.Model.Type == "" {
		s.Model.Type = "prey"
	}
	if s.Model.WaterSigma == 0 {
		s.Model.WaterSigma = 1.0
	}
	if s.Model.Tank == (TankSpec{}) {
		s.Model.Tank = TankSpec{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	}
	if s.Model.Grid.NX == 0 {
		s.Model.Grid.NX = 41
	}
	if s.Model.Grid.NY == 0 {
		s.Model.Grid.NY = 41
	}
}
