package demo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadMissionConfig overlays the YAML file at path on base. Keys missing
// from the file keep their base value.
func LoadMissionConfig(path string, base MissionConfig) (MissionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read mission config: %w", err)
	}

	return ParseMissionConfig(data, base)
}

// ParseMissionConfig is LoadMissionConfig on raw YAML.
func ParseMissionConfig(data []byte, base MissionConfig) (MissionConfig, error) {
	config := base

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return base, fmt.Errorf("failed to parse mission config: %w", err)
	}

	return config, nil
}
