package fsm

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the knobs shared by every runner of a machine.
type Config struct {
	// Name labels logs, spans and metrics.
	Name string `env:"FSM_NAME" json:"name" yaml:"name"`
	// MaxSteps bounds a single Run. Zero means unbounded.
	MaxSteps int64 `env:"FSM_MAX_STEPS" json:"maxSteps" yaml:"maxSteps"`
	// Tracing enables OpenTelemetry spans for runs and steps.
	Tracing bool `env:"FSM_TRACING" envDefault:"true" json:"tracing" yaml:"tracing"`
	// Metrics enables Prometheus metrics.
	Metrics bool `env:"FSM_METRICS" envDefault:"true" json:"metrics" yaml:"metrics"`
}

// DefaultConfig returns the configuration used by NewBuilder.
func DefaultConfig() Config {
	return Config{
		Tracing: true,
		Metrics: true,
	}
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromFS reads a YAML configuration from a filesystem such as embed.FS.
func LoadConfigFromFS(fsys fs.FS, path string) (Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses YAML on top of DefaultConfig and validates it.
func LoadConfigFromBytes(data []byte) (Config, error) {
	config := DefaultConfig()

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

// LoadConfigFromEnv reads the FSM_* environment variables.
func LoadConfigFromEnv() (Config, error) {
	var config Config

	err := env.Parse(&config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Name == "" {
		return ErrMachineNameRequired
	}

	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: maxSteps must not be negative, got %d", ErrInvalidConfig, c.MaxSteps)
	}

	return nil
}
