// Package startup loads environment files into the process before
// configuration is parsed.
//
// Files are listed in ENV_FILE, separated by semicolons. Supported formats
// are dotenv (.env), and YAML or JSON documents with a top-level "env" map.
// Later files win over earlier ones. Variables already present in the process
// environment win over every file unless WithAllowOverride is given.
package startup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFileType is returned when the file extension is not recognized.
var ErrUnknownFileType = errors.New("env file doesn't have a known file suffix")

type options struct {
	allowOverride bool
	defaults      []string
}

// Option configures environment loading.
type Option func(*options)

// WithAllowOverride lets file values replace variables already set in the
// process.
func WithAllowOverride(allowOverride bool) Option {
	return func(o *options) {
		o.allowOverride = allowOverride
	}
}

// WithDefaultFiles names files to load when ENV_FILE is unset. Missing
// default files are skipped.
func WithDefaultFiles(files ...string) Option {
	return func(o *options) {
		o.defaults = append(o.defaults, files...)
	}
}

type fileList struct {
	Files []string `env:"ENV_FILE" envSeparator:";"`
}

// ConfigureEnvironment loads the files named by ENV_FILE.
func ConfigureEnvironment(opts ...Option) error {
	var list fileList

	err := env.Parse(&list)
	if err != nil {
		return fmt.Errorf("failed to parse ENV_FILE: %w", err)
	}

	files := sanitizeEnvFileList(list.Files)
	if len(files) == 0 {
		cfg := getOptions(opts)

		for _, file := range cfg.defaults {
			_, err := os.Stat(file)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			files = append(files, file)
		}
	}

	return ConfigureEnvironmentFromFiles(files, opts...)
}

// ConfigureEnvironmentFromFiles loads files in order and sets the variables
// they define.
func ConfigureEnvironmentFromFiles(files []string, opts ...Option) error {
	cfg := getOptions(opts)

	merged := make(map[string]string)

	for _, file := range files {
		vars, err := LoadEnvFile(file)
		if err != nil {
			return fmt.Errorf("loading environment variables from file %q: %w", file, err)
		}

		for k, v := range vars {
			merged[k] = v
		}
	}

	for k, v := range merged {
		old, exists := os.LookupEnv(k)
		if exists && (!cfg.allowOverride || old == v) {
			continue
		}

		err := os.Setenv(k, v)
		if err != nil {
			return fmt.Errorf("setting environment variable %q: %w", k, err)
		}
	}

	if len(files) > 0 {
		slog.Debug("Loaded environment files", "files", files, "variables", len(merged))
	}

	return nil
}

// LoadEnvFile reads one file and returns the variables it defines. The
// format follows the file extension.
func LoadEnvFile(path string) (map[string]string, error) {
	name := strings.ToLower(filepath.Base(path))

	switch {
	case strings.HasSuffix(name, ".env"):
		return godotenv.Read(path)
	case strings.HasSuffix(name, ".json"):
		return loadDocument(path, json.Unmarshal)
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
		return loadDocument(path, yaml.Unmarshal)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFileType, filepath.Base(path))
	}
}

type envDocument struct {
	Env map[string]string `json:"env" yaml:"env"`
}

func loadDocument(path string, unmarshal func([]byte, any) error) (map[string]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is the intended file to load
	if err != nil {
		return nil, err
	}

	var doc envDocument

	err = unmarshal(data, &doc)
	if err != nil {
		return nil, err
	}

	return doc.Env, nil
}

func sanitizeEnvFileList(in []string) []string {
	out := make([]string, 0, len(in))

	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}

	return out
}

func getOptions(opts []Option) *options {
	cfg := &options{}

	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return cfg
}
