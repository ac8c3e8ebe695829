// Package config resolves CLI settings: defaults, then an optional YAML
// file, then OPERON_* environment variables. Flags are applied last by the
// caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/aledsdavies/operon/runtime/evaluator"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// DefaultCandidates are searched when no config path is given.
var DefaultCandidates = []string{"operon.yaml", ".operon.yaml"}

// Config is the resolved configuration.
type Config struct {
	Policy      evaluator.Policy
	Parallelism int
	Strict      bool
	CacheSize   int
	Format      string
	Debug       bool
}

// FileConfig mirrors the YAML file. Nil fields are unset.
type FileConfig struct {
	Policy      *string `yaml:"policy"`
	Parallelism *int    `yaml:"parallelism"`
	Strict      *bool   `yaml:"strict"`
	CacheSize   *int    `yaml:"cacheSize"`
	Format      *string `yaml:"format"`
	Debug       *bool   `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Policy:      evaluator.FailFast,
		Parallelism: 1,
		CacheSize:   256,
		Format:      FormatYAML,
	}
}

// Evaluator returns the evaluator settings.
func (c Config) Evaluator() evaluator.Config {
	return evaluator.Config{
		Policy:      c.Policy,
		Parallelism: c.Parallelism,
		Strict:      c.Strict,
	}
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache size must not be negative, got %d", c.CacheSize))
	}
	if c.Format != FormatYAML && c.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("unknown format %q (want yaml or json)", c.Format))
	}
	return errors.Join(errs...)
}

// Load resolves defaults, the config file and the environment. An explicit
// path must exist; otherwise the DefaultCandidates are tried and missing
// files are skipped.
func Load(path string) (Config, error) {
	cfg := Default()

	candidates := DefaultCandidates
	if path != "" {
		candidates = []string{path}
	}
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, fs.ErrNotExist) && path == "" {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}

		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", candidate, err)
		}
		if err := Merge(&cfg, parsed); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", candidate, err)
		}
		break
	}

	if err := ApplyEnvOverrides(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge copies the set fields of src into dst.
func Merge(dst *Config, src FileConfig) error {
	if src.Policy != nil {
		p, err := evaluator.ParsePolicy(*src.Policy)
		if err != nil {
			return err
		}
		dst.Policy = p
	}
	if src.Parallelism != nil {
		dst.Parallelism = *src.Parallelism
	}
	if src.Strict != nil {
		dst.Strict = *src.Strict
	}
	if src.CacheSize != nil {
		dst.CacheSize = *src.CacheSize
	}
	if src.Format != nil {
		dst.Format = strings.ToLower(*src.Format)
	}
	if src.Debug != nil {
		dst.Debug = *src.Debug
	}
	return nil
}

// ApplyEnvOverrides applies OPERON_POLICY, OPERON_PARALLELISM,
// OPERON_STRICT, OPERON_CACHE_SIZE, OPERON_FORMAT and OPERON_DEBUG.
func ApplyEnvOverrides(cfg *Config, getenv func(string) string) error {
	lookup := func(name string) string {
		return strings.TrimSpace(getenv("OPERON_" + name))
	}

	var errs []error
	if raw := lookup("POLICY"); raw != "" {
		p, err := evaluator.ParsePolicy(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("OPERON_POLICY: %w", err))
		} else {
			cfg.Policy = p
		}
	}
	setInt := func(name string, dst *int) {
		raw := lookup(name)
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("OPERON_%s: %w", name, err))
			return
		}
		*dst = v
	}
	setBool := func(name string, dst *bool) {
		raw := lookup(name)
		if raw == "" {
			return
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("OPERON_%s: %w", name, err))
			return
		}
		*dst = v
	}

	setInt("PARALLELISM", &cfg.Parallelism)
	setInt("CACHE_SIZE", &cfg.CacheSize)
	setBool("STRICT", &cfg.Strict)
	setBool("DEBUG", &cfg.Debug)
	if raw := lookup("FORMAT"); raw != "" {
		cfg.Format = strings.ToLower(raw)
	}
	return errors.Join(errs...)
}
