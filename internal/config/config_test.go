package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aledsdavies/operon/runtime/evaluator"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func env(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestMerge_OnlySetFields(t *testing.T) {
	cfg := Default()
	err := Merge(&cfg, FileConfig{
		Policy:      ptr("collect"),
		Parallelism: ptr(8),
		Format:      ptr("JSON"),
	})
	require.NoError(t, err)

	want := Config{
		Policy:      evaluator.CollectAll,
		Parallelism: 8,
		CacheSize:   256,
		Format:      FormatJSON,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_BadPolicy(t *testing.T) {
	cfg := Default()
	err := Merge(&cfg, FileConfig{Policy: ptr("eventually")})
	require.Error(t, err)
	assert.Equal(t, evaluator.FailFast, cfg.Policy)
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()
	err := ApplyEnvOverrides(&cfg, env(map[string]string{
		"OPERON_POLICY":      "collect",
		"OPERON_PARALLELISM": " 3 ",
		"OPERON_STRICT":      "true",
		"OPERON_CACHE_SIZE":  "0",
		"OPERON_DEBUG":       "1",
	}))
	require.NoError(t, err)

	want := Config{
		Policy:      evaluator.CollectAll,
		Parallelism: 3,
		Strict:      true,
		CacheSize:   0,
		Format:      FormatYAML,
		Debug:       true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("ApplyEnvOverrides mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEnvOverrides_ReportsEveryBadValue(t *testing.T) {
	cfg := Default()
	err := ApplyEnvOverrides(&cfg, env(map[string]string{
		"OPERON_PARALLELISM": "many",
		"OPERON_STRICT":      "perhaps",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPERON_PARALLELISM")
	assert.Contains(t, err.Error(), "OPERON_STRICT")
	assert.Equal(t, 1, cfg.Parallelism)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy: collect\nparallelism: 4\nstrict: true\n"), 0o600))
	t.Setenv("OPERON_PARALLELISM", "2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, evaluator.CollectAll, cfg.Policy)
	assert.Equal(t, 2, cfg.Parallelism)
	assert.True(t, cfg.Strict)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallelism: [1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"parallelism", func(c *Config) { c.Parallelism = 0 }, "parallelism must be at least 1"},
		{"cache", func(c *Config) { c.CacheSize = -1 }, "cache size must not be negative"},
		{"format", func(c *Config) { c.Format = "toml" }, `unknown format "toml"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Evaluator(t *testing.T) {
	cfg := Config{Policy: evaluator.CollectAll, Parallelism: 6, Strict: true}
	assert.Equal(t, evaluator.Config{Policy: evaluator.CollectAll, Parallelism: 6, Strict: true}, cfg.Evaluator())
}
