package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Positive(t, cfg.Execution.MaxParallelism)
	assert.Equal(t, int64(0), cfg.Execution.ShuffleSeed)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "zero parallelism",
			mutate:  func(cfg *Config) { cfg.Execution.MaxParallelism = 0 },
			wantErr: "invalid max parallelism",
		},
		{
			name:    "unknown log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
		{
			name:    "unknown log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_MAX_PARALLELISM", "3")
	t.Setenv("ENGINE_SHUFFLE_SEED", "42")
	t.Setenv("ENGINE_LOG_LEVEL", "debug")
	t.Setenv("ENGINE_LOG_FORMAT", "text")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Execution.MaxParallelism)
	assert.Equal(t, int64(42), cfg.Execution.ShuffleSeed)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfigYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"execution:\n  max_parallelism: 2\n  shuffle_seed: 9\nlogging:\n  level: warn\n"), 0o600))
	t.Setenv("ENGINE_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Execution.MaxParallelism)
	assert.Equal(t, int64(9), cfg.Execution.ShuffleSeed)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format, "unset file keys keep defaults")
}

func TestLoadConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("ENGINE_MAX_PARALLELISM", "many")
	_, err := LoadConfig()
	require.Error(t, err)
}
