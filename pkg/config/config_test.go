package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/iter2tail/pkg/config"
	"github.com/Sumatoshi-tech/iter2tail/pkg/observability"
	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".iter2tail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	assert.Equal(t, tailrec.DefaultOptions(), cfg.Options())
	assert.Equal(t, "1MB", cfg.Input.MaxFileSize)
	assert.Equal(t, uint64(1_000_000), cfg.Input.MaxBytes())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, config.FormatText, cfg.Logging.Format)
	assert.Empty(t, cfg.Observability.OTLPEndpoint)
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `
transform:
  helper_name: go
  suffix: _rec
  state_order: params-first
  default_initial: "0"
  keep_prelude: true
input:
  max_file_size: 64KiB
logging:
  level: debug
  format: json
observability:
  otlp_endpoint: localhost:4317
  otlp_insecure: true
  otlp_headers: "api-key=abc"
  sample_ratio: 0.25
`))
	require.NoError(t, err)

	opts := cfg.Options()
	assert.Equal(t, "go", opts.HelperName)
	assert.Equal(t, "_rec", opts.Suffix)
	assert.Equal(t, tailrec.OrderParamsFirst, opts.StateOrder)
	assert.Equal(t, "0", opts.DefaultInitial)
	assert.True(t, opts.KeepPrelude)
	assert.Equal(t, uint64(65536), cfg.Input.MaxBytes())

	obs := observability.DefaultConfig()
	cfg.Apply(&obs)

	assert.Equal(t, slog.LevelDebug, obs.LogLevel)
	assert.True(t, obs.LogJSON)
	assert.Equal(t, "localhost:4317", obs.OTLPEndpoint)
	assert.True(t, obs.OTLPInsecure)
	assert.Equal(t, map[string]string{"api-key": "abc"}, obs.OTLPHeaders)
	assert.InDelta(t, 0.25, obs.SampleRatio, 1e-9)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "transform:\n  suffix: _file\n")

	t.Setenv("ITER2TAIL_TRANSFORM_SUFFIX", "_env")
	t.Setenv("ITER2TAIL_LOGGING_LEVEL", "warn")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "_env", cfg.Transform.Suffix)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"helper name", "transform:\n  helper_name: \"1x\"\n", config.ErrInvalidTransform},
		{"state order", "transform:\n  state_order: random\n", config.ErrInvalidTransform},
		{"default initial", "transform:\n  default_initial: acc\n", config.ErrInvalidTransform},
		{"file size", "input:\n  max_file_size: lots\n", config.ErrInvalidFileSize},
		{"zero file size", "input:\n  max_file_size: 0B\n", config.ErrInvalidFileSize},
		{"log level", "logging:\n  level: loud\n", config.ErrInvalidLogLevel},
		{"log format", "logging:\n  format: xml\n", config.ErrInvalidLogFormat},
		{"sample ratio", "observability:\n  sample_ratio: 2\n", config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
