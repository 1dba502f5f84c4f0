package cmd

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "twister", configBaseName)
	assert.Equal(t, "twister.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "run.twist", twistConfigKey)
	assert.Equal(t, "run.failure_exit_code", failureExitCodeConfigKey)
	assert.Equal(t, ".twister-reports", defaultReportsDir)
	assert.Equal(t, 1, defaultFailureExitCode)
	assert.True(t, defaultTerseTwists)
	assert.True(t, defaultInstrumentation)
	assert.Equal(t, "TWISTER", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, defaultReportsDir, viper.GetString(outputFlagName))
	assert.Equal(t, "defined", viper.GetString(orderConfigKey))
	assert.Equal(t, 1, viper.GetInt(failureExitCodeConfigKey))
	assert.True(t, viper.GetBool(terseTwistsConfigKey))
	assert.True(t, viper.GetBool(instrumentationConfigKey))
	assert.Empty(t, viper.GetStringSlice(twistConfigKey))
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelWarn))
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	configureLogger(filepath.Join(t.TempDir(), "twister.log"), true)

	require.NotNil(t, globalLogger)
	assert.Same(t, globalLogger, slog.Default())
	assert.True(t, globalLogger.Enabled(t.Context(), slog.LevelDebug))
}
