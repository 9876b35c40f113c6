package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	closer, err := Init(Config{Level: "warn", Output: "stderr"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, zerolog.WarnLevel, GetLogger().GetLevel())
}

func TestInitDebugOverridesLevel(t *testing.T) {
	closer, err := Init(Config{Level: "error", Debug: true})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())
}

func TestInitBadLevel(t *testing.T) {
	_, err := Init(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestInitFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dance.log")

	closer, err := Init(Config{Level: "info", Output: path})
	require.NoError(t, err)

	Info().Str("drone", "RS_R123").Msg("ready")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"drone":"RS_R123"`)

	// restore a stream logger for the rest of the package tests
	_, err = Init(Config{Output: "stderr"})
	require.NoError(t, err)
}

func TestSetDebug(t *testing.T) {
	SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())

	SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_OUTPUT", "stderr")
	t.Setenv("DEBUG", "yes")

	cfg := DefaultConfig()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "stderr", cfg.Output)
	assert.True(t, cfg.Debug)
}
