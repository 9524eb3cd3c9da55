package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	// File was created with defaults.
	_, err = os.Stat(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8420", cfg.Server.Address)
	assert.Equal(t, 2*time.Hour, time.Duration(cfg.Cache.Hourly))
	assert.Equal(t, 2*Day, time.Duration(cfg.Cache.Daily))
	assert.Equal(t, 35*Day, time.Duration(cfg.Cache.Monthly))
}

func TestLoadMergesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  address: "0.0.0.0:9000"
cache:
  monthly: 5w
llm:
  primary:
    type: gemini
    model: gemini-2.5-flash
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address)
	assert.Equal(t, 5*Week, time.Duration(cfg.Cache.Monthly))
	// Untouched values keep their defaults.
	assert.Equal(t, 2*time.Hour, time.Duration(cfg.Cache.Hourly))
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Primary.Model)
}

func TestEnvFallbackForKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "oai-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "oai-key", cfg.LLM.Primary.Key, "primary defaults to openai")
	assert.Equal(t, "gem-key", cfg.LLM.Fallback.Key, "fallback defaults to gemini")
}
