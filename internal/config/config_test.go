package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, ProviderOllama, cfg.EmbedProvider)
	assert.Equal(t, 384, cfg.EmbedDimension)
	assert.Equal(t, 3, cfg.DefaultK)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EPISEARCH_DATA_DIR", "/var/lib/episearch")
	t.Setenv("EPISEARCH_EMBED_PROVIDER", "openai")
	t.Setenv("EPISEARCH_EMBED_DIMENSION", "1536")
	t.Setenv("EPISEARCH_DEFAULT_K", "5")
	t.Setenv("EPISEARCH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/episearch", cfg.DataDir)
	assert.Equal(t, ProviderOpenAI, cfg.EmbedProvider)
	assert.Equal(t, 1536, cfg.EmbedDimension)
	assert.Equal(t, 5, cfg.DefaultK)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadFileOverlayAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "episearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"data_dir: /from/file\nembed_dimension: 768\ndefault_k: 7\n"), 0o644))

	t.Setenv("EPISEARCH_DATA_DIR", "/from/env")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// Env wins over file; file wins over defaults.
	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, 768, cfg.EmbedDimension)
	assert.Equal(t, 7, cfg.DefaultK)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("EPISEARCH_EMBED_DIMENSION", "zero")
	_, err := Load()
	assert.Error(t, err)
	t.Setenv("EPISEARCH_EMBED_DIMENSION", "")

	t.Setenv("EPISEARCH_EMBED_PROVIDER", "carrier-pigeon")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := LoadFile("nope.yaml")
	assert.Error(t, err)
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("hello", "component", "test")

	assert.Contains(t, stderr.String(), "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["component"])
}
