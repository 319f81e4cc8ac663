package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/intentmap/internal/config"
	"github.com/jonesrussell/intentmap/internal/frontier"
	"github.com/jonesrussell/intentmap/internal/scheduler"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultStorageDir, cfg.StorageDir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, frontier.DefaultMaxDepth, cfg.Frontier.MaxDepth)
	assert.Equal(t, frontier.DefaultMaxPages, cfg.Frontier.MaxPages)
	assert.Equal(t, scheduler.DefaultConcurrency, cfg.Scheduler.Concurrency)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("INTENTMAP_STORAGE_DIR", "/tmp/intentmap-test")
	t.Setenv("INTENTMAP_LOGGING_LEVEL", "debug")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/intentmap-test", cfg.StorageDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
frontier:
  max_depth: 3
  max_pages: 25
scheduler:
  concurrency: 2
collision:
  similarity_threshold: 0.95
  review_threshold: 0.8
storage_dir: ` + dir + `
`)
	require.NoError(t, os.WriteFile(cfgPath, content, 0o600))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Frontier.MaxDepth)
	assert.Equal(t, 25, cfg.Frontier.MaxPages)
	assert.Equal(t, 2, cfg.Scheduler.Concurrency)
	assert.InDelta(t, 0.95, cfg.Collision.SimilarityThreshold, 1e-9)
	assert.Equal(t, dir, cfg.StorageDir)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
collision:
  similarity_threshold: 0.5
  review_threshold: 0.9
`)
	require.NoError(t, os.WriteFile(cfgPath, content, 0o600))

	_, err := config.Load(cfgPath)
	assert.Error(t, err)
}
