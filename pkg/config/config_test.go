package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Initialize(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 0, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Pruner.ErrorThreshold)
	assert.Equal(t, 0.7, cfg.Fatigue.HighFrictionThreshold)
	assert.Equal(t, 10, cfg.Monitor.WindowSize)
	assert.Equal(t, 5000, cfg.Sandbox.TimeoutMS)
	assert.Equal(t, 20, cfg.Evolver.MaxPopulation)
}

func TestUserValuesOverrideDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9321
pruner:
  error_threshold: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0o644))

	cfg, err := Initialize(dir)
	require.NoError(t, err)

	assert.Equal(t, 9321, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Pruner.ErrorThreshold)
	// Unset sections keep defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 20, cfg.Fatigue.SignalWindow)
}

func TestEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ALETHEIA_TEST_DB", "/tmp/custom.db")
	yaml := "database:\n  path: ${ALETHEIA_TEST_DB}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0o644))

	cfg, err := Initialize(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
}

func TestInvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("server: ["), 0o644))

	_, err := Initialize(dir)
	assert.Error(t, err)
}

func TestValidationRejectsBadThresholds(t *testing.T) {
	dir := t.TempDir()
	yaml := "monitor:\n  anomaly_threshold: 0.99\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0o644))

	_, err := Initialize(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anomaly_threshold")
}

func TestResolveDatabasePath(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "/base/metaygn.db", cfg.ResolveDatabasePath("/base"))

	cfg.Database.Path = "/explicit/db.sqlite"
	assert.Equal(t, "/explicit/db.sqlite", cfg.ResolveDatabasePath("/base"))
}

func TestPortFilePath(t *testing.T) {
	assert.Equal(t, "/base/daemon.port", PortFilePath("/base"))
}
