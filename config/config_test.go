package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFile_YAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := &Config{
		Environment: "staging",
		Relay: RelayConfig{
			ServerURL:      "https://relay.example.com",
			ClientVersion:  "9.9.9",
			RequestTimeout: 5 * time.Second,
			DialTimeout:    3 * time.Second,
		},
	}
	require.NoError(t, SaveToFile(original, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "staging", loaded.Environment)
	require.Equal(t, "https://relay.example.com", loaded.Relay.ServerURL)
	require.Equal(t, "9.9.9", loaded.Relay.ClientVersion)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSetDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "dev", cfg.Relay.ClientVersion)
	require.Equal(t, 15*time.Second, cfg.Relay.RequestTimeout)
	require.Equal(t, ".gladys/keys", cfg.KeyStore.Directory)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
}

func TestApplyEnvOverrides_TakesPriority(t *testing.T) {
	t.Setenv("GLADYS_RELAY_SERVER_URL", "https://override.example.com")

	cfg := &Config{Relay: RelayConfig{ServerURL: "https://original.example.com"}}
	require.NoError(t, ApplyEnvOverrides(cfg))

	require.Equal(t, "https://override.example.com", cfg.Relay.ServerURL)
}

func TestLoad_FallsBackToDefaultsWhenNoFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "test"})
	require.NoError(t, err)
	require.Equal(t, "test", cfg.Environment)
	require.Equal(t, "dev", cfg.Relay.ClientVersion)
}

func TestGetEnvironment_DefaultsToDevelopment(t *testing.T) {
	require.NoError(t, os.Unsetenv("GLADYS_ENVIRONMENT"))
	require.NoError(t, os.Unsetenv("ENVIRONMENT"))
	require.Equal(t, "development", GetEnvironment())
}
