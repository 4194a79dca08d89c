package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gladysassistant/gateway-client/config"
	"github.com/gladysassistant/gateway-client/restclient"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.KeyStore.Directory = t.TempDir()
	return cfg
}

func TestSaveAndLoadStateRoundtrip(t *testing.T) {
	cfg := testConfig(t)
	st := &clientState{
		Email:        "user@example.com",
		DeviceID:     "device-1",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		WrappedRSAKey: &restclient.WrappedKeyDTO{
			WrappedKey: "aa", Salt: "bb", IV: "cc",
		},
		WrappedECDSAKey: &restclient.WrappedKeyDTO{
			WrappedKey: "dd", Salt: "ee", IV: "ff",
		},
	}
	require.NoError(t, saveState(cfg, st))

	loaded, err := loadState(cfg)
	require.NoError(t, err)
	assert.Equal(t, st.Email, loaded.Email)
	assert.Equal(t, st.AccessToken, loaded.AccessToken)
	assert.Equal(t, st.WrappedRSAKey.Salt, loaded.WrappedRSAKey.Salt)

	info, err := os.Stat(filepath.Join(cfg.KeyStore.Directory, "state.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadStateMissingFileErrors(t *testing.T) {
	cfg := testConfig(t)
	_, err := loadState(cfg)
	assert.Error(t, err)
}

func TestPassphraseFallsBackToDefaultEnvVar(t *testing.T) {
	cfg := testConfig(t)
	t.Setenv("GLADYS_PASSPHRASE", "correct horse battery staple")

	pass, err := passphrase(cfg)
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery staple", pass)
}

func TestPassphraseHonorsConfiguredEnvVarName(t *testing.T) {
	cfg := testConfig(t)
	cfg.KeyStore.PassphraseEnv = "MY_CUSTOM_PASSPHRASE"
	t.Setenv("MY_CUSTOM_PASSPHRASE", "hunter2")

	pass, err := passphrase(cfg)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pass)
}

func TestPassphraseErrorsWhenUnset(t *testing.T) {
	cfg := testConfig(t)
	cfg.KeyStore.PassphraseEnv = "GLADYS_TEST_UNSET_PASSPHRASE_XYZ"
	_, err := passphrase(cfg)
	assert.Error(t, err)
}
