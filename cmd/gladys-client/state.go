package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/gladysassistant/gateway-client/config"
	"github.com/gladysassistant/gateway-client/internal/logger"
	"github.com/gladysassistant/gateway-client/restclient"
)

// clientState is what login persists to disk so connect/send can pick
// a session back up without re-running the SRP handshake: the bearer
// tokens and the caller's own wrapped long-term keys. The KeyVault
// password that unwraps them is never written here (spec §4.1); the
// operator supplies it again via KeyStoreConfig.PassphraseEnv.
type clientState struct {
	Email           string                  `json:"email"`
	DeviceID        string                  `json:"deviceId"`
	AccessToken     string                  `json:"accessToken"`
	RefreshToken    string                  `json:"refreshToken"`
	WrappedRSAKey   *restclient.WrappedKeyDTO `json:"wrappedRsaKey"`
	WrappedECDSAKey *restclient.WrappedKeyDTO `json:"wrappedEcdsaKey"`
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.LoaderOptions{ConfigDir: configDir, Environment: environment})
}

func newLogger(cfg *config.Config, role string) *logger.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.New(role, level)
}

func statePath(cfg *config.Config) string {
	return filepath.Join(cfg.KeyStore.Directory, "state.json")
}

func saveState(cfg *config.Config, st *clientState) error {
	if err := os.MkdirAll(cfg.KeyStore.Directory, 0o700); err != nil {
		return fmt.Errorf("create keystore directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal client state: %w", err)
	}
	if err := os.WriteFile(statePath(cfg), data, 0o600); err != nil {
		return fmt.Errorf("write client state: %w", err)
	}
	return nil
}

func loadState(cfg *config.Config) (*clientState, error) {
	data, err := os.ReadFile(statePath(cfg))
	if err != nil {
		return nil, fmt.Errorf("read client state (run `gladys-client login` first): %w", err)
	}
	var st clientState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse client state: %w", err)
	}
	return &st, nil
}

// passphrase reads the KeyVault password from the environment variable
// KeyStoreConfig.PassphraseEnv names, falling back to "GLADYS_PASSPHRASE".
func passphrase(cfg *config.Config) (string, error) {
	envVar := cfg.KeyStore.PassphraseEnv
	if envVar == "" {
		envVar = "GLADYS_PASSPHRASE"
	}
	pass, ok := os.LookupEnv(envVar)
	if !ok || pass == "" {
		return "", fmt.Errorf("environment variable %s is not set", envVar)
	}
	return pass, nil
}
