// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config provides configuration management for the gateway
// client: a YAML/JSON file loaded via LoadFromFile, with
// environment-variable overrides (see env.go) applied on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure for the gateway client.
type Config struct {
	Environment string        `yaml:"environment" json:"environment" env:"ENVIRONMENT"`
	Relay       RelayConfig   `yaml:"relay" json:"relay" envPrefix:"RELAY_"`
	KeyStore    KeyStoreConfig `yaml:"keystore" json:"keystore" envPrefix:"KEYSTORE_"`
	Logging     LoggingConfig `yaml:"logging" json:"logging" envPrefix:"LOGGING_"`
	Metrics     MetricsConfig `yaml:"metrics" json:"metrics" envPrefix:"METRICS_"`
}

// RelayConfig describes how to reach the relay server this core talks to.
type RelayConfig struct {
	// ServerURL is the relay's base HTTPS URL, e.g. "https://gateway.example.com".
	ServerURL string `yaml:"server_url" json:"server_url" env:"SERVER_URL"`
	// SocketURL is the relay's websocket URL. It has no default and is not
	// derived from ServerURL.
	SocketURL string `yaml:"socket_url" json:"socket_url" env:"SOCKET_URL"`
	// ClientVersion is embedded in the "Gladys/<version>" User-Agent header.
	ClientVersion string `yaml:"client_version" json:"client_version" env:"CLIENT_VERSION"`
	// RequestTimeout bounds individual REST calls.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" env:"REQUEST_TIMEOUT"`
	// DialTimeout bounds the websocket handshake.
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout" env:"DIAL_TIMEOUT"`
}

// KeyStoreConfig configures where wrapped long-term keys are kept.
type KeyStoreConfig struct {
	Directory     string `yaml:"directory" json:"directory" env:"DIRECTORY"`
	PassphraseEnv string `yaml:"passphrase_env" json:"passphrase_env" env:"PASSPHRASE_ENV"`
}

// LoggingConfig controls the internal/logger setup.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format" env:"FORMAT"` // json, console
}

// MetricsConfig controls the optional Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" json:"addr" env:"ADDR"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing JSON or YAML by the
// path's extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults fills in defaults for fields the file/environment left zero.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Relay.ClientVersion == "" {
		cfg.Relay.ClientVersion = "dev"
	}
	if cfg.Relay.RequestTimeout == 0 {
		cfg.Relay.RequestTimeout = 15 * time.Second
	}
	if cfg.Relay.DialTimeout == 0 {
		cfg.Relay.DialTimeout = 10 * time.Second
	}

	if cfg.KeyStore.Directory == "" {
		cfg.KeyStore.Directory = ".gladys/keys"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
}
