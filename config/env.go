// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is the prefix applied to every environment variable this
// package reads, e.g. GLADYS_RELAY_SERVER_URL.
const EnvPrefix = "GLADYS_"

// ApplyEnvOverrides parses environment variables into cfg using
// caarlos0/env struct tags, with EnvPrefix applied to every field.
// Only variables that are actually set override the existing value —
// unset variables never zero out a value loaded from file.
func ApplyEnvOverrides(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
}

// GetEnvironment returns the current environment from GLADYS_ENVIRONMENT
// or ENVIRONMENT, defaulting to "development".
func GetEnvironment() string {
	e := os.Getenv(EnvPrefix + "ENVIRONMENT")
	if e == "" {
		e = os.Getenv("ENVIRONMENT")
	}
	if e == "" {
		e = "development"
	}
	return strings.ToLower(e)
}

// IsProduction reports whether GetEnvironment() is "production".
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment reports whether GetEnvironment() is "development" or "local".
func IsDevelopment() bool {
	e := GetEnvironment()
	return e == "development" || e == "local"
}
