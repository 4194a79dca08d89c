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

// gladys-client is an operator CLI for driving the gateway client core
// against a relay by hand: log in over SRP, persist the session tokens
// and wrapped keys, open a socket session, and push a single tunneled
// request through it. It exists for local smoke testing, not as the
// shipped Gladys client.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	// Wires crypto.NewRSAKeyPair/NewECDSAKeyPair and the JWK/storage
	// constructors; every subcommand below depends on this side effect.
	_ "github.com/gladysassistant/gateway-client/internal/cryptoinit"
)

var (
	configDir string
	environment string
)

var rootCmd = &cobra.Command{
	Use:   "gladys-client",
	Short: "Gladys gateway client CLI - SRP login, socket session, request tunneling",
	Long: `gladys-client drives the gateway client core from the command line:

- login: run the SRP-6a handshake and persist the session's tokens and wrapped keys
- connect: open an authenticated socket session and stream inbound events
- send: tunnel a single REST-like request to the primary instance`,
}

func main() {
	// Best-effort: an operator may not have a .env file, that's fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory holding <environment>.yaml/default.yaml/config.yaml")
	rootCmd.PersistentFlags().StringVar(&environment, "environment", "", "override environment detection (development, production, ...)")

	// Subcommands are registered in their own files:
	// - login.go: loginCmd
	// - connect.go: connectCmd
	// - send.go: sendCmd
}
