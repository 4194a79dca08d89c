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


// Package crypto defines the core KeyPair/KeyStorage/KeyExporter
// interfaces shared by the gateway client's long-term identity keys.
package crypto

// This file is intentionally minimal to avoid circular dependencies.
// The actual implementations are in the subpackages:
// - crypto/keys: RSA-OAEP and ECDSA P-256 key pair generation
// - crypto/storage: Key storage implementations
// - crypto/formats: JWK import/export
// - crypto/rotation: Password-change re-wrap support
// - crypto/vault: KeyVault password-based wrap/unwrap
// - crypto/envelope: MessageEnvelope hybrid encryption
// - crypto/srp: SRP-6a client math