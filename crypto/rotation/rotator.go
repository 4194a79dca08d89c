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

// Package rotation supports the client's password-change flow: a
// WrappedKey is "replaced atomically on password change; never mutated
// in place" (spec §3). Rotating here means unwrapping under the old
// password and re-wrapping the very same key material under the new
// one, not generating a new keypair — the keypair's identity (and every
// relay-side reference to its public key) must survive a password
// change.
package rotation

import (
	"fmt"
	"sync"
	"time"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/crypto/vault"
)

// Event records one password-change re-wrap, for an audit trail.
type Event struct {
	Timestamp time.Time
	KeyID     string
	Algorithm gwcrypto.KeyAlgorithm
}

// Rotator re-wraps WrappedKeys across a password change and keeps a
// per-key history of when that happened.
type Rotator struct {
	mu      sync.RWMutex
	history map[string][]Event
}

// NewRotator creates a Rotator with empty history.
func NewRotator() *Rotator {
	return &Rotator{history: make(map[string][]Event)}
}

// Rotate unwraps wk under oldPassword, re-wraps the resulting key pair
// under newPassword, and records an Event. alg tells the unwrap step
// which algorithm family to expect (spec §4.1 — the caller always knows
// whether it is rotating the RSA encryption key or the ECDSA signing
// key).
func (r *Rotator) Rotate(oldPassword, newPassword string, alg gwcrypto.KeyAlgorithm, wk *vault.WrappedKey) (*vault.WrappedKey, error) {
	keyPair, err := vault.Unwrap(oldPassword, wk, alg)
	if err != nil {
		return nil, fmt.Errorf("rotation: unwrap with old password: %w", err)
	}

	newWrapped, err := vault.Wrap(newPassword, keyPair)
	if err != nil {
		return nil, fmt.Errorf("rotation: wrap with new password: %w", err)
	}

	r.mu.Lock()
	r.history[keyPair.ID()] = append(r.history[keyPair.ID()], Event{
		Timestamp: time.Now(),
		KeyID:     keyPair.ID(),
		Algorithm: alg,
	})
	r.mu.Unlock()

	return newWrapped, nil
}

// History returns the recorded rotation events for keyID, most recent
// first.
func (r *Rotator) History(keyID string) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.history[keyID]
	result := make([]Event, len(events))
	for i, e := range events {
		result[len(events)-1-i] = e
	}
	return result
}
