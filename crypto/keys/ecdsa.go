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

package keys

import (
	stdcrypto "crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
)

// ecdsaKeyPair implements KeyPair for an ECDSA P-256 signing keypair.
// This is the identity key used to sign message envelopes.
type ecdsaKeyPair struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	id         string
}

// GenerateECDSAKeyPair generates a new ECDSA P-256 signing keypair.
func GenerateECDSAKeyPair() (gwcrypto.KeyPair, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewECDSAKeyPair(privateKey, "")
}

// NewECDSAKeyPair wraps an existing ECDSA private key. If id is empty it
// is derived from the SHA-256 hash of the uncompressed public point.
func NewECDSAKeyPair(privateKey *ecdsa.PrivateKey, id string) (gwcrypto.KeyPair, error) {
	publicKey := &privateKey.PublicKey
	if id == "" {
		id = ecdsaKeyID(publicKey)
	}
	return &ecdsaKeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         id,
	}, nil
}

func ecdsaKeyID(pub *ecdsa.PublicKey) string {
	hash := sha256.Sum256(elliptic.Marshal(pub.Curve, pub.X, pub.Y))
	return hex.EncodeToString(hash[:8])
}

func (kp *ecdsaKeyPair) PublicKey() stdcrypto.PublicKey { return kp.publicKey }

func (kp *ecdsaKeyPair) PrivateKey() stdcrypto.PrivateKey { return kp.privateKey }

func (kp *ecdsaKeyPair) Type() gwcrypto.KeyType { return gwcrypto.KeyTypeECDSA }

// Sign signs the SHA-256 hash of message, returning an ASN.1 DER signature.
func (kp *ecdsaKeyPair) Sign(message []byte) ([]byte, error) {
	hash := sha256.Sum256(message)
	return ecdsa.SignASN1(rand.Reader, kp.privateKey, hash[:])
}

// Verify checks an ASN.1 DER signature produced by Sign.
func (kp *ecdsaKeyPair) Verify(message, signature []byte) error {
	hash := sha256.Sum256(message)
	if !ecdsa.VerifyASN1(kp.publicKey, hash[:], signature) {
		return gwcrypto.ErrInvalidSignature
	}
	return nil
}

func (kp *ecdsaKeyPair) ID() string { return kp.id }
