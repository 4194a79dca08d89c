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
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
)

// rsaEncryptionBits is the modulus size for newly generated RSA-OAEP
// encryption keypairs.
const rsaEncryptionBits = 2048

// rsaKeyPair implements KeyPair for an RSA-OAEP encryption keypair. RSA
// keys in this client are encryption-only; signing is done with the
// companion ECDSA keypair.
type rsaKeyPair struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	id         string
}

// GenerateRSAKeyPair generates a new 2048-bit RSA-OAEP encryption keypair.
func GenerateRSAKeyPair() (gwcrypto.KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaEncryptionBits)
	if err != nil {
		return nil, err
	}
	return NewRSAKeyPair(privateKey, "")
}

// NewRSAKeyPair wraps an existing RSA private key. If id is empty it is
// derived from the SHA-256 hash of the modulus.
func NewRSAKeyPair(privateKey *rsa.PrivateKey, id string) (gwcrypto.KeyPair, error) {
	publicKey := &privateKey.PublicKey
	if id == "" {
		id = rsaKeyID(publicKey)
	}
	return &rsaKeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         id,
	}, nil
}

func rsaKeyID(pub *rsa.PublicKey) string {
	hash := sha256.Sum256(pub.N.Bytes())
	return hex.EncodeToString(hash[:8])
}

func (kp *rsaKeyPair) PublicKey() stdcrypto.PublicKey { return kp.publicKey }

func (kp *rsaKeyPair) PrivateKey() stdcrypto.PrivateKey { return kp.privateKey }

func (kp *rsaKeyPair) Type() gwcrypto.KeyType { return gwcrypto.KeyTypeRSA }

// Sign is unsupported: RSA keypairs in this client only ever wrap an
// AES-GCM content key (RSA-OAEP). Envelope signatures use the ECDSA
// identity key instead.
func (kp *rsaKeyPair) Sign(message []byte) ([]byte, error) {
	return nil, errors.New("rsa keypair is encryption-only, cannot sign")
}

func (kp *rsaKeyPair) Verify(message, signature []byte) error {
	return errors.New("rsa keypair is encryption-only, cannot verify")
}

func (kp *rsaKeyPair) ID() string { return kp.id }
