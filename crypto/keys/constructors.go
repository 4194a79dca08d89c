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

package keys

import (
	stdcrypto "crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"errors"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
)

// NewRSAPublicKeyOnly wraps an RSA public key with no private material,
// for peers whose encryption key was learned from the relay directory.
func NewRSAPublicKeyOnly(publicKey *rsa.PublicKey, id string) gwcrypto.KeyPair {
	if id == "" {
		id = rsaKeyID(publicKey)
	}
	return &publicKeyOnlyRSA{publicKey: publicKey, id: id}
}

// NewECDSAPublicKeyOnly wraps an ECDSA public key with no private
// material, for peers whose signing key was learned from the relay
// directory.
func NewECDSAPublicKeyOnly(publicKey *ecdsa.PublicKey, id string) gwcrypto.KeyPair {
	if id == "" {
		id = ecdsaKeyID(publicKey)
	}
	return &publicKeyOnlyECDSA{publicKey: publicKey, id: id}
}

// publicKeyOnlyRSA wraps an RSA public key for OAEP wrapping only.
type publicKeyOnlyRSA struct {
	publicKey *rsa.PublicKey
	id        string
}

func (pk *publicKeyOnlyRSA) PublicKey() stdcrypto.PublicKey  { return pk.publicKey }
func (pk *publicKeyOnlyRSA) PrivateKey() stdcrypto.PrivateKey { return nil }
func (pk *publicKeyOnlyRSA) Type() gwcrypto.KeyType           { return gwcrypto.KeyTypeRSA }
func (pk *publicKeyOnlyRSA) ID() string                       { return pk.id }

func (pk *publicKeyOnlyRSA) Sign(message []byte) ([]byte, error) {
	return nil, errors.New("cannot sign with public key only")
}

func (pk *publicKeyOnlyRSA) Verify(message, signature []byte) error {
	return errors.New("rsa keypair is encryption-only, cannot verify")
}

// publicKeyOnlyECDSA wraps an ECDSA public key for signature
// verification only.
type publicKeyOnlyECDSA struct {
	publicKey *ecdsa.PublicKey
	id        string
}

func (pk *publicKeyOnlyECDSA) PublicKey() stdcrypto.PublicKey  { return pk.publicKey }
func (pk *publicKeyOnlyECDSA) PrivateKey() stdcrypto.PrivateKey { return nil }
func (pk *publicKeyOnlyECDSA) Type() gwcrypto.KeyType           { return gwcrypto.KeyTypeECDSA }
func (pk *publicKeyOnlyECDSA) ID() string                       { return pk.id }

func (pk *publicKeyOnlyECDSA) Sign(message []byte) ([]byte, error) {
	return nil, errors.New("cannot sign with public key only")
}

func (pk *publicKeyOnlyECDSA) Verify(message, signature []byte) error {
	hash := sha256.Sum256(message)
	if !ecdsa.VerifyASN1(pk.publicKey, hash[:], signature) {
		return gwcrypto.ErrInvalidSignature
	}
	return nil
}
