// Package cryptoinit wires the crypto package's function-variable
// indirection (SetKeyGenerators/SetStorageConstructors/
// SetFormatConstructors) to the concrete implementations in
// crypto/keys, crypto/storage and crypto/formats, avoiding a circular
// import between crypto and its own subpackages. Importing this
// package for its side effect is what makes crypto.NewRSAKeyPair and
// friends usable; cmd/gladys-client imports it for that reason.
package cryptoinit

import (
	"github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/crypto/formats"
	"github.com/gladysassistant/gateway-client/crypto/keys"
	"github.com/gladysassistant/gateway-client/crypto/storage"
)

func init() {
	// Register key generators
	crypto.SetKeyGenerators(
		func() (crypto.KeyPair, error) { return keys.GenerateRSAKeyPair() },
		func() (crypto.KeyPair, error) { return keys.GenerateECDSAKeyPair() },
	)

	// Register storage constructors
	crypto.SetStorageConstructors(
		func() crypto.KeyStorage { return storage.NewMemoryKeyStorage() },
	)

	// Register format constructors. This client only ever speaks JWK on
	// the wire (spec §3/§9).
	crypto.SetFormatConstructors(
		func() crypto.KeyExporter { return formats.NewJWKExporter() },
		func() crypto.KeyImporter { return formats.NewJWKImporter() },
	)
}
