package crypto

// This file provides wrapper functions that will be implemented by a separate
// initialization package to avoid circular dependencies.

var (
	// generateRSAKeyPair is the implementation function for RSA-OAEP key generation
	generateRSAKeyPair func() (KeyPair, error)

	// generateECDSAKeyPair is the implementation function for ECDSA P-256 key generation
	generateECDSAKeyPair func() (KeyPair, error)

	// newMemoryKeyStorage is the implementation function for memory storage creation
	newMemoryKeyStorage func() KeyStorage

	// newJWKExporter is the implementation function for JWK exporter creation
	newJWKExporter func() KeyExporter

	// newJWKImporter is the implementation function for JWK importer creation
	newJWKImporter func() KeyImporter
)

// SetKeyGenerators sets the key generation functions
func SetKeyGenerators(rsaGen, ecdsaGen func() (KeyPair, error)) {
	generateRSAKeyPair = rsaGen
	generateECDSAKeyPair = ecdsaGen
}

// SetStorageConstructors sets the storage constructor functions
func SetStorageConstructors(memoryStorage func() KeyStorage) {
	newMemoryKeyStorage = memoryStorage
}

// SetFormatConstructors sets the format constructor functions. This
// client only ever speaks JWK on the wire (spec §3/§9); there is no PEM
// codec to wire in.
func SetFormatConstructors(jwkExp func() KeyExporter, jwkImp func() KeyImporter) {
	newJWKExporter = jwkExp
	newJWKImporter = jwkImp
}

// NewRSAKeyPair generates a new RSA-OAEP key pair
func NewRSAKeyPair() (KeyPair, error) {
	if generateRSAKeyPair == nil {
		panic("RSA key generator not initialized")
	}
	return generateRSAKeyPair()
}

// NewECDSAKeyPair generates a new ECDSA P-256 key pair
func NewECDSAKeyPair() (KeyPair, error) {
	if generateECDSAKeyPair == nil {
		panic("ECDSA key generator not initialized")
	}
	return generateECDSAKeyPair()
}

// GenerateRSAKeyPair is an alias for NewRSAKeyPair
func GenerateRSAKeyPair() (KeyPair, error) {
	return NewRSAKeyPair()
}

// GenerateECDSAKeyPair is an alias for NewECDSAKeyPair
func GenerateECDSAKeyPair() (KeyPair, error) {
	return NewECDSAKeyPair()
}

// NewMemoryKeyStorage creates a new memory key storage
func NewMemoryKeyStorage() KeyStorage {
	if newMemoryKeyStorage == nil {
		panic("Memory key storage constructor not initialized")
	}
	return newMemoryKeyStorage()
}

// NewJWKExporter creates a new JWK exporter
func NewJWKExporter() KeyExporter {
	if newJWKExporter == nil {
		panic("JWK exporter constructor not initialized")
	}
	return newJWKExporter()
}

// NewJWKImporter creates a new JWK importer
func NewJWKImporter() KeyImporter {
	if newJWKImporter == nil {
		panic("JWK importer constructor not initialized")
	}
	return newJWKImporter()
}