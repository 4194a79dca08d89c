package crypto

import (
	"crypto"
	"errors"
)

// KeyType represents the type of cryptographic key
type KeyType string

const (
	// KeyTypeRSA identifies an RSA-OAEP encryption keypair.
	KeyTypeRSA KeyType = "RSA"
	// KeyTypeECDSA identifies an ECDSA P-256 signing keypair.
	KeyTypeECDSA KeyType = "ECDSA"
)

// KeyAlgorithm is a tagged variant distinguishing the two asymmetric
// algorithms a principal's long-term keys use, replacing the source
// system's dynamic string `alg` parameter ('RSA-OAEP' vs 'ECDSA') with a
// compile-time-checked type, per the tagged-variant design note.
type KeyAlgorithm int

const (
	// Rsa is the RSA-OAEP encryption keypair algorithm.
	Rsa KeyAlgorithm = iota
	// Ecdsa is the ECDSA P-256 signing keypair algorithm.
	Ecdsa
)

// KeyType maps a KeyAlgorithm to its corresponding KeyType.
func (a KeyAlgorithm) KeyType() KeyType {
	if a == Rsa {
		return KeyTypeRSA
	}
	return KeyTypeECDSA
}

// String implements fmt.Stringer.
func (a KeyAlgorithm) String() string {
	switch a {
	case Rsa:
		return "RSA-OAEP"
	case Ecdsa:
		return "ECDSA-P256"
	default:
		return "unknown"
	}
}

// KeyFormat represents the format for key export/import. This client
// only ever speaks JWK on the wire (spec §3/§9).
type KeyFormat string

const (
	KeyFormatJWK KeyFormat = "JWK"
)

// KeyPair represents a cryptographic key pair
type KeyPair interface {
	// PublicKey returns the public key
	PublicKey() crypto.PublicKey
	
	// PrivateKey returns the private key
	PrivateKey() crypto.PrivateKey
	
	// Type returns the key type
	Type() KeyType
	
	// Sign signs the given message
	Sign(message []byte) ([]byte, error)
	
	// Verify verifies the signature
	Verify(message, signature []byte) error
	
	// ID returns a unique identifier for this key pair
	ID() string
}

// KeyExporter handles key export operations
type KeyExporter interface {
	// Export exports the key pair in the specified format
	Export(keyPair KeyPair, format KeyFormat) ([]byte, error)
	
	// ExportPublic exports only the public key
	ExportPublic(keyPair KeyPair, format KeyFormat) ([]byte, error)
}

// KeyImporter handles key import operations
type KeyImporter interface {
	// Import imports a key pair from the specified format
	Import(data []byte, format KeyFormat) (KeyPair, error)
	
	// ImportPublic imports only a public key
	ImportPublic(data []byte, format KeyFormat) (crypto.PublicKey, error)
}

// KeyStorage provides secure storage for keys
type KeyStorage interface {
	// Store stores a key pair with the given ID
	Store(id string, keyPair KeyPair) error
	
	// Load loads a key pair by ID
	Load(id string) (KeyPair, error)
	
	// Delete removes a key pair by ID
	Delete(id string) error
	
	// List returns all stored key IDs
	List() ([]string, error)
	
	// Exists checks if a key exists
	Exists(id string) bool
}

// Common errors
var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrInvalidKeyType   = errors.New("invalid key type")
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrKeyExists        = errors.New("key already exists")
	ErrInvalidSignature = errors.New("invalid signature")
)