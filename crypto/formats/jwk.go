package formats

import (
	stdcrypto "crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/crypto/keys"
)

// JWK represents a JSON Web Key, restricted to the two key shapes this
// client exchanges: RSA encryption keys and EC (P-256) signing keys.
type JWK struct {
	Kty string `json:"kty"`           // Key Type: "RSA" or "EC"
	Crv string `json:"crv,omitempty"` // Curve (EC only): "P-256"
	N   string `json:"n,omitempty"`   // Modulus (RSA)
	E   string `json:"e,omitempty"`   // Exponent (RSA)
	X   string `json:"x,omitempty"`   // X coordinate (EC)
	Y   string `json:"y,omitempty"`   // Y coordinate (EC)
	D   string `json:"d,omitempty"`   // Private key component
	Kid string `json:"kid,omitempty"` // Key ID
	Use string `json:"use,omitempty"` // Key use: "enc" or "sig"
	Alg string `json:"alg,omitempty"` // Algorithm
}

// jwkExporter implements KeyExporter for JWK format.
type jwkExporter struct{}

// NewJWKExporter creates a new JWK exporter.
func NewJWKExporter() gwcrypto.KeyExporter {
	return &jwkExporter{}
}

// Export exports the key pair, including private material, in JWK format.
func (e *jwkExporter) Export(keyPair gwcrypto.KeyPair, format gwcrypto.KeyFormat) ([]byte, error) {
	if format != gwcrypto.KeyFormatJWK {
		return nil, gwcrypto.ErrInvalidKeyFormat
	}

	jwk := &JWK{Kid: keyPair.ID()}

	switch keyPair.Type() {
	case gwcrypto.KeyTypeRSA:
		priv, ok := keyPair.PrivateKey().(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("invalid RSA private key")
		}
		jwk.Use = "enc"
		jwk.Kty = "RSA"
		jwk.Alg = "RSA-OAEP-256"
		jwk.N = base64.RawURLEncoding.EncodeToString(priv.N.Bytes())
		jwk.E = base64.RawURLEncoding.EncodeToString(big.NewInt(int64(priv.E)).Bytes())
		jwk.D = base64.RawURLEncoding.EncodeToString(priv.D.Bytes())

	case gwcrypto.KeyTypeECDSA:
		priv, ok := keyPair.PrivateKey().(*ecdsa.PrivateKey)
		if !ok {
			return nil, errors.New("invalid ECDSA private key")
		}
		jwk.Use = "sig"
		jwk.Kty = "EC"
		jwk.Crv = "P-256"
		jwk.Alg = "ES256"
		jwk.X = base64.RawURLEncoding.EncodeToString(priv.X.Bytes())
		jwk.Y = base64.RawURLEncoding.EncodeToString(priv.Y.Bytes())
		jwk.D = base64.RawURLEncoding.EncodeToString(priv.D.Bytes())

	default:
		return nil, gwcrypto.ErrInvalidKeyType
	}

	return json.Marshal(jwk)
}

// ExportPublic exports only the public key in JWK format.
func (e *jwkExporter) ExportPublic(keyPair gwcrypto.KeyPair, format gwcrypto.KeyFormat) ([]byte, error) {
	if format != gwcrypto.KeyFormatJWK {
		return nil, gwcrypto.ErrInvalidKeyFormat
	}

	jwk := &JWK{Kid: keyPair.ID()}

	switch keyPair.Type() {
	case gwcrypto.KeyTypeRSA:
		pub, ok := keyPair.PublicKey().(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("invalid RSA public key")
		}
		jwk.Use = "enc"
		jwk.Kty = "RSA"
		jwk.Alg = "RSA-OAEP-256"
		jwk.N = base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
		jwk.E = base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())

	case gwcrypto.KeyTypeECDSA:
		pub, ok := keyPair.PublicKey().(*ecdsa.PublicKey)
		if !ok {
			return nil, errors.New("invalid ECDSA public key")
		}
		jwk.Use = "sig"
		jwk.Kty = "EC"
		jwk.Crv = "P-256"
		jwk.Alg = "ES256"
		jwk.X = base64.RawURLEncoding.EncodeToString(pub.X.Bytes())
		jwk.Y = base64.RawURLEncoding.EncodeToString(pub.Y.Bytes())

	default:
		return nil, gwcrypto.ErrInvalidKeyType
	}

	return json.Marshal(jwk)
}

// jwkImporter implements KeyImporter for JWK format.
type jwkImporter struct{}

// NewJWKImporter creates a new JWK importer.
func NewJWKImporter() gwcrypto.KeyImporter {
	return &jwkImporter{}
}

// Import imports a key pair, including private material, from JWK format.
func (i *jwkImporter) Import(data []byte, format gwcrypto.KeyFormat) (gwcrypto.KeyPair, error) {
	if format != gwcrypto.KeyFormatJWK {
		return nil, gwcrypto.ErrInvalidKeyFormat
	}

	var jwk JWK
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JWK: %w", err)
	}

	switch jwk.Kty {
	case "RSA":
		return i.importRSA(&jwk)
	case "EC":
		if jwk.Crv != "P-256" {
			return nil, fmt.Errorf("unsupported EC curve: %s", jwk.Crv)
		}
		return i.importECDSA(&jwk)
	case "":
		return nil, errors.New("missing key type")
	default:
		return nil, fmt.Errorf("unsupported key type: %s", jwk.Kty)
	}
}

// ImportPublic imports only a public key from JWK format.
func (i *jwkImporter) ImportPublic(data []byte, format gwcrypto.KeyFormat) (stdcrypto.PublicKey, error) {
	if format != gwcrypto.KeyFormatJWK {
		return nil, gwcrypto.ErrInvalidKeyFormat
	}

	var jwk JWK
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JWK: %w", err)
	}

	switch jwk.Kty {
	case "RSA":
		nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
		if err != nil {
			return nil, err
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}, nil

	case "EC":
		if jwk.Crv != "P-256" {
			return nil, fmt.Errorf("unsupported EC curve: %s", jwk.Crv)
		}
		xBytes, err := base64.RawURLEncoding.DecodeString(jwk.X)
		if err != nil {
			return nil, fmt.Errorf("failed to decode X coordinate: %w", err)
		}
		yBytes, err := base64.RawURLEncoding.DecodeString(jwk.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to decode Y coordinate: %w", err)
		}
		return &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(xBytes),
			Y:     new(big.Int).SetBytes(yBytes),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported key type: %s", jwk.Kty)
	}
}

func (i *jwkImporter) importRSA(jwk *JWK) (gwcrypto.KeyPair, error) {
	if jwk.D == "" {
		return nil, errors.New("missing private key component")
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, err
	}
	dBytes, err := base64.RawURLEncoding.DecodeString(jwk.D)
	if err != nil {
		return nil, err
	}
	priv := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		},
		D: new(big.Int).SetBytes(dBytes),
	}
	return keys.NewRSAKeyPair(priv, jwk.Kid)
}

func (i *jwkImporter) importECDSA(jwk *JWK) (gwcrypto.KeyPair, error) {
	if jwk.D == "" {
		return nil, errors.New("missing private key component")
	}
	xBytes, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, err
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, err
	}
	dBytes, err := base64.RawURLEncoding.DecodeString(jwk.D)
	if err != nil {
		return nil, err
	}
	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(xBytes),
			Y:     new(big.Int).SetBytes(yBytes),
		},
		D: new(big.Int).SetBytes(dBytes),
	}
	return keys.NewECDSAKeyPair(priv, jwk.Kid)
}

// Thumbprint generates a kid from the RFC 7638 JWK thumbprint
// algorithm, a stable fingerprint of a public key. The peer directory
// is keyed by relay peer id, not by this value.
func (jwk JWK) Thumbprint() (string, error) {
	m := map[string]string{"kty": jwk.Kty}
	if jwk.Crv != "" {
		m["crv"] = jwk.Crv
	}
	if jwk.N != "" {
		m["n"] = jwk.N
	}
	if jwk.E != "" {
		m["e"] = jwk.E
	}
	if jwk.X != "" {
		m["x"] = jwk.X
	}
	if jwk.Y != "" {
		m["y"] = jwk.Y
	}

	fieldNames := make([]string, 0, len(m))
	for k := range m {
		fieldNames = append(fieldNames, k)
	}
	sort.Strings(fieldNames)

	buf := []byte{'{'}
	for idx, k := range fieldNames {
		if idx > 0 {
			buf = append(buf, ',')
		}
		valueJSON, err := json.Marshal(m[k])
		if err != nil {
			return "", fmt.Errorf("failed to marshal JWK thumbprint value: %w", err)
		}
		buf = append(buf, fmt.Sprintf("%q:%s", k, valueJSON)...)
	}
	buf = append(buf, '}')

	sum := sha256.Sum256(buf)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
