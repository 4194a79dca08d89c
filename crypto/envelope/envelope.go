// Package envelope implements the hybrid public-key encryption scheme
// used bidirectionally between a user device and its instance. A fresh
// AES-GCM key encrypts the payload; that key is RSA-OAEP-wrapped under
// the recipient's encryption public key; the whole thing is signed
// (encrypt-then-sign) with the sender's ECDSA identity key so the exact
// ciphertext — not just the plaintext — is bound to the sender.
//
// Grounded on crypto/formats/jwk.go's JWK (de)serialization idioms for
// the payload-wrapped key material and on the teacher's functional
// options used elsewhere in the pack (pkg/agent/session/session.go) for
// tunables like WithDisableTimestampCheck.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	gwcrypto "github.com/gladysassistant/gateway-client/crypto"
	"github.com/gladysassistant/gateway-client/errs"
	"github.com/gladysassistant/gateway-client/internal/metrics"
)

// DefaultStaleness is the freshness window applied unless a caller opts
// out via WithDisableTimestampCheck.
const DefaultStaleness = 120 * time.Second

const symKeySize = 32 // AES-256
const ivSize = 12     // AES-GCM nonce

// Envelope is the wire format of an encrypted, signed message.
type Envelope struct {
	Nonce         string `json:"nonce"`
	Ciphertext    string `json:"ciphertext"`
	WrappedSymKey string `json:"wrappedSymKey"`
	Signature     string `json:"signature"`
	SentAt        int64  `json:"sentAt"` // client clock, milliseconds since epoch
}

type options struct {
	disableTimestampCheck bool
	staleness             time.Duration
}

// Option configures Decrypt's freshness check.
type Option func(*options)

// WithDisableTimestampCheck skips the staleness check entirely, for
// callers that legitimately decrypt stored data — e.g. a backup key
// encrypted months earlier — where sentAt is not a freshness signal.
func WithDisableTimestampCheck() Option {
	return func(o *options) { o.disableTimestampCheck = true }
}

// WithStaleness overrides DefaultStaleness.
func WithStaleness(d time.Duration) Option {
	return func(o *options) { o.staleness = d }
}

func resolveOptions(opts []Option) options {
	o := options{staleness: DefaultStaleness}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// nowFunc is overridable in tests to construct a stale envelope
// deterministically.
var nowFunc = time.Now

// sentAtBytes renders sentAt the same way on encrypt and decrypt so the
// signature covers an unambiguous byte representation.
func sentAtBytes(sentAt int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(sentAt))
	return buf
}

// Encrypt builds an Envelope for payload, addressed to recipientRSAPub
// and signed by senderECDSAPriv.
func Encrypt(recipientRSAPub gwcrypto.KeyPair, senderECDSAPriv gwcrypto.KeyPair, payload any) (*Envelope, error) {
	start := time.Now()
	env, err := encrypt(recipientRSAPub, senderECDSAPriv, payload)
	metrics.EnvelopeOperationDuration.WithLabelValues("encrypt").Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.EnvelopeOperations.WithLabelValues("encrypt", status).Inc()
	return env, err
}

func encrypt(recipientRSAPub gwcrypto.KeyPair, senderECDSAPriv gwcrypto.KeyPair, payload any) (*Envelope, error) {
	pub, ok := recipientRSAPub.PublicKey().(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("envelope: recipient key is not an RSA public key")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("envelope: marshal payload: %w", err)
	}

	symKey := make([]byte, symKeySize)
	if _, err := rand.Read(symKey); err != nil {
		return nil, fmt.Errorf("envelope: generate symmetric key: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("envelope: generate iv: %w", err)
	}

	block, err := aes.NewCipher(symKey)
	if err != nil {
		return nil, fmt.Errorf("envelope: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: new gcm: %w", err)
	}
	ciphertext := gcm.Seal(nil, iv, payloadBytes, nil)

	wrappedSymKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, symKey, nil)
	if err != nil {
		return nil, fmt.Errorf("envelope: wrap symmetric key: %w", err)
	}

	sentAt := nowFunc().UnixMilli()

	signed := make([]byte, 0, len(iv)+len(ciphertext)+8)
	signed = append(signed, iv...)
	signed = append(signed, ciphertext...)
	signed = append(signed, sentAtBytes(sentAt)...)

	signature, err := senderECDSAPriv.Sign(signed)
	if err != nil {
		return nil, fmt.Errorf("envelope: sign: %w", err)
	}

	return &Envelope{
		Nonce:         hex.EncodeToString(iv),
		Ciphertext:    hex.EncodeToString(ciphertext),
		WrappedSymKey: hex.EncodeToString(wrappedSymKey),
		Signature:     hex.EncodeToString(signature),
		SentAt:        sentAt,
	}, nil
}

// Decrypt verifies and opens env, addressed to selfRSAPriv and signed
// by senderECDSAPub, per spec §4.3 steps 1-5.
func Decrypt(selfRSAPriv gwcrypto.KeyPair, senderECDSAPub gwcrypto.KeyPair, env *Envelope, opts ...Option) ([]byte, error) {
	start := time.Now()
	payload, err := decrypt(selfRSAPriv, senderECDSAPub, env, opts...)
	metrics.EnvelopeOperationDuration.WithLabelValues("decrypt").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EnvelopeOperations.WithLabelValues("decrypt", "failure").Inc()
		switch err {
		case errs.ErrBadSignature:
			metrics.EnvelopeRejections.WithLabelValues("bad_signature").Inc()
		case errs.ErrTampered:
			metrics.EnvelopeRejections.WithLabelValues("tampered").Inc()
		case errs.ErrStaleEnvelope:
			metrics.EnvelopeRejections.WithLabelValues("stale").Inc()
		}
		return nil, err
	}
	metrics.EnvelopeOperations.WithLabelValues("decrypt", "success").Inc()
	return payload, nil
}

func decrypt(selfRSAPriv gwcrypto.KeyPair, senderECDSAPub gwcrypto.KeyPair, env *Envelope, opts ...Option) ([]byte, error) {
	o := resolveOptions(opts)

	iv, err := hex.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("envelope: decode nonce: %w", err)
	}
	ciphertext, err := hex.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("envelope: decode ciphertext: %w", err)
	}
	wrappedSymKey, err := hex.DecodeString(env.WrappedSymKey)
	if err != nil {
		return nil, fmt.Errorf("envelope: decode wrapped key: %w", err)
	}
	signature, err := hex.DecodeString(env.Signature)
	if err != nil {
		return nil, fmt.Errorf("envelope: decode signature: %w", err)
	}

	signed := make([]byte, 0, len(iv)+len(ciphertext)+8)
	signed = append(signed, iv...)
	signed = append(signed, ciphertext...)
	signed = append(signed, sentAtBytes(env.SentAt)...)

	if err := senderECDSAPub.Verify(signed, signature); err != nil {
		return nil, errs.ErrBadSignature
	}

	if !o.disableTimestampCheck {
		sentAt := time.UnixMilli(env.SentAt)
		age := nowFunc().Sub(sentAt)
		if age < 0 {
			age = -age
		}
		if age > o.staleness {
			return nil, errs.ErrStaleEnvelope
		}
	}

	priv, ok := selfRSAPriv.PrivateKey().(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("envelope: self key is not an RSA private key")
	}
	symKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrappedSymKey, nil)
	if err != nil {
		return nil, fmt.Errorf("envelope: unwrap symmetric key: %w", err)
	}

	block, err := aes.NewCipher(symKey)
	if err != nil {
		return nil, fmt.Errorf("envelope: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: new gcm: %w", err)
	}
	payloadBytes, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, errs.ErrTampered
	}

	return payloadBytes, nil
}

// DecryptInto decrypts env and unmarshals the JSON payload into out.
func DecryptInto(selfRSAPriv gwcrypto.KeyPair, senderECDSAPub gwcrypto.KeyPair, env *Envelope, out any, opts ...Option) error {
	payload, err := Decrypt(selfRSAPriv, senderECDSAPub, env, opts...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("envelope: unmarshal payload: %w", err)
	}
	return nil
}
