package srp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// ephemeralBits bounds the random secret ephemeral (a or b); 256 bits
	// of entropy is ample against a 2048-bit group.
	ephemeralBits = 256
	// pbkdf2Iterations matches the KEK derivation in crypto/vault for
	// consistency; spec §4.2 leaves the exact SRP-x KDF parameters
	// unspecified ("PBKDF2(email:password, srpSalt, …)").
	pbkdf2Iterations = 100_000
	xKeyLen          = 32
)

// pad left-pads n's big-endian bytes to byteLen, matching RFC 5054's
// "PAD()" convention so hash inputs have a fixed width regardless of
// leading zero bytes.
func pad(n *big.Int, byteLen int) []byte {
	b := n.Bytes()
	if len(b) >= byteLen {
		return b
	}
	out := make([]byte, byteLen)
	copy(out[byteLen-len(b):], b)
	return out
}

// h is SRP's one-way hash function H(), applied over the concatenation
// of one or more group-padded values.
func h(group Group, values ...*big.Int) *big.Int {
	byteLen := (group.N.BitLen() + 7) / 8
	hasher := sha256.New()
	for _, v := range values {
		hasher.Write(pad(v, byteLen))
	}
	return new(big.Int).SetBytes(hasher.Sum(nil))
}

// keyedHash is the HMAC-SHA256 construction Standard engine uses for M
// and M2 (_examples/gdwrd-esrp/engine/standard.go), keyed on the
// session secret K.
func keyedHash(key []byte, values ...*big.Int) *big.Int {
	mac := hmac.New(sha256.New, key)
	for _, v := range values {
		mac.Write(v.Bytes())
	}
	return new(big.Int).SetBytes(mac.Sum(nil))
}

// multiplier returns SRP-6a's k = H(N, g).
func multiplier(group Group) *big.Int {
	return h(group, group.N, group.G)
}

func modExp(base, exp, mod *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, mod)
}

func randomEphemeral() (*big.Int, error) {
	return rand.Prime(rand.Reader, ephemeralBits)
}

// NormalizeEmail trims surrounding whitespace and lowercases email, so
// signup and login derive identical SRP material regardless of how the
// user typed their address (spec §4.2, testable property 6).
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePassword trims surrounding whitespace from password. Internal
// whitespace is left untouched — only leading/trailing whitespace is a
// normalization hazard a user is likely to introduce by accident.
func NormalizePassword(password string) string {
	return strings.TrimSpace(password)
}

// CalcX derives the SRP private key x = PBKDF2(email:password, salt)
// per spec §3/§4.2. email and password MUST already be normalized
// (NormalizeEmail/NormalizePassword) — signup and login normalize
// identically or login deterministically fails (spec §4.2).
func CalcX(email, password string, salt []byte) *big.Int {
	input := []byte(email + ":" + password)
	derived := pbkdf2.Key(input, salt, pbkdf2Iterations, xKeyLen, sha256.New)
	return new(big.Int).SetBytes(derived)
}

// DeriveVerifier computes the password verifier v = g^x mod N persisted
// by the relay at signup (spec §3 SrpCredentials).
func DeriveVerifier(email, password string, salt []byte, group Group) *big.Int {
	x := CalcX(email, password, salt)
	return modExp(group.G, x, group.N)
}

// ClientHandshake holds one login attempt's ephemeral secret across the
// three-round exchange described in spec §4.2.
type ClientHandshake struct {
	group Group
	a     *big.Int
	A     *big.Int
}

// NewClientHandshake generates a fresh secret ephemeral a and its public
// counterpart A = g^a mod N (spec §4.2 round 2).
func NewClientHandshake(group Group) (*ClientHandshake, error) {
	a, err := randomEphemeral()
	if err != nil {
		return nil, fmt.Errorf("srp: generate ephemeral: %w", err)
	}
	A := modExp(group.G, a, group.N)
	if new(big.Int).Mod(A, group.N).Sign() == 0 {
		return nil, fmt.Errorf("srp: generated A is congruent to 0 mod N, retry")
	}
	return &ClientHandshake{group: group, a: a, A: A}, nil
}

// PublicEphemeral returns A, the value POSTed to the relay in round 2.
func (c *ClientHandshake) PublicEphemeral() *big.Int { return c.A }

// Proof is the result of round 3's client-side computation: the proof
// to send the relay, and the session key used to verify the relay's
// counter-proof.
type Proof struct {
	ClientProof *big.Int
	SessionKey  []byte
}

// ComputeProof computes the client session key S/K and proof M for
// round 3 of spec §4.2, given the server's public ephemeral B and the
// salt returned in round 1.
func (c *ClientHandshake) ComputeProof(email, password string, salt []byte, serverB *big.Int) (*Proof, error) {
	if new(big.Int).Mod(serverB, c.group.N).Sign() == 0 {
		return nil, fmt.Errorf("srp: server B is congruent to 0 mod N, aborting")
	}

	x := CalcX(email, password, salt)
	u := h(c.group, c.A, serverB)
	if u.Sign() == 0 {
		return nil, fmt.Errorf("srp: u is zero, aborting")
	}

	k := multiplier(c.group)
	// S = (B - k*g^x) ^ (a + u*x) mod N
	gx := modExp(c.group.G, x, c.group.N)
	kgx := new(big.Int).Mul(k, gx)
	base := new(big.Int).Sub(serverB, kgx)
	base.Mod(base, c.group.N)
	exp := new(big.Int).Add(c.a, new(big.Int).Mul(u, x))
	S := modExp(base, exp, c.group.N)

	sessionKey := sha256Sum(S)
	saltInt := new(big.Int).SetBytes(salt)
	m := keyedHash(sessionKey, c.A, saltInt, serverB)

	return &Proof{ClientProof: m, SessionKey: sessionKey}, nil
}

// VerifyServerProof checks the relay's M2 counter-proof, authenticating
// the server to the client. Returns false — callers must treat this as
// errs.ErrServerImpersonation — if the relay could not have known the
// verifier (spec §4.2 round 3, testable property 5).
func (c *ClientHandshake) VerifyServerProof(proof *Proof, serverProof *big.Int) bool {
	expected := keyedHash(proof.SessionKey, c.A, proof.ClientProof)
	return expected.Cmp(serverProof) == 0
}

func sha256Sum(n *big.Int) []byte {
	sum := sha256.Sum256(n.Bytes())
	return sum[:]
}
