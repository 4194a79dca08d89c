// Package srptest implements the relay side of SRP-6a for tests only:
// a simulated server that never has the password, just the salt and
// verifier, mirroring what the real Gladys Gateway relay stores (spec
// §3 SrpCredentials). Nothing in the shipped client imports this
// package; it exists so crypto/srp and auth can be exercised end to end
// without a live relay.
package srptest

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/gladysassistant/gateway-client/crypto/srp"
)

// Server holds one simulated login challenge's state.
type Server struct {
	group    srp.Group
	verifier *big.Int
	b        *big.Int
	B        *big.Int // public ephemeral
}

// NewServer creates a simulated relay holding only the verifier derived
// at signup (never the password).
func NewServer(group srp.Group, verifier *big.Int) (*Server, error) {
	b, err := rand.Prime(rand.Reader, 256)
	if err != nil {
		return nil, fmt.Errorf("srptest: generate ephemeral: %w", err)
	}
	k := h(group, group.N, group.G)
	gb := new(big.Int).Exp(group.G, b, group.N)
	kv := new(big.Int).Mul(k, verifier)
	B := new(big.Int).Mod(new(big.Int).Add(kv, gb), group.N)

	return &Server{group: group, verifier: verifier, b: b, B: B}, nil
}

// PublicEphemeral returns B, the value sent to the client in round 2.
func (s *Server) PublicEphemeral() *big.Int { return s.B }

// VerifyClientProof checks the client's M against the server's own
// computation of S, returning the M2 counter-proof on success. If
// forceWrongProof is true, a corrupted M2 is returned instead,
// simulating a relay with a forged or stale verifier — used to exercise
// ServerImpersonation detection.
func (s *Server) VerifyClientProof(clientA *big.Int, salt []byte, clientM *big.Int, forceWrongProof bool) (serverM2 *big.Int, ok bool) {
	if new(big.Int).Mod(clientA, s.group.N).Sign() == 0 {
		return nil, false
	}

	u := h(s.group, clientA, s.B)
	// S = (A * v^u) ^ b mod N
	vu := new(big.Int).Exp(s.verifier, u, s.group.N)
	base := new(big.Int).Mod(new(big.Int).Mul(clientA, vu), s.group.N)
	S := new(big.Int).Exp(base, s.b, s.group.N)

	sum := sha256.Sum256(S.Bytes())
	sessionKey := sum[:]

	saltInt := new(big.Int).SetBytes(salt)
	expectedM := keyedHash(sessionKey, clientA, saltInt, s.B)
	if expectedM.Cmp(clientM) != 0 {
		return nil, false
	}

	if forceWrongProof {
		// Return a proof that does not derive from sessionKey, simulating
		// a relay that cannot actually verify a session (forged or stale).
		bogus := sha256.Sum256(append(sessionKey, 0xff))
		return new(big.Int).SetBytes(bogus[:]), true
	}

	m2 := keyedHash(sessionKey, clientA, clientM)
	return m2, true
}

func h(group srp.Group, values ...*big.Int) *big.Int {
	byteLen := (group.N.BitLen() + 7) / 8
	hasher := sha256.New()
	for _, v := range values {
		b := v.Bytes()
		if len(b) < byteLen {
			padded := make([]byte, byteLen)
			copy(padded[byteLen-len(b):], b)
			b = padded
		}
		hasher.Write(b)
	}
	return new(big.Int).SetBytes(hasher.Sum(nil))
}

func keyedHash(key []byte, values ...*big.Int) *big.Int {
	mac := hmac.New(sha256.New, key)
	for _, v := range values {
		mac.Write(v.Bytes())
	}
	return new(big.Int).SetBytes(mac.Sum(nil))
}
