// Package srp implements the client side of the SRP-6a mutual
// password-authenticated key exchange used by spec §4.2's three-round
// login handshake. The relay never learns the password; it stores only
// a verifier it cannot invert.
//
// This is a from-scratch implementation against the documented SRP-6a
// algorithm and RFC 5054 group parameters rather than an import of
// github.com/nsheremet/esrp: the retrieval pack's copy of that module is
// missing its group subpackage and its only concrete Crypto backend is a
// cgo binding, so neither its exact surface nor a non-cgo build is
// verifiable from what's available here. The formula derivations below
// are grounded on _examples/gdwrd-esrp/engine/{engine.go,standard.go}'s
// documented CalcV/CalcA/CalcB/CalcU/CalcClientS/CalcServerS/CalcM/CalcM2
// composition, which in turn follows the public SRP-6a design docs.
package srp

import "math/big"

// Group holds the SRP-6a group parameters: a large safe prime N and a
// generator g.
type Group struct {
	N *big.Int
	G *big.Int
}

// rfc5054N2048Hex is RFC 5054 Appendix A's 2048-bit group prime.
const rfc5054N2048Hex = "" +
	"AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50E8083969EDB767B0CF6095179A163AB3661A05FBD5FAAAE82918A9962F0B93B855F97993EC975EEAA80D740ADBF4FF747359D041D5C33EA71D281E446B14773BCA97B43A23FB801676BD207A436C6481F1D2B9078717461A5B9D32E688F87748544523B524B0D57D5EA77A2775D2ECFA032CFBDBF52FB3786160279004E57AE6AF874E7303CE53299CCC041C7BC308D82A5698F3A8D0C38271AE35F8E9DBFBB694B5C803D89F7AE435DE236D525F54759B65E372FCD68EF20FA7111F9E4AFF73"

// DefaultGroup returns the RFC 5054 2048-bit group, the same group used
// by virtually every production SRP deployment at this bit strength.
func DefaultGroup() Group {
	n, ok := new(big.Int).SetString(rfc5054N2048Hex, 16)
	if !ok {
		panic("srp: invalid RFC5054 group prime")
	}
	return Group{N: n, G: big.NewInt(2)}
}
