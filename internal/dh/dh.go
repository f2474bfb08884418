// Package dh implements the Diffie-Hellman key exchange used by the
// DH-SHA1 association session type: the provider and the relying party
// derive a shared integer over an insecure channel, and SHA1 of that
// integer masks the association secret in transit.
//
// Modulus and generator arrive from the peer, so every parameter is
// treated as attacker-controlled: sizes are bounded before any
// exponentiation runs and degenerate peer public values are rejected.
// Exponentiation itself goes through saferith so it runs in constant time
// with respect to the private exponent.
package dh

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
)

const (
	// MaxModulusBits bounds peer-supplied moduli so a single associate
	// request cannot consume unbounded CPU.
	MaxModulusBits = 4096

	// MinModulusBits rejects toy moduli that cannot hide a secret.
	MinModulusBits = 64
)

var (
	ErrModulusTooLarge  = errors.New("dh modulus exceeds maximum size")
	ErrModulusTooSmall  = errors.New("dh modulus below minimum size")
	ErrModulusEven      = errors.New("dh modulus must be odd")
	ErrBadGenerator     = errors.New("dh generator out of range")
	ErrDegeneratePublic = errors.New("dh public value is degenerate")
	ErrNegativeValue    = errors.New("dh value must be non-negative")
)

// DefaultModulus is the modulus the OpenID specification assigns to the
// DH-SHA1 session type when a relying party supplies none of its own.
var DefaultModulus, _ = new(big.Int).SetString(
	"155172898181473697471232257763715539915724801966915404479707795314057"+
		"629378541917580651227423698188993727816152646631438561595825688188889951"+
		"272158842675419950341258706556549803580104870537681476726513255747040765"+
		"857479291291572334510643245094715007229621094194349783925984760375594985"+
		"848253359305585439638443", 10)

// DefaultGen is the generator paired with DefaultModulus.
var DefaultGen = big.NewInt(2)

// KeyExchange is one side of a Diffie-Hellman exchange over (p, g).
type KeyExchange struct {
	p    *big.Int
	g    *big.Int
	priv *big.Int
}

// New validates (p, g) and draws a fresh private exponent.
func New(p, g *big.Int) (*KeyExchange, error) {
	if p.Sign() < 0 || g.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	if p.BitLen() > MaxModulusBits {
		return nil, ErrModulusTooLarge
	}
	if p.BitLen() < MinModulusBits {
		return nil, ErrModulusTooSmall
	}
	if p.Bit(0) == 0 {
		return nil, ErrModulusEven
	}
	if g.Cmp(big.NewInt(2)) < 0 || g.Cmp(p) >= 0 {
		return nil, ErrBadGenerator
	}
	// priv in [1, p-2]
	max := new(big.Int).Sub(p, big.NewInt(2))
	priv, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private exponent: %w", err)
	}
	priv.Add(priv, big.NewInt(1))
	return &KeyExchange{p: p, g: g, priv: priv}, nil
}

// FromBase64 builds a KeyExchange from base64-encoded wire values of
// (p, g).
func FromBase64(p64, g64 string) (*KeyExchange, error) {
	p, err := Base64ToInt(p64)
	if err != nil {
		return nil, fmt.Errorf("invalid dh_modulus: %w", err)
	}
	g, err := Base64ToInt(g64)
	if err != nil {
		return nil, fmt.Errorf("invalid dh_gen: %w", err)
	}
	return New(p, g)
}

// PublicValue derives this side's public value g^priv mod p.
func (kx *KeyExchange) PublicValue() *big.Int {
	return modexp(kx.g, kx.priv, kx.p)
}

// SharedSecret combines the peer's public value with the private exponent.
// Public values of 0, 1, or p-1 fix or leak the shared secret and are
// rejected, as is anything outside [0, p).
func (kx *KeyExchange) SharedSecret(peerPublic *big.Int) (*big.Int, error) {
	if peerPublic.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	if peerPublic.Cmp(kx.p) >= 0 {
		return nil, ErrDegeneratePublic
	}
	one := big.NewInt(1)
	pMinus1 := new(big.Int).Sub(kx.p, one)
	if peerPublic.Sign() == 0 || peerPublic.Cmp(one) == 0 || peerPublic.Cmp(pMinus1) == 0 {
		return nil, ErrDegeneratePublic
	}
	return modexp(peerPublic, kx.priv, kx.p), nil
}

// MaskSecret XOR-masks secret with SHA1 of the shared integer's big-endian
// bytes. Masking is an involution: applying it twice recovers the secret.
// The secret length must equal the SHA1 digest size.
func MaskSecret(secret []byte, shared *big.Int) ([]byte, error) {
	if len(secret) != sha1.Size {
		return nil, fmt.Errorf("secret must be %d bytes, got %d", sha1.Size, len(secret))
	}
	mask := sha1.Sum(btwoc(shared))
	out := make([]byte, len(secret))
	for i := range secret {
		out[i] = secret[i] ^ mask[i]
	}
	return out, nil
}

// Base64ToInt decodes a base64-encoded big-endian two's complement
// integer. The protocol only transports non-negative values.
func Base64ToInt(s string) (*big.Int, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("empty integer encoding")
	}
	if raw[0]&0x80 != 0 {
		return nil, ErrNegativeValue
	}
	return new(big.Int).SetBytes(raw), nil
}

// IntToBase64 encodes a non-negative integer as base64 of its big-endian
// two's complement bytes.
func IntToBase64(n *big.Int) string {
	return base64.StdEncoding.EncodeToString(btwoc(n))
}

// btwoc returns the shortest big-endian two's complement encoding of a
// non-negative integer.
func btwoc(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) == 0 || b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return b
}

// modexp computes base^exp mod mod in constant time with respect to exp.
func modexp(base, exp, mod *big.Int) *big.Int {
	var b, e saferith.Nat
	b.SetBytes(base.Bytes())
	e.SetBytes(exp.Bytes())
	m := saferith.ModulusFromBytes(mod.Bytes())
	var out saferith.Nat
	out.Exp(&b, &e, m)
	return out.Big()
}
