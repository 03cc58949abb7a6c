// Package card implements the PIV card handler described in spec.md
// section 4.5: the APDU-in, APDU-out state machine covering SELECT,
// VERIFY, GET DATA, GENERAL AUTHENTICATE, and GET RESPONSE, plus command
// and response chaining.
//
// Grounded on the teacher's piv/pcsc_interface.go interface-per-concern
// style (ClientInterface/SCTx/SCHandle/SCContext wrapping real PC/SC
// calls behind swappable interfaces for testing) and piv/key.go's
// RSA public-key handling, inverted here from "client calling a real
// card" to "server emulating one": RNG and RSA become pluggable so tests
// can supply deterministic randomness and verify signing without needing
// Transmit/pcsc at all.
package card

import (
	"crypto/rand"
	"crypto/rsa"
	"io"
	"math/big"

	"github.com/go-pivert/pivert/pivlog"
)

// RNG is the pluggable randomness source used for GUID/CardID generation
// and any other card-side random fill. The default Config uses
// crypto/rand.Reader; tests can substitute a deterministic source.
type RNG interface {
	Read(p []byte) (n int, err error)
}

// Signer performs the raw (unpadded) RSA modular exponentiation spec.md
// section 4.5 requires for GENERAL AUTHENTICATE: signature = data^D mod N,
// with no PKCS#1 padding applied by the card. Real PIV cards never
// pad-and-hash on-card; the caller has already built the padded digest
// before asking the card to sign.
type Signer interface {
	// SignRaw returns data^D mod N as a fixed-width, N-sized big-endian
	// byte string, zero-padded on the left.
	SignRaw(data []byte) ([]byte, error)
}

// rsaSigner is the default Signer, wrapping a *rsa.PrivateKey and raising
// the data to the private exponent D modulo N directly (the CRT
// parameters are not used), without crypto/rsa's padding/hashing layers,
// since PIV GENERAL AUTHENTICATE operates on already-padded
// caller-supplied data.
type rsaSigner struct {
	key *rsa.PrivateKey
}

// NewRSASigner returns a Signer backed by key, performing literal modular
// exponentiation (no ASN.1, no padding, no hash oracle defenses) since the
// card is not expected to validate the shape of what it's asked to sign.
func NewRSASigner(key *rsa.PrivateKey) Signer {
	return &rsaSigner{key: key}
}

func (s *rsaSigner) SignRaw(data []byte) ([]byte, error) {
	n := s.key.N
	m := new(big.Int).SetBytes(data)
	if m.Cmp(n) >= 0 {
		return nil, errDataTooLarge
	}
	c := new(big.Int).Exp(m, s.key.D, n)

	size := (n.BitLen() + 7) / 8
	out := make([]byte, size)
	c.FillBytes(out)
	return out, nil
}

// Config bundles the pluggable dependencies a Card needs beyond the
// operator-supplied certificate and key: randomness for CHUID/CCC
// generation, the signer used for GENERAL AUTHENTICATE, and the logger
// ProcessAPDU emits debug/error messages to. spec.md section 7 permits
// suppressing the unknown-INS/unknown-data-object log messages; a nil
// Logger does exactly that via pivlog.Nop.
type Config struct {
	RNG    RNG
	Signer Signer
	Logger pivlog.Logger
}

// DefaultRNG returns the RNG a production Card should use absent an
// explicit override: crypto/rand.Reader.
func DefaultRNG() RNG {
	return rand.Reader
}

var _ io.Reader = rand.Reader
