// Package credential loads the operator-supplied PKCS#12 bundle (spec.md
// section 6: "the operator provides a PKCS#12 bundle (certificate +
// private key)") into the certificate and RSA key the card handler needs.
//
// This is an external-collaborator concern per spec.md section 1's scope
// table, not part of the protocol core, but still needs a real bundle
// parser. Grounded on the teacher's own piv-ssh-agent go.mod, which
// carries golang.org/x/crypto as a direct dependency of the teacher's
// module tree.
package credential

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"golang.org/x/crypto/pkcs12"
)

// Bundle holds the certificate and private key extracted from a PKCS#12
// file, ready to hand to card.NewCard.
type Bundle struct {
	CertDER []byte
	Cert    *x509.Certificate
	Key     *rsa.PrivateKey
}

// LoadBundle decodes the PKCS#12 bundle in raw using password and returns
// its leaf certificate and RSA private key. It fails if the bundle's
// private key is not RSA, since PIV GENERAL AUTHENTICATE signing in this
// emulator is RSA-only.
func LoadBundle(raw []byte, password string) (*Bundle, error) {
	key, cert, err := pkcs12.Decode(raw, password)
	if err != nil {
		return nil, fmt.Errorf("credential: decoding PKCS#12 bundle: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("credential: bundle key is %T, want *rsa.PrivateKey", key)
	}

	return &Bundle{
		CertDER: cert.Raw,
		Cert:    cert,
		Key:     rsaKey,
	}, nil
}
