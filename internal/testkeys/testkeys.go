// Package testkeys generates the keypairs this module's tests sign and
// verify tokens with, restricted to the three algorithms the jwt package
// accepts (Ed25519, ECDSA P-256, ECDSA P-384), plus an RSA signer for
// exercising the unsupported-key-type rejection path.
package testkeys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
)

// NewEd25519 generates a fresh Ed25519 signer.
func NewEd25519() crypto.Signer {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("testkeys: generating ed25519 key: %v", err))
	}
	return priv
}

// NewES256 generates a fresh P-256 ECDSA signer.
func NewES256() crypto.Signer {
	return newECDSA(elliptic.P256())
}

// NewES384 generates a fresh P-384 ECDSA signer.
func NewES384() crypto.Signer {
	return newECDSA(elliptic.P384())
}

func newECDSA(curve elliptic.Curve) crypto.Signer {
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("testkeys: generating ecdsa key: %v", err))
	}
	return priv
}

// NewRSAUnsupported generates an RSA signer, used only to exercise the
// "unsupported key type" rejection path: this module never accepts RSA.
func NewRSAUnsupported() crypto.Signer {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(fmt.Sprintf("testkeys: generating rsa key: %v", err))
	}
	return priv
}
