package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// Algorithm is the restricted set of signature algorithms this module
// accepts: Ed25519, ES256, ES384. Any other alg is rejected at the
// header-check stage of verification.
type Algorithm string

const (
	Ed25519 Algorithm = "EdDSA"
	ES256   Algorithm = "ES256"
	ES384   Algorithm = "ES384"
)

func (a Algorithm) joseAlg() jose.SignatureAlgorithm {
	return jose.SignatureAlgorithm(a)
}

func (a Algorithm) valid() bool {
	switch a {
	case Ed25519, ES256, ES384:
		return true
	}
	return false
}

// AlgorithmForSigner infers the Algorithm from a crypto.Signer's public key
// type.
func AlgorithmForSigner(signer crypto.Signer) (Algorithm, error) {
	switch pub := signer.Public().(type) {
	case ed25519.PublicKey:
		return Ed25519, nil
	case *ecdsa.PublicKey:
		switch pub.Curve.Params().BitSize {
		case 256:
			return ES256, nil
		case 384:
			return ES384, nil
		}
		return "", fmt.Errorf("jwt: unsupported ECDSA curve bit size %d", pub.Curve.Params().BitSize)
	default:
		return "", fmt.Errorf("jwt: unsupported signer type %T", signer)
	}
}

// JWK returns the public JWK for a signer, suitable for embedding in a DPoP
// header or for verifying a token's embedded jwk header.
func JWK(signer crypto.Signer, keyID string) (jose.JSONWebKey, error) {
	alg, err := AlgorithmForSigner(signer)
	if err != nil {
		return jose.JSONWebKey{}, err
	}
	return jose.JSONWebKey{
		Key:       signer.Public(),
		KeyID:     keyID,
		Algorithm: string(alg),
	}, nil
}

// SigningKey returns the go-jose SigningKey used to construct a jose.Signer
// for the given crypto.Signer.
func SigningKey(signer crypto.Signer, keyID string) (jose.SigningKey, error) {
	alg, err := AlgorithmForSigner(signer)
	if err != nil {
		return jose.SigningKey{}, err
	}
	jwk := jose.JSONWebKey{
		Key:       signer,
		KeyID:     keyID,
		Algorithm: string(alg),
	}
	return jose.SigningKey{Key: jwk, Algorithm: alg.joseAlg()}, nil
}

// Thumbprint computes the RFC 7638 JWK thumbprint of a signer's public key,
// base64url encoded. go-jose performs the canonical (crv, kty, x, y) member
// ordering internally; no hand-written canonical JSON is needed.
func Thumbprint(signer crypto.Signer) (string, error) {
	jwk, err := JWK(signer, "")
	if err != nil {
		return "", err
	}
	sum, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("jwt: thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sum), nil
}

// KeyAuth builds the ACME key authorization: "{token}.{thumbprint}".
func KeyAuth(signer crypto.Signer, token string) (string, error) {
	thumb, err := Thumbprint(signer)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", token, thumb), nil
}
