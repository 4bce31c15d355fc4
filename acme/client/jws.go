// Package client builds the JWS-wrapped ACME requests this enrollment flow
// exchanges with the server (new-account, new-order, authorization,
// challenge, order poll, finalize, certificate), built on go-jose/v4
// and this module's acme.NoncePool.
package client

import (
	"crypto"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/wireapp/e2eident/jwt"
)

// allowedAlgorithms restricts ParseSigned to the three algorithms this
// module signs with (jwt.Ed25519, jwt.ES256, jwt.ES384).
var allowedAlgorithms = []jose.SignatureAlgorithm{jose.EdDSA, jose.ES256, jose.ES384}

// SigningOptions controls how Sign builds a JWS-wrapped ACME request body.
// Every ACME request's protected header is {alg, nonce, url, jwk|kid};
// EmbedKey/KeyID select which of jwk or kid is present, matching RFC 8555
// §6.2's rule that only the very first newAccount request may embed a JWK.
type SigningOptions struct {
	// EmbedKey, if true, embeds the Signer's public key as a "jwk" header
	// instead of a "kid" header. Mutually exclusive with KeyID.
	EmbedKey bool
	// KeyID is the ACME account URL used as the "kid" header when EmbedKey
	// is false.
	KeyID string
	// Signer signs the request; its key type determines "alg".
	Signer crypto.Signer
	// NonceSource supplies the "nonce" header, normally an *acme.NoncePool.
	NonceSource jose.NonceSource
}

// validate enforces the mutually exclusive KeyID/EmbedKey options and
// ensures the Signer and NonceSource are populated.
func (opts *SigningOptions) validate() error {
	if opts.KeyID != "" && opts.EmbedKey {
		return fmt.Errorf("client: SigningOptions: cannot specify both KeyID and EmbedKey")
	}
	if opts.KeyID == "" && !opts.EmbedKey {
		return fmt.Errorf("client: SigningOptions: you must specify a KeyID or EmbedKey")
	}
	if opts.NonceSource == nil {
		return fmt.Errorf("client: SigningOptions: you must specify a NonceSource")
	}
	if opts.Signer == nil {
		return fmt.Errorf("client: SigningOptions: you must specify a Signer")
	}
	return nil
}

// SignResult holds the input and output of a Sign call.
type SignResult struct {
	InputURL      string
	InputData     []byte
	JWS           *jose.JSONWebSignature
	SerializedJWS []byte
}

// Sign produces the JWS-wrapped body of an ACME request for url, per
// RFC 8555 §6.2.
func Sign(url string, data []byte, opts SigningOptions) (*SignResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.EmbedKey {
		return signEmbedded(url, data, opts)
	}
	return signKeyID(url, data, opts)
}

func signEmbedded(url string, data []byte, opts SigningOptions) (*SignResult, error) {
	signingKey, err := jwt.SigningKey(opts.Signer, "")
	if err != nil {
		return nil, err
	}
	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{
		NonceSource: opts.NonceSource,
		EmbedJWK:    true,
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	})
	if err != nil {
		return nil, err
	}
	return sign(signer, url, data)
}

func signKeyID(url string, data []byte, opts SigningOptions) (*SignResult, error) {
	if opts.KeyID == "" {
		return nil, fmt.Errorf("client: signKeyID: empty KeyID")
	}
	signingKey, err := jwt.SigningKey(opts.Signer, opts.KeyID)
	if err != nil {
		return nil, err
	}
	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{
		NonceSource: opts.NonceSource,
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	})
	if err != nil {
		return nil, err
	}
	return sign(signer, url, data)
}

func sign(signer jose.Signer, url string, data []byte) (*SignResult, error) {
	signed, err := signer.Sign(data)
	if err != nil {
		return nil, err
	}
	serialized := []byte(signed.FullSerialize())

	// Reparse the serialized body to get a fully populated JWS object for
	// callers that want to inspect headers (e.g. the Replay-Nonce used).
	parsedJWS, err := jose.ParseSigned(string(serialized), allowedAlgorithms)
	if err != nil {
		return nil, err
	}

	return &SignResult{
		InputURL:      url,
		InputData:     data,
		JWS:           parsedJWS,
		SerializedJWS: serialized,
	}, nil
}
