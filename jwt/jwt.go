package jwt

import (
	"crypto"
	"encoding/json"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

// StandardClaims is embedded by every claims struct this module signs or
// verifies. Protocol-specific claims are added as sibling fields of the
// embedding struct (Go's JSON encoding flattens anonymous struct fields).
type StandardClaims struct {
	Jti   string `json:"jti"`
	Iat   int64  `json:"iat"`
	Nbf   int64  `json:"nbf"`
	Exp   int64  `json:"exp"`
	Sub   string `json:"sub"`
	Aud   string `json:"aud,omitempty"`
	Nonce string `json:"nonce,omitempty"`
	Iss   string `json:"iss,omitempty"`
}

// SignOptions controls how Sign builds the compact JWS.
type SignOptions struct {
	// Signer is the private key used to sign the token.
	Signer crypto.Signer
	// Typ is the JWT header "typ" value (e.g. "dpop+jwt").
	Typ string
	// EmbedJWK, if true, embeds the signer's public key as a "jwk" header
	// instead of a "kid" header.
	EmbedJWK bool
	// KeyID is used as the "kid" header when EmbedJWK is false.
	KeyID string
}

// Sign produces a compact JWS over claims using the algorithm inferred from
// opts.Signer's key type.
func Sign(claims any, opts SignOptions) (string, error) {
	if opts.Signer == nil {
		return "", fmt.Errorf("jwt: Sign: Signer must not be nil")
	}
	signingKey, err := SigningKey(opts.Signer, opts.KeyID)
	if err != nil {
		return "", err
	}

	soOpts := &jose.SignerOptions{EmbedJWK: opts.EmbedJWK}
	if opts.Typ != "" {
		soOpts = soOpts.WithType(jose.ContentType(opts.Typ))
	}

	signer, err := jose.NewSigner(signingKey, soOpts)
	if err != nil {
		return "", fmt.Errorf("jwt: Sign: %w", err)
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("jwt: Sign: marshal claims: %w", err)
	}

	signed, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("jwt: Sign: %w", err)
	}

	return signed.CompactSerialize()
}

// VerifyOptions controls Verify's standard-claims and signature checks.
type VerifyOptions struct {
	// ExpectedTyp, if non-empty, is the required JWT header "typ" value.
	ExpectedTyp string
	// PublicKey verifies the signature with a known key. Mutually exclusive
	// with RequireEmbeddedJWK.
	PublicKey crypto.PublicKey
	// RequireEmbeddedJWK verifies using the JWK embedded in the protected
	// header (DPoP's self-certifying key model) and returns it via
	// VerifyResult.JWK.
	RequireEmbeddedJWK bool
	// ExpectedSub, if non-empty, is the required "sub" claim value.
	ExpectedSub string
	// ExpectedNonce, if non-nil, is the required "nonce" claim value. A nil
	// pointer means no nonce is expected; the "nonce" claim is only
	// required when an expected nonce is configured.
	ExpectedNonce *string
	// MaxExpiration bounds exp - iat.
	MaxExpiration time.Duration
	// Leeway is the clock-skew tolerance applied to nbf/exp/iat checks.
	Leeway time.Duration
	// Now overrides the current time; defaults to time.Now when zero. Used
	// by tests that need deterministic expiry checks.
	Now time.Time
}

// VerifyResult is returned by Verify alongside the deserialized claims.
type VerifyResult struct {
	JWK       *jose.JSONWebKey
	Algorithm Algorithm
}

// Verify checks a compact JWS's header, standard claims, and signature, and
// unmarshals its payload into dest (a pointer to a struct embedding
// StandardClaims). It returns this package's typed *Error taxonomy on any
// token failure; misconfigured opts, or a dest that does not embed
// StandardClaims, yield a plain error.
func Verify(token string, dest any, opts VerifyOptions) (*VerifyResult, error) {
	jws, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{
		jose.SignatureAlgorithm(Ed25519), jose.SignatureAlgorithm(ES256), jose.SignatureAlgorithm(ES384),
	})
	if err != nil {
		return nil, Invalid(err.Error())
	}
	if len(jws.Signatures) != 1 {
		return nil, Invalid("expected exactly one JWS signature")
	}
	header := jws.Signatures[0].Header

	alg := Algorithm(header.Algorithm)
	if !alg.valid() {
		return nil, Invalid(fmt.Sprintf("unsupported alg %q", header.Algorithm))
	}

	if opts.ExpectedTyp != "" {
		typ, _ := header.ExtraHeaders[jose.HeaderKey("typ")].(string)
		if typ != opts.ExpectedTyp {
			return nil, Invalid(fmt.Sprintf("expected typ %q, got %q", opts.ExpectedTyp, typ))
		}
	}

	if opts.RequireEmbeddedJWK && opts.PublicKey != nil {
		return nil, fmt.Errorf("jwt: Verify: RequireEmbeddedJWK and PublicKey are mutually exclusive")
	}

	var verifyKey crypto.PublicKey
	var embeddedJWK *jose.JSONWebKey
	switch {
	case opts.RequireEmbeddedJWK:
		if header.JSONWebKey == nil {
			return nil, ErrInvalidDpopJwk
		}
		embeddedJWK = header.JSONWebKey
		verifyKey = header.JSONWebKey.Key
	case opts.PublicKey != nil:
		verifyKey = opts.PublicKey
	default:
		return nil, fmt.Errorf("jwt: Verify: one of PublicKey or RequireEmbeddedJWK is required")
	}

	payload, err := jws.Verify(verifyKey)
	if err != nil {
		if opts.RequireEmbeddedJWK {
			return nil, ErrInvalidDpopJwk
		}
		return nil, Invalid(err.Error())
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return nil, Invalid(fmt.Sprintf("unmarshal claims: %s", err))
	}

	std, err := extractStandardClaims(dest)
	if err != nil {
		return nil, err
	}

	if err := verifyStandardClaims(std, opts); err != nil {
		return nil, err
	}

	return &VerifyResult{JWK: embeddedJWK, Algorithm: alg}, nil
}

// claimsHolder lets Verify reach into any dest struct that embeds
// StandardClaims without requiring an interface method on every caller's
// claims type.
type claimsHolder interface {
	standardClaims() StandardClaims
}

func (s StandardClaims) standardClaims() StandardClaims { return s }

func extractStandardClaims(dest any) (StandardClaims, error) {
	// dest is always a pointer to a struct embedding StandardClaims. A type
	// assertion to claimsHolder reads the embedded field without
	// reflection: every claims struct in this module implements
	// claimsHolder by embedding StandardClaims (method promotion).
	if holder, ok := dest.(claimsHolder); ok {
		return holder.standardClaims(), nil
	}
	return StandardClaims{}, fmt.Errorf("jwt: dest does not embed StandardClaims")
}

func verifyStandardClaims(std StandardClaims, opts VerifyOptions) error {
	if std.Jti == "" {
		return MissingClaim("jti")
	}
	if std.Iat == 0 {
		return MissingClaim("iat")
	}
	if std.Nbf == 0 {
		return MissingClaim("nbf")
	}
	if std.Exp == 0 {
		return MissingClaim("exp")
	}
	if std.Sub == "" {
		return MissingClaim("sub")
	}
	if opts.ExpectedNonce != nil && std.Nonce == "" {
		return MissingClaim("nonce")
	}

	maxExp := opts.MaxExpiration
	if maxExp > 0 && time.Duration(std.Exp-std.Iat)*time.Second > maxExp {
		return ErrTokenLivesTooLong
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	leeway := opts.Leeway
	nowUnix := now.Unix()

	if std.Nbf > nowUnix+int64(leeway.Seconds()) {
		return ErrDpopNotYetValid
	}
	if std.Exp < nowUnix-int64(leeway.Seconds()) {
		return ErrTokenExpired
	}
	if std.Iat > nowUnix+int64(leeway.Seconds()) {
		return ErrInvalidDpopIat
	}

	if opts.ExpectedSub != "" && std.Sub != opts.ExpectedSub {
		return ErrTokenSubMismatch
	}
	if opts.ExpectedNonce != nil && std.Nonce != *opts.ExpectedNonce {
		return ErrDpopNonceMismatch
	}

	return nil
}
