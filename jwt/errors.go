// Package jwt implements the JWS/JWT primitives shared by the DPoP and
// access-token layers: compact signing over go-jose, and a strict verifier
// with a typed error taxonomy in place of ad-hoc string matching.
package jwt

import "fmt"

// Kind enumerates the ways a token can fail verification. Each Kind maps
// 1:1 to a failure reason the caller can react to (retry, surface to the
// user, or treat as a protocol bug), matching the taxonomy a DPoP/OIDC-aware
// ACME flow needs to report precisely.
type Kind string

const (
	KindMissingTokenClaim Kind = "missing_token_claim"
	KindTokenSubMismatch  Kind = "token_sub_mismatch"
	KindDpopNonceMismatch Kind = "dpop_nonce_mismatch"
	KindDpopHtuMismatch   Kind = "dpop_htu_mismatch"
	KindInvalidDpopIat    Kind = "invalid_dpop_iat"
	KindDpopNotYetValid   Kind = "dpop_not_yet_valid"
	KindTokenExpired      Kind = "token_expired"
	KindInvalidDpopJwk    Kind = "invalid_dpop_jwk"
	KindTokenLivesTooLong Kind = "token_lives_too_long"
	KindMissingIssuer     Kind = "missing_issuer"
	KindInvalidToken      Kind = "invalid_token"
)

// Error is the typed error returned by every verification function in this
// module and its dpop/accesstoken sub-packages. Claim is populated only for
// KindMissingTokenClaim. Reason carries the underlying cause for
// KindInvalidToken (e.g. a go-jose signature failure) and is preserved for
// logs but never used for equality checks.
type Error struct {
	Kind   Kind
	Claim  string
	Reason string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingTokenClaim:
		return fmt.Sprintf("jwt: missing claim %q", e.Claim)
	case KindInvalidToken:
		return fmt.Sprintf("jwt: invalid token: %s", e.Reason)
	default:
		return fmt.Sprintf("jwt: %s", e.Kind)
	}
}

// Is supports errors.Is against a bare Kind-only *Error, e.g.
// errors.Is(err, jwt.ErrTokenExpired).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// MissingClaim builds a KindMissingTokenClaim error for the given claim name.
func MissingClaim(name string) *Error {
	return &Error{Kind: KindMissingTokenClaim, Claim: name}
}

// Invalid builds a KindInvalidToken error wrapping a textual reason, used
// when the underlying signature/parse library (go-jose) fails for a reason
// this package does not special-case.
func Invalid(reason string) *Error {
	return &Error{Kind: KindInvalidToken, Reason: reason}
}

// Sentinels for errors.Is comparisons against a specific Kind with no
// claim/reason payload.
var (
	ErrTokenSubMismatch  = &Error{Kind: KindTokenSubMismatch}
	ErrDpopNonceMismatch = &Error{Kind: KindDpopNonceMismatch}
	ErrDpopHtuMismatch   = &Error{Kind: KindDpopHtuMismatch}
	ErrInvalidDpopIat    = &Error{Kind: KindInvalidDpopIat}
	ErrDpopNotYetValid   = &Error{Kind: KindDpopNotYetValid}
	ErrTokenExpired      = &Error{Kind: KindTokenExpired}
	ErrInvalidDpopJwk    = &Error{Kind: KindInvalidDpopJwk}
	ErrTokenLivesTooLong = &Error{Kind: KindTokenLivesTooLong}
	ErrMissingIssuer     = &Error{Kind: KindMissingIssuer}
)
