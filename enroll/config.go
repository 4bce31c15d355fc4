// Package enroll sequences the full client-side enrollment flow: directory
// and nonce bootstrap, account and order creation, authorization and dual
// challenge handling (DPoP and OIDC), finalize, and certificate download.
// It threads the nonce chain, challenge tokens, and CSR through a single
// linear Session, and exposes every stage as a replaceable Steps field so
// tests can mutate one stage in isolation.
package enroll

import "time"

// Config bundles the protocol-level constants this flow's bindings expect.
// The one leeway it does not hold is the fixed 3600-second backdating of a
// DPoP proof's iat/nbf, dpop.NowLeewaySeconds.
type Config struct {
	// AccountContact is the optional contact list for new-account creation.
	AccountContact []string
	// Scope and APIVersion name the backend access token's "scope" and
	// "api_version" claims. The backend mints that token; no default step
	// reads these fields.
	Scope      string
	APIVersion int
	// DisplayName becomes the CSR's Subject CommonName.
	DisplayName string
	// OIDCIssuer is the issuer URL passed to the OIDC provider's discovery
	// step: the authorization server the team has configured for this
	// client.
	OIDCIssuer string
	// DpopExpiry is the lifetime of the client DPoP proof (exp - iat).
	DpopExpiry time.Duration
	// AccessTokenExpiry is the lifetime of the backend-issued access token.
	// The backend sets that lifetime; no default step reads this field.
	AccessTokenExpiry time.Duration
	// MaxTokenLifetime caps the exp-iat of the DPoP proof this session
	// creates (DpopExpiry plus dpop.NowLeewaySeconds): CreateDpopToken fails
	// with jwt.ErrTokenLivesTooLong above it. Zero disables the cap. The
	// backend-issued access token is not checked against it.
	MaxTokenLifetime time.Duration
	// Leeway is the clock-skew tolerance for token time checks
	// (jwt.VerifyOptions.Leeway). The default steps verify no token's time
	// claims and do not read it.
	Leeway time.Duration
	// AllowInsecureHTTP permits "http://" DPoP htu values in
	// dpop.VerifyParams; test mode only. The default steps verify no DPoP
	// proof and do not read it.
	AllowInsecureHTTP bool
	// PollInitialInterval is the first delay between polls of an order
	// left "processing"; it doubles on each retry.
	PollInitialInterval time.Duration
	// PollMaxAttempts bounds how many times an order is re-polled before
	// giving up. Every re-poll is a signed POST-as-GET that consumes one
	// nonce.
	PollMaxAttempts int
}

// DefaultConfig returns sane defaults: a 5-minute DPoP proof expiry (the
// proof's iat is further backdated by dpop.NowLeewaySeconds), a 24-hour
// token lifetime cap, and a 360-second leeway.
func DefaultConfig() Config {
	return Config{
		Scope:               "wire_client_id",
		APIVersion:          5,
		DpopExpiry:          5 * time.Minute,
		AccessTokenExpiry:   5 * time.Minute,
		MaxTokenLifetime:    24 * time.Hour,
		Leeway:              360 * time.Second,
		PollInitialInterval: 500 * time.Millisecond,
		PollMaxAttempts:     6,
	}
}
