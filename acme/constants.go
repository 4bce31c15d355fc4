// Package acme provides typed views of the ACME (RFC 8555) wire resources
// this enrollment flow exchanges with the ACME server, plus the state
// machine rules that govern legal status transitions for orders,
// authorizations, and challenges.
package acme

// Directory endpoint keys, per RFC 8555 §7.1.1.
const (
	EndpointNewNonce   = "newNonce"
	EndpointNewAccount = "newAccount"
	EndpointNewOrder   = "newOrder"
	EndpointKeyChange  = "keyChange"
)

// ReplayNonceHeader is the HTTP response header carrying the next nonce to
// use for a JWS-wrapped ACME request, per RFC 8555 §6.5.1.
const ReplayNonceHeader = "Replay-Nonce"

// LocationHeader carries the server-assigned resource URL on creation
// responses (accounts, orders).
const LocationHeader = "Location"

// Custom challenge types this flow understands, in addition to the
// standard RFC 8555 types.
const (
	ChallengeTypeWireDpop ChallengeType = "wire-dpop-01"
	ChallengeTypeWireOidc ChallengeType = "wire-oidc-01"
	ChallengeTypeHTTP01   ChallengeType = "http-01"
	ChallengeTypeDNS01    ChallengeType = "dns-01"
)

// IdentifierTypeWireApp is the non-standard identifier type this flow's
// orders use; its Value is a ClientId URI.
const IdentifierTypeWireApp = "wireapp-id"
