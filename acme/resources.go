package acme

import (
	"fmt"
	"time"
)

// Nonce is an opaque, one-shot, base64url-encoded value issued by the ACME
// server and consumed by the next JWS-wrapped request. It is a distinct
// type from dpop.BackendNonce so the two kinds of nonce can never be
// interchanged by a coding mistake.
type Nonce string

// Identifier is a subject identifier an order/authorization is for. This
// flow only uses the "wireapp-id" type; RFC 8555's "dns" type is kept for
// completeness since the Authorization resource below models it too.
type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Problem is an RFC 7807 problem document, as returned by the ACME server
// for any error response.
type Problem struct {
	Type        string    `json:"type,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Status      int       `json:"status,omitempty"`
	Subproblems []Problem `json:"subproblems,omitempty"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("acme: server problem (%s, status %d): %s", p.Type, p.Status, p.Detail)
}

// Directory is the ACME server's directory resource (RFC 8555 §7.1.1): a
// map from well-known operation names to their URLs, plus any metadata.
type Directory struct {
	NewNonce   string         `json:"newNonce"`
	NewAccount string         `json:"newAccount"`
	NewOrder   string         `json:"newOrder"`
	KeyChange  string         `json:"keyChange,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	Raw        map[string]any `json:"-"`
}

// Account is the ACME account resource (RFC 8555 §7.1.2). URL is populated
// from the Location header of the newAccount response and becomes the JWS
// "kid" for every subsequent request this account signs.
type Account struct {
	URL     string   `json:"-"`
	Status  string   `json:"status"`
	Contact []string `json:"contact,omitempty"`
	Orders  string   `json:"orders,omitempty"`
}

// OrderStatus enumerates the legal states of an Order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderReady      OrderStatus = "ready"
	OrderProcessing OrderStatus = "processing"
	OrderValid      OrderStatus = "valid"
	OrderInvalid    OrderStatus = "invalid"
)

// Order is the ACME order resource (RFC 8555 §7.1.3).
type Order struct {
	URL            string       `json:"-"`
	Status         OrderStatus  `json:"status"`
	Identifiers    []Identifier `json:"identifiers"`
	Authorizations []string     `json:"authorizations"`
	Finalize       string       `json:"finalize"`
	Certificate    string       `json:"certificate,omitempty"`
	Error          *Problem     `json:"error,omitempty"`
}

// AuthzStatus enumerates the legal states of an Authorization.
type AuthzStatus string

const (
	AuthzPending     AuthzStatus = "pending"
	AuthzValid       AuthzStatus = "valid"
	AuthzInvalid     AuthzStatus = "invalid"
	AuthzRevoked     AuthzStatus = "revoked"
	AuthzDeactivated AuthzStatus = "deactivated"
	AuthzExpired     AuthzStatus = "expired"
)

// Authorization is the ACME authorization resource (RFC 8555 §7.1.4).
type Authorization struct {
	URL        string      `json:"-"`
	Status     AuthzStatus `json:"status"`
	Expires    time.Time   `json:"expires"`
	Identifier Identifier  `json:"identifier"`
	Challenges []Challenge `json:"challenges"`
	Wildcard   bool        `json:"wildcard,omitempty"`
}

// ChallengeStatus enumerates the legal states of a Challenge.
type ChallengeStatus string

const (
	ChallengePending    ChallengeStatus = "pending"
	ChallengeProcessing ChallengeStatus = "processing"
	ChallengeValid      ChallengeStatus = "valid"
	ChallengeInvalid    ChallengeStatus = "invalid"
)

// ChallengeType names a challenge mechanism; this flow uses the custom
// wire-dpop-01/wire-oidc-01 types defined in constants.go.
type ChallengeType string

// Challenge is the ACME challenge resource (RFC 8555 §7.1.5).
type Challenge struct {
	Type   ChallengeType   `json:"type"`
	URL    string          `json:"url"`
	Token  string          `json:"token"`
	Status ChallengeStatus `json:"status,omitempty"`
	Error  *Problem        `json:"error,omitempty"`
}

// Certificate is the PEM-encoded certificate chain returned by the order's
// certificate URL.
type Certificate struct {
	PEMChain []byte
}
