package acme_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wireapp/e2eident/acme"
)

func TestProblemImplementsError(t *testing.T) {
	p := &acme.Problem{Type: "urn:ietf:params:acme:error:malformed", Status: 400, Detail: "bad request"}
	var err error = p
	require.Contains(t, err.Error(), "malformed")
	require.Contains(t, err.Error(), "400")
	require.Contains(t, err.Error(), "bad request")
}

// rfc8555SampleAuthorization is the worked example from RFC 8555 §7.1.4,
// carrying one extra field ("validated" on the challenge) this package
// does not model — the round trip below only asserts losslessness for
// the fields Authorization/Challenge do recognize.
const rfc8555SampleAuthorization = `{
  "status": "valid",
  "expires": "2015-03-01T14:09:00Z",

  "identifier": {
    "type": "dns",
    "value": "www.example.org"
  },

  "challenges": [
    {
      "url": "https://example.com/acme/chall/prV_B7yEyA4",
      "type": "http-01",
      "status": "valid",
      "token": "DGyRejmCefe7v4NfDGDKfA",
      "validated": "2014-12-01T12:05:58.16Z"
    }
  ],

  "wildcard": false
}`

func TestAuthorizationRoundTripsRFC8555Sample(t *testing.T) {
	var authz acme.Authorization
	require.NoError(t, json.Unmarshal([]byte(rfc8555SampleAuthorization), &authz))

	require.Equal(t, acme.AuthzValid, authz.Status)
	require.Equal(t, time.Date(2015, time.March, 1, 14, 9, 0, 0, time.UTC), authz.Expires.UTC())
	require.Equal(t, acme.Identifier{Type: "dns", Value: "www.example.org"}, authz.Identifier)
	require.False(t, authz.Wildcard)
	require.Len(t, authz.Challenges, 1)
	require.Equal(t, acme.Challenge{
		Type:   "http-01",
		URL:    "https://example.com/acme/chall/prV_B7yEyA4",
		Token:  "DGyRejmCefe7v4NfDGDKfA",
		Status: acme.ChallengeValid,
	}, authz.Challenges[0])

	marshaled, err := json.Marshal(authz)
	require.NoError(t, err)

	var roundTripped acme.Authorization
	require.NoError(t, json.Unmarshal(marshaled, &roundTripped))
	require.Equal(t, authz, roundTripped)
}

func TestOrderRoundTrips(t *testing.T) {
	order := acme.Order{
		Status:         acme.OrderReady,
		Identifiers:    []acme.Identifier{{Type: "wireapp-id", Value: "wireapp://abc@example.com"}},
		Authorizations: []string{"https://example.com/acme/authz/1"},
		Finalize:       "https://example.com/acme/order/1/finalize",
	}

	marshaled, err := json.Marshal(order)
	require.NoError(t, err)

	var roundTripped acme.Order
	require.NoError(t, json.Unmarshal(marshaled, &roundTripped))
	require.Equal(t, order, roundTripped)
}

func TestAccountRoundTrips(t *testing.T) {
	const sample = `{
  "status": "valid",
  "contact": ["mailto:cert-admin@example.org"],
  "orders": "https://example.com/acme/orders/rzGoeA"
}`
	var account acme.Account
	require.NoError(t, json.Unmarshal([]byte(sample), &account))
	require.Equal(t, "valid", account.Status)
	require.Equal(t, []string{"mailto:cert-admin@example.org"}, account.Contact)
	require.Equal(t, "https://example.com/acme/orders/rzGoeA", account.Orders)

	marshaled, err := json.Marshal(account)
	require.NoError(t, err)

	var roundTripped acme.Account
	require.NoError(t, json.Unmarshal(marshaled, &roundTripped))
	require.Equal(t, account, roundTripped)
}
