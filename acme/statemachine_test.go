package acme_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wireapp/e2eident/acme"
)

func TestParseNewOrderResponseRequiresPending(t *testing.T) {
	require.NoError(t, acme.ParseNewOrderResponse(&acme.Order{Status: acme.OrderPending}))

	err := acme.ParseNewOrderResponse(&acme.Order{Status: acme.OrderReady})
	require.Error(t, err)
}

func TestParseNewAuthzResponse(t *testing.T) {
	require.NoError(t, acme.ParseNewAuthzResponse(&acme.Authorization{Status: acme.AuthzPending}))
	require.ErrorIs(t, acme.ParseNewAuthzResponse(&acme.Authorization{Status: acme.AuthzInvalid}), acme.ErrAuthzInvalid)
	require.ErrorIs(t, acme.ParseNewAuthzResponse(&acme.Authorization{Status: acme.AuthzRevoked}), acme.ErrAuthzRevoked)
	require.ErrorIs(t, acme.ParseNewAuthzResponse(&acme.Authorization{Status: acme.AuthzDeactivated}), acme.ErrAuthzDeactivated)
	require.ErrorIs(t, acme.ParseNewAuthzResponse(&acme.Authorization{Status: acme.AuthzExpired}), acme.ErrAuthzExpired)
	require.Error(t, acme.ParseNewAuthzResponse(&acme.Authorization{Status: acme.AuthzValid}))
}

func TestVerifyAuthzExpiry(t *testing.T) {
	now := time.Now()
	require.NoError(t, acme.VerifyAuthz(&acme.Authorization{Expires: now.Add(time.Hour)}, now))
	require.ErrorIs(t, acme.VerifyAuthz(&acme.Authorization{Expires: now.Add(-time.Hour)}, now), acme.ErrAuthzExpired)
	require.NoError(t, acme.VerifyAuthz(&acme.Authorization{}, now))
}

func TestSelectChallenge(t *testing.T) {
	authz := &acme.Authorization{Challenges: []acme.Challenge{
		{Type: acme.ChallengeTypeWireDpop, URL: "https://acme.example/chall/dpop"},
		{Type: acme.ChallengeTypeWireOidc, URL: "https://acme.example/chall/oidc"},
	}}

	dpopChall, err := acme.SelectChallenge(authz, acme.ChallengeTypeWireDpop)
	require.NoError(t, err)
	require.Equal(t, "https://acme.example/chall/dpop", dpopChall.URL)

	_, err = acme.SelectChallenge(authz, acme.ChallengeTypeHTTP01)
	require.ErrorIs(t, err, acme.ErrOrderNoChallenge)
}

func TestParseChallengeSubmitResponse(t *testing.T) {
	require.NoError(t, acme.ParseChallengeSubmitResponse(&acme.Challenge{Status: acme.ChallengeValid}))
	require.NoError(t, acme.ParseChallengeSubmitResponse(&acme.Challenge{Status: acme.ChallengeProcessing}))
	require.Error(t, acme.ParseChallengeSubmitResponse(&acme.Challenge{Status: acme.ChallengePending}))
	require.ErrorIs(t, acme.ParseChallengeSubmitResponse(&acme.Challenge{Status: acme.ChallengeInvalid}), acme.ErrChallInvalid)
}

func TestRequireReady(t *testing.T) {
	require.NoError(t, acme.RequireReady(&acme.Order{Status: acme.OrderReady}))
	require.ErrorIs(t, acme.RequireReady(&acme.Order{Status: acme.OrderInvalid}), acme.ErrOrderInvalid)
	require.ErrorIs(t, acme.RequireReady(&acme.Order{Status: acme.OrderPending}), acme.ErrChallProcessing)
}

func TestRequireValid(t *testing.T) {
	require.NoError(t, acme.RequireValid(&acme.Order{Status: acme.OrderValid}))
	require.ErrorIs(t, acme.RequireValid(&acme.Order{Status: acme.OrderInvalid}), acme.ErrOrderInvalid)
	require.ErrorIs(t, acme.RequireValid(&acme.Order{Status: acme.OrderProcessing}), acme.ErrChallProcessing)
}

func TestRequireWireAppIdentifier(t *testing.T) {
	require.NoError(t, acme.RequireWireAppIdentifier(acme.Identifier{Type: acme.IdentifierTypeWireApp}))
	require.Error(t, acme.RequireWireAppIdentifier(acme.Identifier{Type: "dns"}))
}
