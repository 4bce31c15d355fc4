package dpop_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wireapp/e2eident/identity"
	"github.com/wireapp/e2eident/internal/testkeys"
	"github.com/wireapp/e2eident/jwt/dpop"
)

func testIdentity(t *testing.T) (identity.ClientId, identity.QualifiedHandle, identity.Team) {
	t.Helper()
	clientID, err := identity.NewClientId(uuid.New(), 1, "wire.example.com")
	require.NoError(t, err)
	handle, err := identity.NewQualifiedHandle("beltram_wire", "wire.example.com")
	require.NoError(t, err)
	return clientID, handle, identity.Team("wire")
}

func TestGenerateVerifyRoundTrip(t *testing.T) {
	clientID, handle, team := testIdentity(t)
	signer := testkeys.NewEd25519()

	token, err := dpop.Generate(dpop.GenerateParams{
		ClientId:  clientID,
		Handle:    handle,
		Team:      team,
		Nonce:     dpop.BackendNonce("backend-nonce-1"),
		Challenge: dpop.ChallengeToken("chall-token-1"),
		Audience:  "https://acme.example/chall/1",
		Htm:       "POST",
		Htu:       "https://acme.example/chall/1",
		Expiry:    5 * time.Minute,
	}, signer)
	require.NoError(t, err)

	claims, err := dpop.Verify(token, dpop.VerifyParams{
		ClientId:          clientID,
		ExpectedChallenge: dpop.ChallengeToken("chall-token-1"),
		ExpectedHandle:    handle,
		ExpectedTeam:      team,
		ExpectedNonce:     dpop.BackendNonce("backend-nonce-1"),
		ExpectedAudience:  "https://acme.example/chall/1",
		MaxExpiration:     time.Hour * 2,
		Leeway:            time.Minute,
	})
	require.NoError(t, err)
	require.Equal(t, "POST", claims.Htm)
	require.Equal(t, "https://acme.example/chall/1", claims.Htu)
}

func TestGenerateExpiryIsNotEatenByBackdatedIat(t *testing.T) {
	// The proof's iat/nbf are backdated by dpop.NowLeewaySeconds to tolerate
	// clock drift, but exp must still be Expiry from the true current time —
	// a verifier using the real clock (no backdating) must see the token as
	// still valid for (close to) the full Expiry window.
	clientID, handle, team := testIdentity(t)
	signer := testkeys.NewEd25519()

	token, err := dpop.Generate(dpop.GenerateParams{
		ClientId:  clientID,
		Handle:    handle,
		Team:      team,
		Nonce:     dpop.BackendNonce("n"),
		Challenge: dpop.ChallengeToken("c"),
		Audience:  "https://acme.example/chall/1",
		Htm:       "POST",
		Htu:       "https://acme.example/chall/1",
		Expiry:    5 * time.Minute,
	}, signer)
	require.NoError(t, err)

	_, err = dpop.Verify(token, dpop.VerifyParams{
		ClientId:          clientID,
		ExpectedChallenge: dpop.ChallengeToken("c"),
		ExpectedHandle:    handle,
		ExpectedTeam:      team,
		ExpectedNonce:     dpop.BackendNonce("n"),
		ExpectedAudience:  "https://acme.example/chall/1",
		MaxExpiration:     time.Hour * 2,
		Now:               time.Now(),
	})
	require.NoError(t, err)
}

func TestVerifyRejectsChallengeMismatch(t *testing.T) {
	clientID, handle, team := testIdentity(t)
	signer := testkeys.NewEd25519()

	token, err := dpop.Generate(dpop.GenerateParams{
		ClientId:  clientID,
		Handle:    handle,
		Team:      team,
		Nonce:     dpop.BackendNonce("n"),
		Challenge: dpop.ChallengeToken("actual-challenge"),
		Audience:  "https://acme.example/chall/1",
		Htm:       "POST",
		Htu:       "https://acme.example/chall/1",
		Expiry:    time.Minute,
	}, signer)
	require.NoError(t, err)

	_, err = dpop.Verify(token, dpop.VerifyParams{
		ClientId:          clientID,
		ExpectedChallenge: dpop.ChallengeToken("different-challenge"),
		ExpectedHandle:    handle,
		ExpectedTeam:      team,
		ExpectedNonce:     dpop.BackendNonce("n"),
		MaxExpiration:     2 * time.Hour,
	})
	require.Error(t, err)
}

func TestVerifyRejectsHandleMismatch(t *testing.T) {
	clientID, handle, team := testIdentity(t)
	otherHandle, err := identity.NewQualifiedHandle("someone_else", "wire.example.com")
	require.NoError(t, err)
	signer := testkeys.NewEd25519()

	token, err := dpop.Generate(dpop.GenerateParams{
		ClientId:  clientID,
		Handle:    handle,
		Team:      team,
		Nonce:     dpop.BackendNonce("n"),
		Challenge: dpop.ChallengeToken("c"),
		Audience:  "https://acme.example/chall/1",
		Htm:       "POST",
		Htu:       "https://acme.example/chall/1",
		Expiry:    time.Minute,
	}, signer)
	require.NoError(t, err)

	_, err = dpop.Verify(token, dpop.VerifyParams{
		ClientId:          clientID,
		ExpectedChallenge: dpop.ChallengeToken("c"),
		ExpectedHandle:    otherHandle,
		ExpectedTeam:      team,
		ExpectedNonce:     dpop.BackendNonce("n"),
		MaxExpiration:     2 * time.Hour,
	})
	require.Error(t, err)
}

func TestVerifyRejectsInsecureHTTPByDefault(t *testing.T) {
	clientID, handle, team := testIdentity(t)
	signer := testkeys.NewEd25519()

	token, err := dpop.Generate(dpop.GenerateParams{
		ClientId:  clientID,
		Handle:    handle,
		Team:      team,
		Nonce:     dpop.BackendNonce("n"),
		Challenge: dpop.ChallengeToken("c"),
		Audience:  "http://acme.example/chall/1",
		Htm:       "POST",
		Htu:       "http://acme.example/chall/1",
		Expiry:    time.Minute,
	}, signer)
	require.NoError(t, err)

	_, err = dpop.Verify(token, dpop.VerifyParams{
		ClientId:          clientID,
		ExpectedChallenge: dpop.ChallengeToken("c"),
		ExpectedHandle:    handle,
		ExpectedTeam:      team,
		ExpectedNonce:     dpop.BackendNonce("n"),
		MaxExpiration:     2 * time.Hour,
	})
	require.Error(t, err)

	_, err = dpop.Verify(token, dpop.VerifyParams{
		ClientId:          clientID,
		ExpectedChallenge: dpop.ChallengeToken("c"),
		ExpectedHandle:    handle,
		ExpectedTeam:      team,
		ExpectedNonce:     dpop.BackendNonce("n"),
		MaxExpiration:     2 * time.Hour,
		AllowInsecureHTTP: true,
	})
	require.NoError(t, err)
}

func TestVerifyRejectsNonceMismatch(t *testing.T) {
	clientID, handle, team := testIdentity(t)
	signer := testkeys.NewEd25519()

	token, err := dpop.Generate(dpop.GenerateParams{
		ClientId:  clientID,
		Handle:    handle,
		Team:      team,
		Nonce:     dpop.BackendNonce("original-nonce"),
		Challenge: dpop.ChallengeToken("c"),
		Audience:  "https://acme.example/chall/1",
		Htm:       "POST",
		Htu:       "https://acme.example/chall/1",
		Expiry:    time.Minute,
	}, signer)
	require.NoError(t, err)

	_, err = dpop.Verify(token, dpop.VerifyParams{
		ClientId:          clientID,
		ExpectedChallenge: dpop.ChallengeToken("c"),
		ExpectedHandle:    handle,
		ExpectedTeam:      team,
		ExpectedNonce:     dpop.BackendNonce("replayed-nonce"),
		MaxExpiration:     2 * time.Hour,
	})
	require.Error(t, err)
}
