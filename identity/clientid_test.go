package identity_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wireapp/e2eident/identity"
)

func TestClientIdURIRoundTrip(t *testing.T) {
	id, err := identity.NewClientId(uuid.New(), 0xA1B2C3D4, "wire.example.com")
	require.NoError(t, err)

	uri := id.ToURI()
	require.Regexp(t, `^wireapp://[A-Za-z0-9_-]+!a1b2c3d4@wire\.example\.com$`, uri)

	parsed, err := identity.ParseClientId(uri)
	require.NoError(t, err)
	require.True(t, id.Equal(parsed))
}

func TestClientIdDomainLowercased(t *testing.T) {
	id, err := identity.NewClientId(uuid.New(), 1, "WIRE.EXAMPLE.COM")
	require.NoError(t, err)
	require.Equal(t, "wire.example.com", id.Domain)
}

func TestClientIdRejectsEmptyDomain(t *testing.T) {
	_, err := identity.NewClientId(uuid.New(), 1, "   ")
	require.Error(t, err)
}

func TestClientIdRejectsInvalidDomain(t *testing.T) {
	_, err := identity.NewClientId(uuid.New(), 1, "not a domain!")
	require.Error(t, err)
}

func TestParseClientIdRejectsMissingPrefix(t *testing.T) {
	_, err := identity.ParseClientId("https://example.com")
	require.Error(t, err)
}

func TestParseClientIdRejectsMissingSeparators(t *testing.T) {
	_, err := identity.ParseClientId("wireapp://dGVzdA@example.com")
	require.Error(t, err)

	_, err = identity.ParseClientId("wireapp://dGVzdA!1f")
	require.Error(t, err)
}

func TestClientIdEqualIgnoresDomainCase(t *testing.T) {
	userID := uuid.New()
	a, err := identity.NewClientId(userID, 7, "wire.example.com")
	require.NoError(t, err)
	b, err := identity.NewClientId(userID, 7, "WIRE.EXAMPLE.COM")
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}
