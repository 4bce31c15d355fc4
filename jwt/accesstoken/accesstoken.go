// Package accesstoken constructs and verifies the backend-issued access
// token: a JWT that wraps the client's DPoP proof, binds its confirmation
// key to the ACME account key, and is re-verified by the ACME server when
// the client submits the wire-dpop-01 challenge.
package accesstoken

import (
	"crypto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wireapp/e2eident/identity"
	"github.com/wireapp/e2eident/jwt/dpop"

	wjwt "github.com/wireapp/e2eident/jwt"
)

// Cnf is the "cnf" (confirmation) claim: the JWK thumbprint of the ACME
// account key that the backend has bound this access token to.
type Cnf struct {
	Kid string `json:"kid"`
}

// Claims is the access-token JWT payload.
type Claims struct {
	wjwt.StandardClaims
	Cnf        Cnf    `json:"cnf"`
	Proof      string `json:"proof"`
	APIVersion int    `json:"api_version"`
	ClientID   string `json:"client_id"`
	Scope      string `json:"scope"`
	Handle     string `json:"handle"`
	Team       string `json:"team"`
	Chal       string `json:"chal"`
	Htm        string `json:"htm"`
}

// GenerateParams bundles the inputs the backend uses to mint an access
// token wrapping a client's DPoP proof. This package implements Generate
// so construction and verification can be exercised against each other
// client-side, without a live backend.
type GenerateParams struct {
	ClientId   identity.ClientId
	Handle     identity.QualifiedHandle
	Team       identity.Team
	Scope      string
	APIVersion int
	Challenge  dpop.ChallengeToken
	Nonce      dpop.BackendNonce
	DpopProof  string
	IssuerHtu  string // backend base URL; becomes "iss" here and must equal the DPoP proof's "htu"
	Htm        string
	Expiry     time.Duration
	// AcmeAccountKey is the client's ACME account key the backend binds this
	// token to: its JWK thumbprint becomes the "cnf.kid" claim, which Verify
	// cross-checks against the same key from the ACME-server's side.
	AcmeAccountKey crypto.Signer
}

// Generate signs an access token with the backend's signing key.
func Generate(p GenerateParams, backendSigner crypto.Signer) (string, error) {
	thumb, err := wjwt.Thumbprint(p.AcmeAccountKey)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		StandardClaims: wjwt.StandardClaims{
			Jti:   uuid.NewString(),
			Iat:   now.Unix(),
			Nbf:   now.Unix(),
			Exp:   now.Add(p.Expiry).Unix(),
			Sub:   p.ClientId.ToURI(),
			Iss:   p.IssuerHtu,
			Nonce: string(p.Nonce),
		},
		Cnf:        Cnf{Kid: thumb},
		Proof:      p.DpopProof,
		APIVersion: p.APIVersion,
		ClientID:   p.ClientId.ToURI(),
		Scope:      p.Scope,
		Handle:     p.Handle.URI(),
		Team:       string(p.Team),
		Chal:       string(p.Challenge),
		Htm:        p.Htm,
	}

	return wjwt.Sign(claims, wjwt.SignOptions{Signer: backendSigner})
}

// VerifyParams bundles the ACME-server-perspective checks: the access
// token must have been issued for the same ClientId, the same challenge,
// bound to the same ACME account key (cnf.kid), and it must wrap a DPoP
// proof whose audience and nonce match.
type VerifyParams struct {
	BackendPublicKey  crypto.PublicKey
	ClientId          identity.ClientId
	ExpectedHandle    identity.QualifiedHandle
	ExpectedTeam      identity.Team
	ExpectedHtu       string // backend base URL; must equal the claims' "iss"
	ExpectedChallenge dpop.ChallengeToken
	AcmeAccountKey    crypto.Signer // used only to compute the expected cnf.kid thumbprint
	ChallengeURL      string        // the wire-dpop-01 challenge's url; must equal the inner DPoP proof's "aud"
	ExpectedNonce     dpop.BackendNonce
	MaxExpiration     time.Duration
	Leeway            time.Duration
	Now               time.Time
}

// Verify checks an access token against the expectations in p and, if the
// outer token is valid, also verifies the DPoP proof it wraps.
func Verify(token string, p VerifyParams) (*Claims, *dpop.Claims, error) {
	var claims Claims
	_, err := wjwt.Verify(token, &claims, wjwt.VerifyOptions{
		PublicKey:     p.BackendPublicKey,
		ExpectedSub:   p.ClientId.ToURI(),
		MaxExpiration: p.MaxExpiration,
		Leeway:        p.Leeway,
		Now:           p.Now,
	})
	if err != nil {
		return nil, nil, err
	}

	// The backend htu must equal the access token iss. Normalize both
	// sides (lowercase host, no trailing slash) before the byte-equal
	// compare.
	if normalizeHtu(claims.Iss) != normalizeHtu(p.ExpectedHtu) {
		return nil, nil, wjwt.ErrDpopHtuMismatch
	}

	if claims.ClientID != p.ClientId.ToURI() {
		return nil, nil, wjwt.ErrTokenSubMismatch
	}

	if claims.Chal != string(p.ExpectedChallenge) {
		return nil, nil, wjwt.Invalid("chal claim does not match expected challenge")
	}

	expectedThumb, err := wjwt.Thumbprint(p.AcmeAccountKey)
	if err != nil {
		return nil, nil, err
	}
	if claims.Cnf.Kid != expectedThumb {
		return nil, nil, wjwt.Invalid("cnf.kid does not match ACME account key thumbprint")
	}

	innerNonce := dpop.BackendNonce(claims.Nonce)
	dpopClaims, err := dpop.Verify(claims.Proof, dpop.VerifyParams{
		ClientId:          p.ClientId,
		ExpectedChallenge: p.ExpectedChallenge,
		ExpectedHandle:    p.ExpectedHandle,
		ExpectedTeam:      p.ExpectedTeam,
		ExpectedNonce:     innerNonce,
		ExpectedAudience:  p.ChallengeURL,
		MaxExpiration:     p.MaxExpiration,
		Leeway:            p.Leeway,
		Now:               p.Now,
	})
	if err != nil {
		return nil, nil, err
	}

	if normalizeHtu(dpopClaims.Htu) != normalizeHtu(claims.Iss) {
		return nil, nil, wjwt.ErrDpopHtuMismatch
	}
	if dpopClaims.Aud != p.ChallengeURL {
		return nil, nil, wjwt.ErrDpopHtuMismatch
	}
	if innerNonce != p.ExpectedNonce {
		return nil, nil, wjwt.ErrDpopNonceMismatch
	}

	return &claims, dpopClaims, nil
}

func normalizeHtu(htu string) string {
	return strings.ToLower(strings.TrimRight(htu, "/"))
}
