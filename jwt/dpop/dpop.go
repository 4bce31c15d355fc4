// Package dpop constructs and verifies the client DPoP proof: a
// "dpop+jwt" JWT carrying the HTTP method/URL of the request it proves
// possession for, the ACME challenge token, and the client's handle and
// team, self-certified by an embedded JWK.
package dpop

import (
	"crypto"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wireapp/e2eident/identity"
	wjwt "github.com/wireapp/e2eident/jwt"
)

// Typ is the JWT header "typ" value for a DPoP proof.
const Typ = "dpop+jwt"

// NowLeewaySeconds is subtracted from "iat" and "nbf" when generating a
// proof to tolerate non-monotonic clocks on the issuing host.
const NowLeewaySeconds = 3600

// BackendNonce is the one-shot nonce issued by wire-server and sealed into
// the DPoP proof's "nonce" claim. It is a distinct type from acme.Nonce so
// the two nonce kinds can never be swapped by a type error.
type BackendNonce string

// ChallengeToken is the "token" field of an ACME challenge, copied verbatim
// into the DPoP proof's "chal" claim.
type ChallengeToken string

// Claims is the DPoP JWT payload: the standard JWT claims plus the
// protocol-specific fields {htm, htu, chal, handle, team}.
type Claims struct {
	wjwt.StandardClaims
	Htm    string `json:"htm"`
	Htu    string `json:"htu"`
	Chal   string `json:"chal"`
	Handle string `json:"handle"`
	Team   string `json:"team"`
}

// GenerateParams bundles the inputs to Generate.
type GenerateParams struct {
	ClientId  identity.ClientId
	Handle    identity.QualifiedHandle
	Team      identity.Team
	Nonce     BackendNonce
	Challenge ChallengeToken
	// Audience is the challenge URL this proof is scoped to (the "aud"
	// claim); it must equal the DPoP challenge's url.
	Audience string
	// Htm/Htu are the HTTP method/URL of the request the proof accompanies
	// (distinct from Audience, which is always the challenge URL).
	Htm    string
	Htu    string
	Expiry time.Duration
}

// Generate builds and signs a DPoP proof JWT.
func Generate(p GenerateParams, signer crypto.Signer) (string, error) {
	if _, err := http.NewRequest(strings.ToUpper(p.Htm), p.Htu, nil); err != nil {
		return "", fmt.Errorf("dpop: invalid htm/htu: %w", err)
	}

	// iat/nbf are backdated by NowLeewaySeconds to tolerate clock drift and
	// non-monotonic clocks; exp is computed from the true current time so
	// backdating doesn't eat into the proof's actual lifetime.
	trueNow := time.Now()
	backdated := trueNow.Add(-NowLeewaySeconds * time.Second)
	claims := Claims{
		StandardClaims: wjwt.StandardClaims{
			Jti:   uuid.NewString(),
			Iat:   backdated.Unix(),
			Nbf:   backdated.Unix(),
			Exp:   trueNow.Add(p.Expiry).Unix(),
			Sub:   p.ClientId.ToURI(),
			Aud:   p.Audience,
			Nonce: string(p.Nonce),
		},
		Htm:    strings.ToUpper(p.Htm),
		Htu:    p.Htu,
		Chal:   string(p.Challenge),
		Handle: p.Handle.URI(),
		Team:   string(p.Team),
	}

	return wjwt.Sign(claims, wjwt.SignOptions{
		Signer:   signer,
		Typ:      Typ,
		EmbedJWK: true,
	})
}

// VerifyParams bundles the expectations Verify checks beyond the standard
// JWT claims.
type VerifyParams struct {
	ClientId          identity.ClientId
	ExpectedChallenge ChallengeToken
	ExpectedHandle    identity.QualifiedHandle
	ExpectedTeam      identity.Team
	ExpectedNonce     BackendNonce
	ExpectedAudience  string
	AllowInsecureHTTP bool // test mode: allow "http://" htu instead of requiring "https://"
	MaxExpiration     time.Duration
	Leeway            time.Duration
	Now               time.Time
}

// Verify checks a DPoP proof against the expectations in p. The signature
// is verified against the JWK embedded in the proof's own header (DPoP
// proofs are self-certifying). Verify returns only the claims, not that
// JWK, and does not pin it to a previously seen key.
func Verify(token string, p VerifyParams) (*Claims, error) {
	var claims Claims
	nonce := string(p.ExpectedNonce)
	res, err := wjwt.Verify(token, &claims, wjwt.VerifyOptions{
		ExpectedTyp:        Typ,
		RequireEmbeddedJWK: true,
		ExpectedSub:        p.ClientId.ToURI(),
		ExpectedNonce:      &nonce,
		MaxExpiration:      p.MaxExpiration,
		Leeway:             p.Leeway,
		Now:                p.Now,
	})
	if err != nil {
		return nil, err
	}
	_ = res

	if _, err := http.NewRequest(claims.Htm, "http://placeholder.invalid", nil); err != nil {
		return nil, wjwt.Invalid(fmt.Sprintf("invalid htm %q: %s", claims.Htm, err))
	}

	htuURL, err := url.Parse(claims.Htu)
	if err != nil || !htuURL.IsAbs() {
		return nil, wjwt.Invalid(fmt.Sprintf("htu %q is not an absolute URL", claims.Htu))
	}
	wantScheme := "https"
	if htuURL.Scheme != wantScheme && !(p.AllowInsecureHTTP && htuURL.Scheme == "http") {
		return nil, wjwt.Invalid(fmt.Sprintf("htu scheme %q is not allowed", htuURL.Scheme))
	}

	if claims.Chal != string(p.ExpectedChallenge) {
		return nil, wjwt.Invalid(fmt.Sprintf("chal claim %q does not match expected challenge", claims.Chal))
	}

	gotHandle, err := identity.ParseQualifiedHandleURI(claims.Handle)
	if err != nil {
		return nil, wjwt.Invalid(fmt.Sprintf("invalid handle claim: %s", err))
	}
	if !gotHandle.Equal(p.ExpectedHandle) {
		return nil, wjwt.Invalid("handle claim does not match expected handle")
	}

	if claims.Team != string(p.ExpectedTeam) {
		return nil, wjwt.Invalid("team claim does not match expected team")
	}

	if p.ExpectedAudience != "" && claims.Aud != p.ExpectedAudience {
		return nil, wjwt.ErrDpopHtuMismatch
	}

	return &claims, nil
}
