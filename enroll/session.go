package enroll

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/subtle"

	"github.com/wireapp/e2eident/acme"
	acmeclient "github.com/wireapp/e2eident/acme/client"
	"github.com/wireapp/e2eident/identity"
	"github.com/wireapp/e2eident/jwt/dpop"
	"github.com/wireapp/e2eident/transport"
)

// Caller bundles the caller-supplied identifiers and keys for one
// enrollment: ClientId, QualifiedHandle, Team, plus the two distinct
// keypairs that must stay separate — the ACME account key signs every
// ACME request, and the client key is the MLS client keypair the issued
// certificate attests.
type Caller struct {
	ClientId   identity.ClientId
	Handle     identity.QualifiedHandle
	Team       identity.Team
	AccountKey crypto.Signer
	ClientKey  crypto.Signer
}

// Session owns the single-shot, in-memory state of one enrollment
// attempt: one nonce chain (held by the embedded acme/client.Client's
// NoncePool), one ACME account key, one CSR. A Session is not safe for
// concurrent use — the pipeline it drives is strictly sequential because
// of the nonce chain and the ACME order/authorization/challenge state
// machine.
type Session struct {
	Config Config
	Caller Caller
	Steps  Steps

	doer  transport.HTTPDoer
	wire  transport.WireServer
	oidc  transport.OIDCProvider

	directoryURL string

	acme *acmeclient.Client

	Account   *acme.Account
	Order     *acme.Order
	Authz     *acme.Authorization
	DpopChall *acme.Challenge
	OidcChall *acme.Challenge

	backendNonce dpop.BackendNonce
	dpopToken    string
	accessToken  string
	idToken      string
	keyAuth      string
	oidcDoc      transport.DiscoveryDocument

	csrDER []byte

	Certificate *acme.Certificate
}

// NewSession builds a Session wired to the default Steps.
func NewSession(doer transport.HTTPDoer, directoryURL string, wire transport.WireServer, oidc transport.OIDCProvider, caller Caller, cfg Config) *Session {
	s := &Session{
		Config:       cfg,
		Caller:       caller,
		doer:         doer,
		wire:         wire,
		oidc:         oidc,
		directoryURL: directoryURL,
	}
	s.Steps = DefaultSteps()
	return s
}

// Close wipes the caller's private key material this Session holds, to
// the extent the concrete Signer type exposes its backing bytes: an
// ed25519.PrivateKey is a byte slice and is zeroed directly; a
// *ecdsa.PrivateKey only exposes its scalar through *big.Int, so only
// that exported field is cleared. Call Close once the enrollment is
// done; a Session must not be reused afterward.
func (s *Session) Close() {
	wipeSigner(s.Caller.AccountKey)
	wipeSigner(s.Caller.ClientKey)
}

func wipeSigner(signer crypto.Signer) {
	switch key := signer.(type) {
	case ed25519.PrivateKey:
		wipeBytes(key)
	case *ecdsa.PrivateKey:
		if key != nil && key.D != nil {
			key.D.SetInt64(0)
		}
	}
}

// wipeBytes zeroes b using subtle.ConstantTimeCopy rather than a plain
// loop, so the compiler cannot prove the writes are dead and elide them.
func wipeBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}
