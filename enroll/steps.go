package enroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wireapp/e2eident/acme"
	acmeclient "github.com/wireapp/e2eident/acme/client"
	"github.com/wireapp/e2eident/jwt"
	"github.com/wireapp/e2eident/jwt/dpop"
	"github.com/wireapp/e2eident/jwt/idtoken"
)

// Steps is the enrollment pipeline as a record of replaceable hooks, one
// per step: the orchestrator exposes each stage as a stateless callable so
// a test can wrap or replace exactly one of them (e.g. to reuse a nonce,
// or invert which challenge a proof is posted to) while leaving the rest
// at their default behavior.
type Steps struct {
	GetDirectory            func(ctx context.Context, s *Session) error
	NewAccount              func(ctx context.Context, s *Session) error
	NewOrder                func(ctx context.Context, s *Session) error
	NewAuthorization        func(ctx context.Context, s *Session) error
	ExtractChallenges       func(ctx context.Context, s *Session) error
	GetBackendNonce         func(ctx context.Context, s *Session) error
	CreateDpopToken         func(ctx context.Context, s *Session) error
	GetAccessToken          func(ctx context.Context, s *Session) error
	VerifyDpopChallenge     func(ctx context.Context, s *Session) error
	FetchOIDCProviderConfig func(ctx context.Context, s *Session) error
	FetchIDToken            func(ctx context.Context, s *Session) error
	VerifyOidcChallenge     func(ctx context.Context, s *Session) error
	Finalize                func(ctx context.Context, s *Session) error
	GetCertificate          func(ctx context.Context, s *Session) error
}

// DefaultSteps wires every stage to its concrete implementation; no
// dynamic dispatch is required at runtime beyond this boundary.
func DefaultSteps() Steps {
	return Steps{
		GetDirectory:            defaultGetDirectory,
		NewAccount:              defaultNewAccount,
		NewOrder:                defaultNewOrder,
		NewAuthorization:        defaultNewAuthorization,
		ExtractChallenges:       defaultExtractChallenges,
		GetBackendNonce:         defaultGetBackendNonce,
		CreateDpopToken:         defaultCreateDpopToken,
		GetAccessToken:          defaultGetAccessToken,
		VerifyDpopChallenge:     defaultVerifyDpopChallenge,
		FetchOIDCProviderConfig: defaultFetchOIDCProviderConfig,
		FetchIDToken:            defaultFetchIDToken,
		VerifyOidcChallenge:     defaultVerifyOidcChallenge,
		Finalize:                defaultFinalize,
		GetCertificate:          defaultGetCertificate,
	}
}

// Run drives the full pipeline in order, short-circuiting on the first
// failing stage and propagating it as a typed *Error.
func (s *Session) Run(ctx context.Context) (*acme.Certificate, error) {
	stages := []struct {
		name Stage
		fn   func(ctx context.Context, s *Session) error
	}{
		{StageDirectory, s.Steps.GetDirectory},
		{StageNewAccount, s.Steps.NewAccount},
		{StageNewOrder, s.Steps.NewOrder},
		{StageNewAuthorization, s.Steps.NewAuthorization},
		{StageExtractChallenges, s.Steps.ExtractChallenges},
		{StageBackendNonce, s.Steps.GetBackendNonce},
		{StageCreateDpopToken, s.Steps.CreateDpopToken},
		{StageGetAccessToken, s.Steps.GetAccessToken},
		{StageVerifyDpopChallenge, s.Steps.VerifyDpopChallenge},
		{StageOIDCDiscovery, s.Steps.FetchOIDCProviderConfig},
		{StageFetchIDToken, s.Steps.FetchIDToken},
		{StageVerifyOidcChallenge, s.Steps.VerifyOidcChallenge},
		{StageFinalize, s.Steps.Finalize},
		{StageGetCertificate, s.Steps.GetCertificate},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, stageErr(stage.name, err)
		}
		if err := stage.fn(ctx, s); err != nil {
			return nil, stageErr(stage.name, err)
		}
	}
	return s.Certificate, nil
}

// defaultGetDirectory fetches the directory and seeds the nonce pool from
// HEAD /new-nonce; both are a single client bootstrap call with no
// independently useful midpoint.
func defaultGetDirectory(ctx context.Context, s *Session) error {
	c, err := acmeclient.New(s.doer, s.directoryURL)
	if err != nil {
		return err
	}
	s.acme = c
	return nil
}

func defaultNewAccount(ctx context.Context, s *Session) error {
	acct, err := s.acme.NewAccount(s.Caller.AccountKey, s.Config.AccountContact)
	if err != nil {
		return err
	}
	s.Account = acct
	return nil
}

func defaultNewOrder(ctx context.Context, s *Session) error {
	order, err := s.acme.NewOrder(s.Account.URL, s.Caller.AccountKey, []acme.Identifier{
		{Type: acme.IdentifierTypeWireApp, Value: s.Caller.ClientId.ToURI()},
	})
	if err != nil {
		return err
	}
	if err := acme.ParseNewOrderResponse(order); err != nil {
		return err
	}
	s.Order = order
	return nil
}

func defaultNewAuthorization(ctx context.Context, s *Session) error {
	if len(s.Order.Authorizations) == 0 {
		return fmt.Errorf("enroll: order has no authorizations")
	}
	authz, err := s.acme.GetAuthorization(s.Order.Authorizations[0], s.Account.URL, s.Caller.AccountKey)
	if err != nil {
		return err
	}
	if err := acme.ParseNewAuthzResponse(authz); err != nil {
		return err
	}
	if err := acme.RequireWireAppIdentifier(authz.Identifier); err != nil {
		return err
	}
	s.Authz = authz
	return nil
}

// defaultExtractChallenges selects the unique wire-dpop-01 and wire-oidc-01
// challenges from the authorization, matched by type field; neither may
// be absent.
func defaultExtractChallenges(ctx context.Context, s *Session) error {
	dpopChall, err := acme.SelectChallenge(s.Authz, acme.ChallengeTypeWireDpop)
	if err != nil {
		return fmt.Errorf("enroll: missing wire-dpop-01 challenge: %w", err)
	}
	oidcChall, err := acme.SelectChallenge(s.Authz, acme.ChallengeTypeWireOidc)
	if err != nil {
		return fmt.Errorf("enroll: missing wire-oidc-01 challenge: %w", err)
	}
	s.DpopChall = dpopChall
	s.OidcChall = oidcChall
	return nil
}

func defaultGetBackendNonce(ctx context.Context, s *Session) error {
	nonce, err := s.wire.GetBackendNonce(ctx)
	if err != nil {
		return err
	}
	s.backendNonce = dpop.BackendNonce(nonce)
	return nil
}

func defaultCreateDpopToken(ctx context.Context, s *Session) error {
	// The proof's exp-iat is DpopExpiry plus the NowLeewaySeconds backdating
	// dpop.Generate applies to iat.
	lifetime := s.Config.DpopExpiry + dpop.NowLeewaySeconds*time.Second
	if limit := s.Config.MaxTokenLifetime; limit > 0 && lifetime > limit {
		return jwt.ErrTokenLivesTooLong
	}
	token, err := dpop.Generate(dpop.GenerateParams{
		ClientId:  s.Caller.ClientId,
		Handle:    s.Caller.Handle,
		Team:      s.Caller.Team,
		Nonce:     s.backendNonce,
		Challenge: dpop.ChallengeToken(s.DpopChall.Token),
		Audience:  s.DpopChall.URL,
		Htm:       "POST",
		Htu:       s.DpopChall.URL,
		Expiry:    s.Config.DpopExpiry,
	}, s.Caller.ClientKey)
	if err != nil {
		return err
	}
	s.dpopToken = token
	return nil
}

func defaultGetAccessToken(ctx context.Context, s *Session) error {
	token, err := s.wire.GetAccessToken(ctx, s.dpopToken)
	if err != nil {
		return err
	}
	s.accessToken = token
	return nil
}

// defaultVerifyDpopChallenge posts the access token wrapping the client's
// DPoP proof to the wire-dpop-01 challenge URL.
func defaultVerifyDpopChallenge(ctx context.Context, s *Session) error {
	chall, err := s.acme.PostChallenge(s.DpopChall.URL, s.Account.URL, s.Caller.AccountKey, struct {
		AccessToken string `json:"access_token"`
	}{AccessToken: s.accessToken})
	if err != nil {
		return err
	}
	if err := acme.ParseChallengeSubmitResponse(chall); err != nil {
		return err
	}
	s.DpopChall = chall
	return nil
}

// defaultFetchOIDCProviderConfig resolves the OIDC discovery document and
// builds keyauth = token + "." + base64url(thumbprint(account key)).
func defaultFetchOIDCProviderConfig(ctx context.Context, s *Session) error {
	doc, err := s.oidc.Discover(ctx, s.Config.OIDCIssuer)
	if err != nil {
		return err
	}
	s.oidcDoc = doc
	keyAuth, err := jwt.KeyAuth(s.Caller.AccountKey, s.OidcChall.Token)
	if err != nil {
		return err
	}
	s.keyAuth = keyAuth
	return nil
}

func defaultFetchIDToken(ctx context.Context, s *Session) error {
	idToken, err := s.oidc.FetchIDToken(ctx, s.keyAuth)
	if err != nil {
		return err
	}
	s.idToken = idToken
	return nil
}

// defaultVerifyOidcChallenge checks the id-token's handle, display-name,
// and keyauth claims against the caller's own identifiers before posting
// it to the wire-oidc-01 challenge URL: the source this flow is grounded
// on deferred these checks behind a test-fixture TODO, and they are
// implemented here as first-class verifications instead.
func defaultVerifyOidcChallenge(ctx context.Context, s *Session) error {
	if _, err := idtoken.Verify(s.idToken, idtoken.VerifyParams{
		ExpectedHandle:      s.Caller.Handle.URI(),
		ExpectedDisplayName: s.Config.DisplayName,
		ExpectedKeyauth:     s.keyAuth,
	}); err != nil {
		return fmt.Errorf("enroll: id-token failed claim verification: %w", err)
	}

	chall, err := s.acme.PostChallenge(s.OidcChall.URL, s.Account.URL, s.Caller.AccountKey, struct {
		IDToken string `json:"id_token"`
	}{IDToken: s.idToken})
	if err != nil {
		return err
	}
	if err := acme.ParseChallengeSubmitResponse(chall); err != nil {
		return err
	}
	s.OidcChall = chall
	return nil
}

func defaultFinalize(ctx context.Context, s *Session) error {
	order, err := s.pollOrder(ctx, s.Order, acme.RequireReady)
	if err != nil {
		return err
	}

	csrDER, err := acmeclient.BuildCSR(acmeclient.CSRParams{
		ClientId:    s.Caller.ClientId,
		Handle:      s.Caller.Handle,
		DisplayName: s.Config.DisplayName,
		Signer:      s.Caller.ClientKey,
	})
	if err != nil {
		return err
	}
	s.csrDER = csrDER

	finalized, err := s.acme.FinalizeOrder(order, s.Account.URL, s.Caller.AccountKey, csrDER)
	if err != nil {
		return err
	}

	finalized, err = s.pollOrder(ctx, finalized, acme.RequireValid)
	if err != nil {
		return err
	}
	s.Order = finalized
	return nil
}

// pollOrder re-fetches order until require reports it has reached the
// target state, with bounded exponential backoff over "processing"
// responses. require's ErrChallProcessing is the single "keep waiting"
// signal; any other error is terminal.
func (s *Session) pollOrder(ctx context.Context, order *acme.Order, require func(*acme.Order) error) (*acme.Order, error) {
	interval := s.Config.PollInitialInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	maxAttempts := s.Config.PollMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 6
	}

	for attempt := 0; ; attempt++ {
		err := require(order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, acme.ErrChallProcessing) {
			return nil, err
		}
		if attempt >= maxAttempts {
			return nil, fmt.Errorf("enroll: order %q did not reach the target state after %d polls: %w", order.URL, maxAttempts, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		interval *= 2

		order, err = s.acme.PollOrder(order.URL, s.Account.URL, s.Caller.AccountKey)
		if err != nil {
			return nil, err
		}
	}
}

func defaultGetCertificate(ctx context.Context, s *Session) error {
	cert, err := s.acme.GetCertificate(s.Order, s.Account.URL, s.Caller.AccountKey)
	if err != nil {
		return err
	}
	s.Certificate = cert
	return nil
}
