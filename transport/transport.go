// Package transport declares this module's boundary with the outside
// world: the HTTP round tripper used to talk to the ACME server, and the
// two external collaborators — the Wire backend that issues DPoP access
// tokens and the OIDC provider that issues id tokens — that the
// enrollment orchestrator calls out to but does not itself implement.
//
// None of these interfaces are a network client in their own right; a
// caller wires in its own implementation (or a test double). Only
// DefaultHTTP is provided as a ready-to-use HTTPDoer.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
)

// HTTPDoer is the minimal HTTP transport this module depends on. It is
// satisfied by *http.Client and by DefaultHTTP.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WireServer is the backend API that issues the nested access token this
// flow presents to the ACME server for the wire-dpop-01 challenge.
// Implementing the backend's actual REST API is out of scope; this flow
// only needs these two calls.
type WireServer interface {
	// GetBackendNonce fetches a fresh nonce to embed in the client's DPoP
	// proof.
	GetBackendNonce(ctx context.Context) (string, error)
	// GetAccessToken exchanges a client DPoP proof JWT for a backend-issued
	// access token containing it as the "proof" claim.
	GetAccessToken(ctx context.Context, clientDpopToken string) (string, error)
}

// DiscoveryDocument is the subset of an OIDC provider's discovery document
// (RFC 8414 / OpenID Connect Discovery) this flow consults.
type DiscoveryDocument struct {
	Issuer                string
	AuthorizationEndpoint string
	TokenEndpoint         string
	JWKSURI               string
}

// OIDCProvider resolves OIDC discovery and fetches id tokens satisfying the
// wire-oidc-01 challenge's keyauth binding. The actual login UI / browser
// redirect flow a human completes is explicitly out of scope; this flow
// only needs the resulting id token.
type OIDCProvider interface {
	Discover(ctx context.Context, issuer string) (DiscoveryDocument, error)
	// FetchIDToken returns an id token whose "keyauth" claim is set to
	// keyAuth, per the wire-oidc-01 challenge's binding requirement.
	FetchIDToken(ctx context.Context, keyAuth string) (string, error)
}

const (
	version       = "0.1.0"
	userAgentBase = "wireapp.e2eident"
	locale        = "en-us"
)

// Config controls DefaultHTTP's TLS trust root.
type Config struct {
	// CABundlePath is an optional file path to one or more PEM encoded CA
	// certificates trusted for HTTPS connections to the ACME server. If
	// empty, the system root pool is used.
	CABundlePath string
}

// DefaultHTTP is a ready-to-use HTTPDoer built on net/http.Client: it
// stamps a descriptive User-Agent on every request and optionally trusts
// a custom CA bundle.
type DefaultHTTP struct {
	httpClient *http.Client
}

// New builds a DefaultHTTP from conf. An empty CABundlePath uses the
// system's default trust roots.
func New(conf Config) (*DefaultHTTP, error) {
	path := strings.TrimSpace(conf.CABundlePath)
	if path == "" {
		return &DefaultHTTP{httpClient: &http.Client{}}, nil
	}

	pemBundle, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transport: reading CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBundle) {
		return nil, fmt.Errorf("transport: no certificates parsed from %q", path)
	}

	return &DefaultHTTP{
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{RootCAs: pool},
			},
		},
	}, nil
}

// Do satisfies HTTPDoer, stamping every outgoing request with a descriptive
// User-Agent before delegating to the underlying http.Client.
func (d *DefaultHTTP) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", fmt.Sprintf("%s/%s (%s; %s)",
		userAgentBase, version, runtime.GOOS, runtime.GOARCH))
	req.Header.Set("Accept-Language", locale)
	return d.httpClient.Do(req)
}
