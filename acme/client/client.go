// Package client provides a low-level ACME v2 client for this enrollment
// flow: directory/nonce bootstrap, account and order creation,
// authorization and challenge fetch/submit, and finalize/certificate
// download. It signs every request with the JWS builder in jws.go and
// tracks nonces with an acme.NoncePool.
package client

import (
	"crypto"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wireapp/e2eident/acme"
	"github.com/wireapp/e2eident/transport"
)

// Client talks to one ACME server's directory, tracking the single nonce
// pool one enrollment session owns.
type Client struct {
	doer      transport.HTTPDoer
	directory *acme.Directory
	nonces    *acme.NoncePool
}

// New fetches the server's directory and seeds a nonce pool from
// newNonce, per RFC 8555 §7.1.1/§7.2.
func New(doer transport.HTTPDoer, directoryURL string) (*Client, error) {
	dir, err := FetchDirectory(doer, directoryURL)
	if err != nil {
		return nil, err
	}
	nonce, err := FetchNonce(doer, dir.NewNonce)
	if err != nil {
		return nil, err
	}
	pool := acme.NewNoncePool()
	pool.Seed(nonce)
	return &Client{doer: doer, directory: dir, nonces: pool}, nil
}

// Directory returns the server's directory resource.
func (c *Client) Directory() *acme.Directory { return c.directory }

// Nonces returns the client's nonce pool, usable directly as a
// jose.NonceSource when building signed requests outside this package.
func (c *Client) Nonces() *acme.NoncePool { return c.nonces }

// updateNonce installs the Replay-Nonce header of resp into the pool:
// every response's nonce feeds the next request.
func (c *Client) updateNonce(resp *http.Response) error {
	nonce := resp.Header.Get(acme.ReplayNonceHeader)
	if nonce == "" {
		return fmt.Errorf("client: response carried no %s header", acme.ReplayNonceHeader)
	}
	return c.nonces.Update(acme.Nonce(nonce))
}

// NewAccount creates an ACME account, embedding the account signer's
// public key per RFC 8555 §7.3. This flow always agrees to the server's
// terms of service.
func (c *Client) NewAccount(signer crypto.Signer, contact []string) (*acme.Account, error) {
	reqBody, err := json.Marshal(struct {
		Contact              []string `json:"contact,omitempty"`
		TermsOfServiceAgreed bool     `json:"termsOfServiceAgreed"`
	}{Contact: contact, TermsOfServiceAgreed: true})
	if err != nil {
		return nil, fmt.Errorf("client: NewAccount: %w", err)
	}

	signResult, err := Sign(c.directory.NewAccount, reqBody, SigningOptions{
		EmbedKey:    true,
		Signer:      signer,
		NonceSource: c.nonces,
	})
	if err != nil {
		return nil, fmt.Errorf("client: NewAccount: %w", err)
	}

	resp, body, err := doPostJOSE(c.doer, c.directory.NewAccount, signResult.SerializedJWS)
	if err != nil {
		return nil, fmt.Errorf("client: NewAccount: %w", err)
	}
	if err := c.updateNonce(resp); err != nil {
		return nil, err
	}
	if !isSuccess(resp) {
		return nil, problemFromResponse(resp, body)
	}

	loc := resp.Header.Get(acme.LocationHeader)
	if loc == "" {
		return nil, fmt.Errorf("client: NewAccount: response carried no %s header", acme.LocationHeader)
	}

	var acct acme.Account
	if err := json.Unmarshal(body, &acct); err != nil {
		return nil, fmt.Errorf("client: NewAccount: parsing response: %w", err)
	}
	acct.URL = loc
	return &acct, nil
}

// NewOrder creates an order for the given identifiers, signed with the
// account's key and kid (RFC 8555 §7.4). ParseNewOrderResponse should be
// applied to the result before use.
func (c *Client) NewOrder(accountURL string, signer crypto.Signer, identifiers []acme.Identifier) (*acme.Order, error) {
	reqBody, err := json.Marshal(struct {
		Identifiers []acme.Identifier `json:"identifiers"`
	}{Identifiers: identifiers})
	if err != nil {
		return nil, fmt.Errorf("client: NewOrder: %w", err)
	}

	signResult, err := Sign(c.directory.NewOrder, reqBody, SigningOptions{
		KeyID:       accountURL,
		Signer:      signer,
		NonceSource: c.nonces,
	})
	if err != nil {
		return nil, fmt.Errorf("client: NewOrder: %w", err)
	}

	resp, body, err := doPostJOSE(c.doer, c.directory.NewOrder, signResult.SerializedJWS)
	if err != nil {
		return nil, fmt.Errorf("client: NewOrder: %w", err)
	}
	if err := c.updateNonce(resp); err != nil {
		return nil, err
	}
	if !isSuccess(resp) {
		return nil, problemFromResponse(resp, body)
	}

	loc := resp.Header.Get(acme.LocationHeader)
	var order acme.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("client: NewOrder: parsing response: %w", err)
	}
	order.URL = loc
	return &order, nil
}

// GetAuthorization fetches an authorization resource via POST-as-GET
// (RFC 8555 §7.4.1, §6.3).
func (c *Client) GetAuthorization(authzURL, accountURL string, signer crypto.Signer) (*acme.Authorization, error) {
	var authz acme.Authorization
	if err := c.postAsGet(authzURL, accountURL, signer, &authz); err != nil {
		return nil, fmt.Errorf("client: GetAuthorization: %w", err)
	}
	authz.URL = authzURL
	return &authz, nil
}

// PostChallenge submits a challenge's proof payload (RFC 8555 §7.5.1).
// The wire-dpop-01/wire-oidc-01 challenges carry a single-field JSON
// object naming the proof, e.g. {"access_token": "..."} or {"id_token":
// "..."}. A nil payload posts "{}", matching RFC 8555's standard
// http-01/dns-01 challenges which carry no payload.
func (c *Client) PostChallenge(challengeURL, accountURL string, signer crypto.Signer, payload any) (*acme.Challenge, error) {
	body := []byte("{}")
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("client: PostChallenge: %w", err)
		}
		body = encoded
	}

	signResult, err := Sign(challengeURL, body, SigningOptions{
		KeyID:       accountURL,
		Signer:      signer,
		NonceSource: c.nonces,
	})
	if err != nil {
		return nil, fmt.Errorf("client: PostChallenge: %w", err)
	}

	resp, body, err := doPostJOSE(c.doer, challengeURL, signResult.SerializedJWS)
	if err != nil {
		return nil, fmt.Errorf("client: PostChallenge: %w", err)
	}
	if err := c.updateNonce(resp); err != nil {
		return nil, err
	}
	if !isSuccess(resp) {
		return nil, problemFromResponse(resp, body)
	}

	var chall acme.Challenge
	if err := json.Unmarshal(body, &chall); err != nil {
		return nil, fmt.Errorf("client: PostChallenge: parsing response: %w", err)
	}
	chall.URL = challengeURL
	return &chall, nil
}

// PollOrder re-fetches an order via POST-as-GET, used to wait for
// `ready` after challenge validation and for `valid` after finalize.
func (c *Client) PollOrder(orderURL, accountURL string, signer crypto.Signer) (*acme.Order, error) {
	var order acme.Order
	if err := c.postAsGet(orderURL, accountURL, signer, &order); err != nil {
		return nil, fmt.Errorf("client: PollOrder: %w", err)
	}
	order.URL = orderURL
	return &order, nil
}

// FinalizeOrder submits a CSR to the order's finalize URL (RFC 8555 §7.4).
func (c *Client) FinalizeOrder(order *acme.Order, accountURL string, signer crypto.Signer, csrDER []byte) (*acme.Order, error) {
	reqBody, err := json.Marshal(struct {
		CSR string `json:"csr"`
	}{CSR: EncodeCSR(csrDER)})
	if err != nil {
		return nil, fmt.Errorf("client: FinalizeOrder: %w", err)
	}

	signResult, err := Sign(order.Finalize, reqBody, SigningOptions{
		KeyID:       accountURL,
		Signer:      signer,
		NonceSource: c.nonces,
	})
	if err != nil {
		return nil, fmt.Errorf("client: FinalizeOrder: %w", err)
	}

	resp, body, err := doPostJOSE(c.doer, order.Finalize, signResult.SerializedJWS)
	if err != nil {
		return nil, fmt.Errorf("client: FinalizeOrder: %w", err)
	}
	if err := c.updateNonce(resp); err != nil {
		return nil, err
	}
	if !isSuccess(resp) {
		return nil, problemFromResponse(resp, body)
	}

	var updated acme.Order
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, fmt.Errorf("client: FinalizeOrder: parsing response: %w", err)
	}
	updated.URL = order.URL
	return &updated, nil
}

// GetCertificate downloads the PEM certificate chain from a valid order's
// certificate URL via POST-as-GET (RFC 8555 §7.4.2).
func (c *Client) GetCertificate(order *acme.Order, accountURL string, signer crypto.Signer) (*acme.Certificate, error) {
	if order.Certificate == "" {
		return nil, fmt.Errorf("client: GetCertificate: order has no certificate URL")
	}

	signResult, err := Sign(order.Certificate, []byte{}, SigningOptions{
		KeyID:       accountURL,
		Signer:      signer,
		NonceSource: c.nonces,
	})
	if err != nil {
		return nil, fmt.Errorf("client: GetCertificate: %w", err)
	}

	resp, body, err := doPostAsGet(c.doer, order.Certificate, signResult.SerializedJWS)
	if err != nil {
		return nil, fmt.Errorf("client: GetCertificate: %w", err)
	}
	if err := c.updateNonce(resp); err != nil {
		return nil, err
	}
	if !isSuccess(resp) {
		return nil, problemFromResponse(resp, body)
	}

	return &acme.Certificate{PEMChain: body}, nil
}

// postAsGet performs a POST-as-GET request (RFC 8555 §6.3: an empty JWS
// payload) and unmarshals the response into dest.
func (c *Client) postAsGet(url, accountURL string, signer crypto.Signer, dest any) error {
	signResult, err := Sign(url, []byte{}, SigningOptions{
		KeyID:       accountURL,
		Signer:      signer,
		NonceSource: c.nonces,
	})
	if err != nil {
		return err
	}

	resp, body, err := doPostAsGet(c.doer, url, signResult.SerializedJWS)
	if err != nil {
		return err
	}
	if err := c.updateNonce(resp); err != nil {
		return err
	}
	if !isSuccess(resp) {
		return problemFromResponse(resp, body)
	}

	return json.Unmarshal(body, dest)
}
