package client

import (
	"fmt"

	"github.com/wireapp/e2eident/acme"
	"github.com/wireapp/e2eident/transport"
)

// FetchNonce issues a HEAD request to the directory's newNonce endpoint and
// returns the Replay-Nonce header value (RFC 8555 §7.2). Callers seed an
// *acme.NoncePool with the result before the first signed request.
func FetchNonce(doer transport.HTTPDoer, newNonceURL string) (acme.Nonce, error) {
	resp, err := doHead(doer, newNonceURL)
	if err != nil {
		return "", fmt.Errorf("client: fetching nonce: %w", err)
	}
	nonce := resp.Header.Get(acme.ReplayNonceHeader)
	if nonce == "" {
		return "", fmt.Errorf("client: newNonce response carried no %s header", acme.ReplayNonceHeader)
	}
	return acme.Nonce(nonce), nil
}
