package acme

import (
	"fmt"
	"sync"
)

// NoncePool tracks the single next-usable nonce for one enrollment session:
// every request after the first carries the Replay-Nonce of the immediately
// preceding response, and no nonce is ever used twice. A seed nonce is
// fetched once via HEAD /new-nonce and thereafter updated from response
// headers rather than being silently re-fetched on every Nonce() call.
type NoncePool struct {
	mu      sync.Mutex
	current Nonce
	seen    map[Nonce]bool
}

// NewNoncePool returns an empty pool; call Seed before the first Take.
func NewNoncePool() *NoncePool {
	return &NoncePool{seen: make(map[Nonce]bool)}
}

// Seed installs the initial nonce obtained from HEAD /new-nonce.
func (p *NoncePool) Seed(n Nonce) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = n
	p.seen[n] = true
}

// Update installs the nonce carried by the Replay-Nonce header of the most
// recent server response. It is an error for the server to repeat a nonce
// it already issued this session.
func (p *NoncePool) Update(n Nonce) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n == "" {
		return fmt.Errorf("acme: empty nonce")
	}
	if p.seen[n] {
		return fmt.Errorf("acme: server issued nonce %q more than once", n)
	}
	p.current = n
	p.seen[n] = true
	return nil
}

// Take consumes and returns the current nonce. Calling Take twice without
// an intervening Update returns an error, since every JWS-wrapped request
// this client builds must use a nonce it has not already used.
func (p *NoncePool) Take() (Nonce, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == "" {
		return "", fmt.Errorf("acme: no fresh nonce available")
	}
	n := p.current
	p.current = ""
	return n, nil
}

// Nonce satisfies go-jose's NonceSource interface so a NoncePool can be
// passed directly as jose.SignerOptions.NonceSource.
func (p *NoncePool) Nonce() (string, error) {
	n, err := p.Take()
	return string(n), err
}
