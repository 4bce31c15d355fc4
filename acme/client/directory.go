package client

import (
	"encoding/json"
	"fmt"

	"github.com/wireapp/e2eident/acme"
	"github.com/wireapp/e2eident/transport"
)

// FetchDirectory retrieves and parses the ACME server's directory resource
// (RFC 8555 §7.1.1).
func FetchDirectory(doer transport.HTTPDoer, directoryURL string) (*acme.Directory, error) {
	_, body, err := doGet(doer, directoryURL)
	if err != nil {
		return nil, fmt.Errorf("client: fetching directory: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("client: parsing directory: %w", err)
	}

	var dir acme.Directory
	if err := json.Unmarshal(body, &dir); err != nil {
		return nil, fmt.Errorf("client: parsing directory: %w", err)
	}
	dir.Raw = raw
	return &dir, nil
}
