package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wireapp/e2eident/acme"
)

// problemFromResponse parses an RFC 7807 problem document from a non-2xx
// ACME response body, falling back to a generic problem carrying the raw
// body when the response is not valid JSON.
func problemFromResponse(resp *http.Response, body []byte) *acme.Problem {
	var p acme.Problem
	if err := json.Unmarshal(body, &p); err != nil || p.Type == "" {
		return &acme.Problem{
			Type:   "about:blank",
			Detail: fmt.Sprintf("non-JSON error response (status %d): %s", resp.StatusCode, string(body)),
			Status: resp.StatusCode,
		}
	}
	if p.Status == 0 {
		p.Status = resp.StatusCode
	}
	return &p
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
