package client

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/wireapp/e2eident/transport"
)

func doGet(doer transport.HTTPDoer, url string) (*http.Response, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	return do(doer, req)
}

// doPostAsGet issues a POST-as-GET request (an empty JWS-protected POST),
// per RFC 8555 §6.3, for servers that require authenticated GETs.
func doPostAsGet(doer transport.HTTPDoer, url string, serializedJWS []byte) (*http.Response, []byte, error) {
	return doPostJOSE(doer, url, serializedJWS)
}

func doHead(doer transport.HTTPDoer, url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return resp, nil
}

func doPostJOSE(doer transport.HTTPDoer, url string, body []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/jose+json")
	return do(doer, req)
}

func do(doer transport.HTTPDoer, req *http.Request) (*http.Response, []byte, error) {
	resp, err := doer.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("client: reading response body: %w", err)
	}
	return resp, respBody, nil
}
