package client

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/url"

	"github.com/wireapp/e2eident/identity"
)

// CSRParams describes the identifiers a finalize CSR must cover: a URI
// SAN for the ClientId, a URI SAN for the handle, and the display name as
// CN.
type CSRParams struct {
	ClientId    identity.ClientId
	Handle      identity.QualifiedHandle
	DisplayName string
	// Signer is the MLS client keypair the certificate will attest,
	// deliberately distinct from the ACME account key.
	Signer crypto.Signer
}

// BuildCSR produces a PKCS#10 certificate signing request DER encoding,
// using URI SANs rather than plain DNSNames.
func BuildCSR(p CSRParams) ([]byte, error) {
	if p.Signer == nil {
		return nil, fmt.Errorf("client: BuildCSR: Signer must not be nil")
	}
	clientURI, err := url.Parse(p.ClientId.ToURI())
	if err != nil {
		return nil, fmt.Errorf("client: BuildCSR: client URI: %w", err)
	}
	handleURI, err := url.Parse(p.Handle.URI())
	if err != nil {
		return nil, fmt.Errorf("client: BuildCSR: handle URI: %w", err)
	}

	template := x509.CertificateRequest{
		Subject: pkix.Name{CommonName: p.DisplayName},
		URIs:    []*url.URL{clientURI, handleURI},
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, &template, p.Signer)
	if err != nil {
		return nil, fmt.Errorf("client: BuildCSR: %w", err)
	}
	return der, nil
}

// EncodeCSR base64url (no padding) encodes a DER CSR for the finalize
// request body, per RFC 8555 §7.4.
func EncodeCSR(der []byte) string {
	return base64.RawURLEncoding.EncodeToString(der)
}

// PEMEncodeCSR returns the PEM encoding of a DER CSR for logging or
// out-of-band inspection.
func PEMEncodeCSR(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})
}
