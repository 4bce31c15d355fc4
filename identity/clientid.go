// Package identity provides the value types that name a messaging client:
// its stable (user, device, domain) identifier and its human handle. Both
// types carry the canonical URI forms used throughout the JWT and ACME
// layers so that every component compares client identities as opaque
// strings instead of re-deriving the encoding rules.
package identity

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/miekg/dns"
)

// domainPattern matches a lowercase DNS hostname: dot-separated labels of
// letters, digits and hyphens, no label starting or ending with a hyphen.
var domainPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)*[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ClientId is the tuple (user_id, device_id, domain) that names one
// messaging client for the lifetime of an enrollment. It is immutable once
// constructed.
type ClientId struct {
	UserID   uuid.UUID
	DeviceID uint64
	Domain   string
}

// NewClientId validates domain and builds a ClientId.
func NewClientId(userID uuid.UUID, deviceID uint64, domain string) (ClientId, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return ClientId{}, fmt.Errorf("identity: domain must not be empty")
	}
	if _, ok := dns.IsDomainName(domain); !ok || !domainPattern.MatchString(domain) {
		return ClientId{}, fmt.Errorf("identity: %q is not a valid domain name", domain)
	}
	return ClientId{UserID: userID, DeviceID: deviceID, Domain: domain}, nil
}

// ToURI renders the canonical wireapp:// URI form of the ClientId, used as
// the JWT "sub" claim and the access token "client_id"/"iss" bindings, and
// as a URI SAN on the issued certificate.
//
//	wireapp://{base64url(user_id)}!{hex(device_id)}@{domain}
func (c ClientId) ToURI() string {
	u := base64.RawURLEncoding.EncodeToString(c.UserID[:])
	return fmt.Sprintf("wireapp://%s!%x@%s", u, c.DeviceID, c.Domain)
}

func (c ClientId) String() string { return c.ToURI() }

// ParseClientId is the inverse of ToURI. It is primarily used by tests and
// by verifiers that need to compare a claim's string form structurally
// rather than byte-for-byte.
func ParseClientId(uri string) (ClientId, error) {
	const prefix = "wireapp://"
	if !strings.HasPrefix(uri, prefix) {
		return ClientId{}, fmt.Errorf("identity: missing %q prefix", prefix)
	}
	rest := strings.TrimPrefix(uri, prefix)
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return ClientId{}, fmt.Errorf("identity: missing '@' separator")
	}
	userDevice, domain := rest[:at], rest[at+1:]
	bang := strings.Index(userDevice, "!")
	if bang < 0 {
		return ClientId{}, fmt.Errorf("identity: missing '!' separator")
	}
	userPart, devicePart := userDevice[:bang], userDevice[bang+1:]

	userBytes, err := base64.RawURLEncoding.DecodeString(userPart)
	if err != nil {
		return ClientId{}, fmt.Errorf("identity: invalid user id: %w", err)
	}
	userID, err := uuid.FromBytes(userBytes)
	if err != nil {
		return ClientId{}, fmt.Errorf("identity: invalid user id: %w", err)
	}

	deviceID, err := strconv.ParseUint(devicePart, 16, 64)
	if err != nil {
		return ClientId{}, fmt.Errorf("identity: invalid device id: %w", err)
	}

	return NewClientId(userID, deviceID, domain)
}

// Equal reports whether two ClientIds name the same client.
func (c ClientId) Equal(other ClientId) bool {
	return c.ToURI() == other.ToURI()
}
