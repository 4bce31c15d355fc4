package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/miekg/dns"
)

// handlePattern matches the restricted character set wire allows for the
// local part of a handle: lowercase letters, digits, underscore and dot.
var handlePattern = regexp.MustCompile(`^[a-z0-9_.]+$`)

// QualifiedHandle is a client's human handle, qualified by the domain it
// belongs to: "{handle}@{domain}".
type QualifiedHandle struct {
	Handle string
	Domain string
}

// NewQualifiedHandle validates handle and domain and returns a
// QualifiedHandle.
func NewQualifiedHandle(handle, domain string) (QualifiedHandle, error) {
	handle = strings.TrimSpace(strings.ToLower(handle))
	domain = strings.TrimSpace(strings.ToLower(domain))
	if handle == "" {
		return QualifiedHandle{}, fmt.Errorf("identity: handle must not be empty")
	}
	if !handlePattern.MatchString(handle) {
		return QualifiedHandle{}, fmt.Errorf("identity: handle %q has invalid characters", handle)
	}
	if _, ok := dns.IsDomainName(domain); !ok || !domainPattern.MatchString(domain) {
		return QualifiedHandle{}, fmt.Errorf("identity: %q is not a valid domain name", domain)
	}
	return QualifiedHandle{Handle: handle, Domain: domain}, nil
}

// String renders the "{handle}@{domain}" form used in ACME SANs.
func (q QualifiedHandle) String() string {
	return fmt.Sprintf("%s@%s", q.Handle, q.Domain)
}

// URI renders the "wireapp://%40{handle}@{domain}" form used as a JWT claim
// and as a certificate URI SAN.
func (q QualifiedHandle) URI() string {
	return fmt.Sprintf("wireapp://%%40%s@%s", q.Handle, q.Domain)
}

// ParseQualifiedHandle parses the "{handle}@{domain}" form back into its
// parts.
func ParseQualifiedHandle(s string) (QualifiedHandle, error) {
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return QualifiedHandle{}, fmt.Errorf("identity: handle %q missing '@domain'", s)
	}
	return NewQualifiedHandle(s[:at], s[at+1:])
}

// ParseQualifiedHandleURI parses the "wireapp://%40{handle}@{domain}" claim
// form.
func ParseQualifiedHandleURI(uri string) (QualifiedHandle, error) {
	const prefix = "wireapp://%40"
	if !strings.HasPrefix(uri, prefix) {
		return QualifiedHandle{}, fmt.Errorf("identity: missing %q prefix", prefix)
	}
	return ParseQualifiedHandle(strings.TrimPrefix(uri, prefix))
}

// Equal reports whether two QualifiedHandles are the same.
func (q QualifiedHandle) Equal(other QualifiedHandle) bool {
	return q.Handle == other.Handle && q.Domain == other.Domain
}

// Team is the name of the team a client belongs to, carried as a DPoP and
// access-token claim and, where configured, as CSR metadata.
type Team string
