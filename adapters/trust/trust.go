// Package trust implements trust-root parsing and scope checking for
// relying-party URLs. A trust root is an absolute http or https URL whose
// host may carry a single leading *. wildcard; a candidate URL is in scope
// when its scheme, host (modulo the wildcard), port, and path prefix all
// match.
package trust

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

var (
	errNoHost       = errors.New("trust_root has no host")
	errBadScheme    = errors.New("trust_root scheme must be http or https")
	errBareWildcard = errors.New("trust_root wildcard too broad")
)

// Validator parses trust-root patterns.
type Validator struct{}

// NewValidator creates a trust-root validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Parse validates and parses a trust-root pattern.
func (*Validator) Parse(trustRoot string) (ports.TrustRoot, error) {
	u, err := url.Parse(trustRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrMalformedTrustRoot, trustRoot)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", core.ErrMalformedTrustRoot, errBadScheme)
	}

	host := strings.ToLower(u.Hostname())
	wildcard := false
	if strings.HasPrefix(host, "*.") {
		wildcard = true
		host = host[2:]
	}
	if host == "" || strings.Contains(host, "*") {
		return nil, fmt.Errorf("%w: %s", core.ErrMalformedTrustRoot, errNoHost)
	}
	// refuse roots like *.com that would match an entire TLD
	if wildcard && !strings.Contains(host, ".") {
		return nil, fmt.Errorf("%w: %s", core.ErrMalformedTrustRoot, errBareWildcard)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return &root{
		scheme:   u.Scheme,
		host:     host,
		wildcard: wildcard,
		port:     portOrDefault(u),
		path:     path,
	}, nil
}

type root struct {
	scheme   string
	host     string
	wildcard bool
	port     string
	path     string
}

// ValidateURL reports whether rawURL falls inside the trust root's scope.
func (r *root) ValidateURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != r.scheme {
		return false
	}
	if portOrDefault(u) != r.port {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if r.wildcard {
		if host != r.host && !strings.HasSuffix(host, "."+r.host) {
			return false
		}
	} else if host != r.host {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return strings.HasPrefix(path, r.path)
}

func portOrDefault(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch u.Scheme {
	case "https":
		return "443"
	default:
		return "80"
	}
}

var _ ports.TrustValidator = (*Validator)(nil)
