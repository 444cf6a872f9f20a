package host

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyHost   = errors.New("Empty host")
	ErrInvalidHost = errors.New("Invalid host")
)

// Like idna.Lookup, but without the STD3 rules, so that names such as
// "my_host.example.com" are accepted.
var profile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false))

// Normalize returns the key under which a host's security state is stored.
// It strips a port and IPv6 brackets, drops a trailing dot, lower-cases the
// name and converts internationalized names to their ASCII form.
// IP literals are returned without brackets.
func Normalize(h string) (string, error) {
	name := stripPort(h)
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return "", ErrEmptyHost
	}
	if IsIPAddress(name) {
		return strings.ToLower(name), nil
	}
	ascii, err := profile.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidHost, h, err)
	}
	if ascii == "" {
		return "", ErrEmptyHost
	}
	return strings.ToLower(ascii), nil
}

// stripPort removes an optional port, keeping IPv6 literals intact.
func stripPort(h string) string {
	if strings.HasPrefix(h, "[") {
		if end := strings.Index(h, "]"); end > 0 {
			return h[1:end]
		}
		return h
	}
	// more than one colon means a bare IPv6 literal
	if strings.Count(h, ":") == 1 {
		name, _, _ := strings.Cut(h, ":")
		return name
	}
	return h
}

// IsIPAddress reports whether h is an IPv4 or IPv6 literal, with or without brackets.
func IsIPAddress(h string) bool {
	h = strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
	if i := strings.Index(h, "%"); i > 0 {
		// IPv6 zone
		h = h[:i]
	}
	return net.ParseIP(h) != nil
}

// Ancestors returns the superdomains of h, nearest first.
// E.g. "a.b.example.com" gives "b.example.com", "example.com", "com".
func Ancestors(h string) []string {
	ancestors := make([]string, 0, strings.Count(h, "."))
	for i := strings.IndexByte(h, '.'); i >= 0; {
		parent := h[i+1:]
		if parent == "" {
			break
		}
		ancestors = append(ancestors, parent)
		next := strings.IndexByte(parent, '.')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return ancestors
}

// IsSubdomainOf reports whether h equals domain or is below it.
func IsSubdomainOf(h, domain string) bool {
	return h == domain || strings.HasSuffix(h, "."+domain)
}
