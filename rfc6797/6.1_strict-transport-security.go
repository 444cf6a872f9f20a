package rfc6797

import (
	"fmt"
	"strings"
)

// §  6.1.  Strict-Transport-Security HTTP Response Header Field
// §
// §     The Strict-Transport-Security HTTP response header field (STS header
// §     field) indicates to a UA that it MUST enforce the HSTS Policy in
// §     regards to the host emitting the response message containing this
// §     header field.
// §
// §     The ABNF (Augmented Backus-Naur Form) syntax for the STS header field
// §     is given below.  It is based on the Generic Grammar defined in
// §     Section 2 of [RFC2616] (which includes a notion of "implied linear
// §     whitespace", also known as "implied *LWS").
// §
// §       Strict-Transport-Security = "Strict-Transport-Security" ":"
// §                                   [ directive ]  *( ";" [ directive ] )
// §
// §       directive                 = directive-name [ "=" directive-value ]
// §       directive-name            = token
// §       directive-value           = token | quoted-string

type directive struct {
	name     string
	value    string
	hasValue bool
	offset   int
}

// parseDirectives splits a header value into its directives.
// Empty directives are dropped.
func parseDirectives(header string) ([]directive, error) {
	p := &parser{header: header}
	directives := make([]directive, 0, 2)
	for {
		if d, ok := p.directive(); ok {
			directives = append(directives, d)
		}
		if !p.accept(';') {
			break
		}
	}
	// §  4.  UAs MUST ignore any STS header field containing directives, or
	// §      other header field value data, that does not conform to the
	// §      syntax defined in this specification.
	if p.err == nil && p.pos < len(p.header) {
		p.fail(fmt.Sprintf("unexpected character %q", p.header[p.pos]))
	}
	if p.err != nil {
		return nil, p.err
	}
	return directives, nil
}

func (p *parser) directive() (directive, bool) {
	p.lws()
	d := directive{offset: p.pos}
	d.name = p.token()
	p.lws()
	if p.accept('=') {
		if d.name == "" {
			p.fail("directive value without a name")
			return d, false
		}
		d.hasValue = true
		p.lws()
		if p.accept('"') {
			d.value = p.quotedString()
		} else {
			d.value = p.token()
		}
		p.lws()
	}
	return d, p.err == nil && d.name != ""
}

// §     The two directives defined in this specification are described below.
// §     The overall requirements for directives are:
// §
// §     1.  The order of appearance of directives is not significant.
// §
// §     2.  All directives MUST appear only once in an STS header field.
// §         Directives are either optional or required, as stipulated in
// §         their definitions.
// §
// §     3.  Directive names are case-insensitive.
// §
// §     4.  UAs MUST ignore any STS header field containing directives, or
// §         other header field value data, that does not conform to the
// §         syntax defined in this specification.
// §
// §     5.  If an STS header field contains directive(s) not recognized by
// §         the UA, the UA MUST ignore the unrecognized directives, and if
// §         the STS header field otherwise satisfies the above requirements
// §         (1 through 4), the UA MUST process the recognized directives.
func evaluate(header string, directives []directive) (Policy, error) {
	var (
		policy                 Policy
		foundMaxAge            bool
		foundIncludeSubDomains bool
	)
	for _, d := range directives {
		switch {
		case isDirective(d, maxAgeDirective):
			if foundMaxAge {
				return Policy{}, malformed(header, d.offset, "found two max-age directives")
			}
			foundMaxAge = true
			maxAge, err := maxAgeValue(header, d)
			if err != nil {
				return Policy{}, err
			}
			policy.MaxAge = maxAge
		case isDirective(d, includeSubDomainsDirective):
			if foundIncludeSubDomains {
				return Policy{}, malformed(header, d.offset, "found two includeSubDomains directives")
			}
			foundIncludeSubDomains = true
			if err := includeSubDomainsValue(header, d); err != nil {
				return Policy{}, err
			}
			policy.IncludeSubDomains = true
		default:
			policy.Unrecognized = append(policy.Unrecognized, strings.ToLower(d.name))
		}
	}
	if !foundMaxAge {
		return Policy{}, malformed(header, -1, "did not encounter required max-age directive")
	}
	return policy, nil
}

// §  3.  Directive names are case-insensitive.
func isDirective(d directive, name string) bool {
	return strings.EqualFold(d.name, name)
}
