package rfc6797

const includeSubDomainsDirective = "includesubdomains"

// §  6.1.2.  The includeSubDomains Directive
// §
// §     The OPTIONAL "includeSubDomains" directive is a valueless directive
// §     which, if present (i.e., it is "asserted"), signals the UA that the
// §     HSTS Policy applies to this HSTS Host as well as any subdomains of
// §     the host's domain name.
func includeSubDomainsValue(header string, d directive) error {
	if d.hasValue {
		return malformed(header, d.offset, "includeSubDomains directive unexpectedly had value '"+d.value+"'")
	}
	return nil
}
