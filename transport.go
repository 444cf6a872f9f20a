package alwayshsts

import (
	"net"
	"net/http"

	"github.com/always-cache/always-hsts/rfc6797"
)

// Transport is an http.RoundTripper enforcing HSTS.
// Requests to known HSTS hosts are sent over https instead of http,
// and Strict-Transport-Security headers of secure responses are processed.
type Transport struct {
	Service *SiteSecurityService
	// Transport doing the actual requests. http.DefaultTransport if nil.
	Base  http.RoundTripper
	Flags Flags
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	log := t.Service.log.With().Str("method", req.Method).Str("url", req.URL.String()).Logger()

	if req.URL.Scheme == "http" {
		secure, err := t.Service.IsSecureHost(req.URL.Hostname(), t.Flags)
		if err != nil {
			log.Warn().Err(err).Msg("Could not check whether host is secure")
		} else if secure {
			req = upgradeRequest(req)
			t.Service.metrics.upgrade()
			log.Debug().Str("upgraded", req.URL.String()).Msg("Upgrading request to https")
		}
	}

	res, err := t.base().RoundTrip(req)
	if err != nil {
		return res, err
	}

	values := res.Header.Values(rfc6797.HeaderName)
	if len(values) == 0 {
		return res, nil
	}
	// headers received over insecure transport must be ignored
	if req.URL.Scheme != "https" {
		log.Trace().Msg("Ignoring header received over http")
		return res, nil
	}
	if t.Service.ShouldIgnoreHeaders(res.TLS) {
		log.Warn().Msg("Ignoring header received over broken TLS")
		t.Service.metrics.header("ignored")
		return res, nil
	}
	// only the first header field is processed
	if _, err := t.Service.ProcessHeader(req.URL.Hostname(), values[0], t.Flags); err != nil {
		log.Warn().Err(err).Str("header", values[0]).Msg("Could not process header")
	}
	return res, nil
}

// upgradeRequest returns a copy of the request using https.
// An explicit port 80 becomes 443, other ports are kept.
func upgradeRequest(req *http.Request) *http.Request {
	upgraded := req.Clone(req.Context())
	upgraded.URL.Scheme = "https"
	if req.URL.Port() == "80" {
		upgraded.URL.Host = net.JoinHostPort(req.URL.Hostname(), "443")
	}
	if upgraded.Host != "" {
		if hostname, port, err := net.SplitHostPort(upgraded.Host); err == nil && port == "80" {
			upgraded.Host = net.JoinHostPort(hostname, "443")
		}
	}
	return upgraded
}
