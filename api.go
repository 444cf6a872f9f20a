package alwayshsts

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/always-cache/always-hsts/pkg/host"
	recorder "github.com/always-cache/always-hsts/pkg/response-recorder"
	"github.com/always-cache/always-hsts/rfc6797"
	"github.com/always-cache/always-hsts/state"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/json-iterator/go"
	"github.com/rs/zerolog/hlog"
)

// Maximum accepted request body, a header value is never this long.
const maxBodySize = 64 << 10

type hostState struct {
	Host  string `json:"host"`
	State string `json:"state"`
	// ExpireTime is in milliseconds since the epoch, 0 means never.
	// Expires is left out when the time is not representable as RFC 3339.
	ExpireTime        int64      `json:"expireTime"`
	Expires           *time.Time `json:"expires,omitempty"`
	IncludeSubdomains bool       `json:"includeSubdomains"`
}

type hostStatus struct {
	Host   string     `json:"host"`
	Secure bool       `json:"secure"`
	State  *hostState `json:"state,omitempty"`
}

type policyResponse struct {
	MaxAge            uint64   `json:"maxAge"`
	IncludeSubDomains bool     `json:"includeSubDomains"`
	Unrecognized      []string `json:"unrecognized,omitempty"`
	Canonical         string   `json:"canonical"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Offset *int   `json:"offset,omitempty"`
}

func newHostState(h string, st state.SiteState) hostState {
	hs := hostState{
		Host:              h,
		State:             st.State.String(),
		ExpireTime:        st.ExpireTime,
		IncludeSubdomains: st.IncludeSubdomains,
	}
	if expires := st.Expires(); !expires.IsZero() && expires.Year() <= 9999 {
		hs.Expires = &expires
	}
	return hs
}

func newPolicyResponse(p rfc6797.Policy) policyResponse {
	return policyResponse{
		MaxAge:            p.MaxAge,
		IncludeSubDomains: p.IncludeSubDomains,
		Unrecognized:      p.Unrecognized,
		Canonical:         p.String(),
	}
}

// Handler returns the admin HTTP API of the service.
func (s *SiteSecurityService) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(s.log))
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/hosts", s.listHosts)
	r.Delete("/hosts", s.clearHosts)
	r.Get("/hosts/{host}", s.getHost)
	r.Put("/hosts/{host}", s.putHost)
	r.Delete("/hosts/{host}", s.deleteHost)
	r.Post("/parse", s.parse)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

func (s *SiteSecurityService) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorder.NewResponseRecorder(w)
		next.ServeHTTP(rec, r)
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Str("request-id", middleware.GetReqID(r.Context())).
			Int("status", rec.StatusCode()).
			Int("bytes", rec.BytesWritten()).
			Dur("duration", rec.Duration()).
			Msg("Handled request")
	})
}

func requestFlags(r *http.Request) Flags {
	if p := r.URL.Query().Get("private"); p == "1" || p == "true" {
		return NoPermanentStorage
	}
	return 0
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.ConfigDefault.Marshal(v)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Could not encode response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Could not write response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var malformedErr *rfc6797.MalformedHeaderError
	switch {
	case errors.As(err, &malformedErr):
		res := errorResponse{Error: err.Error()}
		if malformedErr.Offset >= 0 {
			res.Offset = &malformedErr.Offset
		}
		writeJSON(w, r, http.StatusBadRequest, res)
	case errors.Is(err, host.ErrEmptyHost), errors.Is(err, host.ErrInvalidHost):
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *SiteSecurityService) listHosts(w http.ResponseWriter, r *http.Request) {
	hosts := make([]hostState, 0)
	err := s.Entries(requestFlags(r), func(h string, st state.SiteState) {
		hosts = append(hosts, newHostState(h, st))
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, hosts)
}

func (s *SiteSecurityService) clearHosts(w http.ResponseWriter, r *http.Request) {
	if err := s.ClearAll(); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *SiteSecurityService) getHost(w http.ResponseWriter, r *http.Request) {
	flags := requestFlags(r)
	h, st, err := s.State(chi.URLParam(r, "host"), flags)
	if err != nil {
		writeError(w, r, err)
		return
	}
	secure, err := s.IsSecureHost(h, flags)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := hostStatus{Host: h, Secure: secure}
	if st.State != state.Unset {
		hs := newHostState(h, st)
		status.State = &hs
	}
	writeJSON(w, r, http.StatusOK, status)
}

// putHost processes the Strict-Transport-Security header of the request,
// or the request body if there is no such header.
func (s *SiteSecurityService) putHost(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get(rfc6797.HeaderName)
	if header == "" {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		header = string(body)
	}
	policy, err := s.ProcessHeader(chi.URLParam(r, "host"), header, requestFlags(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newPolicyResponse(policy))
}

func (s *SiteSecurityService) deleteHost(w http.ResponseWriter, r *http.Request) {
	if err := s.RemoveState(chi.URLParam(r, "host"), requestFlags(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *SiteSecurityService) parse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	policy, err := rfc6797.ParseHeader(string(body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newPolicyResponse(policy))
}
