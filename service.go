// Package alwayshsts keeps track of hosts that require secure transport
// (HTTP Strict Transport Security, RFC 6797) and enforces it for HTTP clients.
package alwayshsts

import (
	"crypto/tls"
	"errors"
	"math"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/always-cache/always-hsts/pkg/host"
	"github.com/always-cache/always-hsts/preload"
	"github.com/always-cache/always-hsts/rfc6797"
	"github.com/always-cache/always-hsts/state"

	"github.com/rs/zerolog"
)

// Flags modify how state is stored and looked up.
type Flags uint32

const (
	// NoPermanentStorage selects private storage, which is never persisted.
	NoPermanentStorage Flags = 1 << iota
)

func (f Flags) private() bool {
	return f&NoPermanentStorage != 0
}

// Hosts that are never considered secure, including their subdomains.
var holePunched = []string{"chart.apis.google.com"}

var ErrNoURL = errors.New("No URL given")

type Config struct {
	// Persistent storage for site security state.
	// An in-memory store is used if nil.
	Store state.Provider
	// Preload list of known HSTS hosts. May be nil.
	Preload *preload.List
	// Ignore the preload list.
	DisablePreloadList bool
	// Offset added to the current time when checking preload list expiry.
	TimeOffset time.Duration
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// Clock to use. time.Now if nil.
	Now func() time.Time
	// Metrics to record. Nothing is recorded if nil.
	Metrics *Metrics
	// How long the sweeper pauses when nothing has expired.
	// Defaults to one minute.
	SweepInterval time.Duration
}

// SiteSecurityService processes Strict-Transport-Security headers
// and answers whether hosts must be accessed securely.
// It is safe for concurrent use.
type SiteSecurityService struct {
	storage       *state.Storage
	preload       atomic.Pointer[preload.List]
	usePreload    atomic.Bool
	timeOffset    atomic.Int64
	log           zerolog.Logger
	now           func() time.Time
	metrics       *Metrics
	sweepInterval time.Duration
}

// New creates the site security service.
func New(config Config) *SiteSecurityService {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	logger = logger.With().Str("component", "sss").Logger()

	s := &SiteSecurityService{
		storage:       state.NewStorage(config.Store),
		log:           logger,
		now:           config.Now,
		metrics:       config.Metrics,
		sweepInterval: config.SweepInterval,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sweepInterval <= 0 {
		s.sweepInterval = time.Minute
	}
	s.preload.Store(config.Preload)
	s.usePreload.Store(!config.DisablePreloadList)
	s.timeOffset.Store(int64(config.TimeOffset))
	return s
}

// SetPreloadList replaces the preload list.
func (s *SiteSecurityService) SetPreloadList(l *preload.List) {
	s.preload.Store(l)
	s.log.Debug().Int("hosts", l.Len()).Msg("Preload list replaced")
}

// SetUsePreloadList enables or disables the preload list.
func (s *SiteSecurityService) SetUsePreloadList(use bool) {
	s.usePreload.Store(use)
}

// SetTimeOffset changes the offset used for checking preload list expiry.
func (s *SiteSecurityService) SetTimeOffset(d time.Duration) {
	s.timeOffset.Store(int64(d))
}

// preloadEntry returns the preload list entry for exactly the given host.
func (s *SiteSecurityService) preloadEntry(h string) *preload.Entry {
	if !s.usePreload.Load() {
		return nil
	}
	now := s.now().Add(time.Duration(s.timeOffset.Load()))
	return s.preload.Load().Lookup(h, now)
}

// ProcessHeader parses the Strict-Transport-Security header received from
// the given host and updates the host's state accordingly.
// Headers from hosts given as IP address are ignored.
// If the header is malformed, the error is returned and no state changes.
func (s *SiteSecurityService) ProcessHeader(hostname, header string, flags Flags) (rfc6797.Policy, error) {
	h, err := host.Normalize(hostname)
	if err != nil {
		return rfc6797.Policy{}, err
	}
	if host.IsIPAddress(h) {
		s.log.Debug().Str("host", h).Msg("Not processing header for IP address")
		s.metrics.header("ignored")
		return rfc6797.Policy{}, nil
	}

	s.log.Trace().Str("host", h).Str("header", header).Msg("Processing header")
	policy, err := rfc6797.ParseHeader(header)
	if err != nil {
		s.metrics.header("malformed")
		return rfc6797.Policy{}, err
	}
	if len(policy.Unrecognized) > 0 {
		s.log.Trace().Str("host", h).Strs("directives", policy.Unrecognized).Msg("Ignored unrecognized directives")
	}

	// max-age=0 means the host asks to be forgotten
	if policy.MaxAge == 0 {
		if err := s.removeState(h, flags); err != nil {
			return policy, err
		}
		s.metrics.header("removed")
		return policy, nil
	}

	st := state.SiteState{
		ExpireTime:        expireTime(s.now(), policy.MaxAge),
		State:             state.Set,
		IncludeSubdomains: policy.IncludeSubDomains,
	}
	s.log.Debug().Str("host", h).Str("state", st.String()).Bool("private", flags.private()).Msg("Setting state")
	if err := s.storage.For(flags.private()).Put(h, st); err != nil {
		return policy, err
	}
	s.metrics.header("stored")
	return policy, nil
}

// expireTime returns now plus max-age as milliseconds, saturating on overflow.
func expireTime(now time.Time, maxAge uint64) int64 {
	nowMs := now.UnixMilli()
	if nowMs < 0 {
		nowMs = 0
	}
	if maxAge > uint64(math.MaxInt64-nowMs)/1000 {
		return math.MaxInt64
	}
	return nowMs + int64(maxAge)*1000
}

// RemoveState forgets the state of the host.
// A preloaded host gets a knockout entry instead, overriding the preload list.
func (s *SiteSecurityService) RemoveState(hostname string, flags Flags) error {
	h, err := host.Normalize(hostname)
	if err != nil {
		return err
	}
	return s.removeState(h, flags)
}

func (s *SiteSecurityService) removeState(h string, flags Flags) error {
	store := s.storage.For(flags.private())
	if s.preloadEntry(h) != nil {
		s.log.Debug().Str("host", h).Msg("Storing knockout entry")
		return store.Put(h, state.SiteState{State: state.Knockout})
	}
	s.log.Debug().Str("host", h).Msg("Removing entry")
	return store.Remove(h)
}

// IsSecureHost reports whether the host must be accessed over a secure transport.
// The host itself is checked first, then its ancestor domains,
// which only count if they include subdomains.
func (s *SiteSecurityService) IsSecureHost(hostname string, flags Flags) (bool, error) {
	secure, err := s.isSecureHost(hostname, flags)
	if err == nil {
		s.metrics.lookup(secure)
	}
	return secure, err
}

func (s *SiteSecurityService) isSecureHost(hostname string, flags Flags) (bool, error) {
	h, err := host.Normalize(hostname)
	if err != nil {
		return false, err
	}
	// an IP address never qualifies as a secure host
	if host.IsIPAddress(h) {
		return false, nil
	}
	for _, punched := range holePunched {
		if host.IsSubdomainOf(h, punched) {
			return false, nil
		}
	}

	store := s.storage.For(flags.private())
	now := s.now()

	// A stored entry for the exact host takes precedence over the preload list.
	// A knockout entry means nothing is known about this host.
	st, err := s.lookup(store, h)
	if err != nil {
		return false, err
	}
	if st.State != state.Unset {
		expired := st.IsExpired(now)
		if !expired && st.State == state.Set {
			return true, nil
		}
		if expired {
			s.purgeIfNotPreloaded(store, h)
		}
	} else if s.preloadEntry(h) != nil {
		s.log.Trace().Str("host", h).Msg("Preloaded host")
		return true, nil
	}

	for _, ancestor := range host.Ancestors(h) {
		st, err := s.lookup(store, ancestor)
		if err != nil {
			return false, err
		}
		if st.State != state.Unset {
			expired := st.IsExpired(now)
			if !expired && st.State == state.Set {
				return st.IncludeSubdomains, nil
			}
			if expired {
				s.purgeIfNotPreloaded(store, ancestor)
			}
		} else if entry := s.preloadEntry(ancestor); entry != nil && entry.IncludeSubdomains {
			s.log.Trace().Str("host", ancestor).Msg("Preloaded ancestor includes subdomains")
			return true, nil
		}
	}
	return false, nil
}

func (s *SiteSecurityService) lookup(store state.Provider, h string) (state.SiteState, error) {
	st, ok, err := store.Get(h)
	if err != nil || !ok {
		return state.SiteState{}, err
	}
	return st, nil
}

func (s *SiteSecurityService) purgeIfNotPreloaded(store state.Provider, h string) {
	if s.preloadEntry(h) != nil {
		return
	}
	s.log.Debug().Str("host", h).Msg("Purging expired entry")
	if err := store.Remove(h); err != nil {
		s.log.Warn().Err(err).Str("host", h).Msg("Could not purge expired entry")
	}
}

// IsSecureURI reports whether the URL's host must be accessed securely.
func (s *SiteSecurityService) IsSecureURI(u *url.URL, flags Flags) (bool, error) {
	if u == nil {
		return false, ErrNoURL
	}
	return s.IsSecureHost(u.Hostname(), flags)
}

// State returns the stored state of the host.
func (s *SiteSecurityService) State(hostname string, flags Flags) (string, state.SiteState, error) {
	h, err := host.Normalize(hostname)
	if err != nil {
		return "", state.SiteState{}, err
	}
	st, err := s.lookup(s.storage.For(flags.private()), h)
	return h, st, err
}

// Entries calls the callback for every stored state.
func (s *SiteSecurityService) Entries(flags Flags, cb func(string, state.SiteState)) error {
	return s.storage.For(flags.private()).All(cb)
}

// ClearAll forgets all persistent and private state.
func (s *SiteSecurityService) ClearAll() error {
	s.log.Info().Msg("Clearing all site security state")
	return s.storage.Clear()
}

// ShouldIgnoreHeaders reports whether headers received over the connection
// must be ignored because its TLS is broken: untrusted, not valid at this
// time or not matching the host name.
func (s *SiteSecurityService) ShouldIgnoreHeaders(cs *tls.ConnectionState) bool {
	if cs == nil || !cs.HandshakeComplete {
		return true
	}
	if len(cs.VerifiedChains) == 0 || len(cs.PeerCertificates) == 0 {
		return true
	}
	leaf := cs.PeerCertificates[0]
	now := s.now()
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		return true
	}
	if cs.ServerName != "" && leaf.VerifyHostname(cs.ServerName) != nil {
		return true
	}
	return false
}
