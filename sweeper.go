package alwayshsts

import (
	"context"
	"time"

	"github.com/always-cache/always-hsts/state"
)

// Run runs the expiry sweep loop on persistent storage until the context is done.
// It takes the entry expiring first; if it has expired, it is removed
// (or turned into a knockout entry if the host is preloaded) and the next one
// is looked at right away. Otherwise it pauses for the sweep interval.
func (s *SiteSecurityService) Run(ctx context.Context) error {
	s.log.Info().Msgf("Starting expiry sweep loop with interval %s", s.sweepInterval)
	store := s.storage.For(false)
	for {
		h, st, err := store.Oldest()
		if err != nil {
			s.log.Error().Err(err).Msg("Could not get oldest entry")
			if !s.pause(ctx) {
				return nil
			}
			continue
		}
		if h != "" && st.IsExpired(s.now()) {
			if err := s.sweep(store, h); err != nil {
				s.log.Error().Err(err).Str("host", h).Msg("Could not sweep expired entry")
				if !s.pause(ctx) {
					return nil
				}
			}
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		s.log.Trace().Msg("No entries expired, pausing sweep")
		if !s.pause(ctx) {
			return nil
		}
	}
}

// sweep removes an expired entry.
// An expired entry of a preloaded host hides the preload entry,
// so it is kept as a knockout entry, which never expires.
func (s *SiteSecurityService) sweep(store state.Provider, h string) error {
	s.metrics.swept()
	if s.preloadEntry(h) != nil {
		s.log.Debug().Str("host", h).Msg("Expired preloaded entry, storing knockout entry")
		return store.Put(h, state.SiteState{State: state.Knockout})
	}
	s.log.Debug().Str("host", h).Msg("Sweeping expired entry")
	return store.Remove(h)
}

// pause sleeps for the sweep interval.
// It returns false if the context was done before that.
func (s *SiteSecurityService) pause(ctx context.Context) bool {
	timer := time.NewTimer(s.sweepInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
