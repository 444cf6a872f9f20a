package state

// Provider stores site security state keyed by normalized host name.
// It also keeps track of expiration times so that expired entries can be swept.
//
// Implementations must be thread-safe!
type Provider interface {
	// Get returns the state stored for the host.
	// The boolean is false if nothing is stored.
	// Expired entries are returned as-is; purging is up to the caller.
	Get(host string) (SiteState, bool, error)
	// Put stores the state for the host, replacing any previous state.
	Put(host string, s SiteState) error
	// Remove deletes the state for the host, if any.
	Remove(host string) error
	// Oldest returns the host whose state expires first.
	// Entries that never expire (expiry zero) are not considered.
	// It returns an empty host if there is no such entry.
	Oldest() (string, SiteState, error)
	// All calls the callback for every stored entry.
	All(cb func(host string, s SiteState)) error
	// Clear removes all entries.
	Clear() error
}

// Storage combines the persistent provider with private (non-persisted) storage.
type Storage struct {
	persistent Provider
	private    *MemStore
}

// NewStorage creates storage on top of the given persistent provider.
// A nil provider is replaced by an in-memory store.
func NewStorage(persistent Provider) *Storage {
	if persistent == nil {
		persistent = NewMemStore()
	}
	return &Storage{
		persistent: persistent,
		private:    NewMemStore(),
	}
}

// For returns the private store if private is true, the persistent one otherwise.
func (s *Storage) For(private bool) Provider {
	if private {
		return s.private
	}
	return s.persistent
}

// Clear clears both the persistent and the private store.
func (s *Storage) Clear() error {
	if err := s.private.Clear(); err != nil {
		return err
	}
	return s.persistent.Clear()
}
