package state

import (
	"strconv"
	"strings"
	"time"
)

// PropertyState is the state of a host's HSTS property.
type PropertyState int

const (
	// Unset means no information is known about the host.
	Unset PropertyState = iota
	// Set means the host asserted HSTS.
	Set
	// Knockout overrides a preload list entry after the host sent max-age=0.
	Knockout
)

func (s PropertyState) String() string {
	switch s {
	case Set:
		return "set"
	case Knockout:
		return "knockout"
	default:
		return "unset"
	}
}

// SiteState is the stored security state of a single host.
// Its serialized form is "<expire ms>,<state>,<includeSubdomains 0|1>".
type SiteState struct {
	// Expiry as milliseconds since the Unix epoch. Zero never expires.
	ExpireTime        int64
	State             PropertyState
	IncludeSubdomains bool
}

func (s SiteState) String() string {
	include := "0"
	if s.IncludeSubdomains {
		include = "1"
	}
	return strconv.FormatInt(s.ExpireTime, 10) + "," + strconv.Itoa(int(s.State)) + "," + include
}

// ParseSiteState parses the serialized form of a SiteState.
// Anything that does not parse yields the zero (Unset) state.
func ParseSiteState(s string) SiteState {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return SiteState{}
	}
	expire, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || expire < 0 {
		return SiteState{}
	}
	state, err := strconv.Atoi(fields[1])
	if err != nil || state < int(Unset) || state > int(Knockout) {
		return SiteState{}
	}
	var include bool
	switch fields[2] {
	case "0":
	case "1":
		include = true
	default:
		return SiteState{}
	}
	return SiteState{
		ExpireTime:        expire,
		State:             PropertyState(state),
		IncludeSubdomains: include,
	}
}

// IsExpired reports whether the state has expired at the given time.
func (s SiteState) IsExpired(now time.Time) bool {
	if s.ExpireTime == 0 {
		return false
	}
	return now.UnixMilli() > s.ExpireTime
}

// Expires returns the expiry as a time, or the zero time if it never expires.
func (s SiteState) Expires() time.Time {
	if s.ExpireTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.ExpireTime)
}
