// Package preload holds the static list of hosts known to require HSTS
// before they were ever visited.
package preload

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is a single preloaded host.
type Entry struct {
	Host              string `yaml:"host"`
	IncludeSubdomains bool   `yaml:"includeSubdomains"`
}

// List is a preload list, sorted by host.
// The list is only consulted before it expires.
type List struct {
	Expires time.Time `yaml:"expires"`
	Hosts   []Entry   `yaml:"hosts"`
}

// Load reads and parses the preload list at the given path.
func Load(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Could not read preload list: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML preload list.
// Host names are lower-cased and sorted; duplicates are rejected.
func Parse(data []byte) (*List, error) {
	var list List
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("Could not parse preload list: %w", err)
	}
	if list.Expires.IsZero() {
		return nil, fmt.Errorf("Preload list has no expiry")
	}
	for i := range list.Hosts {
		h := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(list.Hosts[i].Host)), ".")
		if h == "" {
			return nil, fmt.Errorf("Preload list entry %d has no host", i)
		}
		list.Hosts[i].Host = h
	}
	sort.Slice(list.Hosts, func(i, j int) bool {
		return list.Hosts[i].Host < list.Hosts[j].Host
	})
	for i := 1; i < len(list.Hosts); i++ {
		if list.Hosts[i].Host == list.Hosts[i-1].Host {
			return nil, fmt.Errorf("Duplicate preload list entry %s", list.Hosts[i].Host)
		}
	}
	return &list, nil
}

// Lookup returns the entry for exactly the given host,
// or nil if there is none or the list has expired at now.
// It is safe to call on a nil list.
func (l *List) Lookup(host string, now time.Time) *Entry {
	if l == nil || !now.Before(l.Expires) {
		return nil
	}
	i := sort.Search(len(l.Hosts), func(i int) bool {
		return l.Hosts[i].Host >= host
	})
	if i < len(l.Hosts) && l.Hosts[i].Host == host {
		return &l.Hosts[i]
	}
	return nil
}

// Len returns the number of preloaded hosts.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Hosts)
}
