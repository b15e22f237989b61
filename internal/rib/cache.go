package rib

import (
	"net/netip"
	"sync"
	"time"
)

// cacheEntry memoizes one address resolution. The route pointer is a
// non-owning reference into the trie; Invalidate clears it when the route
// is withdrawn so a hit never outlives the record.
type cacheEntry struct {
	addr  netip.Addr
	route *Route
	stamp time.Time
}

// LookupCache memoizes recent address to route resolutions for a fixed
// time-to-live, so hot destinations skip the trie descent entirely.
//
// Capacity is fixed at construction. Once the cache is full, new entries
// overwrite the oldest slot ring-buffer style rather than being dropped.
type LookupCache struct {
	mu      sync.Mutex
	entries []cacheEntry
	next    int
	size    int
	ttl     time.Duration

	// now is swapped out in tests.
	now func() time.Time
}

// NewLookupCache returns a cache holding up to capacity entries, each valid
// for ttl after being stored.
func NewLookupCache(capacity int, ttl time.Duration) *LookupCache {
	return &LookupCache{
		entries: make([]cacheEntry, capacity),
		ttl:     ttl,
		now:     time.Now,
	}
}

// GetOrResolve returns the route for addr, serving it from the cache when a
// fresh entry exists and falling through to resolve otherwise. A successful
// resolution is offered back to the cache; an expired or invalidated slot
// for the same address is refreshed in place.
func (m *LookupCache) GetOrResolve(addr netip.Addr, resolve func(netip.Addr) *Route) *Route {
	if len(m.entries) == 0 {
		return resolve(addr)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	stale := -1
	for i := 0; i < m.size; i++ {
		e := &m.entries[i]
		if e.addr != addr {
			continue
		}
		if e.route != nil && now.Sub(e.stamp) < m.ttl {
			return e.route
		}
		stale = i
		break
	}

	route := resolve(addr)
	if route == nil {
		return nil
	}

	if stale >= 0 {
		m.entries[stale] = cacheEntry{addr: addr, route: route, stamp: now}
		return route
	}
	m.entries[m.next] = cacheEntry{addr: addr, route: route, stamp: now}
	m.next = (m.next + 1) % len(m.entries)
	if m.size < len(m.entries) {
		m.size++
	}
	return route
}

// Invalidate drops every entry that references route. Called by the RIB
// when a route is withdrawn from the trie, so the cache cannot hand out a
// reference to a record that is no longer stored.
func (m *LookupCache) Invalidate(route *Route) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < m.size; i++ {
		if m.entries[i].route == route {
			m.entries[i].route = nil
		}
	}
}

// Reset discards all entries.
func (m *LookupCache) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.entries)
	m.next = 0
	m.size = 0
}

// Len returns the number of occupied slots, counting invalidated ones that
// have not been overwritten yet.
func (m *LookupCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}
