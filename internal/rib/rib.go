package rib

import (
	"net/netip"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config holds the sizing knobs for the forwarding table.
type Config struct {
	// MaxNodes caps the trie arena. Zero means unlimited.
	MaxNodes int `yaml:"max_nodes"`
	// CacheCapacity is the fixed number of lookup cache slots. Zero
	// disables the cache.
	CacheCapacity int `yaml:"cache_capacity"`
	// CacheTTL is how long a cached resolution stays valid.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

func DefaultConfig() *Config {
	return &Config{
		CacheCapacity: 1024,
		CacheTTL:      30 * time.Second,
	}
}

// RIB is the routing information base: a longest-prefix-match trie with an
// attached lookup cache.
//
// Insert, Delete and Teardown take the exclusive lock; Lookup and Resolve
// run under the read lock. A reader therefore never observes a partially
// linked node, and pruning cannot release a node another goroutine is still
// descending through.
type RIB struct {
	mu        sync.RWMutex
	trie      *Trie
	cache     *LookupCache
	changedAt atomic.Int64
	log       *zap.SugaredLogger
}

// NewRIB returns an empty RIB sized according to cfg.
func NewRIB(cfg *Config, log *zap.SugaredLogger) *RIB {
	m := &RIB{
		trie:  NewTrie(cfg.MaxNodes),
		cache: NewLookupCache(cfg.CacheCapacity, cfg.CacheTTL),
		log:   log,
	}
	m.changedAt.Store(time.Now().UnixNano())
	return m
}

// Insert stores the route, overwriting any earlier route with the same
// prefix and length. The prefix is normalized and the route stamped before
// it becomes visible to lookups. A replaced route is evicted from the
// lookup cache so Resolve never serves it beyond the overwrite.
func (m *RIB) Insert(route *Route) error {
	if err := route.Validate(); err != nil {
		return err
	}
	route.Prefix = route.Prefix.Masked()
	route.UpdatedAt = time.Now()

	m.mu.Lock()
	replaced, err := m.trie.Insert(route)
	if replaced != nil {
		m.cache.Invalidate(replaced)
	}
	m.mu.Unlock()
	if err != nil {
		m.log.Warnw("failed to insert route", zap.Stringer("prefix", route.Prefix), zap.Error(err))
		return err
	}
	m.changedAt.Store(time.Now().UnixNano())

	m.log.Debugw("inserted route",
		zap.Stringer("prefix", route.Prefix),
		zap.Stringer("nexthop", route.NextHop),
	)
	return nil
}

// Lookup resolves addr straight through the trie, bypassing the cache.
func (m *RIB) Lookup(addr netip.Addr) *Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trie.Lookup(addr.Unmap())
}

// Resolve returns the route for addr, consulting the lookup cache first.
//
// The cache is populated under the same read lock as the trie query, so a
// concurrent Delete cannot slip a withdrawn route into the cache between
// resolution and insertion.
func (m *RIB) Resolve(addr netip.Addr) *Route {
	addr = addr.Unmap()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache.GetOrResolve(addr, m.trie.Lookup)
}

// Delete withdraws the route anchored exactly at prefix and invalidates any
// cache entries still referencing it.
func (m *RIB) Delete(prefix netip.Prefix) error {
	m.mu.Lock()
	removed, err := m.trie.Delete(prefix)
	if err == nil {
		m.cache.Invalidate(removed)
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.changedAt.Store(time.Now().UnixNano())

	m.log.Debugw("deleted route", zap.Stringer("prefix", prefix.Masked()))
	return nil
}

// Dump returns a copy of every stored route.
func (m *RIB) Dump() []Route {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Route, 0, m.trie.NumRoutes())
	m.trie.Walk(func(r *Route) bool {
		cp := *r
		// The ASPath slice must not be shared with the stored record.
		cp.ASPath = slices.Clone(r.ASPath)
		out = append(out, cp)
		return true
	})
	return out
}

// Teardown releases the whole table and empties the cache. Idempotent.
func (m *RIB) Teardown() {
	m.mu.Lock()
	m.trie.Teardown()
	m.cache.Reset()
	m.mu.Unlock()
	m.changedAt.Store(time.Now().UnixNano())

	m.log.Debug("rib torn down")
}

// NumNodes returns the live trie node count, including the root.
func (m *RIB) NumNodes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trie.NumNodes()
}

// NumRoutes returns the number of stored routes.
func (m *RIB) NumRoutes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trie.NumRoutes()
}

// UpdatedAt returns the time of the last structural change.
func (m *RIB) UpdatedAt() time.Time {
	return time.Unix(0, m.changedAt.Load())
}
