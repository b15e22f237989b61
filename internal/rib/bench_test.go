package rib

import (
	"math/rand/v2"
	"net/netip"
	"testing"
	"time"

	"go.uber.org/zap"
)

func fillTrie(b *testing.B, trie *Trie, n int) []netip.Addr {
	b.Helper()
	rng := rand.New(rand.NewPCG(3, 5))
	addrs := make([]netip.Addr, 0, n)
	for i := 0; i < n; i++ {
		raw := [4]byte{byte(rng.UintN(224)), byte(rng.Uint32()), byte(rng.Uint32()), 0}
		prefix := netip.PrefixFrom(netip.AddrFrom4(raw), 24)
		if _, err := trie.Insert(&Route{Prefix: prefix, NextHop: netip.AddrFrom4([4]byte{192, 0, 2, 1})}); err != nil {
			b.Fatal(err)
		}
		raw[3] = byte(rng.Uint32())
		addrs = append(addrs, netip.AddrFrom4(raw))
	}
	return addrs
}

func BenchmarkTrieInsert(b *testing.B) {
	rng := rand.New(rand.NewPCG(3, 5))
	trie := NewTrie(0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		raw := [4]byte{byte(rng.UintN(224)), byte(rng.Uint32()), byte(rng.Uint32()), 0}
		prefix := netip.PrefixFrom(netip.AddrFrom4(raw), 24)
		if _, err := trie.Insert(&Route{Prefix: prefix}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTrieLookup(b *testing.B) {
	trie := NewTrie(0)
	addrs := fillTrie(b, trie, 100_000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		trie.Lookup(addrs[i%len(addrs)])
	}
}

func BenchmarkResolveCached(b *testing.B) {
	m := NewRIB(&Config{CacheCapacity: 4096, CacheTTL: time.Hour}, zap.NewNop().Sugar())
	trie := NewTrie(0)
	addrs := fillTrie(b, trie, 100_000)
	m.trie = trie

	// Small hot set so most resolutions are cache hits.
	hot := addrs[:1024]
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Resolve(hot[i%len(hot)])
	}
}
