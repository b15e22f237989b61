package bench

import (
	"context"
	"fmt"
	"net/netip"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/VanshK123/bgp-prototype/internal/rib"
)

// Report summarizes one benchmark run.
type Report struct {
	RoutesInserted int
	InsertDuration time.Duration
	InsertRate     float64 // routes per second

	Lookups        int
	Misses         int
	LookupDuration time.Duration
	LookupRate     float64 // lookups per second
	P50, P95, P99  time.Duration

	TrieNodes int
}

func (m *Report) String() string {
	return fmt.Sprintf(
		"inserted %d routes in %v (%.0f routes/s); "+
			"%d lookups (%d misses) in %v (%.0f lookups/s); "+
			"latency p50=%v p95=%v p99=%v; %d trie nodes",
		m.RoutesInserted, m.InsertDuration.Round(time.Millisecond), m.InsertRate,
		m.Lookups, m.Misses, m.LookupDuration.Round(time.Millisecond), m.LookupRate,
		m.P50, m.P95, m.P99, m.TrieNodes,
	)
}

// Run drives the table through a bulk-insert phase followed by a concurrent
// lookup phase and reports throughput and latency.
func Run(ctx context.Context, cfg *Config, table *rib.RIB, log *zap.SugaredLogger) (*Report, error) {
	gen := NewGenerator(cfg.Seed)

	log.Infow("generating routes", zap.Int("count", cfg.Routes))
	routes := make([]*rib.Route, cfg.Routes)
	for i := range routes {
		routes[i] = gen.Route()
	}

	log.Info("starting bulk insert")
	insertStart := time.Now()
	for _, r := range routes {
		if err := table.Insert(r); err != nil {
			return nil, fmt.Errorf("bulk insert failed at %s: %w", r.Prefix, err)
		}
	}
	insertDuration := time.Since(insertStart)

	addrs, err := queryAddrs(cfg, gen, routes)
	if err != nil {
		return nil, err
	}
	lookups := cfg.Lookups
	if len(addrs) < lookups {
		lookups = len(addrs)
	}
	if lookups == 0 {
		return nil, fmt.Errorf("no lookup addresses to run (capture %q yielded none?)", cfg.PcapPath)
	}

	workers := max(cfg.Workers, 1)
	resolve := table.Lookup
	if cfg.UseCache {
		resolve = table.Resolve
	}

	log.Infow("starting lookup phase",
		zap.Int("lookups", lookups),
		zap.Int("workers", workers),
		zap.Bool("cache", cfg.UseCache),
	)

	latencies := make([][]time.Duration, workers)
	misses := make([]int, workers)
	chunk := lookups / workers

	lookupStart := time.Now()
	wg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if w == workers-1 {
			hi = lookups
		}
		wg.Go(func() error {
			lat := make([]time.Duration, 0, hi-lo)
			for i := lo; i < hi; i++ {
				if i%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				start := time.Now()
				route := resolve(addrs[i])
				lat = append(lat, time.Since(start))
				if route == nil {
					misses[w]++
				}
			}
			latencies[w] = lat
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}
	lookupDuration := time.Since(lookupStart)

	report := &Report{
		RoutesInserted: table.NumRoutes(),
		InsertDuration: insertDuration,
		InsertRate:     rate(cfg.Routes, insertDuration),
		Lookups:        lookups,
		LookupDuration: lookupDuration,
		LookupRate:     rate(lookups, lookupDuration),
		TrieNodes:      table.NumNodes(),
	}
	for _, n := range misses {
		report.Misses += n
	}

	all := slices.Concat(latencies...)
	slices.Sort(all)
	report.P50 = percentile(all, 0.50)
	report.P95 = percentile(all, 0.95)
	report.P99 = percentile(all, 0.99)

	return report, nil
}

func queryAddrs(cfg *Config, gen *Generator, routes []*rib.Route) ([]netip.Addr, error) {
	if cfg.PcapPath != "" {
		addrs, err := ReadAddrs(cfg.PcapPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read capture %q: %w", cfg.PcapPath, err)
		}
		return addrs, nil
	}

	addrs := make([]netip.Addr, cfg.Lookups)
	for i := range addrs {
		addrs[i] = gen.Addr(routes)
	}
	return addrs, nil
}

func rate(n int, d time.Duration) float64 {
	if n == 0 || d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
