package bench

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/VanshK123/bgp-prototype/internal/rib"
)

func TestGeneratorDeterministic(t *testing.T) {
	a, b := NewGenerator(7), NewGenerator(7)
	for i := 0; i < 100; i++ {
		ra, rb := a.Route(), b.Route()
		require.Equal(t, ra.Prefix, rb.Prefix)
		require.Equal(t, ra.NextHop, rb.NextHop)
		require.Equal(t, ra.ASPath, rb.ASPath)
	}
}

func TestGeneratorRouteShape(t *testing.T) {
	gen := NewGenerator(1)
	for i := 0; i < 1000; i++ {
		r := gen.Route()
		require.NoError(t, r.Validate())
		require.Equal(t, r.Prefix, r.Prefix.Masked(), "prefix must be normalized")
		require.Less(t, r.Prefix.Addr().As4()[0], byte(224), "no multicast prefixes")
		require.NotEmpty(t, r.ASPath)
	}
}

func TestGeneratorAddrHitsRoutes(t *testing.T) {
	gen := NewGenerator(3)
	routes := make([]*rib.Route, 100)
	for i := range routes {
		routes[i] = gen.Route()
	}

	table := rib.NewRIB(rib.DefaultConfig(), zap.NewNop().Sugar())
	for _, r := range routes {
		require.NoError(t, table.Insert(r))
	}

	hits := 0
	for i := 0; i < 1000; i++ {
		if table.Lookup(gen.Addr(routes)) != nil {
			hits++
		}
	}
	// Roughly 3 of 4 queries are drawn from inside a stored prefix.
	require.Greater(t, hits, 500)
}

func TestRunSmoke(t *testing.T) {
	cfg := &Config{
		Routes:   500,
		Lookups:  5_000,
		Workers:  2,
		Seed:     42,
		UseCache: true,
	}
	table := rib.NewRIB(&rib.Config{CacheCapacity: 256, CacheTTL: time.Minute}, zap.NewNop().Sugar())
	defer table.Teardown()

	report, err := Run(context.Background(), cfg, table, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.Equal(t, cfg.Lookups, report.Lookups)
	require.Positive(t, report.RoutesInserted)
	require.LessOrEqual(t, report.RoutesInserted, cfg.Routes)
	require.Positive(t, report.InsertRate)
	require.Positive(t, report.LookupRate)
	require.Greater(t, report.TrieNodes, 1)
	require.LessOrEqual(t, report.P50, report.P95)
	require.LessOrEqual(t, report.P95, report.P99)
	require.NotEmpty(t, report.String())
}

func TestRunNoLookupAddrs(t *testing.T) {
	// An empty query set would make every rate in the report meaningless,
	// so the run refuses it up front.
	cfg := &Config{Routes: 10, Lookups: 0, Workers: 1, Seed: 1}
	table := rib.NewRIB(rib.DefaultConfig(), zap.NewNop().Sugar())

	_, err := Run(context.Background(), cfg, table, zap.NewNop().Sugar())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no lookup addresses")
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &Config{Routes: 10, Lookups: 100_000, Workers: 2, Seed: 1}
	table := rib.NewRIB(rib.DefaultConfig(), zap.NewNop().Sugar())

	_, err := Run(ctx, cfg, table, zap.NewNop().Sugar())
	require.ErrorIs(t, err, context.Canceled)
}
