package fibsync

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/VanshK123/bgp-prototype/internal/rib"
)

func TestMatchLink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Links = []string{"eth*", "wg[0-9]"}

	s, err := New(cfg, nil, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.True(t, s.matchLink("eth0"))
	require.True(t, s.matchLink("wg3"))
	require.False(t, s.matchLink("lo"))
	require.False(t, s.matchLink("wg10"))
}

func TestNewRejectsBadPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Links = []string{"eth["}

	_, err := New(cfg, nil, zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestKernelRoute(t *testing.T) {
	onLink := []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24")}

	route := rib.Route{
		Prefix:  netip.MustParsePrefix("10.0.1.0/24"),
		NextHop: netip.MustParseAddr("192.0.2.1"),
	}
	nl, ok := kernelRoute(route, 200, onLink)
	require.True(t, ok)
	require.Equal(t, "10.0.1.0/24", nl.Dst.String())
	require.Equal(t, "192.0.2.1", nl.Gw.String())
	require.Equal(t, 200, nl.Table)

	// Nexthop off-link: not installable.
	route.NextHop = netip.MustParseAddr("198.51.100.1")
	_, ok = kernelRoute(route, 200, onLink)
	require.False(t, ok)

	// No nexthop at all.
	route.NextHop = netip.Addr{}
	_, ok = kernelRoute(route, 200, onLink)
	require.False(t, ok)
}
