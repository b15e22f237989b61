package fibsync

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/gobwas/glob"
	"github.com/vishvananda/netlink"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/VanshK123/bgp-prototype/internal/rib"
)

// Sync mirrors the forwarding table into a dedicated kernel routing table.
//
// Reconciliation is one-way: routes present in the RIB are replaced into the
// kernel table, kernel routes no longer present in the RIB are removed.
// Only routes whose nexthop is on-link behind an interface matching the
// configured patterns are installed.
type Sync struct {
	cfg   *Config
	table *rib.RIB
	globs []glob.Glob
	log   *zap.SugaredLogger
}

func New(cfg *Config, table *rib.RIB, log *zap.SugaredLogger) (*Sync, error) {
	globs := make([]glob.Glob, 0, len(cfg.Links))
	for _, pattern := range cfg.Links {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile link pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return &Sync{
		cfg:   cfg,
		table: table,
		globs: globs,
		log:   log,
	}, nil
}

// Run reconciles the kernel table whenever the RIB has changed since the
// last pass, checking at the configured interval.
func (m *Sync) Run(ctx context.Context) error {
	m.log.Infow("starting kernel FIB sync",
		zap.Int("table", m.cfg.Table),
		zap.Duration("interval", m.cfg.SyncInterval),
	)

	tick := time.NewTicker(m.cfg.SyncInterval)
	defer tick.Stop()

	var lastApplied time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			changedAt := m.table.UpdatedAt()
			if !changedAt.After(lastApplied) {
				continue
			}
			if err := m.reconcile(); err != nil {
				m.log.Warnw("kernel FIB reconciliation failed", zap.Error(err))
				continue
			}
			lastApplied = changedAt
		}
	}
}

func (m *Sync) matchLink(name string) bool {
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// onLinkNets returns the IPv4 networks of all interfaces matching the
// configured patterns.
func (m *Sync) onLinkNets() ([]netip.Prefix, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	var nets []netip.Prefix
	for _, link := range links {
		if !m.matchLink(link.Attrs().Name) {
			continue
		}
		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			return nil, fmt.Errorf("failed to list addresses of %q: %w", link.Attrs().Name, err)
		}
		for _, addr := range addrs {
			ones, _ := addr.IPNet.Mask.Size()
			if ip, ok := netip.AddrFromSlice(addr.IPNet.IP.To4()); ok {
				nets = append(nets, netip.PrefixFrom(ip, ones).Masked())
			}
		}
	}
	return nets, nil
}

func (m *Sync) reconcile() error {
	nets, err := m.onLinkNets()
	if err != nil {
		return err
	}

	desired := map[string]*netlink.Route{}
	for _, route := range m.table.Dump() {
		nl, ok := kernelRoute(route, m.cfg.Table, nets)
		if !ok {
			continue
		}
		desired[nl.Dst.String()] = nl
	}

	existing, err := netlink.RouteListFiltered(netlink.FAMILY_V4,
		&netlink.Route{Table: m.cfg.Table}, netlink.RT_FILTER_TABLE)
	if err != nil {
		return fmt.Errorf("failed to list kernel routes: %w", err)
	}

	installed, removed := 0, 0
	for _, nl := range desired {
		if err := netlink.RouteReplace(nl); err != nil {
			return fmt.Errorf("failed to replace route %s: %w", nl.Dst, err)
		}
		installed++
	}
	for i := range existing {
		if existing[i].Dst == nil {
			continue
		}
		if _, ok := desired[existing[i].Dst.String()]; ok {
			continue
		}
		if err := netlink.RouteDel(&existing[i]); err != nil {
			return fmt.Errorf("failed to delete stale route %s: %w", existing[i].Dst, err)
		}
		removed++
	}

	m.log.Debugw("reconciled kernel FIB",
		zap.Int("installed", installed),
		zap.Int("removed", removed),
	)
	return nil
}

// kernelRoute converts a table route into a netlink route, or reports false
// when the route cannot be installed: no nexthop, or the nexthop is not
// on-link behind an allowed interface.
func kernelRoute(route rib.Route, table int, onLink []netip.Prefix) (*netlink.Route, bool) {
	if !route.NextHop.IsValid() {
		return nil, false
	}
	reachable := false
	for _, n := range onLink {
		if n.Contains(route.NextHop) {
			reachable = true
			break
		}
	}
	if !reachable {
		return nil, false
	}

	return &netlink.Route{
		Dst: &net.IPNet{
			IP:   route.Prefix.Addr().AsSlice(),
			Mask: net.CIDRMask(route.Prefix.Bits(), 32),
		},
		Gw:       route.NextHop.AsSlice(),
		Table:    table,
		Protocol: unix.RTPROT_BGP,
	}, true
}
