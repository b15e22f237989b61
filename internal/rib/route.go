package rib

import (
	"fmt"
	"net/netip"
	"time"
)

// MaxASPathLen caps the number of AS hops carried with a route. Longer
// paths are rejected at insertion instead of being silently truncated.
const MaxASPathLen = 10

// Route stores one advertised IPv4 prefix together with the BGP attributes
// the daemon handed over. The attributes are opaque to the forwarding table:
// they are carried for the caller, not interpreted here.
//
// A Route is immutable once it has been inserted into the RIB.
type Route struct {
	// Prefix is the key of the route. Only the high Prefix.Bits() bits of
	// the address are significant.
	Prefix netip.Prefix
	// NextHop is the IPv4 address traffic for this prefix is forwarded to.
	NextHop netip.Addr
	// ASPath lists the AS hops towards the origin, at most MaxASPathLen.
	ASPath []uint32
	// LocalPref and Med are ranking metadata, passed through unexamined.
	LocalPref int32
	Med       int32
	// UpdatedAt is stamped when the route enters the RIB.
	UpdatedAt time.Time
}

// Validate reports whether the route can be stored in an IPv4 table.
func (m *Route) Validate() error {
	if !m.Prefix.IsValid() || !m.Prefix.Addr().Is4() {
		return fmt.Errorf("prefix %q: %w", m.Prefix, ErrNotIPv4)
	}
	if m.NextHop.IsValid() && !m.NextHop.Is4() {
		return fmt.Errorf("nexthop %q: %w", m.NextHop, ErrNotIPv4)
	}
	if len(m.ASPath) > MaxASPathLen {
		return fmt.Errorf("as_path has %d hops: %w", len(m.ASPath), ErrASPathTooLong)
	}
	return nil
}

func (m *Route) String() string {
	return fmt.Sprintf("%s via %s", m.Prefix, m.NextHop)
}
