package bench

import (
	"math/rand/v2"
	"net/netip"

	"github.com/VanshK123/bgp-prototype/internal/rib"
)

// Generator produces deterministic synthetic routes and query addresses.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed<<1|1)),
	}
}

var prefixLens = []int{8, 16, 24, 24, 24, 32}

// Route returns one random route. Prefix lengths are skewed towards /24,
// roughly matching the shape of a real BGP table.
func (m *Generator) Route() *rib.Route {
	bits := prefixLens[m.rng.IntN(len(prefixLens))]
	raw := m.rng.Uint32()
	// Stay out of multicast and reserved space.
	raw &= 0xdfffffff
	if bits < 32 {
		raw &= ^uint32(0) << (32 - bits)
	}

	asPath := make([]uint32, 1+m.rng.IntN(rib.MaxASPathLen-1))
	for i := range asPath {
		asPath[i] = 64512 + m.rng.Uint32N(1024)
	}

	return &rib.Route{
		Prefix: netip.PrefixFrom(netip.AddrFrom4([4]byte{
			byte(raw >> 24), byte(raw >> 16), byte(raw >> 8), byte(raw),
		}), bits),
		NextHop: netip.AddrFrom4([4]byte{
			192, 0, 2, byte(1 + m.rng.IntN(254)),
		}),
		LocalPref: int32(m.rng.IntN(200)),
		Med:       int32(m.rng.IntN(100)),
		ASPath:    asPath,
	}
}

// Addr returns a query address. With probability ~3/4 it lies inside one of
// the given prefixes, so lookups exercise both hits and misses.
func (m *Generator) Addr(routes []*rib.Route) netip.Addr {
	if len(routes) > 0 && m.rng.IntN(4) != 0 {
		prefix := routes[m.rng.IntN(len(routes))].Prefix
		base := prefix.Addr().As4()
		raw := uint32(base[0])<<24 | uint32(base[1])<<16 | uint32(base[2])<<8 | uint32(base[3])
		hostBits := 32 - prefix.Bits()
		if hostBits > 0 {
			raw |= m.rng.Uint32N(1 << hostBits)
		}
		return netip.AddrFrom4([4]byte{
			byte(raw >> 24), byte(raw >> 16), byte(raw >> 8), byte(raw),
		})
	}
	return netip.AddrFrom4([4]byte{
		byte(m.rng.Uint32N(224)), byte(m.rng.Uint32()), byte(m.rng.Uint32()), byte(m.rng.Uint32()),
	})
}
