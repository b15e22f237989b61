package bird

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"github.com/VanshK123/bgp-prototype/internal/rib"
)

// An update frame carries one route operation in a fixed little-endian
// layout:
//
//	op         u8   (1 = insert, 2 = withdraw)
//	prefix_len u8
//	as_path_len u8
//	reserved   u8
//	prefix     4B   (network byte order)
//	nexthop    4B   (network byte order)
//	local_pref i32
//	med        i32
//	as_path    as_path_len x u32
const updateHeaderSize = 20

const (
	OpInsert   Operation = 1
	OpWithdraw Operation = 2
)

type Operation uint8

func (m Operation) String() string {
	switch m {
	case OpInsert:
		return "INSERT"
	case OpWithdraw:
		return "WITHDRAW"
	default:
		return fmt.Sprintf("UNKNOWN: %x", uint8(m))
	}
}

var (
	ErrUpdateDecode    = errors.New("decode error")
	ErrFrameTooSmall   = fmt.Errorf("frame is too small: %w", ErrUpdateDecode)
	ErrBadOperation    = fmt.Errorf("unknown operation: %w", ErrUpdateDecode)
	ErrBadPrefixLen    = fmt.Errorf("bad prefix length: %w", ErrUpdateDecode)
	ErrBadASPathLen    = fmt.Errorf("bad as_path length: %w", ErrUpdateDecode)
	ErrASPathTruncated = fmt.Errorf("as_path area truncated: %w", ErrUpdateDecode)
)

// Update is one decoded route operation from the daemon.
type Update struct {
	Route    rib.Route
	Withdraw bool
}

func decodeUpdate(buf []byte) (Update, error) {
	if len(buf) < updateHeaderSize {
		return Update{}, fmt.Errorf("%d bytes: %w", len(buf), ErrFrameTooSmall)
	}

	op := Operation(buf[0])
	if op != OpInsert && op != OpWithdraw {
		return Update{}, fmt.Errorf("%#x: %w", buf[0], ErrBadOperation)
	}
	prefixLen := int(buf[1])
	if prefixLen > 32 {
		return Update{}, fmt.Errorf("/%d: %w", prefixLen, ErrBadPrefixLen)
	}
	asPathLen := int(buf[2])
	if asPathLen > rib.MaxASPathLen {
		return Update{}, fmt.Errorf("%d hops: %w", asPathLen, ErrBadASPathLen)
	}
	if len(buf) < updateHeaderSize+4*asPathLen {
		return Update{}, fmt.Errorf("want %d bytes, have %d: %w",
			updateHeaderSize+4*asPathLen, len(buf), ErrASPathTruncated)
	}

	addr := netip.AddrFrom4([4]byte(buf[4:8]))
	route := rib.Route{
		Prefix:    netip.PrefixFrom(addr, prefixLen),
		LocalPref: int32(binary.LittleEndian.Uint32(buf[12:16])),
		Med:       int32(binary.LittleEndian.Uint32(buf[16:20])),
	}
	if nexthop := [4]byte(buf[8:12]); nexthop != ([4]byte{}) {
		route.NextHop = netip.AddrFrom4(nexthop)
	}
	if asPathLen > 0 {
		route.ASPath = make([]uint32, asPathLen)
		for i := range route.ASPath {
			route.ASPath[i] = binary.LittleEndian.Uint32(buf[updateHeaderSize+4*i:])
		}
	}

	return Update{Route: route, Withdraw: op == OpWithdraw}, nil
}
