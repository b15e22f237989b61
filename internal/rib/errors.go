package rib

import "errors"

var (
	// ErrNodesExhausted is returned by Insert when the trie arena has
	// reached its configured node limit. The failed insert leaves no
	// half-linked nodes behind.
	ErrNodesExhausted = errors.New("trie node limit reached")
	// ErrRouteNotFound is returned by Delete when no route is anchored at
	// the exact prefix and length given.
	ErrRouteNotFound = errors.New("route not found")
	// ErrASPathTooLong is returned when a route carries more than
	// MaxASPathLen AS hops.
	ErrASPathTooLong = errors.New("as_path too long")
	// ErrNotIPv4 is returned for prefixes or nexthops that are not plain
	// IPv4 addresses.
	ErrNotIPv4 = errors.New("not an IPv4 address")
)
