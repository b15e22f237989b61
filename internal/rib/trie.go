package rib

import (
	"encoding/binary"
	"net/netip"
)

// nilNode marks an absent child slot in the arena.
const nilNode = int32(-1)

// node is a single bit position along an inserted prefix. A node carries a
// route only when some prefix terminates exactly here (leaf).
type node struct {
	children [2]int32
	route    *Route
	leaf     bool
}

// Trie is a binary longest-prefix-match trie over the 32 bits of an IPv4
// address, most significant bit first.
//
// Nodes live in an index-addressed arena instead of a pointer graph, with a
// free list so slots released by pruning are reused. The arena keeps the
// node count proportional to the live routes, never to insertion history.
//
// The Trie itself is not synchronized; the RIB serializes mutation around it.
type Trie struct {
	nodes    []node
	free     []int32
	live     int
	routes   int
	maxNodes int
}

// NewTrie returns an empty trie. A maxNodes limit of zero means unlimited;
// otherwise Insert fails with ErrNodesExhausted once the arena holds that
// many live nodes.
func NewTrie(maxNodes int) *Trie {
	return &Trie{
		nodes:    []node{{children: [2]int32{nilNode, nilNode}}},
		live:     1,
		maxNodes: maxNodes,
	}
}

func addr32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

func (m *Trie) alloc() int32 {
	if m.maxNodes > 0 && m.live >= m.maxNodes {
		return nilNode
	}
	m.live++
	if n := len(m.free); n > 0 {
		idx := m.free[n-1]
		m.free = m.free[:n-1]
		m.nodes[idx] = node{children: [2]int32{nilNode, nilNode}}
		return idx
	}
	m.nodes = append(m.nodes, node{children: [2]int32{nilNode, nilNode}})
	return int32(len(m.nodes) - 1)
}

func (m *Trie) release(idx int32) {
	m.nodes[idx] = node{children: [2]int32{nilNode, nilNode}}
	m.free = append(m.free, idx)
	m.live--
}

// Insert anchors the route at its masked prefix, creating missing nodes
// along the path. Inserting the same prefix and length twice overwrites the
// earlier record; the replaced record is returned so the caller can drop
// outstanding references to it.
//
// If the arena runs out of nodes mid-path, the nodes created by this call
// are unlinked again so the trie stays structurally intact.
func (m *Trie) Insert(route *Route) (*Route, error) {
	prefix := route.Prefix.Masked()
	bits := prefix.Bits()
	key := addr32(prefix.Addr())

	curr := int32(0)
	firstParent, firstBit := nilNode, uint32(0)
	var created [32]int32
	createdLen := 0

	for i := 0; i < bits; i++ {
		bit := (key >> (31 - i)) & 1
		next := m.nodes[curr].children[bit]
		if next == nilNode {
			next = m.alloc()
			if next == nilNode {
				m.unwind(firstParent, firstBit, created[:createdLen])
				return nil, ErrNodesExhausted
			}
			m.nodes[curr].children[bit] = next
			if createdLen == 0 {
				firstParent, firstBit = curr, bit
			}
			created[createdLen] = next
			createdLen++
		}
		curr = next
	}

	n := &m.nodes[curr]
	var replaced *Route
	if n.leaf {
		replaced = n.route
	} else {
		n.leaf = true
		m.routes++
	}
	n.route = route
	return replaced, nil
}

// unwind removes the nodes a failed Insert created. They form a suffix
// chain, so dropping the link from the last pre-existing node is enough to
// detach all of them.
func (m *Trie) unwind(parent int32, bit uint32, created []int32) {
	if len(created) == 0 {
		return
	}
	m.nodes[parent].children[bit] = nilNode
	for _, idx := range created {
		m.release(idx)
	}
}

// Lookup returns the most specific route whose prefix contains addr, or nil
// when no inserted prefix covers it. The walk stops at the first absent
// child, remembering the deepest leaf passed on the way down.
//
// Lookup is a pure read: it never allocates or mutates the trie.
func (m *Trie) Lookup(addr netip.Addr) *Route {
	if !addr.Is4() {
		return nil
	}
	key := addr32(addr)

	var best *Route
	curr := int32(0)
	if m.nodes[0].leaf {
		// A default route anchored at the root covers every address.
		best = m.nodes[0].route
	}
	for i := 0; i < 32; i++ {
		bit := (key >> (31 - i)) & 1
		next := m.nodes[curr].children[bit]
		if next == nilNode {
			break
		}
		curr = next
		if m.nodes[curr].leaf {
			best = m.nodes[curr].route
		}
	}
	return best
}

// Delete removes the route anchored exactly at prefix and returns it.
// It fails with ErrNotIPv4 for a non-IPv4 prefix and with ErrRouteNotFound
// when no node exists along the path or the terminal node is not a leaf.
//
// After clearing the leaf, the path is walked bottom-up and every trailing
// node that is now both non-leaf and childless goes back to the free list.
func (m *Trie) Delete(prefix netip.Prefix) (*Route, error) {
	if !prefix.Addr().Is4() {
		return nil, ErrNotIPv4
	}
	prefix = prefix.Masked()
	bits := prefix.Bits()
	key := addr32(prefix.Addr())

	var path [32]int32
	var pathBits [32]uint32
	curr := int32(0)
	for i := 0; i < bits; i++ {
		bit := (key >> (31 - i)) & 1
		next := m.nodes[curr].children[bit]
		if next == nilNode {
			return nil, ErrRouteNotFound
		}
		path[i] = next
		pathBits[i] = bit
		curr = next
	}

	n := &m.nodes[curr]
	if !n.leaf {
		return nil, ErrRouteNotFound
	}
	removed := n.route
	n.leaf = false
	n.route = nil
	m.routes--

	for i := bits - 1; i >= 0; i-- {
		idx := path[i]
		n := &m.nodes[idx]
		if n.leaf || n.children[0] != nilNode || n.children[1] != nilNode {
			break
		}
		parent := int32(0)
		if i > 0 {
			parent = path[i-1]
		}
		m.nodes[parent].children[pathBits[i]] = nilNode
		m.release(idx)
	}
	return removed, nil
}

// Walk visits every stored route in depth-first order. Returning false from
// fn stops the walk.
func (m *Trie) Walk(fn func(*Route) bool) {
	stack := make([]int32, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &m.nodes[idx]
		if n.leaf && !fn(n.route) {
			return
		}
		for bit := 1; bit >= 0; bit-- {
			if c := n.children[bit]; c != nilNode {
				stack = append(stack, c)
			}
		}
	}
}

// Teardown resets the trie to a single empty root, releasing every node and
// route reference. Calling it on an empty trie is a no-op.
func (m *Trie) Teardown() {
	m.nodes = m.nodes[:1]
	m.nodes[0] = node{children: [2]int32{nilNode, nilNode}}
	m.free = m.free[:0]
	m.live = 1
	m.routes = 0
}

// NumNodes returns the number of live arena nodes, including the root.
func (m *Trie) NumNodes() int { return m.live }

// NumRoutes returns the number of stored routes.
func (m *Trie) NumRoutes() int { return m.routes }
