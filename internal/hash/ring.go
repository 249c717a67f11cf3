package hash

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Ring implements a consistent hash ring with virtual nodes.
//
// A Ring is immutable once built. Growth produces a new Ring through With,
// so readers holding a *Ring never observe a partially updated ring.
type Ring struct {
	// nodes contains all virtual nodes on the ring, sorted by position
	nodes []virtualNode

	// members holds the unique list of members present on the ring
	members []string

	virtualNodes int
	hashFn       Func
}

// virtualNode represents a virtual node on the hash ring.
type virtualNode struct {
	pos    uint64 // Position on the ring
	name   string // "<member>&&VN<index>"
	member string // Member owning this virtual node
}

// VirtualNodeName returns the name of the i-th virtual node of member.
func VirtualNodeName(member string, i int) string {
	return member + "&&VN" + strconv.Itoa(i)
}

// MemberOf extracts the member from a virtual node name.
func MemberOf(virtualNode string) string {
	member, _, _ := strings.Cut(virtualNode, "&&")

	return member
}

// NewRing creates a new consistent hash ring.
//
// Parameters:
//   - members: List of member addresses to place on the ring (duplicates ignored)
//   - virtualNodesPerMember: Number of virtual nodes per member
//   - fn: Hash function placing virtual nodes (FNVMix when nil)
//
// Returns:
//   - *Ring: Initialized hash ring
//
// Example:
//
//	ring := hash.NewRing([]string{"10.0.0.1", "10.0.0.2"}, 10, hash.FNVMix)
//	idx := ring.Successor(hash.FNVMix(taskID))
//	addr := ring.Member(idx)
func NewRing(members []string, virtualNodesPerMember int, fn Func) *Ring {
	if fn == nil {
		fn = FNVMix
	}

	ring := &Ring{
		nodes:        make([]virtualNode, 0, len(members)*virtualNodesPerMember),
		members:      make([]string, 0, len(members)),
		virtualNodes: virtualNodesPerMember,
		hashFn:       fn,
	}

	// Deduplicate members while preserving order
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		ring.members = append(ring.members, m)
		ring.addMember(m)
	}

	ring.sort()

	return ring
}

// With returns a new ring that additionally contains member.
//
// The receiver is left untouched. When member is already present the
// receiver itself is returned.
func (r *Ring) With(member string) *Ring {
	if r.Contains(member) {
		return r
	}

	next := &Ring{
		nodes:        make([]virtualNode, len(r.nodes), len(r.nodes)+r.virtualNodes),
		members:      make([]string, len(r.members), len(r.members)+1),
		virtualNodes: r.virtualNodes,
		hashFn:       r.hashFn,
	}
	copy(next.nodes, r.nodes)
	copy(next.members, r.members)

	next.members = append(next.members, member)
	next.addMember(member)
	next.sort()

	return next
}

// Successor returns the index of the first virtual node whose position is
// >= target, wrapping around to the first node. Returns -1 for an empty ring.
func (r *Ring) Successor(target uint64) int {
	if len(r.nodes) == 0 {
		return -1
	}

	idx, _ := slices.BinarySearchFunc(r.nodes, target, func(node virtualNode, t uint64) int {
		return cmp.Compare(node.pos, t)
	})

	// Past the last position: wrap around to the first node
	if idx >= len(r.nodes) {
		idx = 0
	}

	return idx
}

// Next returns the index of the virtual node clockwise after idx.
func (r *Ring) Next(idx int) int {
	if len(r.nodes) == 0 {
		return -1
	}

	return (idx + 1) % len(r.nodes)
}

// Member returns the member owning the virtual node at idx.
func (r *Ring) Member(idx int) string {
	return r.nodes[idx].member
}

// NodeName returns the name of the virtual node at idx.
func (r *Ring) NodeName(idx int) string {
	return r.nodes[idx].name
}

// Position returns the ring position of the virtual node at idx.
func (r *Ring) Position(idx int) uint64 {
	return r.nodes[idx].pos
}

// Size returns the total number of virtual nodes on the ring.
func (r *Ring) Size() int {
	return len(r.nodes)
}

// Empty reports whether the ring has no virtual nodes.
func (r *Ring) Empty() bool {
	return len(r.nodes) == 0
}

// Members returns the list of unique members on the ring.
func (r *Ring) Members() []string {
	// Return a copy to avoid external mutation
	return append([]string(nil), r.members...)
}

// Contains reports whether member has virtual nodes on the ring.
func (r *Ring) Contains(member string) bool {
	return slices.Contains(r.members, member)
}

// VirtualNodeCounts returns the number of virtual nodes per member.
func (r *Ring) VirtualNodeCounts() map[string]int {
	counts := make(map[string]int, len(r.members))
	for _, n := range r.nodes {
		counts[n.member]++
	}

	return counts
}

// addMember appends the virtual nodes of member; callers must sort afterwards.
func (r *Ring) addMember(member string) {
	for i := range r.virtualNodes {
		name := VirtualNodeName(member, i)
		r.nodes = append(r.nodes, virtualNode{
			pos:    r.hashFn(name),
			name:   name,
			member: member,
		})
	}
}

// sort orders nodes by position; colliding positions are ordered by name so
// every rebuild from the same members yields the same ring.
func (r *Ring) sort() {
	slices.SortFunc(r.nodes, func(a, b virtualNode) int {
		if c := cmp.Compare(a.pos, b.pos); c != 0 {
			return c
		}

		return strings.Compare(a.name, b.name)
	})
}
