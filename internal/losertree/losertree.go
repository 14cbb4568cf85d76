// Package losertree implements the k-way tournament-of-losers selection
// structure described in spec §4.3, ported directly from adjust/
// createLoserTree in original_source/LoserTree.hpp.
//
// A LoserTree picks the minimum of K external nodes in O(log K) per
// adjustment; initialization runs K adjustments, O(K log K). Ties between two
// DATA nodes are broken by slot-index determinism: the node already
// occupying the tree slot is kept as the (stale) loser, matching the
// source's strict `>` comparison (no rebalancing on equality) — this
// yields deterministic but not stable merges, per spec §4.3's documented
// tie policy.
package losertree

import "extsort/internal/keys"

type nodeKind int8

const (
	kindMin nodeKind = iota - 1
	kindData
	kindMax
)

// ExNode is one external node: a key plus a MIN/DATA/MAX discriminator.
// MIN < DATA(k) < MAX for all k; two DATA nodes compare by key.
type ExNode[K keys.Unsigned] struct {
	Key  K
	Kind nodeKind
}

// SetData marks the node as holding a valid key.
func (n *ExNode[K]) SetData(k K) { n.Key, n.Kind = k, kindData }

// SetMax marks the node as an end-of-stream sentinel.
func (n *ExNode[K]) SetMax() { n.Kind = kindMax }

// SetMin marks the node as the uninitialized MIN sentinel.
func (n *ExNode[K]) SetMin() { n.Kind = kindMin }

// IsMax reports whether the node is the MAX sentinel.
func (n *ExNode[K]) IsMax() bool { return n.Kind == kindMax }

// greater reports a > b under MIN < DATA(*) < MAX ordering.
func greater[K keys.Unsigned](a, b ExNode[K]) bool {
	if a.Kind != b.Kind {
		return a.Kind > b.Kind
	}
	return a.Key > b.Key
}

// Tree is a K-way loser tree over K+1 external node slots (index K holds
// the MIN sentinel used only during initialization).
type Tree[K keys.Unsigned] struct {
	k    int
	ext  []ExNode[K] // len k+1
	tree []int       // len k; tree[0] is the current overall winner's slot
}

// New allocates a Tree for k external streams.
func New[K keys.Unsigned](k int) *Tree[K] {
	return &Tree[K]{
		k:    k,
		ext:  make([]ExNode[K], k+1),
		tree: make([]int, k),
	}
}

// Ext returns the external node array (length k+1); callers seed ext[i] for
// i < effectiveK with SetData before calling Create, and ext[i] for
// i in [effectiveK, k) with SetMax.
func (t *Tree[K]) Ext() []ExNode[K] { return t.ext }

// Winner returns the external node index currently at tree[0]: the slot
// holding the global minimum.
func (t *Tree[K]) Winner() int { return t.tree[0] }

// Create initializes the tree: ext[k] is set to MIN, every tree slot is
// seeded to k, then adjust runs from k-1 down to 0. Direct port of
// createLoserTree().
func (t *Tree[K]) Create() {
	t.ext[t.k].SetMin()
	for i := range t.tree {
		t.tree[i] = t.k
	}
	for i := t.k - 1; i >= 0; i-- {
		t.Adjust(i)
	}
}

// Adjust walks the path of internal parents from external slot s upward,
// swapping the loser into each parent node, and stores the final winner in
// tree[0]. Direct port of adjust(s).
func (t *Tree[K]) Adjust(s int) {
	tpar := (s + t.k) / 2
	for tpar > 0 {
		if greater(t.ext[s], t.ext[t.tree[tpar]]) {
			s, t.tree[tpar] = t.tree[tpar], s
		}
		tpar /= 2
	}
	t.tree[0] = s
}
