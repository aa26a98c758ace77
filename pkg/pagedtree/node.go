// Package pagedtree is the concrete copy-on-write B+tree that
// implements the external PagedTree contract of spec section 4.2:
// ordered seek, a single-writer cursor, checkpoint, and a consistency
// visitor. Node shape and split-on-the-way-down insertion are
// grounded on the teacher's in-memory B+tree (pkg/btree), generalized
// from a generic Comparable key to the fixed (label,range) key and
// made genuinely copy-on-write: a mutation never edits a node
// reachable from a published root, it copies the root-to-leaf path
// and swaps the root pointer once, atomically, when the writer closes.
package pagedtree

import (
	"sort"

	"github.com/bobboyms/labelscan/pkg/keys"
)

// node is one B+tree node. Once linked under a published root it is
// never mutated again; every writer operation that needs to change a
// node instead builds a replacement.
type node struct {
	t        int // minimum degree
	leaf     bool
	n        int
	keyList  []keys.Key
	values   []keys.Bitset // leaf only, len == n
	children []*node       // internal only, len == n+1
	next     *node         // leaf linked list, for ordered scans
}

func newLeaf(t int) *node {
	return &node{t: t, leaf: true, keyList: make([]keys.Key, 0, 2*t-1), values: make([]keys.Bitset, 0, 2*t-1)}
}

func newInternal(t int) *node {
	return &node{t: t, leaf: false, keyList: make([]keys.Key, 0, 2*t-1), children: make([]*node, 0, 2*t)}
}

func (n *node) isFull() bool { return n.n == 2*n.t-1 }

// clone returns a shallow copy of n with independent backing slices,
// so the caller can mutate the copy without disturbing n (which may
// still be visible to a reader through an older published root).
func (n *node) clone() *node {
	c := &node{t: n.t, leaf: n.leaf, n: n.n, next: n.next}
	if n.leaf {
		c.keyList = append([]keys.Key(nil), n.keyList...)
		c.values = append([]keys.Bitset(nil), n.values...)
	} else {
		c.keyList = append([]keys.Key(nil), n.keyList...)
		c.children = append([]*node(nil), n.children...)
	}
	return c
}

// lowerBound returns the index of the first key >= target, or n.n if none.
func (n *node) lowerBound(target keys.Key) int {
	return sort.Search(n.n, func(i int) bool { return !n.keyList[i].Less(target) })
}

// childFor returns the child index to descend into for target, for an internal node.
func (n *node) childFor(target keys.Key) int {
	i := 0
	for i < n.n && !target.Less(n.keyList[i]) {
		i++
	}
	return i
}

// splitChild splits the full child at index i of the (already cloned)
// internal node n, linking the new right sibling in. Mirrors the
// teacher's SplitChild, adapted to work on the COW copy in place
// (n is always a node not yet published).
func (n *node) splitChild(i int) {
	t := n.t
	y := n.children[i]
	z := &node{t: t, leaf: y.leaf}

	if y.leaf {
		mid := t - 1
		z.n = y.n - mid
		z.keyList = append([]keys.Key(nil), y.keyList[mid:]...)
		z.values = append([]keys.Bitset(nil), y.values[mid:]...)

		yCopy := y.clone()
		yCopy.keyList = yCopy.keyList[:mid]
		yCopy.values = yCopy.values[:mid]
		yCopy.n = mid
		yCopy.next = z
		n.children[i] = yCopy

		n.keyList = append(n.keyList, keys.Key{})
		copy(n.keyList[i+1:], n.keyList[i:])
		n.keyList[i] = z.keyList[0]

		n.children = append(n.children, nil)
		copy(n.children[i+2:], n.children[i+1:])
		n.children[i+1] = z
		n.n++
		return
	}

	mid := t - 1
	z.n = t - 1
	z.keyList = append([]keys.Key(nil), y.keyList[mid+1:]...)
	z.children = append([]*node(nil), y.children[mid+1:]...)
	upKey := y.keyList[mid]

	yCopy := y.clone()
	yCopy.keyList = yCopy.keyList[:mid]
	yCopy.children = yCopy.children[:mid+1]
	yCopy.n = mid
	n.children[i] = yCopy

	n.keyList = append(n.keyList, keys.Key{})
	copy(n.keyList[i+1:], n.keyList[i:])
	n.keyList[i] = upKey

	n.children = append(n.children, nil)
	copy(n.children[i+2:], n.children[i+1:])
	n.children[i+1] = z
	n.n++
}
