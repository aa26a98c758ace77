package pagedtree

import "github.com/bobboyms/labelscan/pkg/keys"

// Cursor is an ordered, read-only iterator over a snapshot of the
// tree fixed at the moment Seek returns it. Because nodes are never
// mutated once published, a cursor needs no locks: the node graph it
// walks is immutable for its entire lifetime.
type Cursor struct {
	hi      keys.Key
	hasHi   bool
	leaf    *node
	idx     int
}

// Seek positions a cursor at the first key >= lo (lo == nil means the
// very first key in the tree). If hi != nil, the cursor stops being
// Valid once it reaches a key >= hi (exclusive upper bound). A seek
// with lo > hi under the total order yields an immediately-invalid,
// empty cursor, exploited by highest-label discovery.
func (tr *PagedTree) Seek(lo *keys.Key, hi *keys.Key) *Cursor {
	c := &Cursor{}
	if hi != nil {
		c.hi, c.hasHi = *hi, true
	}
	if lo != nil && hi != nil && hi.Less(*lo) {
		return c // empty: lo > hi
	}

	n := tr.root.Load()
	var idx int
	for !n.leaf {
		if lo == nil {
			idx = 0
		} else {
			idx = n.childFor(*lo)
		}
		n = n.children[idx]
	}
	if lo == nil {
		idx = 0
	} else {
		idx = n.lowerBound(*lo)
	}

	c.leaf, c.idx = n, idx
	c.skipEmpty()
	return c
}

func (c *Cursor) skipEmpty() {
	for c.leaf != nil && c.idx >= c.leaf.n {
		c.leaf = c.leaf.next
		c.idx = 0
	}
}

// Valid reports whether the cursor is positioned at an in-range entry.
func (c *Cursor) Valid() bool {
	if c.leaf == nil || c.idx >= c.leaf.n {
		return false
	}
	if c.hasHi && !c.leaf.keyList[c.idx].Less(c.hi) {
		return false
	}
	return true
}

// Key returns the key at the cursor's current position.
func (c *Cursor) Key() keys.Key { return c.leaf.keyList[c.idx] }

// Value returns the bitset at the cursor's current position.
func (c *Cursor) Value() keys.Bitset { return c.leaf.values[c.idx] }

// Next advances the cursor by one entry, returning false once exhausted.
func (c *Cursor) Next() bool {
	if c.leaf == nil {
		return false
	}
	c.idx++
	c.skipEmpty()
	return c.Valid()
}

// Close releases cursor resources. No locks are held, so this is a no-op,
// kept for symmetry with the external contract and so callers can defer it.
func (c *Cursor) Close() {}
