// Package reader implements the label scan store's query surface
// (spec section 4.6/4.7): point and range label scans, and the
// full-range iteration used to discover the highest label id and to
// serve consistency checks and diagnostics.
package reader

import (
	"github.com/bobboyms/labelscan/pkg/keys"
	"github.com/bobboyms/labelscan/pkg/pagedtree"
)

// Reader answers label scan queries against a snapshot of the tree.
// It holds no state of its own beyond the tree handle: every call
// opens a fresh cursor, so concurrent readers never interfere and a
// Reader never goes stale (it always sees the tree's current root).
type Reader struct {
	tree *pagedtree.PagedTree
}

// New returns a Reader bound to tree.
func New(tree *pagedtree.PagedTree) *Reader {
	return &Reader{tree: tree}
}

// NodesWithLabel returns every node id carrying label, in ascending order.
func (r *Reader) NodesWithLabel(label int32) []uint64 {
	lo := keys.LabelLowerBound(label)
	hi := keys.LabelUpperBound(label)
	return r.collect(&lo, &hi, 0, ^uint64(0))
}

// NodesWithLabelInRange returns the node ids carrying label whose id
// falls in [loNode, hiNode), in ascending order.
func (r *Reader) NodesWithLabelInRange(label int32, loNode, hiNode uint64) []uint64 {
	if hiNode <= loNode {
		return nil
	}
	width := r.tree.Width()
	loRange, _ := keys.NodeRange(loNode, width)
	hiRange, hiBit := keys.NodeRange(hiNode, width)
	// hiNode is exclusive; if it falls exactly on a range boundary the
	// range itself is excluded, otherwise it is the last range touched.
	if hiBit != 0 {
		hiRange++
	}
	lo := keys.Key{Label: label, Range: loRange}
	hi := keys.Key{Label: label, Range: hiRange}
	return r.collect(&lo, &hi, loNode, hiNode)
}

func (r *Reader) collect(lo, hi *keys.Key, loNode, hiNode uint64) []uint64 {
	width := r.tree.Width()
	cur := r.tree.Seek(lo, hi)
	defer cur.Close()

	var out []uint64
	for cur.Valid() {
		k := cur.Key()
		v := cur.Value().MaskRange(k.Range, width, loNode, hiNode)
		out = append(out, v.SetNodes(k.Range, width)...)
		cur.Next()
	}
	return out
}

// LabelRangeEntry is one stored (label, range) tuple, as returned by
// AllLabelRanges.
type LabelRangeEntry struct {
	Label   int32
	RangeID int64
	Bitset  keys.Bitset
}

// AllLabelRanges returns every stored (label, range) entry in
// ascending key order. LabelScanStore uses it to recompute its entry,
// label and highest-label counters.
func (r *Reader) AllLabelRanges() []LabelRangeEntry {
	cur := r.tree.Seek(nil, nil)
	defer cur.Close()

	var out []LabelRangeEntry
	for cur.Valid() {
		k := cur.Key()
		out = append(out, LabelRangeEntry{Label: k.Label, RangeID: k.Range, Bitset: cur.Value()})
		cur.Next()
	}
	return out
}

// HighestLabel returns the largest label id currently stored and
// whether the tree holds any entries at all. This walks every stored
// key once; stores that need this on a hot path should track it
// incrementally instead (see store.LabelScanStore's maxLabelId counter).
func (r *Reader) HighestLabel() (label int32, ok bool) {
	cur := r.tree.Seek(nil, nil)
	defer cur.Close()

	for cur.Valid() {
		label, ok = cur.Key().Label, true
		cur.Next()
	}
	return label, ok
}
