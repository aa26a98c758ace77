// Package batchwriter implements the label scan store's central
// algorithm (spec section 4.4): translate a stream of per-node label
// add/remove updates into the minimum number of (label, range)
// bitset merges against the paged tree, coalescing by key and
// flushing in sorted order so tree I/O advances monotonically.
//
// The coalesce-then-sorted-flush shape is grounded on the teacher's
// StorageEngine.Put/Del, which always resolves a key's prior value
// under the tree's own Upsert before writing a new one; here the
// resolution additionally batches many nodes per tree touch instead
// of touching the tree once per node.
package batchwriter

import (
	"sort"

	"github.com/bobboyms/labelscan/pkg/keys"
	"github.com/bobboyms/labelscan/pkg/lserrors"
	"github.com/bobboyms/labelscan/pkg/pagedtree"
)

// NodeLabelUpdate is one node's label-set transition.
type NodeLabelUpdate struct {
	NodeID uint64
	Before []int32
	After  []int32
}

// MergeListener is notified once per flushed (label, range) tuple,
// for audit purposes (spec section 6's writeMonitorEnabled).
type MergeListener func(labelID int32, rangeID int64, addMask, removeMask, result keys.Bitset, seq uint64)

type pendingTuple struct {
	key    keys.Key
	add    keys.Bitset
	remove keys.Bitset
}

// BatchingWriter is the default writer seat: it accepts updates in
// any order, buffers them up to batchSize distinct (label, range)
// tuples, and flushes in ascending key order, either automatically
// when the buffer fills or when Close is called.
type BatchingWriter struct {
	width     keys.RangeWidth
	batchSize int
	seat      *pagedtree.Writer
	pending   map[keys.Key]*pendingTuple
	listener  MergeListener
	seq       uint64
	closed    bool
}

// New acquires the tree's writer seat and returns a BatchingWriter
// bound to it. Returns lserrors.WriterBusy if a writer is already live.
func New(tree *pagedtree.PagedTree, width keys.RangeWidth, batchSize int, listener MergeListener) (*BatchingWriter, error) {
	seat, err := tree.Writer()
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &BatchingWriter{
		width:     width,
		batchSize: batchSize,
		seat:      seat,
		pending:   make(map[keys.Key]*pendingTuple),
		listener:  listener,
	}, nil
}

// Apply folds one node's label delta into the pending buffer,
// flushing automatically once the buffer reaches batchSize distinct
// (label, range) tuples.
func (w *BatchingWriter) Apply(u NodeLabelUpdate) error {
	if w.closed {
		return &lserrors.StoreDirty{}
	}

	added, removed, err := delta(u)
	if err != nil {
		return err
	}

	rangeID, bit := keys.NodeRange(u.NodeID, w.width)

	// added and removed are disjoint within a single delta (a label
	// can't both appear and disappear in one before/after pair), but
	// the same (label, range, bit) can still be folded by an add in
	// one Apply call and a remove in a later one within the same
	// batch. foldBit resolves that by letting the most recent call
	// win, matching the documented arrival-order contract.
	for label := range added {
		w.foldBit(keys.Key{Label: label, Range: rangeID}, bit, true)
	}
	for label := range removed {
		w.foldBit(keys.Key{Label: label, Range: rangeID}, bit, false)
	}

	if len(w.pending) >= w.batchSize {
		return w.flush()
	}
	return nil
}

// foldBit folds one bit's add/remove intent into the pending tuple for
// key. A bit is only ever pending as an add or a remove, never both:
// whichever call folds it last clears the opposite mask for that bit,
// so two Apply calls touching the same (label, range, bit) within one
// batch resolve by arrival order instead of letting "remove" always
// win regardless of which one actually arrived later.
func (w *BatchingWriter) foldBit(key keys.Key, bit uint, add bool) {
	t := w.pending[key]
	if t == nil {
		t = &pendingTuple{key: key, add: keys.NewBitset(w.width), remove: keys.NewBitset(w.width)}
		w.pending[key] = t
	}
	if add {
		t.add.Set(bit)
		t.remove.Clear(bit)
	} else {
		t.remove.Set(bit)
		t.add.Clear(bit)
	}
}

// delta computes the per-label add/remove sets between before and after.
func delta(u NodeLabelUpdate) (added, removed map[int32]struct{}, err error) {
	beforeSet := toSet(u.Before)
	afterSet := toSet(u.After)
	added = make(map[int32]struct{})
	removed = make(map[int32]struct{})
	for l := range afterSet {
		if _, ok := beforeSet[l]; !ok {
			added[l] = struct{}{}
		}
	}
	for l := range beforeSet {
		if _, ok := afterSet[l]; !ok {
			removed[l] = struct{}{}
		}
	}
	return added, removed, nil
}

func toSet(labels []int32) map[int32]struct{} {
	s := make(map[int32]struct{}, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// flush sorts the pending tuples by key and merges each into the
// tree's working root, in ascending order so the conceptual cursor
// only ever moves forward.
func (w *BatchingWriter) flush() error {
	if len(w.pending) == 0 {
		return nil
	}

	tuples := make([]*pendingTuple, 0, len(w.pending))
	for _, t := range w.pending {
		tuples = append(tuples, t)
	}
	sort.Slice(tuples, func(i, j int) bool { return tuples[i].key.Less(tuples[j].key) })

	for _, t := range tuples {
		add, remove := t.add, t.remove
		var result keys.Bitset
		err := w.seat.Merge(t.key, func(current keys.Bitset, exists bool) (keys.Bitset, error) {
			var base keys.Bitset
			if exists {
				base = current
			} else {
				base = keys.NewBitset(w.width)
			}
			result = keys.AndNot(keys.Or(base, add), remove)
			return result, nil
		})
		if err != nil {
			return err
		}
		w.seq++
		if w.listener != nil {
			w.listener(t.key.Label, t.key.Range, add, remove, result, w.seq)
		}
	}

	w.pending = make(map[keys.Key]*pendingTuple)
	return nil
}

// Close flushes any remaining buffered tuples and publishes the
// writer's accumulated changes as one visible group, releasing the seat.
func (w *BatchingWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.flush(); err != nil {
		w.seat.Discard()
		return err
	}
	return w.seat.Close()
}

// Discard abandons all buffered and already-merged-but-unpublished
// changes, releasing the seat without making anything visible.
func (w *BatchingWriter) Discard() {
	if w.closed {
		return
	}
	w.closed = true
	w.seat.Discard()
}
