package batchwriter

import (
	"fmt"

	"github.com/bobboyms/labelscan/pkg/keys"
	"github.com/bobboyms/labelscan/pkg/pagedtree"
)

// BulkAppendWriter is the rebuild-time writer seat (spec section 4.5):
// it requires keys in strictly ascending order and writes each one
// directly with Put, skipping the coalesce buffer entirely since its
// caller supplies one finished bitset per key (LabelScanStore.Start
// aggregates the change stream's per-node label sets first).
type BulkAppendWriter struct {
	seat    *pagedtree.Writer
	last    keys.Key
	hasLast bool
	closed  bool
}

// NewBulkAppendWriter acquires the tree's writer seat for a bulk load.
func NewBulkAppendWriter(tree *pagedtree.PagedTree) (*BulkAppendWriter, error) {
	seat, err := tree.Writer()
	if err != nil {
		return nil, err
	}
	return &BulkAppendWriter{seat: seat}, nil
}

// Append stores value at key, which must sort strictly after every
// previously appended key.
func (w *BulkAppendWriter) Append(key keys.Key, value keys.Bitset) error {
	if w.closed {
		return fmt.Errorf("batchwriter: bulk writer closed")
	}
	if w.hasLast && !w.last.Less(key) {
		return fmt.Errorf("batchwriter: bulk append out of order: %s after %s", key, w.last)
	}
	if err := w.seat.Put(key, value); err != nil {
		return err
	}
	w.last = key
	w.hasLast = true
	return nil
}

// Close publishes every appended key as one visible group.
func (w *BulkAppendWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.seat.Close()
}

// Discard releases the seat without publishing anything appended so far.
func (w *BulkAppendWriter) Discard() {
	if w.closed {
		return
	}
	w.closed = true
	w.seat.Discard()
}
