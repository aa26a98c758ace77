package batchwriter

import (
	"testing"

	"github.com/bobboyms/labelscan/pkg/keys"
	"github.com/bobboyms/labelscan/pkg/pagedtree"
)

func TestBulkAppendWriter_OrderedAppendsVisibleAfterClose(t *testing.T) {
	tree := pagedtree.New(4, keys.Width32, 1)

	bw, err := NewBulkAppendWriter(tree)
	if err != nil {
		t.Fatalf("NewBulkAppendWriter: %v", err)
	}

	entries := []struct {
		key keys.Key
		bit uint
	}{
		{keys.Key{Label: 1, Range: 0}, 0},
		{keys.Key{Label: 1, Range: 1}, 3},
		{keys.Key{Label: 2, Range: 0}, 5},
	}
	for _, e := range entries {
		v := keys.NewBitset(keys.Width32)
		v.Set(e.bit)
		if err := bw.Append(e.key, v); err != nil {
			t.Fatalf("Append(%s): %v", e.key, err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cur := tree.Seek(nil, nil)
	defer cur.Close()
	var count int
	for cur.Valid() {
		count++
		cur.Next()
	}
	if count != 3 {
		t.Fatalf("stored entry count = %d, want 3", count)
	}
}

func TestBulkAppendWriter_RejectsOutOfOrder(t *testing.T) {
	tree := pagedtree.New(4, keys.Width32, 1)

	bw, err := NewBulkAppendWriter(tree)
	if err != nil {
		t.Fatalf("NewBulkAppendWriter: %v", err)
	}
	defer bw.Discard()

	v := keys.NewBitset(keys.Width32)
	v.Set(0)
	if err := bw.Append(keys.Key{Label: 5, Range: 2}, v); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := bw.Append(keys.Key{Label: 5, Range: 1}, v); err == nil {
		t.Fatalf("expected error for out-of-order append")
	}
}

func TestBulkAppendWriter_DiscardReleasesSeat(t *testing.T) {
	tree := pagedtree.New(4, keys.Width32, 1)

	bw, err := NewBulkAppendWriter(tree)
	if err != nil {
		t.Fatalf("NewBulkAppendWriter: %v", err)
	}
	bw.Discard()

	bw2, err := NewBulkAppendWriter(tree)
	if err != nil {
		t.Fatalf("NewBulkAppendWriter after discard: %v", err)
	}
	bw2.Discard()
}
