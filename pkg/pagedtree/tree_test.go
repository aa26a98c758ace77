package pagedtree

import (
	"testing"

	"github.com/bobboyms/labelscan/pkg/keys"
)

func putBit(t *testing.T, w *Writer, key keys.Key, bit uint) {
	t.Helper()
	v := keys.NewBitset(keys.Width64)
	v.Set(bit)
	if err := w.Put(key, v); err != nil {
		t.Fatalf("Put(%v): %v", key, err)
	}
}

func TestPagedTree_EmptyTreeIsEmptyAndHasNoEntries(t *testing.T) {
	tr := New(4, keys.Width64, 1)
	if !tr.IsEmpty() {
		t.Fatalf("fresh tree must be empty")
	}
	cur := tr.Seek(nil, nil)
	if cur.Valid() {
		t.Fatalf("Seek on empty tree must be immediately invalid")
	}
}

func TestPagedTree_PutThenSeekOrdered(t *testing.T) {
	tr := New(4, keys.Width64, 1)
	w, err := tr.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	putBit(t, w, keys.Key{Label: 2, Range: 0}, 0)
	putBit(t, w, keys.Key{Label: 1, Range: 5}, 1)
	putBit(t, w, keys.Key{Label: 1, Range: 1}, 2)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cur := tr.Seek(nil, nil)
	var got []keys.Key
	for cur.Valid() {
		got = append(got, cur.Key())
		cur.Next()
	}
	want := []keys.Key{{Label: 1, Range: 1}, {Label: 1, Range: 5}, {Label: 2, Range: 0}}
	if len(got) != len(want) {
		t.Fatalf("Seek order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Seek order = %v, want %v", got, want)
		}
	}
}

func TestPagedTree_CowIsolatesReaderFromInFlightWriter(t *testing.T) {
	tr := New(4, keys.Width64, 1)
	w1, err := tr.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	putBit(t, w1, keys.Key{Label: 1}, 0)
	if err := w1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cur := tr.Seek(nil, nil) // snapshot after first write

	w2, err := tr.Writer()
	if err != nil {
		t.Fatalf("second Writer: %v", err)
	}
	putBit(t, w2, keys.Key{Label: 2}, 0)
	if err := w2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var seen []keys.Key
	for cur.Valid() {
		seen = append(seen, cur.Key())
		cur.Next()
	}
	if len(seen) != 1 || seen[0] != (keys.Key{Label: 1}) {
		t.Fatalf("pre-existing cursor observed %v, want only label 1 (snapshot before second write)", seen)
	}
}

func TestPagedTree_WriterIsSingleSeat(t *testing.T) {
	tr := New(4, keys.Width64, 1)
	w, err := tr.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	defer w.Discard()

	if _, err := tr.Writer(); err == nil {
		t.Fatalf("expected WriterBusy while first writer is open")
	}
}

func TestPagedTree_RemoveDropsZeroValuedEntry(t *testing.T) {
	tr := New(4, keys.Width64, 1)
	w, err := tr.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	putBit(t, w, keys.Key{Label: 1}, 0)
	if err := w.Remove(keys.Key{Label: 1}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !tr.IsEmpty() {
		t.Fatalf("tree must be empty after removing its only entry")
	}
}

func TestPagedTree_MergeCombinesWithExisting(t *testing.T) {
	tr := New(4, keys.Width64, 1)
	w, err := tr.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	key := keys.Key{Label: 1}
	putBit(t, w, key, 3)
	if err := w.Merge(key, func(cur keys.Bitset, exists bool) (keys.Bitset, error) {
		if !exists {
			t.Fatalf("expected existing value in Merge combiner")
		}
		out := keys.CloneBitset(cur)
		out.Set(7)
		return out, nil
	}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cur := tr.Seek(&key, nil)
	if !cur.Valid() {
		t.Fatalf("expected entry after Merge")
	}
	v := cur.Value()
	if !v.Test(3) || !v.Test(7) {
		t.Fatalf("merged value = %v, want bits 3 and 7 set", v)
	}
}

func TestPagedTree_SplitsAcrossManyKeys(t *testing.T) {
	tr := New(2, keys.Width64, 1) // small min degree forces splits quickly
	w, err := tr.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	const n = 200
	for i := int64(0); i < n; i++ {
		putBit(t, w, keys.Key{Label: 1, Range: i}, 0)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cur := tr.Seek(nil, nil)
	count := 0
	var prev keys.Key
	first := true
	for cur.Valid() {
		k := cur.Key()
		if !first && !prev.Less(k) {
			t.Fatalf("keys out of order: %v then %v", prev, k)
		}
		prev, first = k, false
		count++
		cur.Next()
	}
	if count != n {
		t.Fatalf("count = %d, want %d", count, n)
	}
}

func TestPagedTree_CheckpointRoundTrip(t *testing.T) {
	tr := New(3, keys.Width64, 7)
	w, err := tr.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	for i := int64(0); i < 50; i++ {
		putBit(t, w, keys.Key{Label: int32(i % 3), Range: i}, uint(i%64))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var body []byte
	if err := tr.Checkpoint(NoopLimiter{}, func(b []byte) error {
		body = append([]byte(nil), b...)
		return nil
	}); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	restored := New(3, keys.Width64, 7)
	if err := restored.LoadFrom(body); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	origCur, restCur := tr.Seek(nil, nil), restored.Seek(nil, nil)
	for origCur.Valid() {
		if !restCur.Valid() {
			t.Fatalf("restored tree ended early")
		}
		if origCur.Key() != restCur.Key() {
			t.Fatalf("key mismatch: %v vs %v", origCur.Key(), restCur.Key())
		}
		origCur.Next()
		restCur.Next()
	}
	if restCur.Valid() {
		t.Fatalf("restored tree has extra entries")
	}
}

func TestPagedTree_CheckReportsNoFaultsOnCleanTree(t *testing.T) {
	tr := New(3, keys.Width64, 1)
	w, err := tr.Writer()
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	putBit(t, w, keys.Key{Label: 1}, 0)
	putBit(t, w, keys.Key{Label: 2}, 0)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var faults []Fault
	ok := tr.Check(visitorFunc(func(f Fault) bool {
		faults = append(faults, f)
		return true
	}))
	if !ok || len(faults) != 0 {
		t.Fatalf("Check on clean tree = (%v, %v), want (true, [])", ok, faults)
	}
}

type visitorFunc func(Fault) bool

func (f visitorFunc) Report(fault Fault) bool { return f(fault) }
