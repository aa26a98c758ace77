package keys

import "testing"

func TestKey_EncodeDecodeRoundTrip(t *testing.T) {
	k := Key{Label: 42, Range: -7}
	buf := make([]byte, KeySize)
	k.Encode(buf)

	got := DecodeKey(buf)
	if got != k {
		t.Fatalf("DecodeKey(Encode(%v)) = %v, want %v", k, got, k)
	}
}

func TestKey_CompareOrdersLabelMajor(t *testing.T) {
	low := Key{Label: 1, Range: 100}
	high := Key{Label: 2, Range: 0}

	if !low.Less(high) {
		t.Fatalf("Key{1,100}.Less(Key{2,0}) = false, want true (label dominates range)")
	}
	if high.Less(low) {
		t.Fatalf("Key{2,0}.Less(Key{1,100}) = true, want false")
	}
	if low.Compare(low) != 0 {
		t.Fatalf("Key.Compare with itself must be 0")
	}
}

func TestKey_CompareOrdersRangeMinorUnsigned(t *testing.T) {
	a := Key{Label: 5, Range: 0}
	b := Key{Label: 5, Range: -1} // -1 as uint64 is the largest range value
	if !a.Less(b) {
		t.Fatalf("Key{5,0}.Less(Key{5,-1}) = false, want true (range compares as unsigned)")
	}
}

func TestKey_LabelBounds(t *testing.T) {
	lo := LabelLowerBound(10)
	hi := LabelUpperBound(10)
	if !lo.Less(hi) {
		t.Fatalf("LabelLowerBound(10) must sort before LabelUpperBound(10)")
	}
	inRange := Key{Label: 10, Range: 1 << 40}
	if inRange.Less(lo) || !inRange.Less(hi) {
		t.Fatalf("Key{10, large range} must fall within [LabelLowerBound(10), LabelUpperBound(10))")
	}
	outOfRange := Key{Label: 11, Range: 0}
	if outOfRange.Less(hi) {
		t.Fatalf("Key{11,0} must not fall below LabelUpperBound(10)")
	}
}

func TestRangeWidth_ValidAndBytesPerValue(t *testing.T) {
	cases := []struct {
		w     RangeWidth
		valid bool
		bytes int
	}{
		{Width8, true, 1},
		{Width16, true, 2},
		{Width32, true, 4},
		{Width64, true, 8},
		{RangeWidth(17), false, 2},
	}
	for _, c := range cases {
		if got := c.w.Valid(); got != c.valid {
			t.Errorf("RangeWidth(%d).Valid() = %v, want %v", c.w, got, c.valid)
		}
		if c.valid {
			if got := c.w.BytesPerValue(); got != c.bytes {
				t.Errorf("RangeWidth(%d).BytesPerValue() = %d, want %d", c.w, got, c.bytes)
			}
		}
	}
}

func TestNodeRangeAndFirstNode(t *testing.T) {
	rangeID, bitOffset := NodeRange(130, Width64)
	if rangeID != 2 || bitOffset != 2 {
		t.Fatalf("NodeRange(130, Width64) = (%d,%d), want (2,2)", rangeID, bitOffset)
	}
	if got := FirstNode(rangeID, Width64); got != 128 {
		t.Fatalf("FirstNode(2, Width64) = %d, want 128", got)
	}
}
