package keys

import "testing"

func TestBitset_SetClearTest(t *testing.T) {
	b := NewBitset(Width64)
	if !b.IsZero() {
		t.Fatalf("fresh bitset must be zero")
	}
	b.Set(3)
	b.Set(9)
	if !b.Test(3) || !b.Test(9) {
		t.Fatalf("Set bits must read back as set")
	}
	if b.Test(4) {
		t.Fatalf("untouched bit must read back as clear")
	}
	if b.IsZero() {
		t.Fatalf("bitset with set bits must not be zero")
	}
	b.Clear(3)
	if b.Test(3) {
		t.Fatalf("Clear must unset the bit")
	}
}

func TestBitset_OrAndNotAnd(t *testing.T) {
	a := NewBitset(Width8)
	a.Set(0)
	a.Set(2)
	b := NewBitset(Width8)
	b.Set(2)
	b.Set(5)

	or := Or(a, b)
	for _, i := range []uint{0, 2, 5} {
		if !or.Test(i) {
			t.Fatalf("Or missing bit %d", i)
		}
	}

	andNot := AndNot(a, b)
	if !andNot.Test(0) || andNot.Test(2) || andNot.Test(5) {
		t.Fatalf("AndNot(a,b) = %v, want only bit 0 set", andNot)
	}

	and := And(a, b)
	if !and.Test(2) || and.Test(0) || and.Test(5) {
		t.Fatalf("And(a,b) = %v, want only bit 2 set", and)
	}
}

func TestBitset_SetNodes(t *testing.T) {
	b := NewBitset(Width64)
	b.Set(0)
	b.Set(5)
	b.Set(63)

	got := b.SetNodes(2, Width64)
	want := []uint64{128, 133, 191}
	if len(got) != len(want) {
		t.Fatalf("SetNodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SetNodes = %v, want %v", got, want)
		}
	}
}

func TestBitset_MaskRangeClampsFirstAndLast(t *testing.T) {
	b := NewBitset(Width64)
	for i := uint(0); i < 64; i++ {
		b.Set(i)
	}

	masked := b.MaskRange(0, Width64, 10, 20)
	for i := uint64(0); i < 64; i++ {
		want := i >= 10 && i < 20
		if masked.Test(uint(i)) != want {
			t.Fatalf("MaskRange bit %d = %v, want %v", i, masked.Test(uint(i)), want)
		}
	}
}

func TestCloneBitset_Independence(t *testing.T) {
	b := NewBitset(Width8)
	b.Set(1)
	c := CloneBitset(b)
	c.Set(2)
	if b.Test(2) {
		t.Fatalf("mutating the clone must not affect the original")
	}
}
