// Package keys encodes the (labelId, rangeId) tree key and the
// per-range bitset value used by the label scan store.
package keys

import (
	"encoding/binary"
	"fmt"
)

// RangeWidth is the number of node ids covered by one bitset entry.
// Fixed per store at creation time.
type RangeWidth int

const (
	Width8  RangeWidth = 8
	Width16 RangeWidth = 16
	Width32 RangeWidth = 32
	Width64 RangeWidth = 64
)

func (w RangeWidth) Valid() bool {
	switch w {
	case Width8, Width16, Width32, Width64:
		return true
	default:
		return false
	}
}

// BytesPerValue returns W/8, the byte length of one bitset value.
func (w RangeWidth) BytesPerValue() int { return int(w) / 8 }

// MaxLabel is reserved and never assigned to a stored label, leaving
// room for a sentinel key above any real one if a future caller needs
// a reverse-iteration bound instead of the maintained maxLabelId counter.
const MaxLabel int32 = 1<<31 - 1

// KeySize is the fixed-width encoding length: 4 bytes label + 8 bytes range.
const KeySize = 12

// Key is the total-ordered (labelId, rangeId) tree key: label major,
// range minor.
type Key struct {
	Label int32
	Range int64
}

// NodeRange returns the (rangeId, bitOffset) pair for a node id under width w.
func NodeRange(nodeID uint64, w RangeWidth) (rangeID int64, bitOffset uint) {
	width := uint64(w)
	return int64(nodeID / width), uint(nodeID % width)
}

// FirstNode returns the lowest node id covered by rangeID.
func FirstNode(rangeID int64, w RangeWidth) uint64 {
	return uint64(rangeID) * uint64(w)
}

// Compare gives the total order: label major (signed), range minor (unsigned).
func (k Key) Compare(o Key) int {
	if k.Label != o.Label {
		if k.Label < o.Label {
			return -1
		}
		return 1
	}
	ku, ou := uint64(k.Range), uint64(o.Range)
	if ku < ou {
		return -1
	}
	if ku > ou {
		return 1
	}
	return 0
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool { return k.Compare(o) < 0 }

func (k Key) String() string { return fmt.Sprintf("(%d,%d)", k.Label, k.Range) }

// Encode writes the fixed 12-byte big-endian representation of k into buf,
// which must have length >= KeySize.
func (k Key) Encode(buf []byte) {
	binary.BigEndian.PutUint32(buf[0:4], uint32(k.Label))
	binary.BigEndian.PutUint64(buf[4:12], uint64(k.Range))
}

// DecodeKey reads a Key from its fixed 12-byte big-endian representation.
func DecodeKey(buf []byte) Key {
	return Key{
		Label: int32(binary.BigEndian.Uint32(buf[0:4])),
		Range: int64(binary.BigEndian.Uint64(buf[4:12])),
	}
}

// LabelLowerBound returns the smallest key for label L: (L, 0).
func LabelLowerBound(label int32) Key { return Key{Label: label, Range: 0} }

// LabelUpperBound returns the exclusive upper bound for label L's range: (L+1, 0).
func LabelUpperBound(label int32) Key { return Key{Label: label + 1, Range: 0} }
