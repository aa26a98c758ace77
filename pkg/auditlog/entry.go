// Package auditlog is the write-monitor's append-only audit trail
// (spec section 6, writeMonitorEnabled): one entry per flushed
// (label, range) merge. Framing and checksum are adapted from the
// teacher's pkg/wal, narrowed to the single record kind this store
// ever logs and keyed on a caller-supplied sequence number (the
// store's running audit counter) instead of a transaction LSN.
package auditlog

import (
	"encoding/binary"
	"io"
)

const (
	// HeaderSize is the fixed framing size in bytes: magic(4) + version(1) + reserved(3) + seq(8) + payloadLen(4) + crc32(4).
	HeaderSize = 24
	Version    = 1
	// Magic tags an audit log entry. Distinct from the teacher's WAL
	// magic so the two formats are never confused if opened with the
	// wrong reader.
	Magic = 0xA0D17106
)

// Header is the fixed 24-byte framing prefix of every entry.
type Header struct {
	Magic      uint32
	Version    uint8
	Reserved   [3]byte
	Seq        uint64 // caller-supplied sequence number
	PayloadLen uint32
	CRC32      uint32
}

func (h *Header) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	copy(buf[5:8], h.Reserved[:])
	binary.LittleEndian.PutUint64(buf[8:16], h.Seq)
	binary.LittleEndian.PutUint32(buf[16:20], h.PayloadLen)
	binary.LittleEndian.PutUint32(buf[20:24], h.CRC32)
}

func (h *Header) Decode(buf []byte) {
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = buf[4]
	copy(h.Reserved[:], buf[5:8])
	h.Seq = binary.LittleEndian.Uint64(buf[8:16])
	h.PayloadLen = binary.LittleEndian.Uint32(buf[16:20])
	h.CRC32 = binary.LittleEndian.Uint32(buf[20:24])
}

// Entry is one audit record: a framing header plus a BSON-encoded
// MergeRecord payload (see record.go).
type Entry struct {
	Header  Header
	Payload []byte
}

func (e *Entry) WriteTo(w io.Writer) (int64, error) {
	var buf [HeaderSize]byte
	e.Header.Encode(buf[:])
	n, err := w.Write(buf[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(e.Payload)
	return int64(n + m), err
}
