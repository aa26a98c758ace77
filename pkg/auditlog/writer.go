package auditlog

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// Writer appends MergeRecord entries to a single audit log file. The
// buffering and explicit flush/sync split follow the same shape as a
// write-ahead log writer. WriteRecord only buffers; entries reach the
// file when Flush or Close is called (the store calls Flush from
// Force and Close on Shutdown/Drop). There is no background sync
// ticker.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	closed bool
}

// NewWriter opens (creating if absent) the audit log at path for append.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Writer{file: f, writer: bufio.NewWriterSize(f, 64*1024)}, nil
}

// WriteRecord frames and appends one MergeRecord under sequence seq.
func (w *Writer) WriteRecord(seq uint64, rec MergeRecord) error {
	payload, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	entry := Entry{
		Header: Header{
			Magic:      Magic,
			Version:    Version,
			Seq:        seq,
			PayloadLen: uint32(len(payload)),
			CRC32:      CalculateCRC32(payload),
		},
		Payload: payload,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("audit log closed")
	}
	_, err = entry.WriteTo(w.writer)
	return err
}

// Flush pushes buffered entries to the OS and fsyncs the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes and closes the underlying file. Idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.flushLocked(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
