package store

import "github.com/bobboyms/labelscan/pkg/reader"

// NewReader returns a reader bound to the store's current tree. The
// reader does not pin a snapshot at creation: each of its queries
// opens a fresh cursor on the tree's latest published root, so writes
// closed after NewReader returns are visible to later queries. Unlike
// the writer seat, any number of readers may be open at once and
// opening one never blocks or is blocked by a writer.
func (s *LabelScanStore) NewReader() *reader.Reader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reader.New(s.tree)
}
