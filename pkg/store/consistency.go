package store

import "github.com/bobboyms/labelscan/pkg/consistency"

// ConsistencyCheck runs a structural check over the current tree,
// reporting every fault found to report. Returns true iff the tree is sound.
func (s *LabelScanStore) ConsistencyCheck(report func(consistency.Fault) bool) bool {
	s.mu.Lock()
	tree := s.tree
	s.mu.Unlock()
	return consistency.Check(tree, report)
}
