// Package consistency implements the label scan store's offline
// structural check (spec section 4.8): a read-only walk of the tree
// that reports key ordering, duplicate key, empty value, and orphan
// child faults without touching the header bit or any file.
package consistency

import "github.com/bobboyms/labelscan/pkg/pagedtree"

// Fault is a single structural defect found during a check.
type Fault = pagedtree.Fault

// Check walks tree and reports every fault found to report, stopping
// early once report returns false. It returns true iff no fault was
// reported.
func Check(tree *pagedtree.PagedTree, report func(Fault) bool) bool {
	return tree.Check(visitorFunc(report))
}

type visitorFunc func(Fault) bool

func (f visitorFunc) Report(fault pagedtree.Fault) bool { return f(fault) }

// CollectingCheck runs a full check and returns every fault found,
// for callers that want the complete list rather than early exit.
func CollectingCheck(tree *pagedtree.PagedTree) (faults []Fault, ok bool) {
	ok = Check(tree, func(f Fault) bool {
		faults = append(faults, f)
		return true
	})
	return faults, ok
}
