package consistency

import (
	"testing"

	"github.com/bobboyms/labelscan/pkg/batchwriter"
	"github.com/bobboyms/labelscan/pkg/keys"
	"github.com/bobboyms/labelscan/pkg/pagedtree"
)

func TestCheck_CleanTreeReportsNoFaults(t *testing.T) {
	tree := pagedtree.New(4, keys.Width64, 1)
	bw, err := batchwriter.New(tree, keys.Width64, 100, nil)
	if err != nil {
		t.Fatalf("batchwriter.New: %v", err)
	}
	for nodeID := uint64(0); nodeID < 50; nodeID++ {
		if err := bw.Apply(batchwriter.NodeLabelUpdate{NodeID: nodeID, After: []int32{int32(nodeID % 5)}}); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	faults, ok := CollectingCheck(tree)
	if !ok || len(faults) != 0 {
		t.Fatalf("CollectingCheck on clean tree = (%v, %v), want (nil, true)", faults, ok)
	}
}

func TestCheck_EmptyTreeIsClean(t *testing.T) {
	tree := pagedtree.New(4, keys.Width64, 1)
	faults, ok := CollectingCheck(tree)
	if !ok || len(faults) != 0 {
		t.Fatalf("CollectingCheck on empty tree = (%v, %v), want (nil, true)", faults, ok)
	}
}
