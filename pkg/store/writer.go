package store

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/bobboyms/labelscan/pkg/auditlog"
	"github.com/bobboyms/labelscan/pkg/batchwriter"
	"github.com/bobboyms/labelscan/pkg/keys"
	"github.com/bobboyms/labelscan/pkg/lserrors"
)

// NewWriter opens a batching writer seat. Refuses with NotWritable on
// a read-only store and with StoreDirty while a rebuild is outstanding.
func (s *LabelScanStore) NewWriter() (*batchwriter.BatchingWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.ReadOnly {
		return nil, &lserrors.NotWritable{}
	}
	if s.needsRebuild {
		return nil, &lserrors.StoreDirty{}
	}

	// A writer's changes reach disk only at the next Force, so the
	// on-disk header is flipped to NEEDS_REBUILD first: a crash before
	// that Force makes the next Init rebuild instead of trusting the
	// last checkpoint.
	if s.file != nil {
		meta, err := s.file.Metadata()
		if err != nil {
			return nil, &lserrors.IOFailure{Op: "read store metadata", Err: err}
		}
		if meta.UserHeader != headerNeedsRebuild {
			if err := s.file.SetUserHeader(headerNeedsRebuild); err != nil {
				return nil, &lserrors.IOFailure{Op: "mark store dirty", Err: err}
			}
		}
	}

	return batchwriter.New(s.tree, s.opts.RangeWidth, s.opts.WriterBatchSize, s.onMerge)
}

// NewBulkAppendWriter opens a bulk append writer seat, for callers
// populating an empty or freshly-dropped tree outside of Start's own
// rebuild path. Refuses with NotWritable on a read-only store.
func (s *LabelScanStore) NewBulkAppendWriter() (*batchwriter.BulkAppendWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.ReadOnly {
		return nil, &lserrors.NotWritable{}
	}
	return batchwriter.NewBulkAppendWriter(s.tree)
}

// ApplyUpdates opens a writer, drains updates through it in order,
// and closes it, making every update visible as one group.
func (s *LabelScanStore) ApplyUpdates(updates []batchwriter.NodeLabelUpdate) error {
	w, err := s.NewWriter()
	if err != nil {
		return err
	}
	for _, u := range updates {
		if err := w.Apply(u); err != nil {
			w.Discard()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	s.mu.Lock()
	s.refreshCounters()
	s.mu.Unlock()
	return nil
}

// onMerge is the batching writer's per-tuple callback: it appends an
// audit record when write-monitoring is enabled. It never fails the
// write on an audit error, matching spec section 7's propagation rule
// that writer I/O faults abort the batch but auditing is best-effort
// bookkeeping layered on top, not part of the tree mutation itself.
func (s *LabelScanStore) onMerge(labelID int32, rangeID int64, add, remove, result keys.Bitset, _ uint64) {
	if s.audit == nil {
		return
	}
	rec := auditlog.MergeRecord{
		LabelID:      labelID,
		RangeID:      rangeID,
		AddMask:      []byte(add),
		RemoveMask:   []byte(remove),
		ResultBitset: []byte(result),
	}
	seq := s.auditSeq.Add(1)
	_ = s.audit.WriteRecord(seq, rec)
}

// rebuildSummary is the BSON payload attached to a KindRebuilt
// notification, giving operators the shape of what was replayed
// without needing to re-scan the tree.
type rebuildSummary struct {
	StoreID    string `bson:"storeId"`
	NodeCount  uint64 `bson:"nodeCount"`
	EntryCount int64  `bson:"entryCount"`
}

func (s *LabelScanStore) encodeRebuildSummary(nodeCount uint64) []byte {
	sum := rebuildSummary{
		StoreID:    s.storeID.String(),
		NodeCount:  nodeCount,
		EntryCount: s.entryCount.Load(),
	}
	b, _ := bson.Marshal(sum)
	return b
}
