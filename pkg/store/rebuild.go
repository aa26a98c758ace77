package store

import (
	"sort"

	"github.com/bobboyms/labelscan/pkg/batchwriter"
	"github.com/bobboyms/labelscan/pkg/external"
	"github.com/bobboyms/labelscan/pkg/keys"
	"github.com/bobboyms/labelscan/pkg/lserrors"
	"github.com/bobboyms/labelscan/pkg/pagedtree"
)

// Start resolves an outstanding rebuild by draining stream into a
// fresh tree through a BulkAppendWriter, then checkpoints CLEAN. If
// the store is not dirty, Start is a no-op. A dirty read-only store
// leaves needsRebuild set; writers continue to refuse.
func (s *LabelScanStore) Start(stream external.FullStoreChangeStream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.needsRebuild {
		return nil
	}
	if s.opts.ReadOnly {
		s.state = StateReadyReadOnlyDegraded
		return nil
	}

	s.state = StateRebuilding
	s.monitors.Rebuilding()

	s.tree = pagedtree.New(defaultMinDegree, s.opts.RangeWidth, LayoutID)
	acc := newAccumulator(s.opts.RangeWidth)

	nodeCount, err := stream.ApplyTo(func(nl external.NodeLabels) error {
		acc.add(nl)
		return nil
	})
	if err != nil {
		return &lserrors.IOFailure{Op: "drain change stream", Err: err}
	}

	bw, err := batchwriter.NewBulkAppendWriter(s.tree)
	if err != nil {
		return err
	}
	for _, e := range acc.sorted() {
		if err := bw.Append(e.key, e.value); err != nil {
			bw.Discard()
			return &lserrors.IOFailure{Op: "bulk append during rebuild", Err: err}
		}
	}
	if err := bw.Close(); err != nil {
		return &lserrors.IOFailure{Op: "close bulk writer", Err: err}
	}

	s.needsRebuild = false
	s.refreshCounters()
	if err := s.persist(headerClean); err != nil {
		return err
	}

	s.state = StateReady
	s.monitors.RebuiltWithSummary(nodeCount, s.encodeRebuildSummary(nodeCount))
	return nil
}

type accumulatorEntry struct {
	key   keys.Key
	value keys.Bitset
}

// accumulator buffers the full (label, range) -> bitset map built
// while draining a change stream, so it can be emitted in the
// strictly ascending key order BulkAppendWriter-style loading requires.
type accumulator struct {
	width keys.RangeWidth
	byKey map[keys.Key]keys.Bitset
}

func newAccumulator(width keys.RangeWidth) *accumulator {
	return &accumulator{width: width, byKey: make(map[keys.Key]keys.Bitset)}
}

func (a *accumulator) add(nl external.NodeLabels) {
	rangeID, bit := keys.NodeRange(nl.NodeID, a.width)
	for _, label := range nl.Labels {
		key := keys.Key{Label: label, Range: rangeID}
		v, ok := a.byKey[key]
		if !ok {
			v = keys.NewBitset(a.width)
			a.byKey[key] = v
		}
		v.Set(bit)
	}
}

func (a *accumulator) sorted() []accumulatorEntry {
	out := make([]accumulatorEntry, 0, len(a.byKey))
	for k, v := range a.byKey {
		out = append(out, accumulatorEntry{key: k, value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key.Less(out[j].key) })
	return out
}
