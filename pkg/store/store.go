// Package store implements LabelScanStore, the label scan index's
// lifecycle manager (spec section 4.3/4.9): open/rebuild/checkpoint/
// drop/shutdown, the header-bit dirty protocol, and the single
// writer-seat discipline that pkg/batchwriter and pkg/pagedtree enforce
// beneath it.
package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bobboyms/labelscan/pkg/auditlog"
	"github.com/bobboyms/labelscan/pkg/external"
	"github.com/bobboyms/labelscan/pkg/keys"
	"github.com/bobboyms/labelscan/pkg/lserrors"
	"github.com/bobboyms/labelscan/pkg/monitor"
	"github.com/bobboyms/labelscan/pkg/pagecache"
	"github.com/bobboyms/labelscan/pkg/pagedtree"
	"github.com/bobboyms/labelscan/pkg/reader"
)

// State is one point in the store-level lifecycle of spec section 4.9.
type State int

const (
	StateUnopened State = iota
	StateOpenedDirty
	StateRebuilding
	StateReady
	StateReadyReadOnlyDegraded
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "UNOPENED"
	case StateOpenedDirty:
		return "OPENED_DIRTY"
	case StateRebuilding:
		return "REBUILDING"
	case StateReady:
		return "READY"
	case StateReadyReadOnlyDegraded:
		return "READY_READONLY_DEGRADED"
	case StateShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Header byte values stored in the tree's one-byte user header.
const (
	headerClean        byte = 0x00
	headerNeedsRebuild byte = 0x01
)

// LayoutID is the on-disk format identifier embedded in every store
// file's metadata page. Bumping it after a format change makes an
// old file fail open with LayoutMismatch instead of silently misreading it.
const LayoutID uint32 = 1

// DefaultPageSize is used when Options.PageSize is zero.
const DefaultPageSize = 16 * 1024

// DefaultFileName is the conventional backing file name for a store
// embedded next to a graph store, mirroring Neo4j's own naming scheme.
const DefaultFileName = "labelscanstore.db"

// Options configures a LabelScanStore at Init time.
type Options struct {
	ReadOnly            bool
	PageSize            int
	RangeWidth          keys.RangeWidth
	WriterBatchSize     int
	WriteMonitorEnabled bool
	AuditLogPath        string // defaults to Path + ".audit" when WriteMonitorEnabled
}

func (o Options) withDefaults(path string) Options {
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	if !o.RangeWidth.Valid() {
		o.RangeWidth = keys.Width64
	}
	if o.WriterBatchSize <= 0 {
		o.WriterBatchSize = 1000
	}
	if o.AuditLogPath == "" {
		o.AuditLogPath = path + ".audit"
	}
	return o
}

// Stats is a cheap, point-in-time snapshot of store size and health.
type Stats struct {
	EntryCount   int64
	LabelCount   int
	NeedsRebuild bool
	State        State
}

// LabelScanStore is the label scan index's top-level handle: one
// backing file, one tree, one writer seat, and the monitoring and
// audit collaborators wired around them.
type LabelScanStore struct {
	mu sync.Mutex

	path string
	opts Options

	cache pagecache.PageCache
	fs    external.FileSystem
	file  pagecache.PagedFile
	tree  *pagedtree.PagedTree

	monitors *monitor.Registry
	cleanup  external.RecoveryCleanupWorkCollector
	audit    *auditlog.Writer
	auditSeq atomic.Uint64

	storeID      uuid.UUID
	state        State
	needsRebuild bool
	maxLabelID   atomic.Int64 // -1 means "none observed"
	entryCount   atomic.Int64
	labelCount   atomic.Int64
}

// Init opens or creates the store file at path. Per spec section 4.3:
// a missing file starts the store dirty; a present file is read back
// and trusted unless its layout disagrees, in which case open fails
// fatally, or its header reports NEEDS_REBUILD, in which case Init
// succeeds but leaves the store dirty for Start to resolve.
func Init(path string, opts Options, cache pagecache.PageCache, fs external.FileSystem, monitors *monitor.Registry, cleanup external.RecoveryCleanupWorkCollector) (*LabelScanStore, error) {
	opts = opts.withDefaults(path)
	if monitors == nil {
		monitors = monitor.NewRegistry()
	}
	if cleanup == nil {
		cleanup = &external.InlineCollector{}
	}

	storeID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("store: generate store id: %w", err)
	}

	s := &LabelScanStore{
		path:     path,
		opts:     opts,
		cache:    cache,
		fs:       fs,
		monitors: monitors,
		cleanup:  cleanup,
		storeID:  storeID,
		state:    StateUnopened,
	}
	s.maxLabelID.Store(-1)

	existed := fs.Exists(path)
	file, err := cache.Map(path, opts.PageSize, pagecache.Options{Create: true})
	if err != nil {
		return nil, &lserrors.IOFailure{Op: "map store file", Err: err}
	}
	s.file = file

	if !existed {
		monitors.NoIndex()
		s.tree = pagedtree.New(defaultMinDegree, opts.RangeWidth, LayoutID)
		s.needsRebuild = true
		if err := s.persist(headerNeedsRebuild); err != nil {
			return nil, err
		}
	} else {
		meta, err := file.Metadata()
		if err != nil {
			return nil, &lserrors.IOFailure{Op: "read store metadata", Err: err}
		}
		if meta.LayoutID != LayoutID {
			monitors.NotValidIndex()
			return nil, &lserrors.LayoutMismatch{Want: LayoutID, Got: meta.LayoutID}
		}
		body, err := file.ReadBody()
		if err != nil {
			return nil, &lserrors.IOFailure{Op: "read store body", Err: err}
		}
		tree := pagedtree.New(defaultMinDegree, opts.RangeWidth, LayoutID)
		if len(body) > 0 {
			if err := tree.LoadFrom(body); err != nil {
				if opts.ReadOnly {
					return nil, &lserrors.TreeCorrupt{Reason: err.Error()}
				}
				monitors.NotValidIndex()
				tree = pagedtree.New(defaultMinDegree, opts.RangeWidth, LayoutID)
				s.needsRebuild = true
				cleanup.Collect(func() error {
					err := fs.DeleteOrFail(path + ".tmp")
					monitors.RecoveryCleanup(err)
					return err
				})
			}
		}
		s.tree = tree
		if meta.UserHeader == headerNeedsRebuild {
			s.needsRebuild = true
		}
		s.refreshCounters()
	}

	if s.needsRebuild {
		s.state = StateOpenedDirty
	} else {
		s.state = StateReady
	}
	if opts.WriteMonitorEnabled {
		w, err := auditlog.NewWriter(opts.AuditLogPath)
		if err != nil {
			return nil, &lserrors.IOFailure{Op: "open audit log", Err: err}
		}
		s.audit = w
	}

	monitors.Init()
	return s, nil
}

const defaultMinDegree = 64

func (s *LabelScanStore) persist(header byte) error {
	return s.persistWithLimiter(header, pagedtree.NoopLimiter{})
}

func (s *LabelScanStore) persistWithLimiter(header byte, limiter pagedtree.Limiter) error {
	body, err := encodeTree(s.tree, limiter)
	if err != nil {
		return &lserrors.IOFailure{Op: "encode tree", Err: err}
	}
	meta := pagecache.Metadata{
		LayoutID:   LayoutID,
		PageSize:   uint32(s.opts.PageSize),
		RangeWidth: uint32(s.opts.RangeWidth),
		UserHeader: header,
	}
	if err := s.file.Replace(meta, body); err != nil {
		return &lserrors.IOFailure{Op: "replace store file", Err: err}
	}
	if err := s.file.Sync(); err != nil {
		return &lserrors.IOFailure{Op: "sync store file", Err: err}
	}
	return nil
}

func encodeTree(tree *pagedtree.PagedTree, limiter pagedtree.Limiter) (body []byte, err error) {
	err = tree.Checkpoint(limiter, func(b []byte) error {
		body = b
		return nil
	})
	return body, err
}

// refreshCounters walks the whole tree once and recomputes maxLabelID,
// entryCount and labelCount. Init, Start and ApplyUpdates call it, so
// Stats() is accurate after each of them.
func (s *LabelScanStore) refreshCounters() {
	r := reader.New(s.tree)
	all := r.AllLabelRanges()
	s.entryCount.Store(int64(len(all)))

	seen := make(map[int32]struct{})
	maxLabel := int64(-1)
	for _, e := range all {
		seen[e.Label] = struct{}{}
		if int64(e.Label) > maxLabel {
			maxLabel = int64(e.Label)
		}
	}
	s.labelCount.Store(int64(len(seen)))
	s.maxLabelID.Store(maxLabel)
}

// IsEmpty reports whether the tree currently holds no entries.
func (s *LabelScanStore) IsEmpty() bool {
	return s.tree.IsEmpty()
}

// Stats returns a cheap snapshot of store size and health, derived
// from the same counters Start and ApplyUpdates already maintain.
func (s *LabelScanStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		EntryCount:   s.entryCount.Load(),
		LabelCount:   int(s.labelCount.Load()),
		NeedsRebuild: s.needsRebuild,
		State:        s.state,
	}
}

// Path returns the backing file path.
func (s *LabelScanStore) Path() string { return s.path }

// SnapshotStoreFiles returns the store's single backing file path.
func (s *LabelScanStore) SnapshotStoreFiles() []string {
	return []string{s.path}
}
