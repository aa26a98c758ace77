// Package external declares the collaborators spec section 6 treats
// as owned by the surrounding graph engine (filesystem, recovery
// cleanup scheduling, and the full-store change stream used to
// rebuild the index), plus one local, in-process implementation of
// each so the store is runnable and testable standalone.
package external

import (
	"os"
)

// FileSystem is the subset of filesystem operations the store needs
// for drop and rebuild.
type FileSystem interface {
	Exists(path string) bool
	DeleteOrFail(path string) error
}

// OSFileSystem is the FileSystem backed by the local os package.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) DeleteOrFail(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// CleanupJob is one unit of background recovery cleanup work handed
// off by the paged tree (e.g. reclaiming orphaned pages found during
// a consistency pass).
type CleanupJob func() error

// RecoveryCleanupWorkCollector accepts background cleanup jobs. A
// production embedder supplies one backed by a real worker pool; this
// module only needs to hand jobs off, never schedule them itself
// (spec section 5).
type RecoveryCleanupWorkCollector interface {
	Collect(job CleanupJob)
}

// InlineCollector runs every collected job synchronously, suitable
// for tests and for embedders that have not wired a worker pool yet.
type InlineCollector struct {
	Errors []error
}

func (c *InlineCollector) Collect(job CleanupJob) {
	if err := job(); err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// NodeLabels is one entry of a full-store change stream: the complete
// current label set of one node, used to repopulate the index from
// scratch during rebuild.
type NodeLabels struct {
	NodeID uint64
	Labels []int32
}

// FullStoreChangeStream produces a sorted (by NodeID), non-overlapping
// stream of every node's current labels, authoritative enough to
// fully rebuild the index. ApplyTo drains the stream into sink and
// returns the number of nodes visited.
type FullStoreChangeStream interface {
	ApplyTo(sink func(NodeLabels) error) (nodeCount uint64, err error)
}

// SliceChangeStream is a FullStoreChangeStream backed by an in-memory
// slice, the reference implementation used in tests and for small
// embeddings that already hold the full node set in memory.
type SliceChangeStream struct {
	Entries []NodeLabels
}

func (s SliceChangeStream) ApplyTo(sink func(NodeLabels) error) (uint64, error) {
	var count uint64
	for _, e := range s.Entries {
		if err := sink(e); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// ChannelChangeStream adapts a channel-based producer (e.g. a live
// graph scan) to the FullStoreChangeStream contract.
type ChannelChangeStream struct {
	C <-chan NodeLabels
}

func (s ChannelChangeStream) ApplyTo(sink func(NodeLabels) error) (uint64, error) {
	var count uint64
	for e := range s.C {
		if err := sink(e); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
