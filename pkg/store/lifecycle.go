package store

import (
	"github.com/bobboyms/labelscan/pkg/lserrors"
	"github.com/bobboyms/labelscan/pkg/pagedtree"
)

// Force checkpoints the tree with header CLEAN and flushes the audit
// log, regardless of whether anything changed since the last force.
// A nil limiter paces the checkpoint at the default (unthrottled) rate.
// Force is only a legal READY -> FORCING -> READY transition: a store
// that still needs a rebuild refuses, since stamping CLEAN on a tree
// that was never reconstructed from the change stream would claim a
// durable state the store never actually reached.
func (s *LabelScanStore) Force(limiter pagedtree.Limiter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.needsRebuild {
		return &lserrors.StoreDirty{}
	}
	if limiter == nil {
		limiter = pagedtree.NoopLimiter{}
	}
	if err := s.persistWithLimiter(headerClean, limiter); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Flush()
	}
	return nil
}

// Drop closes the tree and deletes the backing file, tolerating an
// already-absent file.
func (s *LabelScanStore) Drop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	if err := s.fs.DeleteOrFail(s.path); err != nil {
		return &lserrors.IOFailure{Op: "delete store file", Err: err}
	}
	if s.audit != nil {
		_ = s.audit.Close()
		s.audit = nil
	}
	auditPath := s.opts.AuditLogPath
	tmpPath := s.path + ".tmp"
	s.cleanup.Collect(func() error {
		err := s.fs.DeleteOrFail(tmpPath)
		if auditErr := s.fs.DeleteOrFail(auditPath); err == nil {
			err = auditErr
		}
		s.monitors.RecoveryCleanup(err)
		return err
	})
	s.state = StateShutdown
	return nil
}

// Shutdown closes the tree's backing file and the audit log.
// Idempotent: calling it more than once is a no-op.
func (s *LabelScanStore) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateShutdown {
		return nil
	}
	var firstErr error
	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = &lserrors.IOFailure{Op: "close store file", Err: err}
		}
		s.file = nil
	}
	if s.audit != nil {
		if err := s.audit.Close(); err != nil && firstErr == nil {
			firstErr = &lserrors.IOFailure{Op: "close audit log", Err: err}
		}
		s.audit = nil
	}
	s.state = StateShutdown
	return firstErr
}
