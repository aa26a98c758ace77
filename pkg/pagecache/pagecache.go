// Package pagecache is the external PageCache/PagedFile contract the
// paged tree layers atop (spec section 4.2/6), plus one local,
// single-process implementation suitable for embedding and for tests.
//
// The on-disk layout mirrors the teacher's checkpoint file: a small
// fixed metadata header (magic, layout id, page size, range width,
// one user-header byte) followed by the whole-tree body, replaced
// atomically on every checkpoint via write-temp-then-rename, grounded
// on storage.CheckpointManager.CreateCheckpoint.
package pagecache

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	// Magic tags a label scan store file so a foreign file is a fast, clear error.
	Magic = 0x4C42534E // "LBSN"

	headerLen = 4 + 4 + 4 + 4 + 1 // magic + layoutID + pageSize + rangeWidth + userHeader
)

// Metadata is the fixed header every PagedFile carries.
type Metadata struct {
	LayoutID   uint32
	PageSize   uint32
	RangeWidth uint32
	UserHeader byte
}

// PagedFile is the backing store for one paged tree: a metadata header
// plus a replaceable body blob.
type PagedFile interface {
	// Metadata returns the current header.
	Metadata() (Metadata, error)
	// SetUserHeader atomically updates the one-byte user header,
	// leaving the body untouched. Used outside of checkpoints for a
	// header-only flip: the store marks itself NEEDS_REBUILD this way
	// when a writer is opened.
	SetUserHeader(b byte) error
	// ReadBody returns the current serialized tree body.
	ReadBody() ([]byte, error)
	// Replace atomically writes metadata+body to a temp file and
	// renames it over the target, so a crash mid-write never corrupts
	// the previously durable snapshot.
	Replace(meta Metadata, body []byte) error
	// Sync forces the last Replace to be durable.
	Sync() error
	Close() error
	Path() string
}

// PageCache maps a file path to a PagedFile. Mirrors the external
// page-cache collaborator the paged tree is specified to sit atop
// (spec section 6): `map(file, pageSize, options) -> PagedFile`.
type PageCache interface {
	Map(path string, pageSize int, opts Options) (PagedFile, error)
}

// Options configures a PageCache.Map call.
type Options struct {
	// Create, when true, creates the file if it does not exist.
	Create bool
}

// LocalPageCache maps files on the local filesystem. The zero value is ready to use.
type LocalPageCache struct{}

func (LocalPageCache) Map(path string, pageSize int, opts Options) (PagedFile, error) {
	return openLocalFile(path, pageSize, opts)
}

type localFile struct {
	path string
	meta Metadata
	file *os.File
}

func openLocalFile(path string, pageSize int, opts Options) (PagedFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if os.IsNotExist(err) {
		if !opts.Create {
			return nil, err
		}
		lf := &localFile{path: path, meta: Metadata{PageSize: uint32(pageSize)}}
		if err := lf.Replace(lf.meta, nil); err != nil {
			return nil, err
		}
		f, err = os.OpenFile(path, os.O_RDWR, 0o644)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	lf := &localFile{path: path, file: f}
	meta, err := lf.readMetaLocked()
	if err != nil {
		f.Close()
		return nil, err
	}
	lf.meta = meta
	return lf, nil
}

func (lf *localFile) Path() string { return lf.path }

func (lf *localFile) readMetaLocked() (Metadata, error) {
	buf := make([]byte, headerLen)
	if _, err := lf.file.ReadAt(buf, 0); err != nil {
		return Metadata{}, fmt.Errorf("read header: %w", err)
	}
	magic := binary.BigEndian.Uint32(buf[0:4])
	if magic != Magic {
		return Metadata{}, fmt.Errorf("bad magic %#x", magic)
	}
	return Metadata{
		LayoutID:   binary.BigEndian.Uint32(buf[4:8]),
		PageSize:   binary.BigEndian.Uint32(buf[8:12]),
		RangeWidth: binary.BigEndian.Uint32(buf[12:16]),
		UserHeader: buf[16],
	}, nil
}

func (lf *localFile) Metadata() (Metadata, error) {
	if lf.file == nil {
		return lf.meta, nil
	}
	return lf.readMetaLocked()
}

func (lf *localFile) SetUserHeader(b byte) error {
	body, err := lf.ReadBody()
	if err != nil {
		return err
	}
	meta := lf.meta
	meta.UserHeader = b
	return lf.Replace(meta, body)
}

func (lf *localFile) ReadBody() ([]byte, error) {
	if lf.file == nil {
		return nil, nil
	}
	info, err := lf.file.Stat()
	if err != nil {
		return nil, err
	}
	n := info.Size() - headerLen
	if n <= 0 {
		return nil, nil
	}
	body := make([]byte, n)
	if _, err := lf.file.ReadAt(body, headerLen); err != nil {
		return nil, err
	}
	return body, nil
}

func (lf *localFile) Replace(meta Metadata, body []byte) error {
	tmpPath := lf.path + ".tmp"
	out, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}

	header := make([]byte, headerLen)
	binary.BigEndian.PutUint32(header[0:4], Magic)
	binary.BigEndian.PutUint32(header[4:8], meta.LayoutID)
	binary.BigEndian.PutUint32(header[8:12], meta.PageSize)
	binary.BigEndian.PutUint32(header[12:16], meta.RangeWidth)
	header[16] = meta.UserHeader

	if _, err := out.Write(header); err != nil {
		out.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := out.Write(body); err != nil {
		out.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, lf.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	if lf.file != nil {
		lf.file.Close()
	}
	f, err := os.OpenFile(lf.path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("reopen after replace: %w", err)
	}
	lf.file = f
	lf.meta = meta
	return nil
}

func (lf *localFile) Sync() error {
	if lf.file == nil {
		return nil
	}
	return lf.file.Sync()
}

func (lf *localFile) Close() error {
	if lf.file == nil {
		return nil
	}
	return lf.file.Close()
}
