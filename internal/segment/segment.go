// Package segment implements the backing-store naming convention and raw
// segment I/O primitives shared by the inode and block managers (ExFS2 spec
// section 4.1 / 6): a segment is a fixed SegmentSize file, named by kind and
// number, whose first BlockSize bytes are a header bitmap block.
package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nazmavali/exfs2/backend"
	backendfile "github.com/nazmavali/exfs2/backend/file"
	"github.com/nazmavali/exfs2/internal/bitmap"
	"github.com/nazmavali/exfs2/internal/exfserr"
	"github.com/nazmavali/exfs2/internal/layout"
)

// Kind distinguishes an inode segment from a data segment. The two are
// identical on disk except for naming and how their body is interpreted.
type Kind int

const (
	Inode Kind = iota
	Data
)

const (
	inodePrefix = "inode_seg_"
	dataPrefix  = "data_seg_"
)

// Store roots every segment file under Dir (the process's current working
// directory in the default configuration, per spec section 6).
type Store struct {
	Dir string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Name returns the backing file name for segment number n of the given
// kind, e.g. "inode_seg_3".
func (s *Store) Name(kind Kind, n int) string {
	if kind == Inode {
		return fmt.Sprintf("%s%d", inodePrefix, n)
	}
	return fmt.Sprintf("%s%d", dataPrefix, n)
}

func (s *Store) path(kind Kind, n int) string {
	return filepath.Join(s.Dir, s.Name(kind, n))
}

// Exists reports whether segment number n of the given kind has already
// been created.
func (s *Store) Exists(kind Kind, n int) bool {
	return backendfile.Exists(s.path(kind, n))
}

// Create initializes a brand new segment: SegmentSize zero bytes, flushed
// to disk (spec section 4.1). It does not itself set any bitmap bit or
// write any record; callers (the inode/block managers, and the top-level
// bootstrap for inode segment 0) do that afterward.
func (s *Store) Create(kind Kind, n int) error {
	if err := backendfile.Create(s.path(kind, n), layout.SegmentSize); err != nil {
		return fmt.Errorf("%w: %v", exfserr.IO, err)
	}
	return nil
}

// Open opens an existing segment for reading, and for writing too unless
// readOnly is set. The handle is meant to be used briefly and closed by the
// caller (no long-lived cache, per spec section 5).
func (s *Store) Open(kind Kind, n int, readOnly bool) (backend.WritableFile, error) {
	f, err := backendfile.Open(s.path(kind, n), readOnly)
	if err != nil {
		if os.IsNotExist(errors.Unwrap(err)) {
			return nil, fmt.Errorf("segment %s does not exist: %w", s.Name(kind, n), exfserr.NotFound)
		}
		return nil, fmt.Errorf("%w: %v", exfserr.IO, err)
	}
	return f, nil
}

// ReadHeader loads the BlockSize-byte bitmap header of segment n.
func (s *Store) ReadHeader(kind Kind, n int) (*bitmap.Bitmap, error) {
	f, err := s.Open(kind, n, true)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, layout.BlockSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("%w: failed to read header of %s: %v", exfserr.IO, s.Name(kind, n), err)
	}
	return bitmap.FromBytes(buf), nil
}

// WriteHeader persists bm as the bitmap header of segment n.
func (s *Store) WriteHeader(kind Kind, n int, bm *bitmap.Bitmap) error {
	f, err := s.Open(kind, n, false)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteAt(bm.ToBytes(), 0); err != nil {
		return fmt.Errorf("%w: failed to write header of %s: %v", exfserr.IO, s.Name(kind, n), err)
	}
	return nil
}

// ReadAt reads exactly len(p) bytes from segment n at byte offset off
// (measured from the start of the segment file, including the header).
func (s *Store) ReadAt(kind Kind, n int, p []byte, off int64) error {
	f, err := s.Open(kind, n, true)
	if err != nil {
		return err
	}
	defer f.Close()

	read, err := f.ReadAt(p, off)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s at offset %d: %v", exfserr.IO, s.Name(kind, n), off, err)
	}
	if read != len(p) {
		return fmt.Errorf("%w: short read of %d bytes (wanted %d) from %s at offset %d", exfserr.IO, read, len(p), s.Name(kind, n), off)
	}
	return nil
}

// WriteAt writes exactly p to segment n at byte offset off.
func (s *Store) WriteAt(kind Kind, n int, p []byte, off int64) error {
	f, err := s.Open(kind, n, false)
	if err != nil {
		return err
	}
	defer f.Close()

	wrote, err := f.WriteAt(p, off)
	if err != nil {
		return fmt.Errorf("%w: failed to write %s at offset %d: %v", exfserr.IO, s.Name(kind, n), off, err)
	}
	if wrote != len(p) {
		return fmt.Errorf("%w: short write of %d bytes (wanted %d) to %s at offset %d", exfserr.IO, wrote, len(p), s.Name(kind, n), off)
	}
	return nil
}
