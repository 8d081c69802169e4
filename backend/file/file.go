// Package file is the concrete on-disk backend.Storage implementation: a
// segment is just a plain host file, opened, read or written, and closed
// per operation (ExFS2 spec section 5: "no long-lived file-descriptor
// cache").
package file

import (
	"fmt"
	"os"

	"github.com/nazmavali/exfs2/backend"
)

// Open opens an existing segment file at pathName, read-write unless
// readOnly is set. The result is always a backend.WritableFile; when
// readOnly is true its WriteAt fails with backend.ErrIncorrectOpenMode. The
// caller is responsible for calling Close when done with it.
func Open(pathName string, readOnly bool) (backend.WritableFile, error) {
	flag := os.O_RDONLY
	if !readOnly {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(pathName, flag, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open segment %s: %w", pathName, err)
	}
	return &rawFile{f: f, readOnly: readOnly}, nil
}

// Create creates a brand new segment file at pathName and zero-fills it to
// exactly size bytes, flushing before returning. It fails if pathName
// already exists.
func Create(pathName string, size int64) error {
	f, err := os.OpenFile(pathName, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("could not create segment %s: %w", pathName, err)
	}
	defer f.Close()

	const chunkSize = 8192
	buf := make([]byte, chunkSize)
	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			return fmt.Errorf("could not initialize segment %s: %w", pathName, err)
		}
		remaining -= toWrite
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("could not flush new segment %s: %w", pathName, err)
	}
	return nil
}

// Exists reports whether a segment file is already present at pathName.
func Exists(pathName string) bool {
	_, err := os.Stat(pathName)
	return err == nil
}

type rawFile struct {
	f        *os.File
	readOnly bool
}

var _ backend.WritableFile = (*rawFile)(nil)

func (r *rawFile) ReadAt(p []byte, off int64) (int, error) {
	return r.f.ReadAt(p, off)
}

func (r *rawFile) WriteAt(p []byte, off int64) (int, error) {
	if r.readOnly {
		return 0, backend.ErrIncorrectOpenMode
	}
	return r.f.WriteAt(p, off)
}

func (r *rawFile) Close() error {
	return r.f.Close()
}
