// Package backend defines the contract a segment file's backing storage
// must satisfy. ExFS2 never talks to *os.File directly from filesystem
// logic; every primitive goes through this interface so a segment handle
// can be opened, used briefly, and closed without the rest of the code
// caring what's underneath it (see backend/file for the concrete on-disk
// implementation).
package backend

import (
	"errors"
	"io"
)

var (
	// ErrIncorrectOpenMode is returned when a write is attempted against a
	// segment opened read-only.
	ErrIncorrectOpenMode = errors.New("segment not open for write")
	// ErrNotSuitable is returned when a backing file does not support an
	// operation the caller requested.
	ErrNotSuitable = errors.New("backing file is not suitable")
)

// File is a segment handle open for reading.
type File interface {
	io.ReaderAt
	io.Closer
}

// WritableFile is a segment handle open for reading and writing.
type WritableFile interface {
	File
	io.WriterAt
}
