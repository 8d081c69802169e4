// Package exfserr defines the error kinds ExFS2 surfaces internally (spec
// section 7). Every layer wraps one of these sentinels with %w so callers
// can dispatch on errors.Is while still getting a human-readable message.
package exfserr

import "errors"

var (
	// IO is returned when the host file system rejects an open, read,
	// write, seek, or create.
	IO = errors.New("io error")
	// NotFound is returned when a path component, directory entry, or
	// expected segment is absent.
	NotFound = errors.New("not found")
	// AlreadyExists is returned when add targets an existing name.
	AlreadyExists = errors.New("already exists")
	// NotADirectory is returned when a path component traverses through a
	// non-directory inode.
	NotADirectory = errors.New("not a directory")
	// NoSpace is returned when a directory cannot grow past MaxDirect
	// entry blocks. A file that exceeds tier-3 addressing capacity gets
	// FileTooLarge instead.
	NoSpace = errors.New("no space")
	// FileTooLarge is returned when a file write would need more than
	// MaxDirect + P + P^2 + P^3 data blocks.
	FileTooLarge = errors.New("file too large")
)
