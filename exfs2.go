// Package exfs2 implements ExFS2, a user-space, single-volume file system
// that stores its entire state in a collection of fixed-size segment files
// on the host file system: a hierarchical directory tree rooted at a
// single directory, regular-file storage via direct and multi-level
// indirect block pointers, and add/extract/list/remove/debug operations.
package exfs2

import (
	"fmt"
	"io"
	"os"

	"github.com/nazmavali/exfs2/internal/block"
	"github.com/nazmavali/exfs2/internal/chain"
	"github.com/nazmavali/exfs2/internal/directory"
	"github.com/nazmavali/exfs2/internal/exfserr"
	"github.com/nazmavali/exfs2/internal/inode"
	"github.com/nazmavali/exfs2/internal/layout"
	"github.com/nazmavali/exfs2/internal/segment"
	"github.com/nazmavali/exfs2/internal/walker"
)

// FileSystem is a handle onto an ExFS2 volume rooted at a directory of
// segment files. It holds no long-lived file descriptors; every operation
// opens, uses, and closes its backing segments (spec section 5).
type FileSystem struct {
	segments *segment.Store
	inodes   *inode.Manager
	blocks   *block.Manager
	dirs     *directory.Manager
	chains   *chain.Manager
	walk     *walker.Manager
}

// Open attaches to the ExFS2 volume whose segment files live under dir,
// creating and bootstrapping inode_seg_0 and data_seg_0 if dir holds no
// volume yet (spec section 4.1 / 6): bit 0 of the inode bitmap is set and
// the root directory inode (id 0) is written.
func Open(dir string) (*FileSystem, error) {
	segments := segment.New(dir)
	im := inode.New(segments)
	bm := block.New(segments)
	dm := directory.New(bm, im)
	cm := chain.New(bm)
	wk := walker.New(im, dm, cm)

	if !segments.Exists(segment.Inode, 0) {
		if err := bootstrap(segments, im); err != nil {
			return nil, err
		}
	}

	return &FileSystem{segments: segments, inodes: im, blocks: bm, dirs: dm, chains: cm, walk: wk}, nil
}

func bootstrap(segments *segment.Store, im *inode.Manager) error {
	rootID, err := im.Allocate()
	if err != nil {
		return err
	}
	if rootID != layout.RootInode {
		return fmt.Errorf("%w: expected root inode id %d on first initialization, got %d", exfserr.IO, layout.RootInode, rootID)
	}
	if err := im.Write(rootID, inode.NewDirectory()); err != nil {
		return err
	}
	if !segments.Exists(segment.Data, 0) {
		if err := segments.Create(segment.Data, 0); err != nil {
			return err
		}
	}
	return nil
}

// Add streams hostPath's contents into a new file at fsPath, creating any
// missing intermediate directories along the way. Fails with
// exfserr.AlreadyExists if fsPath already names an entry, or
// exfserr.NotADirectory if an intermediate path component is not a
// directory.
func (fs *FileSystem) Add(fsPath, hostPath string) error {
	components, err := walker.Split(fsPath)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return fmt.Errorf("%w: path names no file", exfserr.NotFound)
	}
	name := components[len(components)-1]

	parentID, parentRec, err := fs.walk.DescendCreatingDirs(components[:len(components)-1])
	if err != nil {
		return err
	}

	existing, err := fs.dirs.Find(parentRec, name)
	if err != nil {
		return err
	}
	if existing != layout.FreeInode {
		return fmt.Errorf("%w: %s", exfserr.AlreadyExists, fsPath)
	}

	host, err := os.Open(hostPath)
	if err != nil {
		return fmt.Errorf("%w: %v", exfserr.IO, err)
	}
	defer host.Close()

	rec := inode.NewFile()
	if err := fs.chains.WriteStream(&rec, host); err != nil {
		return err
	}

	fileID, err := fs.inodes.Allocate()
	if err != nil {
		return err
	}
	if err := fs.inodes.Write(fileID, rec); err != nil {
		return err
	}
	return fs.dirs.Add(&parentRec, parentID, name, fileID)
}

// Extract streams fsPath's file contents to w, truncated to exactly its
// recorded size. Fails with exfserr.NotFound if a path component is
// missing, or exfserr.NotADirectory if an intermediate component is not a
// directory; a target that is itself a directory fails with a plain error.
func (fs *FileSystem) Extract(fsPath string, w io.Writer) error {
	components, err := walker.Split(fsPath)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return fmt.Errorf("%w: path names no file", exfserr.NotFound)
	}

	_, _, _, targetRec, err := fs.walk.Walk(components)
	if err != nil {
		return err
	}
	if targetRec.Type != inode.File {
		return fmt.Errorf("%s is a directory, not a file", fsPath)
	}
	return fs.chains.ReadStream(targetRec, w)
}

// List renders the whole directory tree starting at root.
func (fs *FileSystem) List() (string, error) {
	return fs.walk.List()
}

// Remove recursively deletes fsPath's subtree (file or directory) and
// clears its entry from its parent directory.
func (fs *FileSystem) Remove(fsPath string) error {
	components, err := walker.Split(fsPath)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return fmt.Errorf("%w: path names no entry", exfserr.NotFound)
	}
	return fs.walk.Remove(components)
}

// Debug descends fsPath printing each directory's entries along the way,
// and, for a file at the terminus, its size and block-chain summary.
func (fs *FileSystem) Debug(fsPath string) (string, error) {
	components, err := walker.Split(fsPath)
	if err != nil {
		return "", err
	}
	if len(components) == 0 {
		return "", fmt.Errorf("%w: path names no entry", exfserr.NotFound)
	}
	return fs.walk.Debug(components)
}
