// Package directory implements the directory-entry record format and the
// lookup/insert/remove operations over a directory inode's direct blocks
// (ExFS2 spec section 3 / 4.5).
package directory

import (
	"encoding/binary"
	"fmt"

	"github.com/nazmavali/exfs2/internal/block"
	"github.com/nazmavali/exfs2/internal/exfserr"
	"github.com/nazmavali/exfs2/internal/inode"
	"github.com/nazmavali/exfs2/internal/layout"
)

// EntrySize is the fixed on-disk size of one directory entry: a
// null-terminated MaxFilename-byte name plus a 4-byte inode number.
const EntrySize = layout.MaxFilename + 4

// EntriesPerBlock is how many fixed-size entries are packed, back to back
// starting at offset 0, into one directory-entry data block.
const EntriesPerBlock = layout.BlockSize / EntrySize

// Entry is one (name, inode) pair. Inode == layout.FreeInode marks a free
// slot.
type Entry struct {
	Name  string
	Inode int32
}

func (e Entry) free() bool { return e.Inode == layout.FreeInode }

// decodeBlock parses a BlockSize byte slice into its EntriesPerBlock fixed
// records.
func decodeBlock(buf []byte) [EntriesPerBlock]Entry {
	var out [EntriesPerBlock]Entry
	for i := 0; i < EntriesPerBlock; i++ {
		start := i * EntrySize
		nameBytes := buf[start : start+layout.MaxFilename]
		nul := indexNul(nameBytes)
		out[i] = Entry{
			Name:  string(nameBytes[:nul]),
			Inode: int32(binary.LittleEndian.Uint32(buf[start+layout.MaxFilename:])),
		}
	}
	return out
}

// encodeBlock serializes EntriesPerBlock entries into one BlockSize buffer,
// zero-padding the unused tail of the block the way the original format
// does.
func encodeBlock(entries [EntriesPerBlock]Entry) []byte {
	buf := make([]byte, layout.BlockSize)
	for i, e := range entries {
		start := i * EntrySize
		nameBytes := []byte(e.Name)
		if len(nameBytes) > layout.MaxFilename-1 {
			nameBytes = nameBytes[:layout.MaxFilename-1]
		}
		copy(buf[start:start+layout.MaxFilename], nameBytes)
		binary.LittleEndian.PutUint32(buf[start+layout.MaxFilename:], uint32(e.Inode))
	}
	return buf
}

func indexNul(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return len(b)
}

// newFreeBlock returns EntriesPerBlock entries all marked free.
func newFreeBlock() [EntriesPerBlock]Entry {
	var entries [EntriesPerBlock]Entry
	for i := range entries {
		entries[i].Inode = layout.FreeInode
	}
	return entries
}

// Manager implements directory-entry lookup, insertion, and removal against
// a directory inode's direct blocks.
type Manager struct {
	blocks *block.Manager
	inodes *inode.Manager
}

// New returns a directory Manager backed by blocks and inodes.
func New(blocks *block.Manager, inodes *inode.Manager) *Manager {
	return &Manager{blocks: blocks, inodes: inodes}
}

// Find linearly scans dir's direct blocks for name, returning its child
// inode id, or layout.FreeInode if no entry by that name exists. It is not
// an error for the name to be absent.
func (m *Manager) Find(dir inode.Record, name string) (int32, error) {
	for i := int32(0); i < dir.NumDirect; i++ {
		entries, err := m.readBlock(dir.Direct[i])
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			if !e.free() && e.Name == name {
				return e.Inode, nil
			}
		}
	}
	return layout.FreeInode, nil
}

// Add inserts (name, child) into dir, allocating a new entry block if every
// existing one is full. dirID is the global inode id of dir itself, which
// Add persists after growing it. Fails with exfserr.AlreadyExists if name is
// already present, or exfserr.NoSpace if dir has no room left to grow
// (NumDirect == MaxDirect).
func (m *Manager) Add(dir *inode.Record, dirID int32, name string, child int32) error {
	existing, err := m.Find(*dir, name)
	if err != nil {
		return err
	}
	if existing != layout.FreeInode {
		return fmt.Errorf("%w: %s", exfserr.AlreadyExists, name)
	}

	for i := int32(0); i < dir.NumDirect; i++ {
		entries, err := m.readBlock(dir.Direct[i])
		if err != nil {
			return err
		}
		for j := range entries {
			if entries[j].free() {
				entries[j] = Entry{Name: name, Inode: child}
				return m.writeBlock(dir.Direct[i], entries)
			}
		}
	}

	if dir.NumDirect >= layout.MaxDirect {
		return fmt.Errorf("%w: directory has reached %d direct blocks", exfserr.NoSpace, layout.MaxDirect)
	}

	blockID, err := m.blocks.Allocate()
	if err != nil {
		return err
	}
	entries := newFreeBlock()
	entries[0] = Entry{Name: name, Inode: child}
	if err := m.writeBlock(blockID, entries); err != nil {
		return err
	}

	dir.Direct[dir.NumDirect] = blockID
	dir.NumDirect++
	dir.Size += layout.BlockSize
	return m.inodes.Write(dirID, *dir)
}

// RemoveEntry clears the first entry pointing at childID. The owning block
// is not released even if every entry in it becomes free, and NumDirect is
// not decremented (ExFS2 spec section 4.5, a documented simplification). It
// is not an error for childID to be absent.
func (m *Manager) RemoveEntry(dir inode.Record, childID int32) error {
	for i := int32(0); i < dir.NumDirect; i++ {
		entries, err := m.readBlock(dir.Direct[i])
		if err != nil {
			return err
		}
		for j := range entries {
			if !entries[j].free() && entries[j].Inode == childID {
				entries[j] = Entry{Inode: layout.FreeInode}
				return m.writeBlock(dir.Direct[i], entries)
			}
		}
	}
	return nil
}

// FreeBlocks releases every directory-entry block referenced by dir's
// direct pointers. Used when a directory inode is being removed entirely.
func (m *Manager) FreeBlocks(dir inode.Record) error {
	for i := int32(0); i < dir.NumDirect; i++ {
		if err := m.blocks.Free(dir.Direct[i]); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns every non-free entry across dir's direct blocks, in
// on-disk order. Used by listing and debug dumps.
func (m *Manager) Entries(dir inode.Record) ([]Entry, error) {
	var out []Entry
	for i := int32(0); i < dir.NumDirect; i++ {
		entries, err := m.readBlock(dir.Direct[i])
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.free() {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (m *Manager) readBlock(id int32) ([EntriesPerBlock]Entry, error) {
	var out [EntriesPerBlock]Entry
	buf := make([]byte, layout.BlockSize)
	if err := m.blocks.Read(id, buf); err != nil {
		return out, err
	}
	return decodeBlock(buf), nil
}

func (m *Manager) writeBlock(id int32, entries [EntriesPerBlock]Entry) error {
	return m.blocks.Write(id, encodeBlock(entries))
}
