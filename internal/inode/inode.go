// Package inode implements the inode record format and the inode manager:
// mapping global inode ids to (segment, slot) pairs, and the
// allocate/read/write/free lifecycle (ExFS2 spec section 3 / 4.3).
package inode

import (
	"encoding/binary"
	"fmt"

	"github.com/nazmavali/exfs2/internal/exfserr"
	"github.com/nazmavali/exfs2/internal/layout"
	"github.com/nazmavali/exfs2/internal/segment"
)

// Type identifies what an inode record describes.
type Type int32

const (
	Free Type = 0
	File Type = 1
	Dir  Type = 2
)

// RecordSize is the fixed on-disk size of one inode record: a 4-byte type
// tag, an 8-byte size, a 4-byte direct-block count, MaxDirect 4-byte direct
// pointers, and three 4-byte indirect pointers. It happens to equal
// layout.BlockSize exactly, which is why InodesPerSegment below comes out to
// a round 255.
const RecordSize = 4 + 8 + 4 + layout.MaxDirect*4 + 4 + 4 + 4

// PerSegment is how many inode records fit in one inode segment after its
// header bitmap block.
var PerSegment = layout.InodesPerSegment(RecordSize)

// Record is one inode: the type tag plus the direct/indirect/double/triple
// pointer chain (spec section 3). All pointer fields are 32-bit signed ids;
// layout.NoPointer (-1) marks an unallocated tier.
type Record struct {
	Type           Type
	Size           uint64
	NumDirect      int32
	Direct         [layout.MaxDirect]int32
	Indirect       int32
	DoubleIndirect int32
	TripleIndirect int32
}

// NewDirectory returns a freshly-initialized, empty directory inode record.
func NewDirectory() Record {
	return Record{
		Type:           Dir,
		Indirect:       layout.NoPointer,
		DoubleIndirect: layout.NoPointer,
		TripleIndirect: layout.NoPointer,
	}
}

// NewFile returns a freshly-initialized, empty file inode record.
func NewFile() Record {
	return Record{
		Type:           File,
		Indirect:       layout.NoPointer,
		DoubleIndirect: layout.NoPointer,
		TripleIndirect: layout.NoPointer,
	}
}

// Encode serializes r into its fixed RecordSize on-disk form.
func (r Record) Encode() []byte {
	buf := make([]byte, RecordSize)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(r.Type))
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], r.Size)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], uint32(r.NumDirect))
	off += 4
	for i := 0; i < layout.MaxDirect; i++ {
		binary.LittleEndian.PutUint32(buf[off:], uint32(r.Direct[i]))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(r.Indirect))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(r.DoubleIndirect))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(r.TripleIndirect))
	return buf
}

// Decode parses a RecordSize byte slice written by Encode.
func Decode(buf []byte) (Record, error) {
	if len(buf) != RecordSize {
		return Record{}, fmt.Errorf("%w: inode record is %d bytes, want %d", exfserr.IO, len(buf), RecordSize)
	}
	var r Record
	off := 0
	r.Type = Type(int32(binary.LittleEndian.Uint32(buf[off:])))
	off += 4
	r.Size = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.NumDirect = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	for i := 0; i < layout.MaxDirect; i++ {
		r.Direct[i] = int32(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
	}
	r.Indirect = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	r.DoubleIndirect = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	r.TripleIndirect = int32(binary.LittleEndian.Uint32(buf[off:]))
	return r, nil
}

// Manager maps global inode ids to (segment, slot) pairs and implements the
// allocate/read/write/free lifecycle (spec section 4.3).
type Manager struct {
	segments *segment.Store
}

// New returns an inode Manager backed by segments.
func New(segments *segment.Store) *Manager {
	return &Manager{segments: segments}
}

// Allocate scans inode segments in ascending order for the first clear
// bitmap bit, creating a new segment on demand when every existing one is
// full, and returns the newly reserved global inode id.
func (m *Manager) Allocate() (int32, error) {
	segNo := 0
	for {
		if !m.segments.Exists(segment.Inode, segNo) {
			if err := m.segments.Create(segment.Inode, segNo); err != nil {
				return 0, err
			}
		}

		bm, err := m.segments.ReadHeader(segment.Inode, segNo)
		if err != nil {
			return 0, err
		}

		free := bm.FindFirstClear(PerSegment)
		if free >= 0 {
			if err := bm.Set(free); err != nil {
				return 0, fmt.Errorf("%w: %v", exfserr.IO, err)
			}
			if err := m.segments.WriteHeader(segment.Inode, segNo, bm); err != nil {
				return 0, err
			}
			return int32(layout.JoinID(segNo, free, PerSegment)), nil
		}

		segNo++
	}
}

// Read loads the inode record at id.
func (m *Manager) Read(id int32) (Record, error) {
	segNo, slot := layout.SplitID(int(id), PerSegment)
	buf := make([]byte, RecordSize)
	off := int64(layout.BlockSize) + int64(slot)*int64(RecordSize)
	if err := m.segments.ReadAt(segment.Inode, segNo, buf, off); err != nil {
		return Record{}, err
	}
	return Decode(buf)
}

// Write persists rec as the inode record at id.
func (m *Manager) Write(id int32, rec Record) error {
	segNo, slot := layout.SplitID(int(id), PerSegment)
	off := int64(layout.BlockSize) + int64(slot)*int64(RecordSize)
	return m.segments.WriteAt(segment.Inode, segNo, rec.Encode(), off)
}

// Free clears id's bitmap bit. The record bytes are left as-is; the caller
// must have already freed any data/indirect blocks it referenced.
func (m *Manager) Free(id int32) error {
	segNo, slot := layout.SplitID(int(id), PerSegment)
	bm, err := m.segments.ReadHeader(segment.Inode, segNo)
	if err != nil {
		return err
	}
	if err := bm.Clear(slot); err != nil {
		return fmt.Errorf("%w: %v", exfserr.IO, err)
	}
	return m.segments.WriteHeader(segment.Inode, segNo, bm)
}
