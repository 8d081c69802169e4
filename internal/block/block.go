// Package block implements the data block manager: allocation, read, write
// and free of fixed BlockSize blocks within data segments, including
// transparent segment extension (ExFS2 spec section 4.4).
package block

import (
	"fmt"

	"github.com/nazmavali/exfs2/internal/exfserr"
	"github.com/nazmavali/exfs2/internal/layout"
	"github.com/nazmavali/exfs2/internal/segment"
)

// PerSegment is how many BlockSize blocks fit in a data segment after its
// header bitmap block.
var PerSegment = layout.BlocksPerSegment()

// Manager maps global block ids to (segment, block index) pairs and
// implements the allocate/read/write/free lifecycle.
type Manager struct {
	segments *segment.Store
}

// New returns a block Manager backed by segments.
func New(segments *segment.Store) *Manager {
	return &Manager{segments: segments}
}

// Allocate scans data segments in ascending order for the first clear
// bitmap bit, creating a new segment on demand, and returns the newly
// reserved global block id.
func (m *Manager) Allocate() (int32, error) {
	segNo := 0
	for {
		if !m.segments.Exists(segment.Data, segNo) {
			if err := m.segments.Create(segment.Data, segNo); err != nil {
				return 0, err
			}
		}

		bm, err := m.segments.ReadHeader(segment.Data, segNo)
		if err != nil {
			return 0, err
		}

		free := bm.FindFirstClear(PerSegment)
		if free >= 0 {
			if err := bm.Set(free); err != nil {
				return 0, fmt.Errorf("%w: %v", exfserr.IO, err)
			}
			if err := m.segments.WriteHeader(segment.Data, segNo, bm); err != nil {
				return 0, err
			}
			return int32(layout.JoinID(segNo, free, PerSegment)), nil
		}

		segNo++
	}
}

// Read fills buf (which must be exactly layout.BlockSize bytes) with the
// contents of block id.
func (m *Manager) Read(id int32, buf []byte) error {
	if len(buf) != layout.BlockSize {
		return fmt.Errorf("%w: block buffer is %d bytes, want %d", exfserr.IO, len(buf), layout.BlockSize)
	}
	segNo, idx := layout.SplitID(int(id), PerSegment)
	off := int64(layout.BlockSize) + int64(idx)*int64(layout.BlockSize)
	return m.segments.ReadAt(segment.Data, segNo, buf, off)
}

// Write persists buf (which must be exactly layout.BlockSize bytes) as the
// contents of block id.
func (m *Manager) Write(id int32, buf []byte) error {
	if len(buf) != layout.BlockSize {
		return fmt.Errorf("%w: block buffer is %d bytes, want %d", exfserr.IO, len(buf), layout.BlockSize)
	}
	segNo, idx := layout.SplitID(int(id), PerSegment)
	off := int64(layout.BlockSize) + int64(idx)*int64(layout.BlockSize)
	return m.segments.WriteAt(segment.Data, segNo, buf, off)
}

// Free clears id's bitmap bit. The block's bytes are left as-is.
func (m *Manager) Free(id int32) error {
	segNo, idx := layout.SplitID(int(id), PerSegment)
	bm, err := m.segments.ReadHeader(segment.Data, segNo)
	if err != nil {
		return err
	}
	if err := bm.Clear(idx); err != nil {
		return fmt.Errorf("%w: %v", exfserr.IO, err)
	}
	return m.segments.WriteHeader(segment.Data, segNo, bm)
}

// ReadIDs reads a block interpreted as an array of PointersPerBlock 32-bit
// little-endian block ids — the shape of an indirect, double-indirect, or
// triple-indirect pointer block.
func (m *Manager) ReadIDs(id int32) ([layout.PointersPerBlock]int32, error) {
	var out [layout.PointersPerBlock]int32
	buf := make([]byte, layout.BlockSize)
	if err := m.Read(id, buf); err != nil {
		return out, err
	}
	decodeIDs(buf, &out)
	return out, nil
}

// WriteIDs writes ids as the contents of block id, in the same layout
// ReadIDs expects.
func (m *Manager) WriteIDs(id int32, ids [layout.PointersPerBlock]int32) error {
	buf := make([]byte, layout.BlockSize)
	encodeIDs(&ids, buf)
	return m.Write(id, buf)
}
