package block

import (
	"bytes"
	"testing"

	"github.com/nazmavali/exfs2/internal/layout"
	"github.com/nazmavali/exfs2/internal/segment"
)

func TestAllocateReadWriteFree(t *testing.T) {
	dir := t.TempDir()
	m := New(segment.New(dir))

	id, err := m.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected first block id 0, got %d", id)
	}

	buf := bytes.Repeat([]byte{0xAB}, layout.BlockSize)
	if err := m.Write(id, buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]byte, layout.BlockSize)
	if err := m.Read(id, got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, buf) {
		t.Fatalf("read-after-write mismatch")
	}

	id2, err := m.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Free(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id3, err := m.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id3 != id {
		t.Fatalf("expected freed id %d reused before %d, got %d", id, id2+1, id3)
	}
}

func TestReadIDsWriteIDsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := New(segment.New(dir))

	id, err := m.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids [layout.PointersPerBlock]int32
	ids[0] = 42
	ids[1] = 43
	ids[layout.PointersPerBlock-1] = 999

	if err := m.WriteIDs(id, ids); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := m.ReadIDs(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ids {
		t.Fatalf("round trip mismatch: got %v want %v", got, ids)
	}
}

func TestAllocateCreatesNewSegmentWhenFull(t *testing.T) {
	dir := t.TempDir()
	m := New(segment.New(dir))

	var last int32
	for i := 0; i < PerSegment; i++ {
		id, err := m.Allocate()
		if err != nil {
			t.Fatalf("unexpected error allocating block %d: %v", i, err)
		}
		last = id
	}
	if last != int32(PerSegment-1) {
		t.Fatalf("expected last id of segment 0 to be %d, got %d", PerSegment-1, last)
	}
	overflow, err := m.Allocate()
	if err != nil {
		t.Fatalf("unexpected error allocating into new segment: %v", err)
	}
	if overflow != int32(PerSegment) {
		t.Fatalf("expected first id of segment 1 to be %d, got %d", PerSegment, overflow)
	}
}
