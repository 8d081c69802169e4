package segment

import (
	"errors"
	"testing"

	"github.com/nazmavali/exfs2/internal/exfserr"
	"github.com/nazmavali/exfs2/internal/layout"
)

func TestCreateAndHeaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if s.Exists(Inode, 0) {
		t.Fatalf("segment should not exist before Create")
	}
	if err := s.Create(Inode, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Exists(Inode, 0) {
		t.Fatalf("segment should exist after Create")
	}

	bm, err := s.ReadHeader(Inode, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set, _ := bm.IsSet(0); set {
		t.Fatalf("freshly created header should have bit 0 clear")
	}
	if err := bm.Set(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.WriteHeader(Inode, 0, bm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bm2, err := s.ReadHeader(Inode, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set, _ := bm2.IsSet(0); !set {
		t.Fatalf("header bit 0 should survive a round trip")
	}
}

func TestOpenMissingSegmentIsNotFound(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Open(Data, 0, true)
	if err == nil {
		t.Fatalf("expected error opening a segment that does not exist")
	}
	if !errors.Is(err, exfserr.NotFound) {
		t.Fatalf("expected exfserr.NotFound, got %v", err)
	}
}

func TestReadAtWriteAtExactBlock(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Create(Data, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	buf := make([]byte, layout.BlockSize)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	if err := s.WriteAt(Data, 0, buf, layout.BlockSize); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]byte, layout.BlockSize)
	if err := s.ReadAt(Data, 0, got, layout.BlockSize); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range buf {
		if got[i] != buf[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, got[i], buf[i])
		}
	}
}

func TestNameConvention(t *testing.T) {
	s := New(".")
	if got := s.Name(Inode, 3); got != "inode_seg_3" {
		t.Fatalf("unexpected inode segment name: %s", got)
	}
	if got := s.Name(Data, 7); got != "data_seg_7" {
		t.Fatalf("unexpected data segment name: %s", got)
	}
}
