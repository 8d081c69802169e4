package walker

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nazmavali/exfs2/internal/block"
	"github.com/nazmavali/exfs2/internal/chain"
	"github.com/nazmavali/exfs2/internal/directory"
	"github.com/nazmavali/exfs2/internal/exfserr"
	"github.com/nazmavali/exfs2/internal/inode"
	"github.com/nazmavali/exfs2/internal/layout"
	"github.com/nazmavali/exfs2/internal/segment"
)

type testFS struct {
	inodes *inode.Manager
	dirs   *directory.Manager
	chains *chain.Manager
	walker *Manager
}

// newTestFS bootstraps a root directory inode at id 0, mirroring what
// exfs2.Open does on first-ever initialization.
func newTestFS(t *testing.T) *testFS {
	t.Helper()
	segs := segment.New(t.TempDir())
	im := inode.New(segs)
	bm := block.New(segs)
	dm := directory.New(bm, im)
	cm := chain.New(bm)
	wk := New(im, dm, cm)

	rootID, err := im.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rootID != layout.RootInode {
		t.Fatalf("expected root allocation to land at id %d, got %d", layout.RootInode, rootID)
	}
	if err := im.Write(rootID, inode.NewDirectory()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return &testFS{inodes: im, dirs: dm, chains: cm, walker: wk}
}

func (fs *testFS) addFile(t *testing.T, components []string, content []byte) int32 {
	t.Helper()
	parentID, parentRec, err := fs.walker.DescendCreatingDirs(components[:len(components)-1])
	if err != nil {
		t.Fatalf("unexpected error descending: %v", err)
	}
	fileID, err := fs.inodes.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := inode.NewFile()
	if err := fs.chains.WriteStream(&rec, bytes.NewReader(content)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fs.inodes.Write(fileID, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fs.dirs.Add(&parentRec, parentID, components[len(components)-1], fileID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return fileID
}

func TestSplitPath(t *testing.T) {
	cases := []struct {
		path string
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"a", []string{"a"}},
		{"/a/b/c", []string{"a", "b", "c"}},
		{"a/b/c/", []string{"a", "b", "c"}},
		{"//a//b//", []string{"a", "b"}},
	}
	for _, c := range cases {
		got, err := Split(c.path)
		if err != nil {
			t.Fatalf("Split(%q): unexpected error: %v", c.path, err)
		}
		if len(got) != len(c.want) {
			t.Fatalf("Split(%q) = %v, want %v", c.path, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("Split(%q) = %v, want %v", c.path, got, c.want)
			}
		}
	}
}

func TestSplitRejectsOversizedComponent(t *testing.T) {
	huge := strings.Repeat("x", layout.MaxFilename)
	if _, err := Split(huge); err == nil {
		t.Fatalf("expected error for oversized component")
	}
}

func TestListEmptyFilesystem(t *testing.T) {
	fs := newTestFS(t)
	got, err := fs.walker.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/\n" {
		t.Fatalf("expected %q, got %q", "/\n", got)
	}
}

func TestDescendCreatingDirsBuildsIntermediates(t *testing.T) {
	fs := newTestFS(t)
	fs.addFile(t, []string{"d1", "d2", "f"}, []byte("payload"))

	listing, err := fs.walker.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"d1/", "d2/", "f"} {
		if !strings.Contains(listing, want) {
			t.Fatalf("expected listing to contain %q, got:\n%s", want, listing)
		}
	}
}

func TestWalkNotADirectoryMidPath(t *testing.T) {
	fs := newTestFS(t)
	fs.addFile(t, []string{"x"}, []byte("data"))

	components, _ := Split("/x/y")
	_, _, _, _, err := fs.walker.Walk(components)
	if !errors.Is(err, exfserr.NotADirectory) {
		t.Fatalf("expected NotADirectory, got %v", err)
	}
}

func TestWalkNotFound(t *testing.T) {
	fs := newTestFS(t)
	components, _ := Split("/missing")
	_, _, _, _, err := fs.walker.Walk(components)
	if !errors.Is(err, exfserr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAddDuplicateNameFailsAlreadyExists(t *testing.T) {
	fs := newTestFS(t)
	fs.addFile(t, []string{"x"}, []byte("H1"))

	parentID, parentRec, err := fs.walker.DescendCreatingDirs(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	existing, err := fs.dirs.Find(parentRec, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existing == layout.FreeInode {
		t.Fatalf("expected existing entry for x")
	}

	fileID, err := fs.inodes.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fs.dirs.Add(&parentRec, parentID, "x", fileID); !errors.Is(err, exfserr.AlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestRemoveThenAllocateDeterminism(t *testing.T) {
	fs := newTestFS(t)
	fs.addFile(t, []string{"a"}, []byte("A"))
	fs.addFile(t, []string{"b"}, []byte("B"))

	components, _ := Split("/a")
	if err := fs.walker.Remove(components); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	listing, err := fs.walker.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(listing, "a") && !strings.Contains(listing, "b") {
		t.Fatalf("unexpected listing after remove: %q", listing)
	}
	if strings.Contains(listing, "\n  a\n") {
		t.Fatalf("expected a to be gone from listing, got %q", listing)
	}
	if !strings.Contains(listing, "b") {
		t.Fatalf("expected b to remain in listing, got %q", listing)
	}

	// property 6: allocate_inode returns the freed slot before any
	// higher-numbered id becomes the lowest-free.
	next, err := fs.inodes.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	freedID, err := fs.dirs.Find(mustRead(t, fs, layout.RootInode), "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if freedID != layout.FreeInode {
		t.Fatalf("expected a's entry to be cleared from the parent")
	}
	if next != 1 {
		t.Fatalf("expected freed inode id 1 to be reallocated, got %d", next)
	}
}

func mustRead(t *testing.T, fs *testFS, id int32) inode.Record {
	t.Helper()
	rec, err := fs.inodes.Read(id)
	if err != nil {
		t.Fatalf("unexpected error reading inode %d: %v", id, err)
	}
	return rec
}

func TestDebugReportsDirectBlockCount(t *testing.T) {
	fs := newTestFS(t)
	fs.addFile(t, []string{"f"}, []byte("hello"))

	components, _ := Split("/f")
	out, err := fs.walker.Debug(components)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "size: 5") {
		t.Fatalf("expected size in debug output, got:\n%s", out)
	}
	if !strings.Contains(out, "direct blocks: 1") {
		t.Fatalf("expected direct block count in debug output, got:\n%s", out)
	}
}
