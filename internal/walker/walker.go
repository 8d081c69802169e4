// Package walker implements path splitting, directory descent (creating
// missing intermediates on add), recursive remove, whole-tree listing, and
// debug dumps (ExFS2 spec section 4.7).
package walker

import (
	"fmt"
	"strings"

	"github.com/nazmavali/exfs2/internal/chain"
	"github.com/nazmavali/exfs2/internal/directory"
	"github.com/nazmavali/exfs2/internal/exfserr"
	"github.com/nazmavali/exfs2/internal/inode"
	"github.com/nazmavali/exfs2/internal/layout"
)

// Split breaks a '/'-separated path into at most layout.MaxPathComponents
// non-empty components; a component longer than layout.MaxFilename-1 bytes
// is rejected with an error, not truncated. A bare "/" or empty string
// yields zero components.
func Split(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}
	raw := strings.Split(path, "/")
	components := make([]string, 0, len(raw))
	for _, c := range raw {
		if c == "" {
			continue
		}
		if len(c) > layout.MaxFilename-1 {
			return nil, fmt.Errorf("path component %q exceeds %d bytes", c, layout.MaxFilename-1)
		}
		components = append(components, c)
	}
	if len(components) > layout.MaxPathComponents {
		return nil, fmt.Errorf("path has more than %d components", layout.MaxPathComponents)
	}
	return components, nil
}

// Manager orchestrates directory descent, recursive remove, and tree
// traversal over the inode, directory, and chain managers.
type Manager struct {
	inodes *inode.Manager
	dirs   *directory.Manager
	chains *chain.Manager
}

// New returns a path walker backed by inodes, dirs, and chains.
func New(inodes *inode.Manager, dirs *directory.Manager, chains *chain.Manager) *Manager {
	return &Manager{inodes: inodes, dirs: dirs, chains: chains}
}

// DescendCreatingDirs walks components from the root, creating a new
// directory inode for any missing component and linking it into its
// parent. A non-directory encountered along the way fails with
// exfserr.NotADirectory. It returns the final directory's id and record —
// the one that should receive the last path component.
func (m *Manager) DescendCreatingDirs(components []string) (int32, inode.Record, error) {
	curID := int32(layout.RootInode)
	curRec, err := m.inodes.Read(curID)
	if err != nil {
		return 0, inode.Record{}, err
	}

	for _, name := range components {
		childID, err := m.dirs.Find(curRec, name)
		if err != nil {
			return 0, inode.Record{}, err
		}

		if childID == layout.FreeInode {
			newID, err := m.inodes.Allocate()
			if err != nil {
				return 0, inode.Record{}, err
			}
			newRec := inode.NewDirectory()
			if err := m.inodes.Write(newID, newRec); err != nil {
				return 0, inode.Record{}, err
			}
			if err := m.dirs.Add(&curRec, curID, name, newID); err != nil {
				return 0, inode.Record{}, err
			}
			curID, curRec = newID, newRec
			continue
		}

		childRec, err := m.inodes.Read(childID)
		if err != nil {
			return 0, inode.Record{}, err
		}
		if childRec.Type != inode.Dir {
			return 0, inode.Record{}, fmt.Errorf("%w: %s", exfserr.NotADirectory, name)
		}
		curID, curRec = childID, childRec
	}

	return curID, curRec, nil
}

// Walk descends components from the root; every component must already
// exist, and every component but the last must be a directory. It returns
// the parent directory (id and record) and the target (id and record) that
// the last component names.
func (m *Manager) Walk(components []string) (parentID int32, parentRec inode.Record, targetID int32, targetRec inode.Record, err error) {
	if len(components) == 0 {
		err = fmt.Errorf("%w: empty path", exfserr.NotFound)
		return
	}

	curID := int32(layout.RootInode)
	curRec, rerr := m.inodes.Read(curID)
	if rerr != nil {
		err = rerr
		return
	}

	for i, name := range components {
		childID, ferr := m.dirs.Find(curRec, name)
		if ferr != nil {
			err = ferr
			return
		}
		if childID == layout.FreeInode {
			err = fmt.Errorf("%w: %s", exfserr.NotFound, name)
			return
		}
		childRec, rerr := m.inodes.Read(childID)
		if rerr != nil {
			err = rerr
			return
		}

		if i < len(components)-1 {
			if childRec.Type != inode.Dir {
				err = fmt.Errorf("%w: %s", exfserr.NotADirectory, name)
				return
			}
			curID, curRec = childID, childRec
			continue
		}

		parentID, parentRec = curID, curRec
		targetID, targetRec = childID, childRec
	}

	return
}

// Remove walks to components' target, recursively frees its subtree, and
// clears its entry from the parent directory.
func (m *Manager) Remove(components []string) error {
	_, parentRec, targetID, targetRec, err := m.Walk(components)
	if err != nil {
		return err
	}
	if err := m.removeRecursive(targetID, targetRec); err != nil {
		return err
	}
	return m.dirs.RemoveEntry(parentRec, targetID)
}

// removeRecursive frees everything owned by the inode at id: a file's
// block chain, or a directory's children (recursively) and its
// entry blocks, then the inode itself.
func (m *Manager) removeRecursive(id int32, rec inode.Record) error {
	switch rec.Type {
	case inode.File:
		if err := m.chains.Remove(rec); err != nil {
			return err
		}
	case inode.Dir:
		entries, err := m.dirs.Entries(rec)
		if err != nil {
			return err
		}
		for _, e := range entries {
			childRec, err := m.inodes.Read(e.Inode)
			if err != nil {
				return err
			}
			if err := m.removeRecursive(e.Inode, childRec); err != nil {
				return err
			}
		}
		if err := m.dirs.FreeBlocks(rec); err != nil {
			return err
		}
	}
	return m.inodes.Free(id)
}

// List renders the whole tree starting at root: "/" followed by every
// entry, indented by depth, with directories suffixed by "/".
func (m *Manager) List() (string, error) {
	var sb strings.Builder
	sb.WriteString("/\n")
	root, err := m.inodes.Read(layout.RootInode)
	if err != nil {
		return "", err
	}
	if err := m.listDir(&sb, root, 1); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (m *Manager) listDir(sb *strings.Builder, dir inode.Record, depth int) error {
	entries, err := m.dirs.Entries(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		child, err := m.inodes.Read(e.Inode)
		if err != nil {
			return err
		}
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(e.Name)
		if child.Type == inode.Dir {
			sb.WriteString("/")
		}
		sb.WriteString("\n")
		if child.Type == inode.Dir {
			if err := m.listDir(sb, child, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Debug descends components from the root, printing each directory's
// entries along the way, then — if the terminus is a file — its size and a
// tier-by-tier summary of its block allocation.
func (m *Manager) Debug(components []string) (string, error) {
	if len(components) == 0 {
		return "", fmt.Errorf("%w: empty path", exfserr.NotFound)
	}

	var sb strings.Builder
	curID := int32(layout.RootInode)
	curRec, err := m.inodes.Read(curID)
	if err != nil {
		return "", err
	}

	for i, name := range components {
		entries, err := m.dirs.Entries(curRec)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "/%s:\n", strings.Join(components[:i], "/"))
		for _, e := range entries {
			fmt.Fprintf(&sb, "  %s -> inode %d\n", e.Name, e.Inode)
		}

		childID, err := m.dirs.Find(curRec, name)
		if err != nil {
			return "", err
		}
		if childID == layout.FreeInode {
			return "", fmt.Errorf("%w: %s", exfserr.NotFound, name)
		}
		childRec, err := m.inodes.Read(childID)
		if err != nil {
			return "", err
		}

		last := i == len(components)-1
		if !last && childRec.Type != inode.Dir {
			return "", fmt.Errorf("%w: %s", exfserr.NotADirectory, name)
		}
		if last && childRec.Type == inode.File {
			summary, err := m.chains.Summarize(childRec)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "size: %d\n", childRec.Size)
			fmt.Fprintf(&sb, "direct blocks: %d (first=%d last=%d)\n", summary.DirectCount, summary.DirectFirst, summary.DirectLast)
			fmt.Fprintf(&sb, "indirect blocks: %d (indirect id=%d)\n", summary.IndirectCount, summary.IndirectID)
			fmt.Fprintf(&sb, "double indirect blocks: %d\n", summary.DoubleDataCount)
			fmt.Fprintf(&sb, "triple indirect blocks: %d (level-2 blocks=%d level-1 blocks=%d)\n", summary.TripleDataCount, summary.TripleLevel2Count, summary.TripleLevel1Count)
		}

		curID, curRec = childID, childRec
	}

	return sb.String(), nil
}
