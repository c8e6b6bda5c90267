/*
Copyright © 2022-2026 SUSE LLC
SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package scan walks a context directory and classifies every entry into a
// content-addressable snapshot record, the leaf component the snapshot and
// restore machinery in pkg/snapshot builds on.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
)

// Format identifies the POSIX object type of a scanned entry. The set
// partitions every filesystem object: exactly one Format applies.
type Format string

const (
	Dir  Format = "DIR"
	Reg  Format = "REG"
	Lnk  Format = "LNK"
	Blk  Format = "BLK"
	Chr  Format = "CHR"
	Fifo Format = "FIFO"
	Sock Format = "SOCK"
)

// MetaDirName and TrashDirName are the two reserved top-level entries every
// scan excludes.
const (
	MetaDirName  = ".pmatic"
	TrashDirName = ".trash_cans"
)

// DefaultExcludes returns the default set of top-level names pruned from a
// scan.
func DefaultExcludes() map[string]bool {
	return map[string]bool{
		MetaDirName:  true,
		TrashDirName: true,
	}
}

// Record is the captured state of one path inside the context directory,
// keyed by its path relative to the context root in the enclosing Snapshot
// map.
type Record struct {
	Format  Format `yaml:"format"`
	Mode    uint32 `yaml:"mode"`
	Size    int64  `yaml:"size"`
	Inode   uint64 `yaml:"inode"`
	Symlink string `yaml:"symlink,omitempty"`
}

// EquivalentForRestore reports whether two records describe the same
// filesystem object for restoration purposes: the (format, size, inode,
// symlink) tuple matches. Mode is deliberately excluded, it is re-applied
// unconditionally during restore.
func (r Record) EquivalentForRestore(other *Record) bool {
	if other == nil {
		return false
	}
	return r.Format == other.Format &&
		r.Size == other.Size &&
		r.Inode == other.Inode &&
		r.Symlink == other.Symlink
}

// Snapshot is a mapping from relative path to captured record, covering
// every entry reachable by walking the context directory minus the
// reserved subdirectories.
type Snapshot map[string]Record

// SortedKeys returns the snapshot's keys in lexicographic order, the
// processing order every two-phase restore algorithm in pkg/snapshot
// requires.
func (s Snapshot) SortedKeys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Directory walks startPath and returns one Record per entry keyed by its
// path relative to startPath. Metadata is read without following symlinks.
// excludes names top-level entries to prune; nothing below an excluded
// directory is scanned. A nil excludes falls back to DefaultExcludes; a
// non-nil empty map excludes nothing.
func Directory(fsys vfs.FS, startPath string, excludes map[string]bool) (Snapshot, error) {
	return DirectoryWithProgress(fsys, startPath, excludes, nil)
}

// DirectoryWithProgress behaves exactly like Directory, additionally
// invoking onEntry once per scanned (non-excluded) path, in walk order, so
// a caller can drive a progress indicator. onEntry may be nil.
func DirectoryWithProgress(fsys vfs.FS, startPath string, excludes map[string]bool, onEntry func(path string)) (Snapshot, error) {
	if excludes == nil {
		excludes = DefaultExcludes()
	}
	result := Snapshot{}
	err := vfs.Walk(fsys, startPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == startPath {
			return nil
		}
		rel, relErr := filepath.Rel(startPath, path)
		if relErr != nil {
			return relErr
		}
		if isTopLevelExcluded(startPath, path, excludes) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		record, statErr := statItem(fsys, path)
		if statErr != nil {
			return statErr
		}
		result[rel] = record
		if onEntry != nil {
			onEntry(rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning directory %q: %w", startPath, err)
	}
	return result, nil
}

func isTopLevelExcluded(startPath, path string, excludes map[string]bool) bool {
	rel, err := filepath.Rel(startPath, path)
	if err != nil {
		return false
	}
	top := rel
	if idx := firstSeparator(rel); idx >= 0 {
		top = rel[:idx]
	}
	return excludes[top]
}

func firstSeparator(path string) int {
	for i, c := range path {
		if c == filepath.Separator {
			return i
		}
	}
	return -1
}

// statItem lstats a single entry and decodes it into a Record.
func statItem(fsys vfs.FS, path string) (Record, error) {
	info, err := fsys.Lstat(path)
	if err != nil {
		return Record{}, fmt.Errorf("lstat %q: %w", path, err)
	}
	format := decodeFormat(info.Mode())

	rawPath, err := fsys.RawPath(path)
	if err != nil {
		return Record{}, fmt.Errorf("resolving %q: %w", path, err)
	}
	var st unix.Stat_t
	if statErr := unix.Lstat(rawPath, &st); statErr != nil {
		return Record{}, fmt.Errorf("lstat %q: %w", path, statErr)
	}
	mode := modeBitsOf(st)

	var size int64
	if format == Reg || format == Lnk {
		size = info.Size()
	}

	var inode uint64
	if format != Dir && format != Lnk {
		inode = st.Ino
	}

	var symlink string
	if format == Lnk {
		target, err := fsys.Readlink(path)
		if err != nil {
			return Record{}, fmt.Errorf("readlink %q: %w", path, err)
		}
		symlink = target
	}

	return Record{Format: format, Mode: mode, Size: size, Inode: inode, Symlink: symlink}, nil
}

// decodeFormat maps a mode's type bits to exactly one Format. Any mode
// that matches none of the other cases is classified as Reg; there is no
// separate check that the type bits are recognised.
func decodeFormat(mode os.FileMode) Format {
	switch {
	case mode&os.ModeSymlink != 0:
		return Lnk
	case mode.IsDir():
		return Dir
	case mode&os.ModeDevice != 0 && mode&os.ModeCharDevice != 0:
		return Chr
	case mode&os.ModeDevice != 0:
		return Blk
	case mode&os.ModeNamedPipe != 0:
		return Fifo
	case mode&os.ModeSocket != 0:
		return Sock
	default:
		return Reg
	}
}

// modeBitsOf returns the lowest 12 bits of st_mode: the permission bits
// plus setuid/setgid/sticky. Go's os.FileMode folds those three into its
// own high flag bits and drops them on a Perm() call, which is why the
// raw stat result is used here instead of info.Mode().
func modeBitsOf(st unix.Stat_t) uint32 {
	return uint32(st.Mode &^ unix.S_IFMT)
}
