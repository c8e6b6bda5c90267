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

// Package snapshot implements the inode-level hardlink backup store: it
// captures the complete state of a context directory before a pipeline
// runs and restores it bit-for-bit after a failed run.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/battmatt/pipe-o-matic/pkg/log"
	"github.com/battmatt/pipe-o-matic/pkg/scan"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
)

// readOnlyMask is ANDed into a regular file's permission bits when it is
// captured, to make the working copy read-only for the child process. The
// literal clears owner/group/other write bits but, read bit for bit, also
// leaves the setuid bit set unexpectedly -- this reproduces a quirk of the
// original Python implementation's 0o7555 literal rather than "fixing" it.
const readOnlyMask = 0o7555

// InodeDirName is the subdirectory of .pmatic holding hardlink backups,
// one per non-directory, non-symlink entry, named by decimal inode number.
const InodeDirName = "inode_snapshots"

// Store captures and restores the state of a single context directory.
type Store struct {
	fs          vfs.FS
	contextPath string
	logger      log.Logger
	onScanEntry func(path string)
}

// New returns a Store rooted at contextPath.
func New(fsys vfs.FS, contextPath string, logger log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{fs: fsys, contextPath: contextPath, logger: logger}
}

// WithProgress registers a callback invoked once per entry scanned by
// Create, in walk order. Intended for driving a CLI progress bar over a
// large context directory.
func (s *Store) WithProgress(onEntry func(path string)) *Store {
	s.onScanEntry = onEntry
	return s
}

func (s *Store) metaPath() string {
	return filepath.Join(s.contextPath, scan.MetaDirName)
}

func (s *Store) inodeDir() string {
	return filepath.Join(s.metaPath(), InodeDirName)
}

// Create performs a scan of the context directory, ensures the inode
// snapshot store exists, and for every non-directory non-symlink entry
// creates (or repairs) a hardlink backup keyed by inode number. Regular
// files additionally have their write bits cleared. It returns the scan
// map for the caller (the event log) to embed in a started event.
func (s *Store) Create() (scan.Snapshot, error) {
	result, err := scan.DirectoryWithProgress(s.fs, s.contextPath, nil, s.onScanEntry)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	if err := vfs.MkdirAll(s.fs, s.inodeDir(), vfs.DirPerm); err != nil {
		return nil, fmt.Errorf("creating inode snapshot store: %w", err)
	}

	for key, record := range result {
		path := filepath.Join(s.contextPath, key)
		if record.Format != scan.Dir && record.Format != scan.Lnk {
			if err := s.backupInode(path, record.Inode); err != nil {
				return nil, err
			}
		}
		if record.Format == scan.Reg {
			newMode := os.FileMode(record.Mode) & readOnlyMask
			if err := s.fs.Chmod(path, newMode); err != nil {
				return nil, fmt.Errorf("marking %q read-only: %w", key, err)
			}
		}
	}

	return result, nil
}

// backupInode ensures <inode_snapshots>/<inode> is a hardlink to path. If a
// stale link already exists pointing at a different inode, it is removed
// and recreated.
func (s *Store) backupInode(path string, inode uint64) error {
	inodeFile := filepath.Join(s.inodeDir(), strconv.FormatUint(inode, 10))

	exists, err := vfs.Lexists(s.fs, inodeFile)
	if err != nil {
		return fmt.Errorf("checking inode backup %q: %w", inodeFile, err)
	}
	if exists {
		same, err := s.sameFile(path, inodeFile)
		if err != nil {
			return err
		}
		if !same {
			s.logger.Debug("stale inode backup %s, recreating", inodeFile)
			if err := s.fs.Remove(inodeFile); err != nil {
				return fmt.Errorf("removing stale inode backup %q: %w", inodeFile, err)
			}
			exists = false
		}
	}
	if !exists {
		if err := s.fs.Link(path, inodeFile); err != nil {
			return fmt.Errorf("linking %q to %q: %w", path, inodeFile, err)
		}
	}
	return nil
}

func (s *Store) sameFile(a, b string) (bool, error) {
	infoA, err := s.fs.Lstat(a)
	if err != nil {
		return false, fmt.Errorf("lstat %q: %w", a, err)
	}
	infoB, err := s.fs.Lstat(b)
	if err != nil {
		return false, fmt.Errorf("lstat %q: %w", b, err)
	}
	return vfs.SameFile(infoA, infoB), nil
}

// Restore brings the context directory back to the state described by
// snap, using hardlink backups in inode_snapshots to recover deleted or
// overwritten files. It runs in two phases: first every entry whose
// current (format, size, inode, symlink) diverges from snap is trashed
// (including entries snap does not mention at all), then every entry snap
// names but the filesystem lacks is recreated, and every entry's mode is
// reapplied unconditionally. Phase ordering matters: deleting before
// recreating handles a path whose object type changed (e.g. a file
// replaced by a directory of the same name).
func (s *Store) Restore(snap scan.Snapshot) error {
	current, err := scan.Directory(s.fs, s.contextPath, nil)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	trash := NewTrashCan(s.fs, s.contextPath)

	for _, key := range current.SortedKeys() {
		record := current[key]
		match, ok := snap[key]
		var matchPtr *scan.Record
		if ok {
			matchPtr = &match
		}
		if !record.EquivalentForRestore(matchPtr) {
			path := filepath.Join(s.contextPath, key)
			if exists, _ := vfs.Lexists(s.fs, path); exists {
				if err := trash.Trash(key); err != nil {
					return fmt.Errorf("trashing divergent entry %q: %w", key, err)
				}
			}
		}
	}

	for _, key := range snap.SortedKeys() {
		record := snap[key]
		path := filepath.Join(s.contextPath, key)

		exists, err := vfs.Lexists(s.fs, path)
		if err != nil {
			return fmt.Errorf("checking %q: %w", key, err)
		}
		if !exists {
			if err := s.recreate(path, record); err != nil {
				return fmt.Errorf("recreating %q: %w", key, err)
			}
		}
		if err := s.lchmod(path, os.FileMode(record.Mode)); err != nil {
			return fmt.Errorf("restoring mode of %q: %w", key, err)
		}
	}

	return nil
}

func (s *Store) recreate(path string, record scan.Record) error {
	switch record.Format {
	case scan.Dir:
		return s.fs.Mkdir(path, vfs.DirPerm)
	case scan.Lnk:
		return s.fs.Symlink(record.Symlink, path)
	default:
		target := filepath.Join(s.inodeDir(), strconv.FormatUint(record.Inode, 10))
		return s.fs.Link(target, path)
	}
}

// lchmod applies mode to path without following a trailing symlink: if
// path is a symlink and the host has no symlink-chmod, the call is
// silently skipped rather than chmod-ing the link's target.
func (s *Store) lchmod(path string, mode os.FileMode) error {
	info, err := s.fs.Lstat(path)
	if err != nil {
		return fmt.Errorf("lstat %q: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	return s.fs.Chmod(path, mode)
}
