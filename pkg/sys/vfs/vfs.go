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

// Package vfs re-exports the filesystem abstraction used throughout
// pipe-o-matic so that every component that touches a context directory can
// be exercised against an in-memory or temp-dir backed filesystem in tests.
package vfs

import (
	"io/fs"
	"os"
	"path/filepath"

	gvfs "github.com/twpayne/go-vfs/v4"
)

// FS is the filesystem interface every component depends on instead of the
// os package directly.
type FS = gvfs.FS

const (
	// DirPerm is the permission bits used for directories created by
	// pipe-o-matic (.pmatic, inode_snapshots, trash cans, and recreated
	// directories during restore).
	DirPerm fs.FileMode = 0o755
	// FilePerm is the permission bits used for files pipe-o-matic creates
	// itself (event documents, head pointer).
	FilePerm fs.FileMode = 0o644
)

// New returns the real OS-backed filesystem.
func New() FS {
	return gvfs.OSFS
}

// MkdirAll creates path and any missing parents, matching os.MkdirAll but
// routed through the FS abstraction.
func MkdirAll(fsys FS, path string, perm fs.FileMode) error {
	return gvfs.MkdirAll(fsys, path, perm)
}

// Exists reports whether path exists, following symlinks.
func Exists(fsys FS, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Lexists reports whether path exists without following a trailing
// symlink.
func Lexists(fsys FS, path string) (bool, error) {
	_, err := fsys.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// SameFile reports whether the two lstat results describe the same
// underlying inode, the same test os.SameFile performs.
func SameFile(a, b os.FileInfo) bool {
	return os.SameFile(a, b)
}

// Walk walks the file tree rooted at root, calling walkFn for each file or
// directory, the same contract as filepath.Walk but routed through fsys.
func Walk(fsys FS, root string, walkFn filepath.WalkFunc) error {
	return gvfs.Walk(fsys, root, walkFn)
}
