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

package snapshot

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/battmatt/pipe-o-matic/pkg/scan"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
)

// TrashCan is a per-revert directory that receives entries displaced
// during a restore, instead of deleting them outright.
type TrashCan struct {
	fs          vfs.FS
	contextPath string
	trashPath   string
}

// NewTrashCan creates a trash can rooted at
// <contextPath>/.trash_cans/<utc-isoformat-timestamp>/.
func NewTrashCan(fsys vfs.FS, contextPath string) *TrashCan {
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	return &TrashCan{
		fs:          fsys,
		contextPath: contextPath,
		trashPath:   filepath.Join(contextPath, scan.TrashDirName, stamp),
	}
}

// Trash moves <contextPath>/<relPath> to <trashPath>/<relPath>, creating
// parent directories as needed. relPath must not be absolute. If the
// source is a directory and the destination already exists (because an
// earlier Trash call during this same restore already moved the
// directory's contents there), the now-empty source directory is removed
// rather than renamed over the populated destination.
func (t *TrashCan) Trash(relPath string) error {
	if filepath.IsAbs(relPath) {
		return fmt.Errorf("trash: relative path required, got %q", relPath)
	}

	srcPath := filepath.Join(t.contextPath, relPath)
	destDir := filepath.Join(t.trashPath, filepath.Dir(relPath))
	destPath := filepath.Join(t.trashPath, relPath)

	if err := vfs.MkdirAll(t.fs, destDir, vfs.DirPerm); err != nil {
		return fmt.Errorf("creating trash directory %q: %w", destDir, err)
	}

	srcInfo, err := t.fs.Lstat(srcPath)
	if err != nil {
		return fmt.Errorf("lstat %q: %w", srcPath, err)
	}

	destExists, err := vfs.Lexists(t.fs, destPath)
	if err != nil {
		return fmt.Errorf("checking %q: %w", destPath, err)
	}

	if srcInfo.IsDir() && destExists {
		return t.fs.Remove(srcPath)
	}
	return t.fs.Rename(srcPath, destPath)
}
