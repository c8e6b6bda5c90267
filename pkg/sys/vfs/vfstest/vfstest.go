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

// Package vfstest builds throwaway test filesystems, each backed by its own
// temporary directory, for exercising pkg/scan, pkg/snapshot, pkg/eventlog,
// and pkg/dependency at fixed virtual paths.
package vfstest

import (
	"fmt"

	gvfs "github.com/twpayne/go-vfs/v4"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
)

// New builds a TestFS from a vfst root description (nested maps of
// path -> content/*vfst.Dir/*vfst.Symlink) and returns it along with the
// cleanup function that removes its backing temp directory.
func New(root any) (vfs.FS, func(), error) {
	return vfst.NewTestFS(root)
}

// ContextPath is the path every Context fixture is rooted at.
const ContextPath = "/context"

// Context builds a TestFS holding exactly one context directory at
// ContextPath, populated with entries. pkg/scan, pkg/snapshot, and
// pkg/eventlog's suites all exercise a single context directory, so this
// wraps entries in that layout instead of every test file repeating a
// "context/" key prefix on its own fixture map.
func Context(entries map[string]any) (vfs.FS, func(), error) {
	return vfst.NewTestFS(map[string]any{
		"context": &vfst.Dir{Perm: vfs.DirPerm, Entries: entries},
	})
}

// ReadOnly wraps a TestFS so writes fail. It returns an error for any FS
// that is not a *vfst.TestFS.
func ReadOnly(fsys vfs.FS) (vfs.FS, error) {
	if tfs, ok := fsys.(*vfst.TestFS); ok {
		return gvfs.NewReadOnlyFS(tfs), nil
	}
	return nil, fmt.Errorf("provided FS is not a vfst.TestFS")
}
