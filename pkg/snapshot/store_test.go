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
package snapshot_test

import (
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/battmatt/pipe-o-matic/pkg/log"
	"github.com/battmatt/pipe-o-matic/pkg/scan"
	"github.com/battmatt/pipe-o-matic/pkg/snapshot"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs/vfstest"
)

func TestSnapshotSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Snapshot test suite")
}

var _ = Describe("Store", Label("snapshot"), func() {
	var fs vfs.FS
	var cleanup func()
	var store *snapshot.Store

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfstest.Context(map[string]any{
			"keep.txt": "unchanged",
			"out.txt":  "original",
		})
		Expect(err).ToNot(HaveOccurred())
		store = snapshot.New(fs, vfstest.ContextPath, log.Discard())
	})
	AfterEach(func() { cleanup() })

	Describe("Create", func() {
		It("returns a scan of the directory and marks regular files read-only", func() {
			before, err := store.Create()
			Expect(err).ToNot(HaveOccurred())
			Expect(before).To(HaveKey("keep.txt"))

			info, err := fs.Stat(vfstest.ContextPath + "/keep.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(info.Mode().Perm() & 0o222).To(Equal(os.FileMode(0)))
		})

		It("links every regular file into the inode snapshot store", func() {
			_, err := store.Create()
			Expect(err).ToNot(HaveOccurred())
			exists, err := vfs.Exists(fs, vfstest.ContextPath + "/.pmatic/inode_snapshots")
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeTrue())
		})

		It("drives a progress callback over every scanned entry", func() {
			var seen []string
			_, err := store.WithProgress(func(p string) { seen = append(seen, p) }).Create()
			Expect(err).ToNot(HaveOccurred())
			Expect(seen).To(ContainElement("keep.txt"))
		})
	})

	Describe("Restore", func() {
		It("recreates a file deleted after the snapshot was taken", func() {
			before, err := store.Create()
			Expect(err).ToNot(HaveOccurred())

			Expect(fs.Remove(vfstest.ContextPath + "/out.txt")).To(Succeed())

			Expect(store.Restore(before)).To(Succeed())

			data, err := fs.ReadFile(vfstest.ContextPath + "/out.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("original"))
		})

		It("trashes an entry not present in the snapshot instead of deleting it", func() {
			before, err := store.Create()
			Expect(err).ToNot(HaveOccurred())

			Expect(fs.WriteFile(vfstest.ContextPath + "/new.txt", []byte("surprise"), vfs.FilePerm)).To(Succeed())

			Expect(store.Restore(before)).To(Succeed())

			exists, err := vfs.Lexists(fs, vfstest.ContextPath + "/new.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeFalse())
		})

		It("replaces a file with a directory of the same name and recovers it on restore", func() {
			before, err := store.Create()
			Expect(err).ToNot(HaveOccurred())

			Expect(fs.Remove(vfstest.ContextPath + "/out.txt")).To(Succeed())
			Expect(fs.Mkdir(vfstest.ContextPath + "/out.txt", vfs.DirPerm)).To(Succeed())

			Expect(store.Restore(before)).To(Succeed())

			info, err := fs.Lstat(vfstest.ContextPath + "/out.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(info.IsDir()).To(BeFalse())

			data, err := fs.ReadFile(vfstest.ContextPath + "/out.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("original"))
		})
	})
})

var _ = Describe("TrashCan", Label("snapshot"), func() {
	It("rejects an absolute path", func() {
		fs, cleanup, err := vfstest.Context(map[string]any{"f.txt": "x"})
		Expect(err).ToNot(HaveOccurred())
		defer cleanup()

		trash := snapshot.NewTrashCan(fs, vfstest.ContextPath)
		err = trash.Trash(vfstest.ContextPath + "/f.txt")
		Expect(err).To(HaveOccurred())
	})

	It("moves a relative path under a timestamped trash directory", func() {
		fs, cleanup, err := vfstest.Context(map[string]any{"f.txt": "x"})
		Expect(err).ToNot(HaveOccurred())
		defer cleanup()

		trash := snapshot.NewTrashCan(fs, vfstest.ContextPath)
		Expect(trash.Trash("f.txt")).To(Succeed())

		exists, err := vfs.Lexists(fs, vfstest.ContextPath + "/f.txt")
		Expect(err).ToNot(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
})

var _ = Describe("scan.Snapshot integration", Label("snapshot"), func() {
	It("round-trips through Create and Restore unchanged", func() {
		fs, cleanup, err := vfstest.Context(map[string]any{"a.txt": "a"})
		Expect(err).ToNot(HaveOccurred())
		defer cleanup()

		store := snapshot.New(fs, vfstest.ContextPath, log.Discard())
		before, err := store.Create()
		Expect(err).ToNot(HaveOccurred())
		Expect(store.Restore(before)).To(Succeed())

		after, err := scan.Directory(fs, vfstest.ContextPath, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(after["a.txt"].EquivalentForRestore(ptr(before["a.txt"]))).To(BeTrue())
	})
})

func ptr(r scan.Record) *scan.Record { return &r }
