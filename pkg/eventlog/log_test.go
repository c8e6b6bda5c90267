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
package eventlog_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/battmatt/pipe-o-matic/pkg/eventlog"
	"github.com/battmatt/pipe-o-matic/pkg/log"
	"github.com/battmatt/pipe-o-matic/pkg/snapshot"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs/vfstest"
)

func TestEventLogSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Event log test suite")
}

var _ = Describe("Log", Label("eventlog"), func() {
	var fs vfs.FS
	var cleanup func()
	var elog *eventlog.Log
	var store *snapshot.Store

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfstest.Context(map[string]any{"a.txt": "hello"})
		Expect(err).ToNot(HaveOccurred())
		elog = eventlog.New(fs, vfstest.ContextPath, log.Discard())
		store = snapshot.New(fs, vfstest.ContextPath, log.Discard())
	})
	AfterEach(func() { cleanup() })

	It("reports never_run before anything is posted", func() {
		Expect(elog.Read()).To(Succeed())
		Expect(elog.Status()).To(Equal(eventlog.StatusNeverRun))
		Expect(elog.CurrentPipelineName()).To(Equal(""))
	})

	It("records started, then finished, advancing head each time", func() {
		started, err := elog.RecordStarted(store, "demo")
		Expect(err).ToNot(HaveOccurred())
		Expect(started.IsRoot()).To(BeTrue())
		Expect(started.Snapshot).To(HaveKey("a.txt"))

		finished, err := elog.RecordFinished("demo")
		Expect(err).ToNot(HaveOccurred())
		Expect(finished.ParentEventID).To(Equal(started.ID))

		Expect(elog.Read()).To(Succeed())
		Expect(elog.Status()).To(Equal(string(eventlog.Finished)))
		Expect(elog.CurrentPipelineName()).To(Equal("demo"))
		Expect(elog.Chain()).To(HaveLen(2))
	})

	It("records a failed event carrying an exit code", func() {
		_, err := elog.RecordStarted(store, "demo")
		Expect(err).ToNot(HaveOccurred())
		failed, err := elog.RecordFailedExitCode("demo", 3)
		Expect(err).ToNot(HaveOccurred())
		Expect(failed.ExitCode).ToNot(BeNil())
		Expect(*failed.ExitCode).To(Equal(3))
	})

	It("records a failed event carrying an exception message", func() {
		_, err := elog.RecordStarted(store, "demo")
		Expect(err).ToNot(HaveOccurred())
		failed, err := elog.RecordFailedException("demo", "boom")
		Expect(err).ToNot(HaveOccurred())
		Expect(failed.Exception).To(Equal("boom"))
	})

	Describe("RevertOne", func() {
		It("fails when there is nothing to revert", func() {
			Expect(elog.Read()).To(Succeed())
			_, err := elog.RevertOne(store)
			Expect(err).To(MatchError(eventlog.ErrNoStartedEvent))
		})

		It("restores the pre-run snapshot and leaves head on the reverted event", func() {
			started, err := elog.RecordStarted(store, "demo")
			Expect(err).ToNot(HaveOccurred())

			// Replace a.txt with a new file rather than writing into it: the
			// hardlink backup shares the original inode, so only a replaced
			// file leaves the captured content recoverable.
			Expect(fs.Remove(vfstest.ContextPath + "/a.txt")).To(Succeed())
			Expect(fs.WriteFile(vfstest.ContextPath + "/a.txt", []byte("changed"), vfs.FilePerm)).To(Succeed())

			_, err = elog.RecordFailedExitCode("demo", 1)
			Expect(err).ToNot(HaveOccurred())

			reverted, err := elog.RevertOne(store)
			Expect(err).ToNot(HaveOccurred())
			Expect(reverted.What).To(Equal(eventlog.Reverted))
			Expect(reverted.ParentEventID).To(Equal(started.ParentEventID))

			data, err := fs.ReadFile(vfstest.ContextPath + "/a.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("hello"))

			// The started event here was the chain's root (parent_event_id
			// ""), so the reverted event that takes its place is root too:
			// head points at it, the chain has exactly one entry, and
			// status reports reverted rather than never_run. The
			// intervening failed event is excised, not merely unreachable.
			Expect(started.IsRoot()).To(BeTrue())
			Expect(reverted.IsRoot()).To(BeTrue())
			Expect(elog.Chain()).To(HaveLen(1))
			Expect(elog.Status()).To(Equal(string(eventlog.Reverted)))
		})

		It("leaves the pipeline free to run again afterward", func() {
			_, err := elog.RecordStarted(store, "demo")
			Expect(err).ToNot(HaveOccurred())
			Expect(fs.WriteFile(vfstest.ContextPath + "/a.txt", []byte("changed"), vfs.FilePerm)).To(Succeed())
			_, err = elog.RecordFailedExitCode("demo", 1)
			Expect(err).ToNot(HaveOccurred())
			reverted, err := elog.RevertOne(store)
			Expect(err).ToNot(HaveOccurred())
			Expect(elog.Status()).To(Equal(string(eventlog.Reverted)))

			restarted, err := elog.RecordStarted(store, "demo")
			Expect(err).ToNot(HaveOccurred())
			Expect(restarted.ParentEventID).To(Equal(reverted.ID))
			Expect(elog.Status()).To(Equal(string(eventlog.Started)))
		})
	})
})
