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
package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/battmatt/pipe-o-matic/pkg/dependency"
	"github.com/battmatt/pipe-o-matic/pkg/pipeline"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
)

func TestPipelineSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline test suite")
}

var _ = Describe("Load", Label("pipeline"), func() {
	var base, contextDir string
	var cleanup func()

	BeforeEach(func() {
		var err error
		base, err = os.MkdirTemp("", "pmatic-base-*")
		Expect(err).ToNot(HaveOccurred())
		contextDir, err = os.MkdirTemp("", "pmatic-context-*")
		Expect(err).ToNot(HaveOccurred())
		cleanup = func() {
			_ = os.RemoveAll(base)
			_ = os.RemoveAll(contextDir)
		}

		Expect(os.MkdirAll(filepath.Join(base, "pipelines"), 0o755)).To(Succeed())

		truePath, lookErr := lookPathTrue()
		Expect(lookErr).ToNot(HaveOccurred())

		doc := "file_type: single-task-1\n" +
			"executable: coreutils-true\n" +
			"arguments: []\n"
		Expect(os.WriteFile(filepath.Join(base, "pipelines", "demo.yaml"), []byte(doc), 0o644)).To(Succeed())

		deploymentsDoc := "file_type: deployments-1\n" +
			"coreutils-true:\n" +
			"  \"1\": " + truePath + "\n"
		Expect(os.WriteFile(filepath.Join(base, "deployments.yaml"), []byte(deploymentsDoc), 0o644)).To(Succeed())
	})
	AfterEach(func() { cleanup() })

	It("loads a single-task pipeline and reports its dependency", func() {
		p, err := pipeline.Load(vfs.New(), base, "demo")
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Name()).To(Equal("demo"))
		deps := p.Dependencies()
		Expect(deps).To(HaveLen(1))
		Expect(deps[0].Kind).To(Equal(dependency.Executable))
	})

	It("runs the single-task pipeline and returns its exit code", func() {
		p, err := pipeline.Load(vfs.New(), base, "demo")
		Expect(err).ToNot(HaveOccurred())

		reg, err := dependency.Load(vfs.New(), base)
		Expect(err).ToNot(HaveOccurred())

		result, err := p.Execute(context.Background(), vfs.New(), reg, contextDir)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.ExitCode).To(Equal(0))
	})

	It("rejects an unknown pipeline class", func() {
		Expect(os.WriteFile(filepath.Join(base, "pipelines", "bad.yaml"), []byte("file_type: mystery-1\n"), 0o644)).To(Succeed())
		_, err := pipeline.Load(vfs.New(), base, "bad")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown pipeline class"))
	})
})

func lookPathTrue() (string, error) {
	for _, candidate := range []string{"/usr/bin/true", "/bin/true"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}
