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
package cleanstack_test

import (
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/battmatt/pipe-o-matic/pkg/cleanstack"
)

func TestCleanStackSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Clean stack test suite")
}

var _ = Describe("Stack", Label("cleanstack"), func() {
	It("runs Always tasks in reverse registration order regardless of error", func() {
		var order []string
		s := cleanstack.New()
		s.Always(func(error) error { order = append(order, "first"); return nil })
		s.Always(func(error) error { order = append(order, "second"); return nil })

		Expect(s.Unwind(nil)).To(BeNil())
		Expect(order).To(Equal([]string{"second", "first"}))
	})

	It("runs OnError tasks only when unwinding with a non-nil error", func() {
		ran := false
		s := cleanstack.New()
		s.OnError(func(error) error { ran = true; return nil })

		Expect(s.Unwind(nil)).To(BeNil())
		Expect(ran).To(BeFalse())

		boom := errors.New("boom")
		Expect(s.Unwind(boom)).To(MatchError(boom))
		Expect(ran).To(BeTrue())
	})

	It("runs OnSuccess tasks only when unwinding with a nil error", func() {
		ran := false
		s := cleanstack.New()
		s.OnSuccess(func(error) error { ran = true; return nil })

		Expect(s.Unwind(errors.New("boom"))).To(HaveOccurred())
		Expect(ran).To(BeFalse())

		Expect(s.Unwind(nil)).To(BeNil())
		Expect(ran).To(BeTrue())
	})

	It("joins a task's returned error into the unwound result", func() {
		original := errors.New("original")
		taskErr := errors.New("cleanup failed")
		s := cleanstack.New()
		s.Always(func(error) error { return taskErr })

		result := s.Unwind(original)
		Expect(errors.Is(result, original)).To(BeTrue())
		Expect(errors.Is(result, taskErr)).To(BeTrue())
	})

	It("passes the accumulated error to each subsequent task", func() {
		original := errors.New("original")
		var seen []error
		s := cleanstack.New()
		s.Always(func(err error) error { seen = append(seen, err); return nil })
		s.Always(func(err error) error {
			seen = append(seen, err)
			return errors.New("second failure")
		})

		_ = s.Unwind(original)
		Expect(seen).To(HaveLen(2))
		Expect(seen[0]).To(Equal(original))
		Expect(errors.Is(seen[1], original)).To(BeTrue())
	})
})
