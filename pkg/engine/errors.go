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

package engine

import (
	"errors"
	"fmt"

	"github.com/battmatt/pipe-o-matic/pkg/dependency"
)

// Sentinel errors for the engine's error taxonomy. Wrap them with
// fmt.Errorf("...: %w", ErrX) so callers can classify a failure with
// errors.Is without string matching.
var (
	// ErrConfig covers a missing pipeline file, missing PMATIC_BASE, a
	// context path that is not a directory, or an unknown file_type
	// version.
	ErrConfig = errors.New("config error")
	// ErrDependency covers one or more unlisted/missing/bad-type
	// dependencies.
	ErrDependency = errors.New("dependency error")
	// ErrState covers an attempt to run while the newest event is
	// started or failed, or to revert with no started event to revert to.
	ErrState = errors.New("state error")
	// ErrSnapshot covers an I/O failure during scan, link, chmod, or
	// rename.
	ErrSnapshot = errors.New("snapshot error")
	// ErrChildProcess covers an OS-level failure to spawn or wait.
	ErrChildProcess = errors.New("child process error")
	// ErrExitCode covers a child that exited non-zero.
	ErrExitCode = errors.New("exit code error")
)

// DependencyError wraps ErrDependency with the structured report that
// produced it, so a caller (the CLI layer) can render it as a table
// instead of re-parsing an error string.
type DependencyError struct {
	Report   dependency.Report
	Registry *dependency.Registry
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDependency, formatReport(e.Registry, e.Report))
}

func (e *DependencyError) Unwrap() error {
	return ErrDependency
}
