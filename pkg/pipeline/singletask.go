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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/battmatt/pipe-o-matic/pkg/dependency"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
)

const singleTaskClass = "single-task"

func init() {
	registerClass(singleTaskClass, newSingleTask)
}

// singleTaskDoc is the on-disk shape of a single-task-1 pipeline
// document.
type singleTaskDoc struct {
	Executable string   `yaml:"executable"`
	Arguments  []string `yaml:"arguments"`
	Stdin      string   `yaml:"stdin"`
	Stdout     string   `yaml:"stdout"`
	Stderr     string   `yaml:"stderr"`
}

// SingleTask wraps exactly one executable.
type SingleTask struct {
	name       string
	version    string
	executable string
	arguments  []string
	stdin      string
	stdout     string
	stderr     string
}

func newSingleTask(name, version string, raw map[string]any) (Pipeline, error) {
	if version != "1" {
		return nil, fmt.Errorf("single-task pipelines only support version 1, got %q", version)
	}

	// Re-marshal the generically decoded document into the typed shape;
	// the document was already parsed once to read file_type.
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encoding pipeline %q: %w", name, err)
	}
	var doc singleTaskDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding single-task pipeline %q: %w", name, err)
	}

	if doc.Executable == "" {
		return nil, fmt.Errorf("single-task pipeline %q is missing executable", name)
	}
	if doc.Stdin == "" {
		doc.Stdin = "/dev/null"
	}

	return &SingleTask{
		name:       name,
		version:    version,
		executable: doc.Executable,
		arguments:  doc.Arguments,
		stdin:      doc.Stdin,
		stdout:     doc.Stdout,
		stderr:     doc.Stderr,
	}, nil
}

func (p *SingleTask) Name() string { return p.name }

func (p *SingleTask) Dependencies() []dependency.Triple {
	return []dependency.Triple{
		{Name: p.executable, Version: p.version, Kind: dependency.Executable},
	}
}

// Execute resolves the executable's absolute path, opens stdin/stdout/
// stderr as named, launches the child, and waits for it to exit. It
// never touches the event log; the caller (pkg/engine) records
// started/finished/failed around this call.
func (p *SingleTask) Execute(ctx context.Context, fsys vfs.FS, reg *dependency.Registry, workDir string) (Result, error) {
	dep := p.Dependencies()[0]
	executablePath := reg.Path(dep)

	args := append([]string{executablePath}, p.arguments...)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = workDir

	stdin, closeStdin, err := openFileOrNil(resolveAgainst(workDir, p.stdin), os.O_RDONLY, 0)
	if err != nil {
		return Result{}, fmt.Errorf("opening stdin %q: %w", p.stdin, err)
	}
	defer closeStdin()
	cmd.Stdin = stdin

	stdout, closeStdout, err := openFileOrNil(resolveAgainst(workDir, p.stdout), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, vfs.FilePerm)
	if err != nil {
		return Result{}, fmt.Errorf("opening stdout %q: %w", p.stdout, err)
	}
	defer closeStdout()
	if stdout != nil {
		cmd.Stdout = stdout
	} else {
		cmd.Stdout = os.Stdout
	}

	stderr, closeStderr, err := openFileOrNil(resolveAgainst(workDir, p.stderr), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, vfs.FilePerm)
	if err != nil {
		return Result{}, fmt.Errorf("opening stderr %q: %w", p.stderr, err)
	}
	defer closeStderr()
	if stderr != nil {
		cmd.Stderr = stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{ExitCode: exitErr.ExitCode()}, nil
		}
		return Result{}, fmt.Errorf("running %q: %w", executablePath, err)
	}

	return Result{ExitCode: 0}, nil
}

// resolveAgainst joins a relative path against workDir; an empty path
// (meaning "inherit") and absolute paths (like the /dev/null default)
// pass through unchanged.
func resolveAgainst(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}

// openFileOrNil opens path with the given flags, returning a no-op
// closer when path is empty (meaning "inherit the caller's stream").
func openFileOrNil(path string, flag int, perm os.FileMode) (*os.File, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
