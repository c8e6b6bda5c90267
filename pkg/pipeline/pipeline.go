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

// Package pipeline loads pipeline documents and runs the executable(s)
// they describe. Recording lifecycle events is the orchestrator's job
// (see pkg/engine), not the pipeline variant's: a Pipeline only resolves
// its dependencies and executes, it never touches the event log.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/battmatt/pipe-o-matic/pkg/dependency"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
)

// Result is what a Pipeline's Execute returns alongside its error: the
// exit code of the launched process when it ran to completion. A
// process-level failure (the process could not even be started or waited
// upon) is reported through Execute's error instead.
type Result struct {
	ExitCode int
}

// Pipeline is the tagged-variant interface every pipeline class
// implements. The only class specified today is single-task.
type Pipeline interface {
	// Name returns the pipeline's declared name, its filename minus the
	// .yaml extension.
	Name() string
	// Dependencies recursively generates the set of all dependency
	// triples this pipeline needs before it may run.
	Dependencies() []dependency.Triple
	// Execute resolves its dependencies via reg and runs with workDir as
	// its working directory, returning the exited process's result or an
	// error if it never started.
	Execute(ctx context.Context, fsys vfs.FS, reg *dependency.Registry, workDir string) (Result, error)
}

// classFactory builds a Pipeline from a pipeline name, version string,
// and the raw decoded document.
type classFactory func(name, version string, raw map[string]any) (Pipeline, error)

// classRegistry maps a pipeline class name (the portion of file_type
// before the final '-') to the factory that builds it. SingleTask is
// registered in singletask.go's init; this is the documented extension
// point for future pipeline classes.
var classRegistry = map[string]classFactory{}

// registerClass is called by each pipeline class's init function.
func registerClass(name string, factory classFactory) {
	classRegistry[name] = factory
}

// Load reads <pmaticBase>/pipelines/<name>.yaml, selects a class based on
// its file_type, and constructs the corresponding Pipeline.
func Load(fsys vfs.FS, pmaticBase, name string) (Pipeline, error) {
	path := Path(pmaticBase, name)
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline %q: %w", path, err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding pipeline %q: %w", path, err)
	}

	fileType, _ := raw["file_type"].(string)
	if fileType == "" {
		return nil, fmt.Errorf("pipeline %q is missing file_type", path)
	}

	className, version, err := splitFileType(fileType)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", path, err)
	}

	factory, ok := classRegistry[className]
	if !ok {
		return nil, fmt.Errorf("pipeline %q: unknown pipeline class %q", path, className)
	}

	return factory(name, version, raw)
}

// splitFileType splits a file_type tag on its last '-' into a class name
// and version, the same rsplit('-', 1) the original Python performs.
func splitFileType(fileType string) (class, version string, err error) {
	idx := strings.LastIndex(fileType, "-")
	if idx < 0 {
		return "", "", fmt.Errorf("malformed file_type %q", fileType)
	}
	return fileType[:idx], fileType[idx+1:], nil
}

// Path returns the path to the named pipeline document.
func Path(pmaticBase, name string) string {
	return filepath.Join(pmaticBase, "pipelines", name+".yaml")
}
