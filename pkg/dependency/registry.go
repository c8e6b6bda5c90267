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

// Package dependency verifies, before any executable is launched, that
// every declared dependency is listed in the deployment registry, exists
// on disk, and has the correct filesystem object type.
package dependency

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v3"

	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
)

// Kind identifies the filesystem object type a dependency must be.
type Kind string

const (
	Directory  Kind = "directory"
	File       Kind = "file"
	Executable Kind = "executable"
	Link       Kind = "link"
)

// Triple identifies one required external artifact.
type Triple struct {
	Name    string
	Version string
	Kind    Kind
}

func (t Triple) key() string {
	return t.Name + "@" + t.Version
}

// registryHeader is validated against the decoded document header before
// the registry is trusted, converting a malformed file_type into a Config
// error instead of a zero-value fallthrough. eq=deployments-1 is the one
// check doing real work here: it both requires the field and pins it to
// the single version this registry format understands.
type registryHeader struct {
	FileType string `validate:"required,eq=deployments-1"`
}

// Registry resolves dependency triples to absolute paths using a
// deployment registry document loaded once at construction.
type Registry struct {
	fsys       vfs.FS
	pmaticBase string
	paths      map[string]string
}

// Load reads <pmaticBase>/deployments.yaml and builds a Registry.
func Load(fsys vfs.FS, pmaticBase string) (*Registry, error) {
	path := filepath.Join(pmaticBase, "deployments.yaml")
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deployment registry %q: %w", path, err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding deployment registry %q: %w", path, err)
	}

	ft, _ := raw["file_type"].(string)
	if err := validatorInstance.Struct(registryHeader{FileType: ft}); err != nil {
		return nil, fmt.Errorf("deployment registry %q: %w", path, err)
	}
	delete(raw, "file_type")

	paths := map[string]string{}
	for name, versions := range raw {
		versionMap, ok := versions.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("deployment registry %q: dependency %q is not a version map", path, name)
		}
		for version, tmpl := range versionMap {
			tmplStr, ok := tmpl.(string)
			if !ok {
				return nil, fmt.Errorf("deployment registry %q: %s/%s path is not a string", path, name, version)
			}
			paths[(Triple{Name: name, Version: version}).key()] = constructPath(pmaticBase, tmplStr)
		}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("deployment registry %q: no dependencies listed", path)
	}

	return &Registry{fsys: fsys, pmaticBase: pmaticBase, paths: paths}, nil
}

var validatorInstance = validator.New(validator.WithRequiredStructEnabled())

// constructPath expands the $pmatic_base variable in a path template and
// returns an absolute path, porting the original Python's
// string.Template(path).substitute(pmatic_base=...) behavior.
func constructPath(pmaticBase, tmpl string) string {
	expanded := strings.ReplaceAll(tmpl, "$pmatic_base", pmaticBase)
	expanded = strings.ReplaceAll(expanded, "${pmatic_base}", pmaticBase)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return expanded
	}
	return abs
}

// Listed reports whether (name, version) appears in the registry.
func (r *Registry) Listed(t Triple) bool {
	_, ok := r.paths[t.key()]
	return ok
}

// Path returns the absolute path a listed dependency resolves to.
func (r *Registry) Path(t Triple) string {
	return r.paths[t.key()]
}

// Exists reports whether the resolved path exists on disk. Callers must
// have already confirmed Listed.
func (r *Registry) Exists(t Triple) bool {
	_, err := r.fsys.Stat(r.Path(t))
	return err == nil
}

// CorrectType reports whether the resolved path satisfies the kind test
// for t.Kind. Callers must have already confirmed Listed and Exists.
func (r *Registry) CorrectType(t Triple) bool {
	path := r.Path(t)
	switch t.Kind {
	case Directory:
		info, err := r.fsys.Stat(path)
		return err == nil && info.IsDir()
	case File:
		info, err := r.fsys.Stat(path)
		return err == nil && info.Mode().IsRegular()
	case Executable:
		info, err := r.fsys.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return false
		}
		return isExecutable(info)
	case Link:
		info, err := r.fsys.Lstat(path)
		return err == nil && info.Mode()&os.ModeSymlink != 0
	default:
		return false
	}
}

func isExecutable(info os.FileInfo) bool {
	return info.Mode()&0o111 != 0
}

// PmaticBase returns the base directory this registry was loaded from,
// used to format the "not listed in <path>" failure message.
func (r *Registry) PmaticBase() string {
	return r.pmaticBase
}

// DeploymentsPath returns the path to the deployments.yaml this registry
// was loaded from.
func DeploymentsPath(pmaticBase string) string {
	return filepath.Join(pmaticBase, "deployments.yaml")
}
