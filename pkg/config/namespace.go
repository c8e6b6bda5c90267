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

// Package config implements the layered parameter override mechanism the
// original Python Namespace/ChainMap pair provided for passing run
// parameters into a pipeline. The typed rewrite replaces the attribute-
// and-mapping dual bag with an explicit, ordered list of string maps,
// merged last-wins.
package config

import "dario.cat/mergo"

// Overrides is an ordered list of layered parameter mappings. Lookup is
// last-wins: a key present in a later layer shadows the same key in an
// earlier one. Nothing else in pipe-o-matic (the engine or the CLI) uses
// Overrides yet.
type Overrides struct {
	layers []map[string]string
}

// NewOverrides builds an Overrides from layers ordered lowest-priority
// first.
func NewOverrides(layers ...map[string]string) *Overrides {
	return &Overrides{layers: layers}
}

// Push appends a new, highest-priority layer.
func (o *Overrides) Push(layer map[string]string) {
	o.layers = append(o.layers, layer)
}

// Resolve merges every layer into a single map, last-wins, using mergo
// with override enabled.
func (o *Overrides) Resolve() (map[string]string, error) {
	result := map[string]string{}
	for _, layer := range o.layers {
		if err := mergo.Merge(&result, layer, mergo.WithOverride); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Get returns the value of key from the highest-priority layer defining
// it, and whether it was found at all.
func (o *Overrides) Get(key string) (string, bool) {
	for i := len(o.layers) - 1; i >= 0; i-- {
		if v, ok := o.layers[i][key]; ok {
			return v, true
		}
	}
	return "", false
}
