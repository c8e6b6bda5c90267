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

package dependency

import "sort"

// Report is the result of checking a set of dependency triples against a
// Registry: each dependency appears in at most one category, checked in
// Listed -> Exists -> CorrectType order so a failure higher up shadows
// checks further down.
type Report struct {
	Unlisted []Triple
	Missing  []Triple
	BadType  []Triple
}

// Empty reports whether every dependency passed all three checks.
func (r Report) Empty() bool {
	return len(r.Unlisted) == 0 && len(r.Missing) == 0 && len(r.BadType) == 0
}

// Check partitions deps into unlisted, missing, and bad-type categories.
func (r *Registry) Check(deps []Triple) Report {
	var report Report
	for _, dep := range deps {
		switch {
		case !r.Listed(dep):
			report.Unlisted = append(report.Unlisted, dep)
		case !r.Exists(dep):
			report.Missing = append(report.Missing, dep)
		case !r.CorrectType(dep):
			report.BadType = append(report.BadType, dep)
		}
	}
	sortTriples(report.Unlisted)
	sortTriples(report.Missing)
	sortTriples(report.BadType)
	return report
}

func sortTriples(triples []Triple) {
	sort.Slice(triples, func(i, j int) bool {
		if triples[i].Name != triples[j].Name {
			return triples[i].Name < triples[j].Name
		}
		return triples[i].Version < triples[j].Version
	})
}
