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

// Package eventlog is the append-only chain of pipeline lifecycle events
// that is the single source of truth for "what is the current state of
// this context".
package eventlog

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/battmatt/pipe-o-matic/pkg/scan"
)

// What identifies the kind of a lifecycle event.
type What string

const (
	Started  What = "started"
	Finished What = "finished"
	Failed   What = "failed"
	Reverted What = "reverted"
)

// fileType tags every event document with its schema version, the same
// convention the deployment registry and pipeline documents use.
const fileType = "event-1"

// Event is an immutable record of one pipeline lifecycle transition.
// Events are never rewritten; a chain grows only by appending.
type Event struct {
	FileType      string     `yaml:"file_type"`
	ID            string     `yaml:"id"`
	PipelineName  string     `yaml:"pipeline_name"`
	What          What       `yaml:"what"`
	ParentEventID string     `yaml:"parent_event_id,omitempty"`
	When          time.Time  `yaml:"when"`
	Snapshot      scan.Snapshot `yaml:"snapshot,omitempty"`
	ExitCode      *int       `yaml:"exit_code,omitempty"`
	Exception     string     `yaml:"exception,omitempty"`
}

// newEvent builds a new event with a fresh version-1 UUID and the current
// UTC wall clock time.
func newEvent(pipelineName string, what What, parentEventID string) (Event, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return Event{}, fmt.Errorf("generating event id: %w", err)
	}
	return Event{
		FileType:      fileType,
		ID:            id.String(),
		PipelineName:  pipelineName,
		What:          what,
		ParentEventID: parentEventID,
		When:          time.Now().UTC(),
	}, nil
}

// IsRoot reports whether this event has no parent, i.e. it is the first
// event ever posted for this context.
func (e Event) IsRoot() bool {
	return e.ParentEventID == ""
}
