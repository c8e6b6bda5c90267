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

package eventlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/battmatt/pipe-o-matic/pkg/log"
	"github.com/battmatt/pipe-o-matic/pkg/scan"
	"github.com/battmatt/pipe-o-matic/pkg/snapshot"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
)

// StatusNeverRun is the status projection of an empty or nonexistent
// chain. It is not itself a What value, it never appears on disk.
const StatusNeverRun = "never_run"

// ErrNoStartedEvent is returned by RevertOne when the chain has no
// started event belonging to the current pipeline to revert to.
var ErrNoStartedEvent = errors.New("eventlog: no started event to revert to")

// Log manages reading and appending pipeline lifecycle events for one
// context directory.
type Log struct {
	fs          vfs.FS
	contextPath string
	logger      log.Logger

	eventsPath string
	dbPath     string
	newPath    string
	headPath   string

	// chain holds the most recently read chain, newest event first. Nil
	// until Read is called.
	chain []Event
}

// New returns a Log rooted at contextPath's .pmatic/events directory.
func New(fsys vfs.FS, contextPath string, logger log.Logger) *Log {
	if logger == nil {
		logger = log.Discard()
	}
	eventsPath := filepath.Join(contextPath, scan.MetaDirName, "events")
	return &Log{
		fs:          fsys,
		contextPath: contextPath,
		logger:      logger,
		eventsPath:  eventsPath,
		dbPath:      filepath.Join(eventsPath, "db"),
		newPath:     filepath.Join(eventsPath, "new"),
		headPath:    filepath.Join(eventsPath, "head"),
	}
}

// Exists reports whether there is a readable log on disk: db/ is a
// directory.
func (l *Log) Exists() (bool, error) {
	info, err := l.fs.Stat(l.dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking event log: %w", err)
	}
	return info.IsDir(), nil
}

// EnsureExists creates events/, db/, and new/ if they are absent.
func (l *Log) EnsureExists() error {
	for _, dir := range []string{l.eventsPath, l.dbPath, l.newPath} {
		if err := vfs.MkdirAll(l.fs, dir, vfs.DirPerm); err != nil {
			return fmt.Errorf("creating event log directory %q: %w", dir, err)
		}
	}
	return nil
}

// Read loads the chain from disk, newest event first, following
// parent_event_id pointers from head until a null parent is reached. An
// absent head or absent log means an empty chain.
func (l *Log) Read() error {
	l.chain = nil

	exists, err := l.Exists()
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	headExists, err := vfs.Exists(l.fs, l.headPath)
	if err != nil {
		return fmt.Errorf("checking head: %w", err)
	}
	if !headExists {
		return nil
	}

	headID, err := l.readHead()
	if err != nil {
		return err
	}

	chain := []Event{}
	for headID != "" {
		event, err := l.readEvent(headID)
		if err != nil {
			return err
		}
		chain = append(chain, event)
		headID = event.ParentEventID
	}
	l.chain = chain
	return nil
}

func (l *Log) readHead() (string, error) {
	data, err := l.fs.ReadFile(l.headPath)
	if err != nil {
		return "", fmt.Errorf("reading head: %w", err)
	}
	var id string
	if err := yaml.Unmarshal(data, &id); err != nil {
		return "", fmt.Errorf("decoding head: %w", err)
	}
	return id, nil
}

func (l *Log) readEvent(id string) (Event, error) {
	path := filepath.Join(l.dbPath, id+".yaml")
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return Event{}, fmt.Errorf("reading event %q: %w", id, err)
	}
	var event Event
	if err := yaml.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decoding event %q: %w", id, err)
	}
	return event, nil
}

// Status returns the terse execution status: StatusNeverRun when the log
// has never been read or the chain is empty, otherwise the newest event's
// What verbatim.
func (l *Log) Status() string {
	if len(l.chain) == 0 {
		return StatusNeverRun
	}
	return string(l.chain[0].What)
}

// CurrentPipelineName returns the pipeline_name of the newest event, or
// "" when the chain is empty.
func (l *Log) CurrentPipelineName() string {
	if len(l.chain) == 0 {
		return ""
	}
	return l.chain[0].PipelineName
}

// Chain returns the most recently read chain, newest event first.
func (l *Log) Chain() []Event {
	return l.chain
}

func (l *Log) headID() string {
	if len(l.chain) == 0 {
		return ""
	}
	return l.chain[0].ID
}

// postEvent builds a new event whose parent is the current head, persists
// it, and advances head to point at it.
func (l *Log) postEvent(pipelineName string, what What, apply func(*Event)) (Event, error) {
	return l.postEventWithParent(pipelineName, what, l.headID(), apply)
}

// postEventWithParent is postEvent with an explicit parent_event_id
// instead of the current head, the primitive RevertOne needs to make the
// reverted event's parent the started event's own parent rather than the
// run's terminal event.
func (l *Log) postEventWithParent(pipelineName string, what What, parentEventID string, apply func(*Event)) (Event, error) {
	event, err := newEvent(pipelineName, what, parentEventID)
	if err != nil {
		return Event{}, err
	}
	if apply != nil {
		apply(&event)
	}
	if err := l.saveEvent(event); err != nil {
		return Event{}, err
	}
	if err := l.saveHead(event.ID); err != nil {
		return Event{}, err
	}
	l.chain = append([]Event{event}, l.chain...)
	return event, nil
}

// saveEvent writes the event via temp-file-then-rename: a crash mid-write
// never leaves a partial file in db/.
func (l *Log) saveEvent(event Event) error {
	data, err := yaml.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event %q: %w", event.ID, err)
	}
	newPath := filepath.Join(l.newPath, event.ID+".yaml")
	finalPath := filepath.Join(l.dbPath, event.ID+".yaml")
	if err := l.fs.WriteFile(newPath, data, vfs.FilePerm); err != nil {
		return fmt.Errorf("staging event %q: %w", event.ID, err)
	}
	if err := l.fs.Rename(newPath, finalPath); err != nil {
		return fmt.Errorf("committing event %q: %w", event.ID, err)
	}
	return nil
}

// saveHead writes the new head value via temp-file-then-rename.
func (l *Log) saveHead(eventID string) error {
	data, err := yaml.Marshal(eventID)
	if err != nil {
		return fmt.Errorf("encoding head: %w", err)
	}
	newPath := filepath.Join(l.newPath, "head")
	if err := l.fs.WriteFile(newPath, data, vfs.FilePerm); err != nil {
		return fmt.Errorf("staging head: %w", err)
	}
	if err := l.fs.Rename(newPath, l.headPath); err != nil {
		return fmt.Errorf("committing head: %w", err)
	}
	return nil
}

// RecordStarted snapshots the context directory and appends a started
// event embedding that snapshot.
func (l *Log) RecordStarted(store *snapshot.Store, pipelineName string) (Event, error) {
	if err := l.EnsureExists(); err != nil {
		return Event{}, err
	}
	before, err := store.Create()
	if err != nil {
		return Event{}, fmt.Errorf("snapshot: %w", err)
	}
	return l.postEvent(pipelineName, Started, func(e *Event) {
		e.Snapshot = before
	})
}

// RecordFinished appends a finished event.
func (l *Log) RecordFinished(pipelineName string) (Event, error) {
	if err := l.EnsureExists(); err != nil {
		return Event{}, err
	}
	return l.postEvent(pipelineName, Finished, nil)
}

// RecordFailedExitCode appends a failed event carrying the child's exit
// code.
func (l *Log) RecordFailedExitCode(pipelineName string, exitCode int) (Event, error) {
	if err := l.EnsureExists(); err != nil {
		return Event{}, err
	}
	return l.postEvent(pipelineName, Failed, func(e *Event) {
		e.ExitCode = &exitCode
	})
}

// RecordFailedException appends a failed event carrying an error message
// from an OS/filesystem failure rather than a nonzero exit code.
func (l *Log) RecordFailedException(pipelineName string, exception string) (Event, error) {
	if err := l.EnsureExists(); err != nil {
		return Event{}, err
	}
	return l.postEvent(pipelineName, Failed, func(e *Event) {
		e.Exception = exception
	})
}

// RevertOne finds the newest started event belonging to the current
// pipeline, restores its embedded snapshot, and appends a reverted event
// in its place: the reverted event's parent_event_id is the started
// event's own parent, not the failed/finished event that ended the run,
// so the aborted run's events are excised from the chain rather than left
// dangling ahead of head. Head then points at the reverted event itself,
// leaving status "reverted" and the pipeline free to run again.
func (l *Log) RevertOne(store *snapshot.Store) (Event, error) {
	pipelineName := l.CurrentPipelineName()
	if pipelineName == "" {
		return Event{}, ErrNoStartedEvent
	}

	var started *Event
	for i := range l.chain {
		if l.chain[i].What == Started {
			started = &l.chain[i]
			break
		}
	}
	if started == nil {
		return Event{}, ErrNoStartedEvent
	}
	if started.PipelineName != pipelineName {
		return Event{}, fmt.Errorf("%w: newest started event belongs to pipeline %q, current pipeline is %q",
			ErrNoStartedEvent, started.PipelineName, pipelineName)
	}

	if err := store.Restore(started.Snapshot); err != nil {
		return Event{}, fmt.Errorf("restoring snapshot: %w", err)
	}

	event, err := l.postEventWithParent(pipelineName, Reverted, started.ParentEventID, nil)
	if err != nil {
		return Event{}, err
	}
	return event, l.Read()
}
