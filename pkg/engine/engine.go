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

// Package engine composes the scanner/snapshot store, event log,
// dependency resolver, and pipeline loader/executor into the run and
// revert workflows. It is the only component that decides when to post
// started/finished/failed/reverted events.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/battmatt/pipe-o-matic/pkg/cleanstack"
	"github.com/battmatt/pipe-o-matic/pkg/dependency"
	"github.com/battmatt/pipe-o-matic/pkg/eventlog"
	"github.com/battmatt/pipe-o-matic/pkg/log"
	"github.com/battmatt/pipe-o-matic/pkg/pipeline"
	"github.com/battmatt/pipe-o-matic/pkg/snapshot"
	"github.com/battmatt/pipe-o-matic/pkg/sys/vfs"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the engine's logger. Defaults to a discarding
// logger.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithFS overrides the filesystem the engine operates on. Defaults to the
// real OS filesystem; tests substitute a vfst.TestFS.
func WithFS(fsys vfs.FS) Option {
	return func(e *Engine) { e.fs = fsys }
}

// WithScanProgress registers a callback invoked once per path as Run scans
// the context directory before starting a pipeline, driving an optional
// CLI progress indicator.
func WithScanProgress(onEntry func(path string)) Option {
	return func(e *Engine) { e.onScanEntry = onEntry }
}

// Engine is the orchestrator: one instance per (pmaticBase, contextPath)
// pair.
type Engine struct {
	pmaticBase  string
	contextPath string
	fs          vfs.FS
	logger      log.Logger
	onScanEntry func(path string)
}

// New returns an Engine rooted at pmaticBase (holding deployments.yaml
// and pipelines/) operating against contextPath.
func New(pmaticBase, contextPath string, opts ...Option) *Engine {
	e := &Engine{
		pmaticBase:  pmaticBase,
		contextPath: contextPath,
		fs:          vfs.New(),
		logger:      log.Discard(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run loads the named pipeline, refuses to run it unless its current
// status allows a (re)start, verifies its dependencies, and executes it,
// recording started/finished/failed events around the run.
func (e *Engine) Run(ctx context.Context, pipelineName string) (err error) {
	e.logger.Debug("running %s in %s", pipelineName, e.contextPath)

	pl, err := pipeline.Load(e.fs, e.pmaticBase, pipelineName)
	if err != nil {
		return fmt.Errorf("%w: loading pipeline %q: %v", ErrConfig, pipelineName, err)
	}

	elog := eventlog.New(e.fs, e.contextPath, e.logger)
	if err := elog.EnsureExists(); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	if err := elog.Read(); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshot, err)
	}

	currentPipeline := elog.CurrentPipelineName()
	currentStatus := elog.Status()
	if currentStatus != eventlog.StatusNeverRun && currentStatus != string(eventlog.Finished) && currentStatus != string(eventlog.Reverted) {
		return fmt.Errorf("%w: cannot run, because pipeline %q has a status of %q", ErrState, currentPipeline, currentStatus)
	}

	reg, err := dependency.Load(e.fs, e.pmaticBase)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	report := reg.Check(pl.Dependencies())
	if !report.Empty() {
		return &DependencyError{Report: report, Registry: reg}
	}

	store := snapshot.New(e.fs, e.contextPath, e.logger).WithProgress(e.onScanEntry)

	if _, err = elog.RecordStarted(store, pipelineName); err != nil {
		return fmt.Errorf("%w: recording start: %v", ErrSnapshot, err)
	}

	// Once started is recorded, any abort path must record a single
	// terminal failed event before surfacing its error. failure holds
	// what to record; the cleanup job fires exactly once, on whichever
	// return statement below sets a non-nil err.
	var failure *failureDetail
	cleanup := cleanstack.New()
	cleanup.OnError(func(error) error {
		if failure == nil {
			return nil
		}
		var recErr error
		if failure.exitCode != nil {
			_, recErr = elog.RecordFailedExitCode(pipelineName, *failure.exitCode)
		} else {
			_, recErr = elog.RecordFailedException(pipelineName, failure.exception)
		}
		return recErr
	})
	defer func() { err = cleanup.Unwind(err) }()

	result, runErr := pl.Execute(ctx, e.fs, reg, e.contextPath)
	if runErr != nil {
		failure = &failureDetail{exception: runErr.Error()}
		return fmt.Errorf("%w: %v", ErrChildProcess, runErr)
	}

	if result.ExitCode == 0 {
		if _, err = elog.RecordFinished(pipelineName); err != nil {
			return fmt.Errorf("%w: recording finish: %v", ErrSnapshot, err)
		}
		return nil
	}

	failure = &failureDetail{exitCode: &result.ExitCode}
	return fmt.Errorf("%w: exit code %d from pipeline %q", ErrExitCode, result.ExitCode, pipelineName)
}

// failureDetail records which terminal failed event the cleanup stack
// should post once Run's body has decided the run did not succeed.
type failureDetail struct {
	exitCode  *int
	exception string
}

// Revert restores the context directory to the state it was in
// immediately before the most recent started event and appends a
// reverted event. It fails with ErrState if there is nothing to revert
// to.
func (e *Engine) Revert() error {
	elog := eventlog.New(e.fs, e.contextPath, e.logger)
	exists, err := elog.Exists()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	if !exists {
		return fmt.Errorf("%w: no event log to revert", ErrState)
	}
	if err := elog.Read(); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshot, err)
	}

	store := snapshot.New(e.fs, e.contextPath, e.logger)
	if _, err := elog.RevertOne(store); err != nil {
		if errors.Is(err, eventlog.ErrNoStartedEvent) {
			return fmt.Errorf("%w: %v", ErrState, err)
		}
		return fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	return nil
}

func formatReport(reg *dependency.Registry, report dependency.Report) string {
	msg := ""
	if len(report.Unlisted) > 0 {
		msg += fmt.Sprintf("not listed in %s: %v; ", dependency.DeploymentsPath(reg.PmaticBase()), report.Unlisted)
	}
	if len(report.Missing) > 0 {
		msg += fmt.Sprintf("missing: %v; ", pathsOf(reg, report.Missing))
	}
	if len(report.BadType) > 0 {
		msg += fmt.Sprintf("wrong type: %v", pathsOf(reg, report.BadType))
	}
	return msg
}

func pathsOf(reg *dependency.Registry, triples []dependency.Triple) []string {
	paths := make([]string, len(triples))
	for i, t := range triples {
		paths[i] = reg.Path(t)
	}
	return paths
}
