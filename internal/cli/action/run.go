/*
Copyright © 2025-2026 SUSE LLC
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

package action

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/battmatt/pipe-o-matic/internal/cli/cmd"
	"github.com/battmatt/pipe-o-matic/pkg/dependency"
	"github.com/battmatt/pipe-o-matic/pkg/engine"
	"github.com/battmatt/pipe-o-matic/pkg/log"
)

// Run drives "pmatic run PIPELINE --pmatic-base DIR --context DIR". A
// dependency failure is reported as a table on stderr; any other engine
// error is logged and surfaces as the command's exit error.
func Run(ctx context.Context, c *cli.Command) error {
	args := &cmd.RunArgs
	pipelineName := c.Args().First()
	if pipelineName == "" {
		return fmt.Errorf("run: missing PIPELINE argument")
	}

	logger := log.New()

	opts := []engine.Option{engine.WithLogger(logger)}
	if args.Progress {
		opts = append(opts, engine.WithScanProgress(newScanProgressBar()))
	}

	e := engine.New(args.PmaticBase, args.Context, opts...)
	err := e.Run(ctx, pipelineName)
	if err == nil {
		logger.Info("pipeline %q finished", pipelineName)
		return nil
	}

	var depErr *engine.DependencyError
	if errors.As(err, &depErr) {
		printDependencyReport(depErr.Registry, depErr.Report)
	}

	logger.Error("pipeline %q failed: %v", pipelineName, err)
	return err
}

// printDependencyReport renders each failing (check, dependency) pair as a
// row, grouped and sorted the way spec.md's failure reporting requires.
func printDependencyReport(reg *dependency.Registry, report dependency.Report) {
	table := tablewriter.NewWriter(os.Stderr)
	table.Header([]string{"check", "name@version", "resolved path"})
	for _, t := range report.Unlisted {
		_ = table.Append([]string{"unlisted", triplePair(t), "-"})
	}
	for _, t := range report.Missing {
		_ = table.Append([]string{"missing", triplePair(t), reg.Path(t)})
	}
	for _, t := range report.BadType {
		_ = table.Append([]string{"bad type", triplePair(t), reg.Path(t)})
	}
	_ = table.Render()
}

func triplePair(t dependency.Triple) string {
	return fmt.Sprintf("%s@%s", t.Name, t.Version)
}

func newScanProgressBar() func(path string) {
	bar := progressbar.Default(-1, "scanning")
	return func(string) {
		_ = bar.Add(1)
	}
}
