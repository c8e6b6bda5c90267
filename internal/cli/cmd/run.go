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

package cmd

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/battmatt/pipe-o-matic/internal/cli/app"
)

// RunFlags holds the parsed flags for the run command.
type RunFlags struct {
	PmaticBase string
	Context    string
	Progress   bool
}

var RunArgs RunFlags

// NewRunCommand builds the "run" subcommand: run <pipeline> --context DIR.
func NewRunCommand(appName string, action cli.ActionFunc) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a pipeline inside a context directory",
		UsageText: fmt.Sprintf("%s run [OPTIONS] PIPELINE", appName),
		Action:    action,
		Flags: []cli.Flag{
			app.PmaticBaseFlag(&RunArgs.PmaticBase),
			&cli.StringFlag{
				Name:        "context",
				Usage:       "Context directory the pipeline runs against",
				Destination: &RunArgs.Context,
				Required:    true,
			},
			&cli.BoolFlag{
				Name:        "progress",
				Usage:       "Show a progress bar while scanning the context directory",
				Destination: &RunArgs.Progress,
			},
		},
	}
}
