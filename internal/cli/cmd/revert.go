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

// RevertFlags holds the parsed flags for the revert command.
type RevertFlags struct {
	PmaticBase string
	Context    string
}

var RevertArgs RevertFlags

// NewRevertCommand builds the "revert" subcommand: undoes the effects of
// the most recent started event in a context directory.
func NewRevertCommand(appName string, action cli.ActionFunc) *cli.Command {
	return &cli.Command{
		Name:      "revert",
		Usage:     "Revert a context directory to its state before the most recent run",
		UsageText: fmt.Sprintf("%s revert [OPTIONS]", appName),
		Action:    action,
		Flags: []cli.Flag{
			app.PmaticBaseFlag(&RevertArgs.PmaticBase),
			&cli.StringFlag{
				Name:        "context",
				Usage:       "Context directory to revert",
				Destination: &RevertArgs.Context,
				Required:    true,
			},
		},
	}
}
