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

package main

import (
	"context"
	"log"
	"os"

	"github.com/battmatt/pipe-o-matic/internal/cli/action"
	"github.com/battmatt/pipe-o-matic/internal/cli/app"
	"github.com/battmatt/pipe-o-matic/internal/cli/cmd"
)

func main() {
	appName := app.Name()
	root := app.New(
		"Run and revert reproducible pipelines against a context directory",
		nil, nil, nil,
		cmd.NewRunCommand(appName, action.Run),
		cmd.NewRevertCommand(appName, action.Revert),
	)

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
