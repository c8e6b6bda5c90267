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

	"github.com/urfave/cli/v3"

	"github.com/battmatt/pipe-o-matic/internal/cli/cmd"
	"github.com/battmatt/pipe-o-matic/pkg/engine"
	"github.com/battmatt/pipe-o-matic/pkg/log"
)

// Revert drives "pmatic revert --pmatic-base DIR --context DIR".
func Revert(ctx context.Context, c *cli.Command) error {
	args := &cmd.RevertArgs
	logger := log.New()

	e := engine.New(args.PmaticBase, args.Context, engine.WithLogger(logger))
	if err := e.Revert(); err != nil {
		logger.Error("revert failed: %v", err)
		return err
	}
	logger.Info("reverted context %q", args.Context)
	return nil
}
