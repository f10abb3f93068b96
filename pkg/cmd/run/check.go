// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package run

import (
	"github.com/pingcap/semrestaurant/pkg/cmd/util"
	"github.com/spf13/cobra"
)

// NewCmdCheck creates the `check` command. It loads and validates the
// configuration without opening the restaurant, then prints it.
func NewCmdCheck() *cobra.Command {
	o := newConfigOptions()

	command := &cobra.Command{
		Use:   "check",
		Short: "Validate the group configuration and the tunables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.complete(cmd); err != nil {
				return err
			}
			return util.JSONPrint(cmd, o.cfg)
		},
	}

	o.addFlags(command)

	return command
}
