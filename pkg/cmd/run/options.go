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
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/semrestaurant/pkg/cmd/util"
	"github.com/pingcap/semrestaurant/pkg/config"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// configOptions are the flags shared by `run` and `check`.
type configOptions struct {
	groupsPath   string
	tunablesPath string

	tunables     *config.Tunables
	timeUnit     time.Duration
	watchdog     time.Duration
	waiterPolicy string

	cfg *config.Config
}

func newConfigOptions() *configOptions {
	return &configOptions{tunables: config.GetDefaultTunables()}
}

func (o *configOptions) addFlags(cmd *cobra.Command) {
	def := config.GetDefaultTunables()
	cmd.Flags().StringVar(&o.groupsPath, "config", "", "Path of the group configuration file")
	cmd.Flags().StringVar(&o.tunablesPath, "tunables", "", "Path of the TOML tunables file")
	cmd.Flags().IntVar(&o.tunables.Tables, "tables", def.Tables, "Number of tables")
	cmd.Flags().DurationVar(&o.timeUnit, "time-unit", def.TimeUnit.Duration(), "Length of one time unit of the group configuration")
	cmd.Flags().DurationVar(&o.watchdog, "watchdog-timeout", def.WatchdogTimeout.Duration(), "Time every actor has to finish before the deadlock report")
	cmd.Flags().StringVar(&o.waiterPolicy, "waiter-policy", string(def.WaiterPolicy), "How the waiter forwards food requests (buffered|immediate)")
	cmd.Flags().Int64Var(&o.tunables.Seed, "seed", def.Seed, "Seed of the random sources, 0 picks a time based one")
	_ = cmd.MarkFlagRequired("config")
}

// complete adapts from the command line args and config files to the data
// required.
func (o *configOptions) complete(cmd *cobra.Command) error {
	tu := config.GetDefaultTunables()
	if len(o.tunablesPath) > 0 {
		if err := util.StrictDecodeFile(o.tunablesPath, "restaurant", tu); err != nil {
			return errors.Trace(err)
		}
	}

	var unknown error
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "tables":
			tu.Tables = o.tunables.Tables
		case "time-unit":
			tu.TimeUnit = config.TomlDuration(o.timeUnit)
		case "watchdog-timeout":
			tu.WatchdogTimeout = config.TomlDuration(o.watchdog)
		case "waiter-policy":
			tu.WaiterPolicy = config.WaiterPolicy(o.waiterPolicy)
		case "seed":
			tu.Seed = o.tunables.Seed
		case "config", "tunables", "log-file", "log-level", "state-log", "metrics-addr":
			// do nothing
		default:
			log.Warn("unknown flag", zap.String("flagName", flag.Name))
			unknown = cerrors.ErrInvalidArgument.GenWithStackByArgs("unknown flag " + flag.Name)
		}
	})
	if unknown != nil {
		return unknown
	}

	groups, err := config.LoadGroups(o.groupsPath)
	if err != nil {
		return errors.Trace(err)
	}
	cfg := &config.Config{Groups: groups, Tunables: tu}
	if err := cfg.ValidateAndAdjust(); err != nil {
		return errors.Trace(err)
	}
	o.tunables = tu
	o.cfg = cfg
	return nil
}
