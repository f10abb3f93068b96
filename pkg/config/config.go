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

package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pingcap/errors"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/model"
)

// WaiterPolicy is the way the waiter relays food orders to the chef.
type WaiterPolicy string

const (
	// WaiterPolicyBuffered queues orders while the chef is busy and hands the
	// head of the queue over once the chef delivered the previous order.
	WaiterPolicyBuffered WaiterPolicy = "buffered"
	// WaiterPolicyImmediate acknowledges a food request only once the chef
	// has taken the order. Groups ordering while the chef is busy stay
	// blocked at their table until their turn comes.
	WaiterPolicyImmediate WaiterPolicy = "immediate"
)

// TomlDuration is a duration that is written as a string in TOML, e.g. "5s".
type TomlDuration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *TomlDuration) UnmarshalText(text []byte) error {
	du, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Trace(err)
	}
	*d = TomlDuration(du)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d TomlDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns d as a time.Duration.
func (d TomlDuration) Duration() time.Duration {
	return time.Duration(d)
}

// Tunables are the constants of the simulation.
type Tunables struct {
	// Tables is the number of tables of the restaurant.
	Tables int `toml:"tables" json:"tables"`
	// MaxGroups bounds the number of groups a group config may describe.
	MaxGroups int `toml:"max-groups" json:"max-groups"`
	// TimeUnit is the length of one unit of the group config times and of
	// the cook time.
	TimeUnit TomlDuration `toml:"time-unit" json:"time-unit"`
	// StartDev and EatDev scale the noise added to arrival and eating times.
	StartDev float64 `toml:"start-dev" json:"start-dev"`
	EatDev   float64 `toml:"eat-dev" json:"eat-dev"`
	// A meal takes CookMin plus a uniform draw in [0, CookMax) time units.
	CookMin int `toml:"cook-min" json:"cook-min"`
	CookMax int `toml:"cook-max" json:"cook-max"`

	WatchdogTimeout TomlDuration `toml:"watchdog-timeout" json:"watchdog-timeout"`
	DebugRingSize   int          `toml:"debug-ring-size" json:"debug-ring-size"`
	WaiterPolicy    WaiterPolicy `toml:"waiter-policy" json:"waiter-policy"`
	// Seed feeds the random sources of the actors. Zero picks a time based
	// seed.
	Seed int64 `toml:"seed" json:"seed"`
}

var defaultTunables = &Tunables{
	Tables:          2,
	MaxGroups:       10,
	TimeUnit:        TomlDuration(time.Microsecond),
	StartDev:        10.0,
	EatDev:          10.0,
	CookMin:         100,
	CookMax:         100,
	WatchdogTimeout: TomlDuration(5 * time.Second),
	DebugRingSize:   10,
	WaiterPolicy:    WaiterPolicyBuffered,
	Seed:            0,
}

// GetDefaultTunables returns the default tunables.
func GetDefaultTunables() *Tunables {
	return defaultTunables.Clone()
}

// Clone returns a copy of t.
func (t *Tunables) Clone() *Tunables {
	cp := *t
	return &cp
}

// ValidateAndAdjust validates the tunables.
func (t *Tunables) ValidateAndAdjust() error {
	if t.Tables < 1 || t.Tables > model.MaxTables {
		return cerrors.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("tables must be in [1, %d], got %d", model.MaxTables, t.Tables))
	}
	if t.MaxGroups < 1 {
		return cerrors.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("max-groups must be positive, got %d", t.MaxGroups))
	}
	if t.TimeUnit <= 0 {
		return cerrors.ErrInvalidConfig.GenWithStackByArgs("time-unit must be positive")
	}
	if t.StartDev < 0 || t.EatDev < 0 {
		return cerrors.ErrInvalidConfig.GenWithStackByArgs("start-dev and eat-dev must not be negative")
	}
	if t.CookMin < 0 || t.CookMax < 0 {
		return cerrors.ErrInvalidConfig.GenWithStackByArgs("cook-min and cook-max must not be negative")
	}
	if t.WatchdogTimeout <= 0 {
		t.WatchdogTimeout = defaultTunables.WatchdogTimeout
	}
	if t.DebugRingSize <= 0 {
		t.DebugRingSize = defaultTunables.DebugRingSize
	}
	switch t.WaiterPolicy {
	case "":
		t.WaiterPolicy = WaiterPolicyBuffered
	case WaiterPolicyBuffered, WaiterPolicyImmediate:
	default:
		return cerrors.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("unknown waiter-policy %q", t.WaiterPolicy))
	}
	return nil
}

// Units converts n time units into a duration.
func (t *Tunables) Units(n float64) time.Duration {
	return time.Duration(n * float64(t.TimeUnit))
}

// Group is the timing of one customer group, in time units.
type Group struct {
	StartTime int `json:"start-time"`
	EatTime   int `json:"eat-time"`
}

// Config is everything a simulation needs.
type Config struct {
	Groups   []Group   `json:"groups"`
	Tunables *Tunables `json:"tunables"`
}

// ValidateAndAdjust validates the tunables and the groups.
func (c *Config) ValidateAndAdjust() error {
	if c.Tunables == nil {
		c.Tunables = GetDefaultTunables()
	}
	if err := c.Tunables.ValidateAndAdjust(); err != nil {
		return errors.Trace(err)
	}
	n := len(c.Groups)
	if n < 1 || n > c.Tunables.MaxGroups {
		return cerrors.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("the number of groups must be in [1, %d], got %d", c.Tunables.MaxGroups, n))
	}
	for g, grp := range c.Groups {
		if grp.StartTime < 0 || grp.EatTime < 0 {
			return cerrors.ErrInvalidConfig.GenWithStackByArgs(
				fmt.Sprintf("group %d has a negative time", g))
		}
	}
	return nil
}

// String returns the config as JSON.
func (c *Config) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(data)
}
