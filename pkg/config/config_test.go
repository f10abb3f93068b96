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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDefaultTunables(t *testing.T) {
	t.Parallel()

	tu := GetDefaultTunables()
	require.NoError(t, tu.ValidateAndAdjust())
	require.Equal(t, 2, tu.Tables)
	require.Equal(t, 10, tu.MaxGroups)
	require.Equal(t, time.Microsecond, tu.TimeUnit.Duration())
	require.Equal(t, 5*time.Second, tu.WatchdogTimeout.Duration())
	require.Equal(t, WaiterPolicyBuffered, tu.WaiterPolicy)
	require.Equal(t, 150*time.Microsecond, tu.Units(150))

	// The defaults are never shared.
	tu.Tables = 7
	require.Equal(t, 2, GetDefaultTunables().Tables)
}

func TestDecodeTunables(t *testing.T) {
	t.Parallel()

	tu := GetDefaultTunables()
	_, err := toml.Decode(`
tables = 4
time-unit = "1ms"
watchdog-timeout = "250ms"
waiter-policy = "immediate"
seed = 42
`, tu)
	require.NoError(t, err)
	require.NoError(t, tu.ValidateAndAdjust())
	require.Equal(t, 4, tu.Tables)
	require.Equal(t, time.Millisecond, tu.TimeUnit.Duration())
	require.Equal(t, 250*time.Millisecond, tu.WatchdogTimeout.Duration())
	require.Equal(t, WaiterPolicyImmediate, tu.WaiterPolicy)
	require.Equal(t, int64(42), tu.Seed)
	// Untouched keys keep their defaults.
	require.Equal(t, 100, tu.CookMin)

	_, err = toml.Decode(`time-unit = "soon"`, GetDefaultTunables())
	require.Error(t, err)

	text, err := TomlDuration(3 * time.Second).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "3s", string(text))
}

func TestValidateTunables(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		adjust func(tu *Tunables)
		errMsg string
	}{
		{func(tu *Tunables) { tu.Tables = 0 }, "tables must be in"},
		{func(tu *Tunables) { tu.Tables = 65 }, "tables must be in"},
		{func(tu *Tunables) { tu.MaxGroups = 0 }, "max-groups"},
		{func(tu *Tunables) { tu.TimeUnit = 0 }, "time-unit"},
		{func(tu *Tunables) { tu.EatDev = -1 }, "eat-dev"},
		{func(tu *Tunables) { tu.CookMax = -1 }, "cook-max"},
		{func(tu *Tunables) { tu.WaiterPolicy = "lazy" }, "unknown waiter-policy"},
	}
	for _, tc := range testCases {
		tu := GetDefaultTunables()
		tc.adjust(tu)
		err := tu.ValidateAndAdjust()
		require.True(t, cerrors.ErrInvalidConfig.Equal(err), tc.errMsg)
		require.Contains(t, err.Error(), tc.errMsg)
	}

	tu := GetDefaultTunables()
	tu.WatchdogTimeout = 0
	tu.DebugRingSize = -3
	tu.WaiterPolicy = ""
	require.NoError(t, tu.ValidateAndAdjust())
	require.Equal(t, 5*time.Second, tu.WatchdogTimeout.Duration())
	require.Equal(t, 10, tu.DebugRingSize)
	require.Equal(t, WaiterPolicyBuffered, tu.WaiterPolicy)
}

func TestParseGroups(t *testing.T) {
	t.Parallel()

	groups, err := ParseGroups(strings.NewReader(`Restaurant configuration
3
start eat
10 50
0 20
5
7
`), "config.txt")
	require.NoError(t, err)
	require.Equal(t, []Group{{10, 50}, {0, 20}, {5, 7}}, groups)
}

func TestParseGroupsErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		content string
		errMsg  string
	}{
		{"", "missing header"},
		{"header\n", "missing the number of groups"},
		{"header\nmany\n", "invalid number of groups"},
		{"header\n-1\n", "negative number of groups"},
		{"header\n2\n", "missing the group header"},
		{"header\n2\nstart eat\n1 2\n", "expected 2 (start, eat) pairs, got 2 values"},
		{"header\n1\nstart eat\n1 2 3\n", "expected 1 (start, eat) pairs, got 3 values"},
		{"header\n1\nstart eat\n1 x\n", "line 4: invalid time \"x\""},
	}
	for _, tc := range testCases {
		_, err := ParseGroups(strings.NewReader(tc.content), "bad.txt")
		require.True(t, cerrors.ErrParseGroupConfig.Equal(err), tc.content)
		require.Contains(t, err.Error(), tc.errMsg)
		require.Contains(t, err.Error(), "bad.txt")
	}
}

func TestLoadGroups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.txt")
	require.NoError(t, os.WriteFile(path, []byte("header\n1\nstart eat\n3 4\n"), 0o644))
	groups, err := LoadGroups(path)
	require.NoError(t, err)
	require.Equal(t, []Group{{3, 4}}, groups)

	_, err = LoadGroups(filepath.Join(dir, "missing.txt"))
	require.True(t, cerrors.Is(err, cerrors.ErrParseGroupConfig))
}

func TestConfigValidateAndAdjust(t *testing.T) {
	t.Parallel()

	cfg := &Config{Groups: []Group{{1, 2}}}
	require.NoError(t, cfg.ValidateAndAdjust())
	require.NotNil(t, cfg.Tunables)
	require.Contains(t, cfg.String(), `"tables":2`)

	cfg = &Config{Tunables: GetDefaultTunables()}
	require.True(t, cerrors.ErrInvalidConfig.Equal(cfg.ValidateAndAdjust()))

	cfg.Tunables.MaxGroups = 2
	cfg.Groups = []Group{{1, 1}, {2, 2}, {3, 3}}
	require.True(t, cerrors.ErrInvalidConfig.Equal(cfg.ValidateAndAdjust()))

	cfg.Groups = []Group{{1, 1}, {-2, 2}}
	err := cfg.ValidateAndAdjust()
	require.True(t, cerrors.ErrInvalidConfig.Equal(err))
	require.Contains(t, err.Error(), "group 1 has a negative time")
}
