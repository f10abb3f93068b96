// Copyright 2021 PingCAP, Inc.
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

package util

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pingcap/semrestaurant/pkg/config"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestStrictDecodeValidFile(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "restaurant.toml")
	configContent := `
tables = 3
time-unit = "10us"
cook-min = 50
waiter-policy = "immediate"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	tu := config.GetDefaultTunables()
	require.NoError(t, StrictDecodeFile(configPath, "restaurant", tu))
	require.Equal(t, 3, tu.Tables)
	require.Equal(t, 10*time.Microsecond, tu.TimeUnit.Duration())
	require.Equal(t, 50, tu.CookMin)
	require.Equal(t, config.WaiterPolicyImmediate, tu.WaiterPolicy)
}

func TestStrictDecodeInvalidFile(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "restaurant.toml")
	configContent := `
tables = 3
chairs = 12

[kitchen]
ovens = 2
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	tu := config.GetDefaultTunables()
	err := StrictDecodeFile(configPath, "restaurant", tu)
	require.True(t, cerrors.ErrInvalidConfig.Equal(err))
	require.Contains(t, err.Error(), "contained unknown configuration options: chairs, kitchen")

	require.NoError(t, StrictDecodeFile(configPath, "restaurant", config.GetDefaultTunables(), "chairs", "kitchen"))

	err = StrictDecodeFile(filepath.Join(t.TempDir(), "missing.toml"), "restaurant", tu)
	require.True(t, cerrors.Is(err, cerrors.ErrInvalidConfig))
}

func TestJSONPrint(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{}
	var b bytes.Buffer
	cmd.SetOut(&b)

	require.NoError(t, JSONPrint(cmd, map[string]int{"tables": 2}))
	require.Equal(t, "{\n  \"tables\": 2\n}\n", b.String())
}
