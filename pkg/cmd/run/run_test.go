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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phayes/freeport"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/semrestaurant/pkg/config"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/logutil"
	"github.com/pingcap/semrestaurant/pkg/version"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	groups := writeFile(t, dir, "groups.txt", "Restaurant\n2\nstart eat\n1 2\n3 4\n")
	tunables := writeFile(t, dir, "tunables.toml", "tables = 4\ncook-min = 7\nwaiter-policy = \"immediate\"\n")

	cmd := NewCmdCheck()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--config", groups,
		"--tunables", tunables,
		"--tables", "3",
		"--time-unit", "2ms",
	})
	require.NoError(t, cmd.Execute())

	var cfg config.Config
	require.NoError(t, json.Unmarshal(out.Bytes(), &cfg))
	require.Equal(t, []config.Group{{StartTime: 1, EatTime: 2}, {StartTime: 3, EatTime: 4}}, cfg.Groups)
	// Explicit flags win over the tunables file.
	require.Equal(t, 3, cfg.Tunables.Tables)
	require.Equal(t, 2*time.Millisecond, cfg.Tunables.TimeUnit.Duration())
	require.Equal(t, 7, cfg.Tunables.CookMin)
	require.Equal(t, config.WaiterPolicyImmediate, cfg.Tunables.WaiterPolicy)
}

func TestCheckCommandRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	groups := writeFile(t, dir, "groups.txt", "Restaurant\n1\nstart eat\n1 2\n")
	unknown := writeFile(t, dir, "tunables.toml", "chairs = 4\n")

	o := newConfigOptions()
	cmd := &cobra.Command{}
	o.addFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--config", groups, "--tunables", unknown}))
	err := o.complete(cmd)
	require.True(t, cerrors.ErrInvalidConfig.Equal(err), "%v", err)

	cmd = NewCmdCheck()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", groups, "--tables", "0"})
	require.Error(t, cmd.Execute())

	cmd = NewCmdCheck()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.txt")})
	err = cmd.Execute()
	require.True(t, cerrors.Is(err, cerrors.ErrParseGroupConfig), "%v", err)
}

func TestServeStatus(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	stop, err := serveStatus(addr)
	require.NoError(t, err)
	defer stop()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "restaurant_reception_waitlist_length")
	require.Contains(t, string(body), "go_goroutines")

	resp, err = http.Get("http://" + addr + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		version.Info
		Pid int `json:"pid"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, os.Getpid(), status.Pid)
	require.Equal(t, version.ReleaseVersion, status.Version)
	require.NotEmpty(t, status.GoVersion)

	defer func() {
		require.NoError(t, logutil.SetLogLevel("info"))
	}()
	postLevel := func(body string) int {
		resp, err := http.Post("http://"+addr+"/admin/log", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}
	require.Equal(t, http.StatusOK, postLevel(`"debug"`))
	require.Equal(t, zapcore.DebugLevel, log.GetLevel())
	require.Equal(t, http.StatusBadRequest, postLevel(`"chatty"`))
	require.Equal(t, http.StatusBadRequest, postLevel(`debug`))
	require.Equal(t, zapcore.DebugLevel, log.GetLevel())

	resp, err = http.Get("http://" + addr + "/admin/log")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestFailureKind(t *testing.T) {
	t.Parallel()

	violation := cerrors.WrapError(cerrors.ErrActorFailed,
		cerrors.ErrTableNotAssigned.GenWithStackByArgs(2), "waiter")
	testCases := []struct {
		err      error
		expected string
	}{
		{cerrors.ErrInvalidConfig.GenWithStackByArgs("tables must be in [1, 64], got 0"), "setup"},
		{errors.Trace(cerrors.ErrParseGroupConfig.GenWithStackByArgs("config.txt", "eof")), "setup"},
		{cerrors.ErrDeadlock.GenWithStackByArgs(time.Second), "deadlock"},
		{errors.Trace(multierr.Append(violation, cerrors.WrapError(cerrors.ErrActorFailed,
			cerrors.ErrUnexpectedRequest.GenWithStackByArgs("chef", "BILL_REQUEST"), "chef"))), "protocol-violation"},
		{errors.Trace(context.Canceled), "canceled"},
		{errors.New("disk full"), "unknown"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, failureKind(tc.err), "%v", tc.err)
	}
}
