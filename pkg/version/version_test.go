// Copyright 2020 PingCAP, Inc.
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

package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveVAndHash(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		version string
		expect  string
	}{
		{"", ""},
		{"v1.2.3", "1.2.3"},
		{"v1.2.3-20-g1a2b3c4", "1.2.3"},
		{"v1.2.3-rc.1-20-g1a2b3c4-dirty", "1.2.3-rc.1"},
		{"1.2.3-dirty", "1.2.3"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expect, removeVAndHash(tc.version), tc.version)
	}
}

func TestReleaseSemver(t *testing.T) {
	old := ReleaseVersion
	defer func() { ReleaseVersion = old }()

	ReleaseVersion = "None"
	require.Equal(t, "", ReleaseSemver())
	ReleaseVersion = "v0.3.0-5-gdeadbeef"
	require.Equal(t, "0.3.0", ReleaseSemver())
}

func TestGet(t *testing.T) {
	oldVersion, oldGo := ReleaseVersion, GoVersion
	defer func() { ReleaseVersion, GoVersion = oldVersion, oldGo }()

	ReleaseVersion, GoVersion = "None", "None"
	info := Get()
	require.Equal(t, runtime.Version(), info.GoVersion)
	require.Equal(t, "", info.Semver)
	require.False(t, info.Dirty)
	require.NotContains(t, info.String(), "Semantic Version")

	ReleaseVersion, GoVersion = "v0.3.0-5-gdeadbeef-dirty", "go1.21.0"
	info = Get()
	require.Equal(t, "go1.21.0", info.GoVersion)
	require.Equal(t, "0.3.0", info.Semver)
	require.True(t, info.Dirty)
	raw := info.String()
	require.Contains(t, raw, "Release Version: v0.3.0-5-gdeadbeef-dirty\n")
	require.Contains(t, raw, "Semantic Version: 0.3.0\n")
	require.Contains(t, raw, "Go Version: go1.21.0\n")
	require.Contains(t, raw, "Built from a modified tree")
}
