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
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Version information, set by the linker at build time.
var (
	ReleaseVersion = "None"
	BuildTS        = "None"
	GitHash        = "None"
	GitBranch      = "None"
	GoVersion      = "None"
)

var versionHash = regexp.MustCompile("-[0-9]+-g[0-9a-f]{7,}")

// removeVAndHash turns a `git describe` output like v1.2.0-3-gabcdef0-dirty
// into 1.2.0.
func removeVAndHash(v string) string {
	if v == "" {
		return v
	}
	v = versionHash.ReplaceAllLiteralString(v, "")
	v = strings.TrimSuffix(v, "-dirty")
	return strings.TrimPrefix(v, "v")
}

// ReleaseSemver returns a valid Semantic Versions or an empty if the
// ReleaseVersion is not set at compile time.
func ReleaseSemver() string {
	s := removeVAndHash(ReleaseVersion)
	v, err := semver.NewVersion(s)
	if err != nil {
		return ""
	}
	return v.String()
}

// Info is the build of a simulator binary, served on the status endpoint.
type Info struct {
	Version   string `json:"version"`
	Semver    string `json:"semver,omitempty"`
	GitHash   string `json:"git_hash"`
	GitBranch string `json:"git_branch"`
	BuildTS   string `json:"utc_build_time"`
	GoVersion string `json:"go_version"`
	// Dirty is set when the binary was built from a modified tree.
	Dirty bool `json:"dirty,omitempty"`
}

// Get collects the build information. Binaries built without the linker
// flags report the version of the running Go toolchain.
func Get() Info {
	goVersion := GoVersion
	if goVersion == "None" {
		goVersion = runtime.Version()
	}
	return Info{
		Version:   ReleaseVersion,
		Semver:    ReleaseSemver(),
		GitHash:   GitHash,
		GitBranch: GitBranch,
		BuildTS:   BuildTS,
		GoVersion: goVersion,
		Dirty:     strings.HasSuffix(ReleaseVersion, "-dirty"),
	}
}

// LogVersionInfo prints the version information of the simulator.
func LogVersionInfo(app string) {
	info := Get()
	log.Info("Welcome to "+app,
		zap.String("release-version", info.Version),
		zap.String("git-hash", info.GitHash),
		zap.String("git-branch", info.GitBranch),
		zap.String("utc-build-time", info.BuildTS),
		zap.String("go-version", info.GoVersion),
		zap.Bool("dirty", info.Dirty),
	)
}

// String formats the build information for `semrestaurant version`.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Release Version: %s\n", i.Version)
	if i.Semver != "" && i.Semver != i.Version {
		fmt.Fprintf(&b, "Semantic Version: %s\n", i.Semver)
	}
	fmt.Fprintf(&b, "Git Commit Hash: %s\n", i.GitHash)
	fmt.Fprintf(&b, "Git Branch: %s\n", i.GitBranch)
	fmt.Fprintf(&b, "UTC Build Time: %s\n", i.BuildTS)
	fmt.Fprintf(&b, "Go Version: %s\n", i.GoVersion)
	if i.Dirty {
		b.WriteString("Built from a modified tree\n")
	}
	return b.String()
}
