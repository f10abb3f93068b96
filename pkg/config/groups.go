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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
)

// ParseGroups reads a group config:
//
//	<header line>
//	<number of groups>
//	<header line>
//	<start time> <eat time>    (once per group)
//
// The pairs are whitespace separated and may span lines. name is only used
// in error messages.
func ParseGroups(r io.Reader, name string) ([]Group, error) {
	fail := func(format string, args ...interface{}) ([]Group, error) {
		return nil, cerrors.ErrParseGroupConfig.GenWithStackByArgs(name, fmt.Sprintf(format, args...))
	}

	sc := bufio.NewScanner(r)
	lines := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		lines++
		return sc.Text(), true
	}

	if _, ok := next(); !ok {
		return fail("missing header")
	}
	line, ok := next()
	if !ok {
		return fail("missing the number of groups")
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return fail("line %d: invalid number of groups %q", lines, strings.TrimSpace(line))
	}
	if n < 0 {
		return fail("line %d: negative number of groups %d", lines, n)
	}
	if _, ok := next(); !ok && n > 0 {
		return fail("missing the group header")
	}

	var values []int
	for {
		line, ok := next()
		if !ok {
			break
		}
		for _, field := range strings.Fields(line) {
			v, err := strconv.Atoi(field)
			if err != nil {
				return fail("line %d: invalid time %q", lines, field)
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return fail("%s", err.Error())
	}
	if len(values) != 2*n {
		return fail("expected %d (start, eat) pairs, got %d values", n, len(values))
	}

	groups := make([]Group, n)
	for g := range groups {
		groups[g] = Group{StartTime: values[2*g], EatTime: values[2*g+1]}
	}
	return groups, nil
}

// LoadGroups reads the group config file at path.
func LoadGroups(path string) ([]Group, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerrors.WrapError(cerrors.ErrParseGroupConfig, err, path)
	}
	defer f.Close()
	return ParseGroups(f, path)
}
