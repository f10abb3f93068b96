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

package clock

import (
	"context"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/require"
)

func TestMockMono(t *testing.T) {
	t.Parallel()

	c := NewMock()
	start := c.Mono()
	c.Add(3 * time.Second)
	require.Equal(t, 3*time.Second, c.Mono().Sub(start))
}

func TestRealMonoIsMonotonic(t *testing.T) {
	t.Parallel()

	c := New()
	a := c.Mono()
	b := c.Mono()
	require.GreaterOrEqual(t, b.Sub(a), time.Duration(0))
}

func TestSleep(t *testing.T) {
	t.Parallel()

	c := NewMock()
	done := make(chan error, 1)
	go func() {
		done <- Sleep(context.Background(), c, time.Minute)
	}()

	select {
	case <-done:
		t.Fatal("sleep must block until the mock clock moves")
	case <-time.After(50 * time.Millisecond):
	}

	// The goroutine may not have armed its timer yet, keep moving the clock.
	var err error
	require.Eventually(t, func() bool {
		c.Add(time.Minute)
		select {
		case err = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, err)
}

func TestSleepCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, NewMock(), time.Hour)
	require.Equal(t, context.Canceled, errors.Cause(err))

	// Non-positive durations never block, even on a canceled context.
	require.NoError(t, Sleep(ctx, NewMock(), 0))
	require.NoError(t, Sleep(ctx, NewMock(), -time.Second))
}
