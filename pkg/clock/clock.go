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
	"time"

	bclock "github.com/benbjohnson/clock"
	"github.com/gavv/monotime"
	"github.com/pingcap/errors"
)

type (
	// Timer is the timer type of the underlying clock.
	Timer = bclock.Timer
	// MonotonicTime is a point on the monotonic clock.
	MonotonicTime time.Duration
)

var unixEpoch = time.Unix(0, 0)

// Clock is the time source of the simulation. Actors sleep on it and the
// watchdog arms its deadline on it, so tests can swap in a Mock.
type Clock interface {
	bclock.Clock
	Mono() MonotonicTime
}

type withRealMono struct {
	bclock.Clock
}

func (r withRealMono) Mono() MonotonicTime {
	return MonotonicTime(monotime.Now())
}

// Mock is a Clock whose time only moves when the test says so.
type Mock struct {
	*bclock.Mock
}

// Mono implements Clock.
func (r Mock) Mono() MonotonicTime {
	return MonotonicTime(r.Now().Sub(unixEpoch))
}

// New returns the real clock.
func New() Clock {
	return withRealMono{bclock.New()}
}

// NewMock returns a mock clock.
func NewMock() *Mock {
	return &Mock{bclock.NewMock()}
}

// Sub returns the duration m - other.
func (m MonotonicTime) Sub(other MonotonicTime) time.Duration {
	return time.Duration(m - other)
}

// Sleep pauses the caller for d on the clock c. It returns early with the
// context error if ctx is done first. Non-positive durations return at once.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := c.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	case <-timer.C:
		return nil
	}
}
