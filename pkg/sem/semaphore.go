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

package sem

import (
	"context"

	"github.com/pingcap/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// maxValue bounds the number of pending signals of one semaphore.
const maxValue = 1 << 30

// Semaphore is a counting semaphore starting at zero. Signals issued before a
// wait are kept, so an Up never gets lost.
//
// It is a weighted semaphore whose whole weight is taken at creation: Up
// gives one unit back and Down takes one unit.
type Semaphore struct {
	w *semaphore.Weighted

	// value and waiters are only for observers, they may lag behind the
	// real state of w for a moment.
	value   atomic.Int64
	waiters atomic.Int64
}

// NewSemaphore creates a semaphore with value zero.
func NewSemaphore() *Semaphore {
	w := semaphore.NewWeighted(maxValue)
	if !w.TryAcquire(maxValue) {
		panic("a fresh weighted semaphore must be free")
	}
	return &Semaphore{w: w}
}

// Down blocks until the value is positive and decrements it. It returns the
// context error if ctx is done first, leaving the value untouched.
func (s *Semaphore) Down(ctx context.Context) error {
	s.waiters.Inc()
	err := s.w.Acquire(ctx, 1)
	s.waiters.Dec()
	if err != nil {
		return errors.Trace(err)
	}
	s.value.Dec()
	return nil
}

// Up increments the value, waking one blocked Down if there is any.
func (s *Semaphore) Up() {
	if s.value.Inc() > maxValue {
		panic("semaphore value overflow")
	}
	s.w.Release(1)
}

// Value returns the observed value.
func (s *Semaphore) Value() int64 {
	return s.value.Load()
}

// Waiters returns the observed number of blocked Down calls.
func (s *Semaphore) Waiters() int64 {
	return s.waiters.Load()
}
