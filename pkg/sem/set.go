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
	"time"

	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
)

// Action is a semaphore operation.
type Action int

// Semaphore operations. The zero value marks an unused trace slot.
const (
	ActionDown Action = iota + 1
	ActionUp
)

func (a Action) String() string {
	switch a {
	case ActionDown:
		return "down"
	case ActionUp:
		return "up"
	}
	return "undefined"
}

// Tracer is notified of every operation a Client performs. A down is traced
// before the caller blocks, so the last trace of a stuck actor names the
// semaphore it is waiting on.
type Tracer interface {
	Trace(action Action, key Key, reason string)
}

// Set is the semaphore set of one restaurant.
type Set struct {
	reg  *Registry
	sems []*Semaphore
}

// NewSet creates one zero-valued semaphore per key of reg.
func NewSet(reg *Registry) *Set {
	s := &Set{
		reg:  reg,
		sems: make([]*Semaphore, reg.Len()),
	}
	for i := range s.sems {
		s.sems[i] = NewSemaphore()
	}
	return s
}

// Registry returns the key registry of the set.
func (s *Set) Registry() *Registry {
	return s.reg
}

func (s *Set) get(key Key) (*Semaphore, error) {
	i, err := s.reg.Index(key)
	if err != nil {
		return nil, err
	}
	return s.sems[i], nil
}

// Value returns the observed value of the semaphore named key.
func (s *Set) Value(key Key) (int64, error) {
	sm, err := s.get(key)
	if err != nil {
		return 0, err
	}
	return sm.Value(), nil
}

// Waiters returns the observed number of actors blocked on key.
func (s *Set) Waiters(key Key) (int64, error) {
	sm, err := s.get(key)
	if err != nil {
		return 0, err
	}
	return sm.Waiters(), nil
}

// Client returns a view of the set that reports every operation to tracer.
// A nil tracer disables tracing.
func (s *Set) Client(tracer Tracer) *Client {
	return &Client{set: s, tracer: tracer}
}

// Client performs traced operations on a Set. Each actor owns one.
type Client struct {
	set    *Set
	tracer Tracer
}

// Down waits on the semaphore named key. reason says why, it is kept in the
// actor's trace for the deadlock report.
func (c *Client) Down(ctx context.Context, key Key, reason string) error {
	sm, err := c.set.get(key)
	if err != nil {
		return err
	}
	if c.tracer != nil {
		c.tracer.Trace(ActionDown, key, reason)
	}
	label := key.Kind.String()
	blockedGauge.WithLabelValues(label).Inc()
	start := time.Now()
	err = sm.Down(ctx)
	blockedGauge.WithLabelValues(label).Dec()
	if err != nil {
		return cerrors.WrapError(cerrors.ErrSemaphoreDown, err, key.String())
	}
	waitDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	opsCounter.WithLabelValues(label, ActionDown.String()).Inc()
	return nil
}

// Up signals the semaphore named key.
func (c *Client) Up(key Key, reason string) error {
	sm, err := c.set.get(key)
	if err != nil {
		return err
	}
	if c.tracer != nil {
		c.tracer.Trace(ActionUp, key, reason)
	}
	sm.Up()
	opsCounter.WithLabelValues(key.Kind.String(), ActionUp.String()).Inc()
	return nil
}
