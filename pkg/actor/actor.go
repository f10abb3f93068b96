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

package actor

import (
	"context"
	"sync"
	"time"

	"github.com/pingcap/log"
	"github.com/pingcap/semrestaurant/pkg/clock"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/logutil"
	"github.com/pingcap/semrestaurant/pkg/model"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Actor is one independently scheduled role of the restaurant.
type Actor interface {
	// Run performs the whole lifecycle of the actor and returns when it is
	// done. The ctx is only for the forced termination of the system, an
	// actor must return once it is canceled.
	Run(ctx context.Context) error
}

// Func adapts a function to Actor.
type Func func(ctx context.Context) error

// Run implements Actor.
func (f Func) Run(ctx context.Context) error {
	return f(ctx)
}

type proc struct {
	id      model.ActorID
	alive   atomic.Bool
	elapsed atomic.Duration
	err     error
}

// System runs every actor in its own goroutine.
//
// Actors are spawned one by one, then the system is sealed. Done is closed
// once the system is sealed and every actor has returned.
type System struct {
	name  string
	clock clock.Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	procs  map[model.ActorID]*proc
	order  []model.ActorID
	sealed bool

	wg         sync.WaitGroup
	done       chan struct{}
	terminated atomic.Bool
}

// NewSystem creates an actor system. Canceling ctx terminates every actor.
func NewSystem(ctx context.Context, name string, clk clock.Clock) *System {
	ctx, cancel := context.WithCancel(ctx)
	return &System{
		name:   name,
		clock:  clk,
		ctx:    ctx,
		cancel: cancel,
		procs:  make(map[model.ActorID]*proc),
		done:   make(chan struct{}),
	}
}

// Spawn starts the actor a in a new goroutine.
func (s *System) Spawn(id model.ActorID, a Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return cerrors.ErrInvalidArgument.GenWithStackByArgs("spawn on a sealed actor system")
	}
	if _, ok := s.procs[id]; ok {
		return cerrors.ErrActorAlreadyExists.GenWithStackByArgs(id.String())
	}
	p := &proc{id: id}
	p.alive.Store(true)
	s.procs[id] = p
	s.order = append(s.order, id)

	totalWorkers.WithLabelValues(s.name).Inc()
	workingWorkers.WithLabelValues(s.name).Inc()
	s.wg.Add(1)
	go s.run(p, a)
	return nil
}

func (s *System) run(p *proc, a Actor) {
	defer s.wg.Done()
	start := s.clock.Mono()
	log.Debug("actor started", zap.String("system", s.name), zap.Stringer("actor", p.id))

	err := a.Run(s.ctx)

	elapsed := s.clock.Mono().Sub(start)
	p.elapsed.Store(elapsed)
	workingDuration.WithLabelValues(s.name).Add(elapsed.Seconds())
	workingWorkers.WithLabelValues(s.name).Dec()

	switch {
	case err == nil:
		log.Debug("actor finished", zap.String("system", s.name),
			zap.Stringer("actor", p.id), zap.Duration("elapsed", elapsed))
	case s.ctx.Err() != nil:
		log.Info("actor terminated", zap.String("system", s.name),
			zap.Stringer("actor", p.id),
			logutil.ZapErrorFilter(err, context.Canceled, context.DeadlineExceeded))
	default:
		log.Error("actor failed", zap.String("system", s.name),
			zap.Stringer("actor", p.id), zap.Error(err))
		s.mu.Lock()
		p.err = cerrors.WrapError(cerrors.ErrActorFailed, err, p.id.String())
		s.mu.Unlock()
	}
	p.alive.Store(false)
}

// Seal marks the end of spawning. Done can only be closed after Seal.
func (s *System) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.sealed = true
	go func() {
		s.wg.Wait()
		s.cancel()
		totalWorkers.WithLabelValues(s.name).Sub(float64(len(s.order)))
		close(s.done)
	}()
}

// Done returns a channel closed when every actor has returned.
func (s *System) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until every actor has returned and returns Err. The system
// must be sealed.
func (s *System) Wait() error {
	<-s.done
	return s.Err()
}

// Alive returns true if the actor was spawned and has not returned yet.
func (s *System) Alive(id model.ActorID) bool {
	s.mu.Lock()
	p, ok := s.procs[id]
	s.mu.Unlock()
	return ok && p.alive.Load()
}

// Elapsed returns how long a finished actor ran.
func (s *System) Elapsed(id model.ActorID) time.Duration {
	s.mu.Lock()
	p, ok := s.procs[id]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return p.elapsed.Load()
}

// Actors returns the spawned actors in spawn order.
func (s *System) Actors() []model.ActorID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ActorID(nil), s.order...)
}

// Err combines the failures of all actors in spawn order. Actors that return
// after the system is canceled are not failures.
func (s *System) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	for _, id := range s.order {
		err = multierr.Append(err, s.procs[id].err)
	}
	return err
}

// Terminate unconditionally cancels every actor. It does not wait for them.
func (s *System) Terminate() {
	if s.terminated.CompareAndSwap(false, true) {
		log.Warn("terminating all actors", zap.String("system", s.name))
	}
	s.cancel()
}
