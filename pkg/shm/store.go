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

package shm

import (
	"context"

	"github.com/pingcap/errors"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/sem"
	"go.uber.org/atomic"
)

// StateSaver persists a snapshot of the shared state. It is called inside
// the critical section, so the state does not change while it runs.
type StateSaver interface {
	SaveState(st *model.FullState) error
}

// Store owns the shared state of one restaurant. Actors never touch the
// state directly, they attach a Handle and lock it.
type Store struct {
	set   *sem.Set
	saver StateSaver

	// state is guarded by the Mutex semaphore of set.
	state *model.FullState

	published         atomic.Pointer[model.FullState]
	receptionistInbox atomic.Pointer[model.Request]
	waiterInbox       atomic.Pointer[model.Request]
}

// NewStore creates a store around state. saver may be nil.
func NewStore(set *sem.Set, state *model.FullState, saver StateSaver) *Store {
	s := &Store{
		set:   set,
		saver: saver,
		state: state,
	}
	s.published.Store(state.Clone())
	s.receptionistInbox.Store(&model.Request{})
	s.waiterInbox.Store(&model.Request{})
	return s
}

// Semaphores returns the semaphore set of the store.
func (s *Store) Semaphores() *sem.Set {
	return s.set
}

// Snapshot returns the state as of the last save. The result must not be
// modified.
func (s *Store) Snapshot() *model.FullState {
	return s.published.Load()
}

// Mailboxes returns the current contents of the receptionist and waiter
// mailboxes. A drained mailbox reads as an empty request.
func (s *Store) Mailboxes() (receptionist, waiter model.Request) {
	return *s.receptionistInbox.Load(), *s.waiterInbox.Load()
}

// Attach returns a handle that performs every semaphore operation through
// client.
func (s *Store) Attach(client *sem.Client) *Handle {
	return &Handle{store: s, client: client}
}

func (s *Store) save() error {
	if s.saver != nil {
		if err := s.saver.SaveState(s.state); err != nil {
			return cerrors.WrapError(cerrors.ErrSaveState, err)
		}
	}
	s.published.Store(s.state.Clone())
	return nil
}

// Handle is an actor's view of the store.
type Handle struct {
	store  *Store
	client *sem.Client
}

// Client returns the semaphore client of the handle.
func (h *Handle) Client() *sem.Client {
	return h.client
}

// Lock acquires the mutex. The state is only reachable through the returned
// guard until it is unlocked.
func (h *Handle) Lock(ctx context.Context, reason string) (*Guard, error) {
	if err := h.client.Down(ctx, sem.Mutex(), reason); err != nil {
		return nil, errors.Trace(err)
	}
	return &Guard{h: h}, nil
}

// Update locks the state, runs fn, saves the state and unlocks. The state is
// not saved when fn fails, the lock is released in every case.
func (h *Handle) Update(ctx context.Context, reason string, fn func(st *model.FullState) error) error {
	g, err := h.Lock(ctx, "pre-"+reason)
	if err != nil {
		return errors.Trace(err)
	}
	st, err := g.State()
	if err == nil {
		err = fn(st)
	}
	if err == nil {
		err = g.Save()
	}
	if uerr := g.Unlock(reason); err == nil {
		err = uerr
	}
	return errors.Trace(err)
}

// View locks the state, runs fn and unlocks without saving. fn must not
// modify the state.
func (h *Handle) View(ctx context.Context, reason string, fn func(st *model.FullState)) error {
	g, err := h.Lock(ctx, reason)
	if err != nil {
		return errors.Trace(err)
	}
	fn(g.h.store.state)
	return errors.Trace(g.Unlock(reason))
}

// Guard grants access to the shared state while the mutex is held.
type Guard struct {
	h        *Handle
	released bool
}

// State returns the mutable shared state.
func (g *Guard) State() (*model.FullState, error) {
	if g.released {
		return nil, cerrors.ErrGuardReleased.GenWithStackByArgs()
	}
	return g.h.store.state, nil
}

// Save persists and publishes the current state.
func (g *Guard) Save() error {
	if g.released {
		return cerrors.ErrGuardReleased.GenWithStackByArgs()
	}
	return g.h.store.save()
}

// Unlock releases the mutex. A guard can be unlocked only once.
func (g *Guard) Unlock(reason string) error {
	if g.released {
		return cerrors.ErrGuardReleased.GenWithStackByArgs()
	}
	g.released = true
	return errors.Trace(g.h.client.Up(sem.Mutex(), reason))
}
