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

package diag

import (
	"sync"

	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/sem"
)

// Trace is a read-only copy of one actor's ring.
type Trace struct {
	Actor  model.ActorID
	Events []Event
}

// Board holds the rings of every actor of a restaurant.
type Board struct {
	ringSize int
	reg      *sem.Registry

	mu      sync.RWMutex
	order   []model.ActorID
	byActor map[model.ActorID]*Ring
}

// NewBoard creates a board whose rings hold ringSize events each.
func NewBoard(ringSize int, reg *sem.Registry) *Board {
	return &Board{
		ringSize: ringSize,
		reg:      reg,
		byActor:  make(map[model.ActorID]*Ring),
	}
}

// Register creates the ring of id. Every actor registers once.
func (b *Board) Register(id model.ActorID) (*Ring, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byActor[id]; ok {
		return nil, cerrors.ErrActorAlreadyExists.GenWithStackByArgs(id.String())
	}
	r := NewRing(b.ringSize, b.reg)
	b.byActor[id] = r
	b.order = append(b.order, id)
	return r, nil
}

// Actors returns the registered actors in registration order.
func (b *Board) Actors() []model.ActorID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.ActorID(nil), b.order...)
}

// Snapshot copies the rings of all actors in registration order.
func (b *Board) Snapshot() []Trace {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Trace, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, Trace{Actor: id, Events: b.byActor[id].Snapshot()})
	}
	return out
}
