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

package restaurant

import (
	"context"
	"math/rand"

	"github.com/pingcap/errors"
	"github.com/pingcap/semrestaurant/pkg/clock"
	"github.com/pingcap/semrestaurant/pkg/config"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/sem"
	"github.com/pingcap/semrestaurant/pkg/shm"
	"go.uber.org/zap"
)

// Env is everything an actor needs. It is built once when the actor starts
// and owned by that actor alone.
type Env struct {
	ID       model.ActorID
	Handle   *shm.Handle
	Clock    clock.Clock
	Rand     *rand.Rand
	Tunables *config.Tunables
	Logger   *zap.Logger
}

func (e *Env) client() *sem.Client {
	return e.Handle.Client()
}

func (e *Env) down(ctx context.Context, key sem.Key, reason string) error {
	return errors.Trace(e.client().Down(ctx, key, reason))
}

func (e *Env) up(key sem.Key, reason string) error {
	return errors.Trace(e.client().Up(key, reason))
}

// sleep pauses the actor for units time units. Non-positive values do not
// sleep at all.
func (e *Env) sleep(ctx context.Context, units float64) error {
	return errors.Trace(clock.Sleep(ctx, e.Clock, e.Tunables.Units(units)))
}

// update changes the shared state under the mutex and saves it. The
// transition is logged once the mutex is released.
func (e *Env) update(ctx context.Context, transition string, fn func(st *model.FullState) error) error {
	if err := e.Handle.Update(ctx, transition, fn); err != nil {
		return errors.Trace(err)
	}
	e.Logger.Debug("state saved", zap.String("transition", transition))
	return nil
}

// Noise approximates a normal draw with mean 0 and deviation dev by the sum
// of twelve uniform samples.
func Noise(r *rand.Rand, dev float64) float64 {
	sum := 0.0
	for i := 0; i < 12; i++ {
		sum += r.Float64()
	}
	return (sum - 6) * dev
}
