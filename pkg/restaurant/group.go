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

	"github.com/pingcap/errors"
	"github.com/pingcap/semrestaurant/pkg/config"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/sem"
	"go.uber.org/zap"
)

// Group is a party of customers going once through the restaurant.
type Group struct {
	env    *Env
	id     model.GroupID
	timing config.Group
	table  model.TableID
}

// NewGroup creates the actor of group id. timing is the group's line of the
// group config.
func NewGroup(env *Env, id model.GroupID, timing config.Group) *Group {
	return &Group{
		env:    env,
		id:     id,
		timing: timing,
		table:  model.NoTable,
	}
}

// Run implements actor.Actor.
func (g *Group) Run(ctx context.Context) error {
	steps := []func(context.Context) error{
		g.goToRestaurant,
		g.checkInAtReception,
		g.orderFood,
		g.waitFood,
		g.eat,
		g.checkOutAtReception,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return errors.Trace(err)
		}
	}
	g.env.Logger.Info("group left the restaurant")
	return nil
}

func (g *Group) setStatus(ctx context.Context, status model.GroupStatus) error {
	return g.env.update(ctx, status.String(), func(st *model.FullState) error {
		st.St.Groups[g.id] = status
		return nil
	})
}

func (g *Group) goToRestaurant(ctx context.Context) error {
	delay := float64(g.timing.StartTime) + Noise(g.env.Rand, g.env.Tunables.StartDev)
	return g.env.sleep(ctx, delay)
}

func (g *Group) checkInAtReception(ctx context.Context) error {
	if err := g.setStatus(ctx, model.GroupAtReception); err != nil {
		return errors.Trace(err)
	}
	req := model.Request{Kind: model.TableRequest, Group: g.id}
	if err := g.env.Handle.PostReceptionist(ctx, req); err != nil {
		return errors.Trace(err)
	}
	return g.env.down(ctx, sem.WaitForTable(g.id), "waiting to sit down at a table")
}

func (g *Group) orderFood(ctx context.Context) error {
	err := g.env.update(ctx, model.GroupFoodRequest.String(), func(st *model.FullState) error {
		st.St.Groups[g.id] = model.GroupFoodRequest
		g.table = st.AssignedTable[g.id]
		if g.table == model.NoTable {
			return cerrors.ErrTableNotAssigned.GenWithStackByArgs(g.id)
		}
		return nil
	})
	if err != nil {
		return errors.Trace(err)
	}
	g.env.Logger.Debug("seated", zap.Int("table", int(g.table)))

	req := model.Request{Kind: model.FoodRequest, Group: g.id}
	if err := g.env.Handle.PostWaiter(ctx, req); err != nil {
		return errors.Trace(err)
	}
	return g.env.down(ctx, sem.RequestReceived(g.table), "waiting for the waiter to take the order")
}

func (g *Group) waitFood(ctx context.Context) error {
	if err := g.setStatus(ctx, model.GroupWaitForFood); err != nil {
		return errors.Trace(err)
	}
	return g.env.down(ctx, sem.FoodArrived(g.table), "waiting for the food")
}

func (g *Group) eat(ctx context.Context) error {
	if err := g.setStatus(ctx, model.GroupEat); err != nil {
		return errors.Trace(err)
	}
	delay := float64(g.timing.EatTime) + Noise(g.env.Rand, g.env.Tunables.EatDev)
	return g.env.sleep(ctx, delay)
}

func (g *Group) checkOutAtReception(ctx context.Context) error {
	if err := g.setStatus(ctx, model.GroupCheckout); err != nil {
		return errors.Trace(err)
	}
	req := model.Request{Kind: model.BillRequest, Group: g.id}
	if err := g.env.Handle.PostReceptionist(ctx, req); err != nil {
		return errors.Trace(err)
	}
	if err := g.env.down(ctx, sem.TableDone(g.table), "waiting for the payment to be received"); err != nil {
		return errors.Trace(err)
	}
	return g.setStatus(ctx, model.GroupLeaving)
}
