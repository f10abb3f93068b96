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
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/sem"
	"go.uber.org/zap"
)

// Chef cooks one order at a time, one order per group.
type Chef struct {
	env     *Env
	nGroups int
	served  int
}

// NewChef creates the chef of a restaurant with nGroups groups.
func NewChef(env *Env, nGroups int) *Chef {
	return &Chef{env: env, nGroups: nGroups}
}

// Served returns the number of orders cooked. It must only be called once
// the actor has exited.
func (c *Chef) Served() int {
	return c.served
}

// Run implements actor.Actor.
func (c *Chef) Run(ctx context.Context) error {
	for i := 0; i < c.nGroups; i++ {
		g, err := c.waitForOrder(ctx)
		if err != nil {
			return errors.Trace(err)
		}
		if err := c.processOrder(ctx, g); err != nil {
			return errors.Trace(err)
		}
		c.served++
		requestsServed.WithLabelValues(c.env.ID.String(), model.FoodReady.String()).Inc()
	}
	c.env.Logger.Info("chef finished", zap.Int("cooked", c.served))
	return nil
}

func (c *Chef) setStatus(ctx context.Context, status model.ChefStatus) error {
	return c.env.update(ctx, status.String(), func(st *model.FullState) error {
		st.St.Chef = status
		return nil
	})
}

func (c *Chef) waitForOrder(ctx context.Context) (model.GroupID, error) {
	if err := c.setStatus(ctx, model.ChefWaitForOrder); err != nil {
		return model.NoGroup, errors.Trace(err)
	}
	if err := c.env.down(ctx, sem.WaitOrder(), "waiting for an order"); err != nil {
		return model.NoGroup, errors.Trace(err)
	}
	g := model.NoGroup
	err := c.env.Handle.View(ctx, "read order", func(st *model.FullState) {
		g = st.FoodGroup
	})
	if err != nil {
		return model.NoGroup, errors.Trace(err)
	}
	if err := c.env.up(sem.OrderReceived(), "order received"); err != nil {
		return model.NoGroup, errors.Trace(err)
	}
	return g, nil
}

func (c *Chef) processOrder(ctx context.Context, g model.GroupID) error {
	if err := c.setStatus(ctx, model.ChefCook); err != nil {
		return errors.Trace(err)
	}
	units := float64(c.env.Tunables.CookMin) + c.env.Rand.Float64()*float64(c.env.Tunables.CookMax)
	start := c.env.Clock.Mono()
	if err := c.env.sleep(ctx, units); err != nil {
		return errors.Trace(err)
	}
	cookDuration.Observe(c.env.Clock.Mono().Sub(start).Seconds())
	c.env.Logger.Debug("order cooked", zap.Int("group", int(g)))

	if err := c.setStatus(ctx, model.ChefRest); err != nil {
		return errors.Trace(err)
	}
	return c.env.Handle.PostWaiter(ctx, model.Request{Kind: model.FoodReady, Group: g})
}
