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

	"github.com/edwingeng/deque"
	"github.com/pingcap/errors"
	"github.com/pingcap/failpoint"
	"github.com/pingcap/semrestaurant/pkg/config"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/sem"
	"go.uber.org/zap"
)

// Waiter carries food requests to the chef and food back to the tables.
// It handles one FOOD_REQUEST per group and one FOOD_READY per order.
//
// Food requests are queued and the next one is handed to the chef only after
// the previous order came back, so the waiter never blocks on the chef while
// the chef needs the waiter's mailbox. With the buffered policy a group is
// acknowledged as soon as its request is queued. With the immediate policy
// the group stays blocked until the chef has taken its order.
type Waiter struct {
	env     *Env
	nGroups int
	policy  config.WaiterPolicy

	// pending holds groups whose order has not been passed to the chef yet.
	pending    deque.Deque
	maxPending int
	served     int
}

// NewWaiter creates the waiter of a restaurant with nGroups groups.
func NewWaiter(env *Env, nGroups int, policy config.WaiterPolicy) *Waiter {
	return &Waiter{
		env:     env,
		nGroups: nGroups,
		policy:  policy,
		pending: deque.NewDeque(),
	}
}

// Served returns the number of requests handled. It must only be called once
// the actor has exited.
func (w *Waiter) Served() int {
	return w.served
}

// MaxPending returns the largest number of orders that waited for the chef at
// the same time. It must only be called once the actor has exited.
func (w *Waiter) MaxPending() int {
	return w.maxPending
}

// Run implements actor.Actor.
func (w *Waiter) Run(ctx context.Context) error {
	for i := 0; i < 2*w.nGroups; i++ {
		req, err := w.waitForClientOrChef(ctx)
		if err != nil {
			return errors.Trace(err)
		}
		switch req.Kind {
		case model.FoodRequest:
			err = w.queueFoodRequest(ctx, req.Group)
		case model.FoodReady:
			err = w.takeFoodToTable(ctx, req.Group)
		default:
			err = cerrors.ErrUnexpectedRequest.GenWithStackByArgs(w.env.ID, req)
		}
		if err != nil {
			return errors.Trace(err)
		}
		w.served++
		requestsServed.WithLabelValues(w.env.ID.String(), req.Kind.String()).Inc()
	}
	w.env.Logger.Info("waiter finished", zap.Int("served", w.served))
	return nil
}

func (w *Waiter) waitForClientOrChef(ctx context.Context) (model.Request, error) {
	err := w.env.update(ctx, model.WaiterWaitForRequest.String(), func(st *model.FullState) error {
		st.St.Waiter = model.WaiterWaitForRequest
		return nil
	})
	if err != nil {
		return model.Request{}, errors.Trace(err)
	}
	return w.env.Handle.TakeWaiter(ctx)
}

func (w *Waiter) tableOf(ctx context.Context, g model.GroupID) (model.TableID, error) {
	table := model.NoTable
	err := w.env.Handle.View(ctx, "read table", func(st *model.FullState) {
		table = st.AssignedTable[g]
	})
	if err != nil {
		return model.NoTable, errors.Trace(err)
	}
	if table == model.NoTable {
		return model.NoTable, cerrors.ErrTableNotAssigned.GenWithStackByArgs(g)
	}
	return table, nil
}

func (w *Waiter) queueFoodRequest(ctx context.Context, g model.GroupID) error {
	table, err := w.tableOf(ctx, g)
	if err != nil {
		return errors.Trace(err)
	}
	w.pending.PushBack(g)
	if n := w.pending.Len(); n > w.maxPending {
		w.maxPending = n
	}
	pendingOrders.Set(float64(w.pending.Len()))
	if w.policy != config.WaiterPolicyImmediate {
		if err := w.env.up(sem.RequestReceived(table), "food request received"); err != nil {
			return errors.Trace(err)
		}
	}
	return w.dispatch(ctx)
}

// dispatch hands the oldest pending order to the chef if the chef holds no
// other order. FoodOrder is only ever set here and cleared when the food is
// delivered.
func (w *Waiter) dispatch(ctx context.Context) error {
	if w.pending.Empty() {
		return nil
	}
	dispatched := false
	table := model.NoTable
	err := w.env.update(ctx, model.WaiterInformChef.String(), func(st *model.FullState) error {
		if st.FoodOrder {
			return nil
		}
		g := w.pending.PopFront().(model.GroupID)
		table = st.AssignedTable[g]
		st.St.Waiter = model.WaiterInformChef
		st.FoodGroup = g
		st.FoodOrder = true
		dispatched = true
		return nil
	})
	if err != nil {
		return errors.Trace(err)
	}
	pendingOrders.Set(float64(w.pending.Len()))
	if !dispatched {
		return nil
	}
	if err := w.env.up(sem.WaitOrder(), "order passed to the chef"); err != nil {
		return errors.Trace(err)
	}
	if err := w.env.down(ctx, sem.OrderReceived(), "waiting for the chef to take the order"); err != nil {
		return errors.Trace(err)
	}
	if w.policy == config.WaiterPolicyImmediate {
		return w.env.up(sem.RequestReceived(table), "chef took the order")
	}
	return nil
}

func (w *Waiter) takeFoodToTable(ctx context.Context, g model.GroupID) error {
	table := model.NoTable
	err := w.env.update(ctx, model.WaiterTakeToTable.String(), func(st *model.FullState) error {
		table = st.AssignedTable[g]
		if table == model.NoTable {
			return cerrors.ErrTableNotAssigned.GenWithStackByArgs(g)
		}
		st.St.Waiter = model.WaiterTakeToTable
		st.FoodOrder = false
		return nil
	})
	if err != nil {
		return errors.Trace(err)
	}

	failpoint.Inject("WaiterDropFoodArrived", func() {
		w.env.Logger.Warn("food arrived signal dropped", zap.Int("group", int(g)))
		failpoint.Return(nil)
	})

	if err := w.env.up(sem.FoodArrived(table), "food delivered"); err != nil {
		return errors.Trace(err)
	}
	return w.dispatch(ctx)
}
