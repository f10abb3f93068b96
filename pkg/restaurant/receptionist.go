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
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/sem"
	"go.uber.org/zap"
)

// Receptionist seats groups and takes their payment. Each group talks to it
// twice, so it serves exactly 2*nGroups requests.
type Receptionist struct {
	env     *Env
	nGroups int

	tables   *tableMap
	waitlist *waitlist

	seating []model.GroupID
	served  int
}

// NewReceptionist creates the receptionist of a restaurant with nTables
// tables and nGroups groups.
func NewReceptionist(env *Env, nGroups, nTables int) *Receptionist {
	return &Receptionist{
		env:      env,
		nGroups:  nGroups,
		tables:   newTableMap(nTables),
		waitlist: newWaitlist(nGroups),
	}
}

// Seating returns the groups in the order they were granted a table. It must
// only be called once the actor has exited.
func (r *Receptionist) Seating() []model.GroupID {
	return append([]model.GroupID(nil), r.seating...)
}

// Served returns the number of requests handled. It must only be called once
// the actor has exited.
func (r *Receptionist) Served() int {
	return r.served
}

// Run implements actor.Actor.
func (r *Receptionist) Run(ctx context.Context) error {
	for i := 0; i < 2*r.nGroups; i++ {
		req, err := r.waitForGroup(ctx)
		if err != nil {
			return errors.Trace(err)
		}
		switch req.Kind {
		case model.TableRequest:
			err = r.provideTableOrWaitingRoom(ctx, req.Group)
		case model.BillRequest:
			err = r.receivePayment(ctx, req.Group)
		default:
			err = cerrors.ErrUnexpectedRequest.GenWithStackByArgs(r.env.ID, req)
		}
		if err != nil {
			return errors.Trace(err)
		}
		r.served++
		requestsServed.WithLabelValues(r.env.ID.String(), req.Kind.String()).Inc()
	}
	r.env.Logger.Info("receptionist finished", zap.Int("served", r.served))
	return nil
}

func (r *Receptionist) waitForGroup(ctx context.Context) (model.Request, error) {
	err := r.env.update(ctx, model.ReceptionistWaiting.String(), func(st *model.FullState) error {
		st.St.Receptionist = model.ReceptionistWaiting
		return nil
	})
	if err != nil {
		return model.Request{}, errors.Trace(err)
	}
	return r.env.Handle.TakeReceptionist(ctx)
}

// assign grants g a free table. It must be called with the mutex held.
func (r *Receptionist) assign(st *model.FullState, g model.GroupID) (model.TableID, bool) {
	t, ok := r.tables.acquire()
	if !ok {
		return model.NoTable, false
	}
	st.AssignedTable[g] = t
	r.seating = append(r.seating, g)
	return t, true
}

func (r *Receptionist) provideTableOrWaitingRoom(ctx context.Context, g model.GroupID) error {
	var (
		table  model.TableID
		seated bool
	)
	err := r.env.update(ctx, model.ReceptionistAssignTable.String(), func(st *model.FullState) error {
		st.St.Receptionist = model.ReceptionistAssignTable
		if st.AssignedTable[g] != model.NoTable {
			return cerrors.ErrTableStateInconsistent.GenWithStackByArgs(
				"group asked for a table while holding one")
		}
		table, seated = r.assign(st, g)
		if !seated {
			if err := r.waitlist.push(g); err != nil {
				return errors.Trace(err)
			}
			st.GroupsWaiting++
		}
		return r.tables.verify(st.AssignedTable)
	})
	if err != nil {
		return errors.Trace(err)
	}
	waitlistLength.Set(float64(r.waitlist.len()))
	if !seated {
		r.env.Logger.Debug("group put on the waitlist",
			zap.Int("group", int(g)), zap.Int("waiting", r.waitlist.len()))
		return nil
	}
	r.env.Logger.Debug("table granted", zap.Int("group", int(g)), zap.Int("table", int(table)))
	return r.env.up(sem.WaitForTable(g), "table granted")
}

func (r *Receptionist) receivePayment(ctx context.Context, g model.GroupID) error {
	var (
		freed  model.TableID
		next   = model.NoGroup
		seated bool
	)
	err := r.env.update(ctx, model.ReceptionistReceivePayment.String(), func(st *model.FullState) error {
		st.St.Receptionist = model.ReceptionistReceivePayment
		freed = st.AssignedTable[g]
		if freed == model.NoTable {
			return cerrors.ErrTableNotAssigned.GenWithStackByArgs(g)
		}
		if err := r.tables.release(freed); err != nil {
			return errors.Trace(err)
		}
		st.AssignedTable[g] = model.NoTable

		if head, ok := r.waitlist.pop(); ok {
			st.GroupsWaiting--
			next = head
			if _, seated = r.assign(st, head); !seated {
				return cerrors.ErrTableStateInconsistent.GenWithStackByArgs(
					"no free table right after a payment")
			}
		}
		return r.tables.verify(st.AssignedTable)
	})
	if err != nil {
		return errors.Trace(err)
	}
	waitlistLength.Set(float64(r.waitlist.len()))

	if err := r.env.up(sem.TableDone(freed), "payment received"); err != nil {
		return errors.Trace(err)
	}
	if !seated {
		return nil
	}
	r.env.Logger.Debug("waiting group seated", zap.Int("group", int(next)))
	return r.env.up(sem.WaitForTable(next), "table granted from the waitlist")
}
