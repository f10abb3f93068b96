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

// mailbox describes one single-slot mailbox of the shared state.
type mailbox struct {
	name     string
	present  sem.Key
	possible sem.Key
	slot     func(st *model.FullState) *model.Request
	mirror   func(s *Store) *atomic.Pointer[model.Request]
}

var (
	receptionistMailbox = mailbox{
		name:     "receptionist",
		present:  sem.ReceptionistRequest(),
		possible: sem.ReceptionistRequestPossible(),
		slot:     func(st *model.FullState) *model.Request { return &st.ReceptionistRequest },
		mirror:   func(s *Store) *atomic.Pointer[model.Request] { return &s.receptionistInbox },
	}
	waiterMailbox = mailbox{
		name:     "waiter",
		present:  sem.WaiterRequest(),
		possible: sem.WaiterRequestPossible(),
		slot:     func(st *model.FullState) *model.Request { return &st.WaiterRequest },
		mirror:   func(s *Store) *atomic.Pointer[model.Request] { return &s.waiterInbox },
	}
)

// post waits until the mailbox is free, writes req and signals the reader.
func (h *Handle) post(ctx context.Context, mb mailbox, req model.Request) error {
	if req.IsEmpty() {
		return cerrors.ErrInvalidArgument.GenWithStackByArgs("cannot post an empty request")
	}
	if err := h.client.Down(ctx, mb.possible, "before writing "+req.String()+" for the "+mb.name); err != nil {
		return errors.Trace(err)
	}
	g, err := h.Lock(ctx, "writing "+mb.name+" request")
	if err != nil {
		return errors.Trace(err)
	}
	st, err := g.State()
	if err != nil {
		return errors.Trace(err)
	}
	*mb.slot(st) = req
	r := req
	mb.mirror(h.store).Store(&r)
	if err := g.Unlock(mb.name + " request written"); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(h.client.Up(mb.present, "posted "+req.String()))
}

// take waits for a request, empties the slot and frees the mailbox for the
// next writer before returning the request.
func (h *Handle) take(ctx context.Context, mb mailbox) (model.Request, error) {
	if err := h.client.Down(ctx, mb.present, "waiting for a "+mb.name+" request"); err != nil {
		return model.Request{}, errors.Trace(err)
	}
	g, err := h.Lock(ctx, "reading "+mb.name+" request")
	if err != nil {
		return model.Request{}, errors.Trace(err)
	}
	st, err := g.State()
	if err != nil {
		return model.Request{}, errors.Trace(err)
	}
	slot := mb.slot(st)
	req := *slot
	*slot = model.Request{}
	mb.mirror(h.store).Store(&model.Request{})
	if err := g.Unlock(mb.name + " request read"); err != nil {
		return model.Request{}, errors.Trace(err)
	}
	if err := h.client.Up(mb.possible, "took "+req.String()); err != nil {
		return model.Request{}, errors.Trace(err)
	}
	return req, nil
}

// PostReceptionist writes req into the receptionist mailbox.
func (h *Handle) PostReceptionist(ctx context.Context, req model.Request) error {
	return h.post(ctx, receptionistMailbox, req)
}

// TakeReceptionist reads the next receptionist request.
func (h *Handle) TakeReceptionist(ctx context.Context) (model.Request, error) {
	return h.take(ctx, receptionistMailbox)
}

// PostWaiter writes req into the waiter mailbox.
func (h *Handle) PostWaiter(ctx context.Context, req model.Request) error {
	return h.post(ctx, waiterMailbox, req)
}

// TakeWaiter reads the next waiter request.
func (h *Handle) TakeWaiter(ctx context.Context) (model.Request, error) {
	return h.take(ctx, waiterMailbox)
}
