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
	"fmt"
	"math/bits"

	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/model"
)

// tableMap is the receptionist's private occupancy bitmap. Free tables are
// tried round-robin starting after the last granted table.
type tableMap struct {
	n        int
	occupied uint64
	next     int
}

func newTableMap(n int) *tableMap {
	return &tableMap{n: n}
}

func (m *tableMap) isOccupied(t model.TableID) bool {
	return m.occupied&(1<<uint(t)) != 0
}

// acquire marks the first free table from the cursor as occupied.
func (m *tableMap) acquire() (model.TableID, bool) {
	for i := 0; i < m.n; i++ {
		t := model.TableID((m.next + i) % m.n)
		if !m.isOccupied(t) {
			m.occupied |= 1 << uint(t)
			m.next = (int(t) + 1) % m.n
			return t, true
		}
	}
	return model.NoTable, false
}

func (m *tableMap) release(t model.TableID) error {
	if t < 0 || int(t) >= m.n || !m.isOccupied(t) {
		return cerrors.ErrTableStateInconsistent.GenWithStackByArgs(
			fmt.Sprintf("table %d is released but it is not occupied", t))
	}
	m.occupied &^= 1 << uint(t)
	return nil
}

func (m *tableMap) count() int {
	return bits.OnesCount64(m.occupied)
}

// verify checks the bitmap against the table assignment of every group.
func (m *tableMap) verify(assigned []model.TableID) error {
	var seen uint64
	for g, t := range assigned {
		if t == model.NoTable {
			continue
		}
		if t < 0 || int(t) >= m.n {
			return cerrors.ErrTableStateInconsistent.GenWithStackByArgs(
				fmt.Sprintf("group %d holds unknown table %d", g, t))
		}
		bit := uint64(1) << uint(t)
		if seen&bit != 0 {
			return cerrors.ErrTableStateInconsistent.GenWithStackByArgs(
				fmt.Sprintf("table %d is assigned twice", t))
		}
		seen |= bit
	}
	if seen != m.occupied {
		return cerrors.ErrTableStateInconsistent.GenWithStackByArgs(
			fmt.Sprintf("occupied tables %b do not match assigned tables %b", m.occupied, seen))
	}
	return nil
}

// waitlist is a bounded FIFO of groups waiting for a table.
type waitlist struct {
	buf     []model.GroupID
	head    int
	size    int
	waiting map[model.GroupID]struct{}
}

func newWaitlist(capacity int) *waitlist {
	return &waitlist{
		buf:     make([]model.GroupID, capacity),
		waiting: make(map[model.GroupID]struct{}, capacity),
	}
}

func (w *waitlist) push(g model.GroupID) error {
	if _, ok := w.waiting[g]; ok {
		return cerrors.ErrGroupAlreadyWaiting.GenWithStackByArgs(g)
	}
	if w.size == len(w.buf) {
		return cerrors.ErrWaitlistFull.GenWithStackByArgs(len(w.buf))
	}
	w.buf[(w.head+w.size)%len(w.buf)] = g
	w.size++
	w.waiting[g] = struct{}{}
	return nil
}

func (w *waitlist) pop() (model.GroupID, bool) {
	if w.size == 0 {
		return model.NoGroup, false
	}
	g := w.buf[w.head]
	w.head = (w.head + 1) % len(w.buf)
	w.size--
	delete(w.waiting, g)
	return g, true
}

func (w *waitlist) len() int {
	return w.size
}
