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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pingcap/errors"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/sem"
)

// StateSource publishes the shared state without taking the mutex.
type StateSource interface {
	Snapshot() *model.FullState
	Mailboxes() (receptionist, waiter model.Request)
	Semaphores() *sem.Set
}

// Liveness tells whether an actor is still running.
type Liveness interface {
	Alive(id model.ActorID) bool
}

// ActorReport is the diagnostic view of one actor.
type ActorReport struct {
	Actor   model.ActorID
	Stage   string
	Alive   bool
	Last    Event
	HasLast bool
	History []Event
}

// SemaphoreReport is a semaphore that has pending signals or blocked actors.
type SemaphoreReport struct {
	Key     sem.Key
	Value   int64
	Waiters int64
}

// Report is a consolidated snapshot of a stalled restaurant.
type Report struct {
	Timeout time.Duration

	Actors []ActorReport

	GroupsWaiting       int
	FoodOrder           bool
	FoodGroup           model.GroupID
	OccupiedTables      int
	ReceptionistMailbox model.Request
	WaiterMailbox       model.Request

	Semaphores []SemaphoreReport
}

// Collect builds a report from published snapshots only. It never takes the
// mutex and never changes the state of the restaurant.
func Collect(timeout time.Duration, board *Board, src StateSource, live Liveness) *Report {
	st := src.Snapshot()
	rcpt, waiter := src.Mailboxes()
	r := &Report{
		Timeout:             timeout,
		GroupsWaiting:       st.GroupsWaiting,
		FoodOrder:           st.FoodOrder,
		FoodGroup:           st.FoodGroup,
		OccupiedTables:      st.OccupiedTables(),
		ReceptionistMailbox: rcpt,
		WaiterMailbox:       waiter,
	}
	for _, tr := range board.Snapshot() {
		ar := ActorReport{
			Actor:   tr.Actor,
			Stage:   tr.Actor.Stage(st),
			Alive:   live == nil || live.Alive(tr.Actor),
			History: tr.Events,
		}
		if n := len(tr.Events); n > 0 {
			ar.Last, ar.HasLast = tr.Events[n-1], true
		}
		r.Actors = append(r.Actors, ar)
	}
	set := src.Semaphores()
	for _, key := range set.Registry().Keys() {
		v, _ := set.Value(key)
		w, _ := set.Waiters(key)
		if v != 0 || w != 0 {
			r.Semaphores = append(r.Semaphores, SemaphoreReport{Key: key, Value: v, Waiters: w})
		}
	}
	return r
}

// Stuck returns the live actors whose last operation is a down, they are
// the ones blocked on a semaphore.
func (r *Report) Stuck() []ActorReport {
	var out []ActorReport
	for _, a := range r.Actors {
		if a.Alive && a.HasLast && a.Last.Action == sem.ActionDown {
			out = append(out, a)
		}
	}
	return out
}

var (
	headingColor = color.New(color.Bold, color.FgRed)
	sectionColor = color.New(color.Bold)
)

// Render writes the human readable report to w.
func (r *Report) Render(w io.Writer) error {
	var b strings.Builder
	headingColor.Fprintf(&b, "DEADLOCK: actors did not finish within %s\n", r.Timeout)
	fmt.Fprintf(&b, "groups waiting: %s, occupied tables: %s, food order: %s\n",
		humanize.Comma(int64(r.GroupsWaiting)),
		humanize.Comma(int64(r.OccupiedTables)),
		foodOrder(r.FoodOrder, r.FoodGroup))
	fmt.Fprintf(&b, "receptionist mailbox: %s, waiter mailbox: %s\n\n",
		r.ReceptionistMailbox, r.WaiterMailbox)

	sectionColor.Fprintln(&b, "ACTORS")
	table := newTable(&b, "Actor", "Stage", "Alive", "Ops", "Last", "Semaphore", "Reason")
	for _, a := range r.Actors {
		if !a.HasLast {
			table.Append([]string{a.Actor.String(), a.Stage, yesNo(a.Alive), "0", "-", "-", "-"})
			continue
		}
		table.Append([]string{
			a.Actor.String(), a.Stage, yesNo(a.Alive), humanize.Comma(int64(a.Last.Seq)),
			a.Last.Action.String(), a.Last.Key.String(), a.Last.Reason,
		})
	}
	table.Render()

	fmt.Fprintln(&b)
	sectionColor.Fprintln(&b, "RECENT OPERATIONS")
	for _, a := range r.Actors {
		fmt.Fprintf(&b, "%s:\n", a.Actor)
		for _, ev := range a.History {
			fmt.Fprintf(&b, "  #%-4d %-4s %-30s %s\n", ev.Seq, ev.Action, fmt.Sprintf("%s[%d]", ev.Key, ev.Index), ev.Reason)
		}
	}

	fmt.Fprintln(&b)
	sectionColor.Fprintln(&b, "SEMAPHORES")
	if len(r.Semaphores) == 0 {
		fmt.Fprintln(&b, "all semaphores are zero and nobody is blocked")
	} else {
		table = newTable(&b, "Semaphore", "Value", "Blocked")
		for _, s := range r.Semaphores {
			table.Append([]string{s.Key.String(), humanize.Comma(s.Value), humanize.Comma(s.Waiters)})
		}
		table.Render()
	}

	_, err := io.WriteString(w, b.String())
	return errors.Trace(err)
}

// String renders the report without failing.
func (r *Report) String() string {
	var b strings.Builder
	_ = r.Render(&b)
	return b.String()
}

// newTable keeps reasons on one line, they are already truncated by the ring.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func foodOrder(active bool, g model.GroupID) string {
	if !active {
		return "none"
	}
	return fmt.Sprintf("group %d", g)
}
