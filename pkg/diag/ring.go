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
	"unicode/utf8"

	"github.com/pingcap/semrestaurant/pkg/sem"
)

const (
	// DefaultRingSize is the number of operations kept per actor.
	DefaultRingSize = 10
	// MaxReasonLen is the maximum length of a recorded reason in bytes.
	MaxReasonLen = 100
)

// Event is one recorded semaphore operation.
type Event struct {
	// Seq numbers the operations of one actor starting from 1.
	Seq    uint64
	Action sem.Action
	Key    sem.Key
	// Index is the registry index of Key, -1 if it is not registered.
	Index  int
	Reason string
}

// Ring keeps the last operations of one actor. It implements sem.Tracer.
type Ring struct {
	reg *sem.Registry

	mu     sync.Mutex
	events []Event
	next   int
	seq    uint64
}

// NewRing creates a ring holding up to size events. A non-positive size
// falls back to DefaultRingSize.
func NewRing(size int, reg *sem.Registry) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{
		reg:    reg,
		events: make([]Event, size),
	}
}

// Trace implements sem.Tracer.
func (r *Ring) Trace(action sem.Action, key sem.Key, reason string) {
	index := -1
	if r.reg != nil {
		if i, err := r.reg.Index(key); err == nil {
			index = i
		}
	}
	reason = truncateReason(reason)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.events[r.next] = Event{
		Seq:    r.seq,
		Action: action,
		Key:    key,
		Index:  index,
		Reason: reason,
	}
	r.next = (r.next + 1) % len(r.events)
}

// truncateReason cuts reason to at most MaxReasonLen bytes without splitting
// a multi-byte rune.
func truncateReason(reason string) string {
	if len(reason) <= MaxReasonLen {
		return reason
	}
	n := MaxReasonLen
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}

// Snapshot returns the recorded events from the oldest to the newest.
func (r *Ring) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.events))
	for i := 0; i < len(r.events); i++ {
		ev := r.events[(r.next+i)%len(r.events)]
		if ev.Seq == 0 {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Last returns the most recent event.
func (r *Ring) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev := r.events[(r.next+len(r.events)-1)%len(r.events)]
	return ev, ev.Seq != 0
}
