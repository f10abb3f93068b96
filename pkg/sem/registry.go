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

package sem

import (
	"fmt"

	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/model"
)

// Kind is the semantic family of a semaphore.
type Kind int

// Semaphore kinds. The first group has exactly one semaphore each, then come
// the per-group and the per-table families.
const (
	KindMutex Kind = iota
	KindReceptionistRequest
	KindReceptionistRequestPossible
	KindWaiterRequest
	KindWaiterRequestPossible
	KindWaitOrder
	KindOrderReceived

	KindWaitForTable

	KindFoodArrived
	KindRequestReceived
	KindTableDone
)

var kindNames = [...]string{
	KindMutex:                       "Mutex",
	KindReceptionistRequest:         "ReceptionistRequest",
	KindReceptionistRequestPossible: "ReceptionistRequestPossible",
	KindWaiterRequest:               "WaiterRequest",
	KindWaiterRequestPossible:       "WaiterRequestPossible",
	KindWaitOrder:                   "WaitOrder",
	KindOrderReceived:               "OrderReceived",
	KindWaitForTable:                "WaitForTable",
	KindFoodArrived:                 "FoodArrived",
	KindRequestReceived:             "RequestReceived",
	KindTableDone:                   "TableDone",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) perGroup() bool {
	return k == KindWaitForTable
}

func (k Kind) perTable() bool {
	return k == KindFoodArrived || k == KindRequestReceived || k == KindTableDone
}

// Key names one semaphore of the set. Singleton kinds have Index zero.
type Key struct {
	Kind  Kind
	Index int
}

func (k Key) String() string {
	if k.Kind.perGroup() || k.Kind.perTable() {
		return fmt.Sprintf("%s(%d)", k.Kind, k.Index)
	}
	return k.Kind.String()
}

// Mutex guards every mutation of the shared state.
func Mutex() Key { return Key{Kind: KindMutex} }

// ReceptionistRequest signals a request in the receptionist mailbox.
func ReceptionistRequest() Key { return Key{Kind: KindReceptionistRequest} }

// ReceptionistRequestPossible signals the receptionist mailbox is free.
func ReceptionistRequestPossible() Key { return Key{Kind: KindReceptionistRequestPossible} }

// WaiterRequest signals a request in the waiter mailbox.
func WaiterRequest() Key { return Key{Kind: KindWaiterRequest} }

// WaiterRequestPossible signals the waiter mailbox is free.
func WaiterRequestPossible() Key { return Key{Kind: KindWaiterRequestPossible} }

// WaitOrder signals the chef that an order is available.
func WaitOrder() Key { return Key{Kind: KindWaitOrder} }

// OrderReceived signals the waiter that the chef took the order.
func OrderReceived() Key { return Key{Kind: KindOrderReceived} }

// WaitForTable signals group g that it has a table.
func WaitForTable(g model.GroupID) Key { return Key{Kind: KindWaitForTable, Index: int(g)} }

// FoodArrived signals table t that its food is served.
func FoodArrived(t model.TableID) Key { return Key{Kind: KindFoodArrived, Index: int(t)} }

// RequestReceived signals table t that the waiter took its order.
func RequestReceived(t model.TableID) Key { return Key{Kind: KindRequestReceived, Index: int(t)} }

// TableDone signals table t that the payment was received.
func TableDone(t model.TableID) Key { return Key{Kind: KindTableDone, Index: int(t)} }

// Registry maps every semaphore key of a restaurant to a dense index. It is
// built once from the group and table counts and is immutable afterwards.
type Registry struct {
	index map[Key]int
	keys  []Key
}

// NewRegistry registers the singleton semaphores, one WaitForTable per group
// and the three per-table families.
func NewRegistry(nGroups, nTables int) *Registry {
	r := &Registry{
		index: make(map[Key]int, int(KindWaitForTable)+nGroups+3*nTables),
	}
	for k := KindMutex; k < KindWaitForTable; k++ {
		r.add(Key{Kind: k})
	}
	for g := 0; g < nGroups; g++ {
		r.add(WaitForTable(model.GroupID(g)))
	}
	for _, kind := range []Kind{KindFoodArrived, KindRequestReceived, KindTableDone} {
		for t := 0; t < nTables; t++ {
			r.add(Key{Kind: kind, Index: t})
		}
	}
	return r
}

func (r *Registry) add(k Key) {
	r.index[k] = len(r.keys)
	r.keys = append(r.keys, k)
}

// Index returns the index of k, or ErrUnknownSemaphore.
func (r *Registry) Index(k Key) (int, error) {
	i, ok := r.index[k]
	if !ok {
		return 0, cerrors.ErrUnknownSemaphore.GenWithStackByArgs(k.String())
	}
	return i, nil
}

// Key returns the key registered at index i.
func (r *Registry) Key(i int) (Key, bool) {
	if i < 0 || i >= len(r.keys) {
		return Key{}, false
	}
	return r.keys[i], true
}

// Len returns the number of registered semaphores.
func (r *Registry) Len() int {
	return len(r.keys)
}

// Keys returns every registered key in index order.
func (r *Registry) Keys() []Key {
	return append([]Key(nil), r.keys...)
}
