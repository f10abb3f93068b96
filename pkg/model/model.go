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

// Package model defines the data shared by every restaurant actor: requests,
// the per-role status enums and the full shared state.
package model

import "fmt"

// GroupID identifies a customer group. Groups are numbered from zero.
type GroupID int

// TableID identifies a table. Tables are numbered from zero.
type TableID int

// NoTable marks a group without a table.
const NoTable TableID = -1

// NoGroup marks an empty group reference.
const NoGroup GroupID = -1

// MaxTables is the largest table count the receptionist's bitmap can hold.
const MaxTables = 64

// RequestKind is the kind of a Request.
type RequestKind int

// Request kinds. RequestNone denotes an empty mailbox slot.
const (
	RequestNone RequestKind = iota
	TableRequest
	BillRequest
	FoodRequest
	FoodReady
)

func (k RequestKind) String() string {
	switch k {
	case RequestNone:
		return "NONE"
	case TableRequest:
		return "TABLE_REQUEST"
	case BillRequest:
		return "BILL_REQUEST"
	case FoodRequest:
		return "FOOD_REQUEST"
	case FoodReady:
		return "FOOD_READY"
	}
	return fmt.Sprintf("RequestKind(%d)", int(k))
}

// Request is written by a requester into a mailbox and consumed exactly once
// by the intended server.
type Request struct {
	Kind  RequestKind
	Group GroupID
}

// IsEmpty returns true if the request denotes an empty mailbox slot.
func (r Request) IsEmpty() bool {
	return r.Kind == RequestNone
}

func (r Request) String() string {
	if r.IsEmpty() {
		return "empty"
	}
	return fmt.Sprintf("%s(group=%d)", r.Kind, r.Group)
}

// GroupStatus is the stage of a group's lifecycle.
type GroupStatus int

// Group stages, in lifecycle order.
const (
	GroupGoToRestaurant GroupStatus = iota
	GroupAtReception
	GroupFoodRequest
	GroupWaitForFood
	GroupEat
	GroupCheckout
	GroupLeaving
)

var groupStatusNames = [...]string{
	"GOTOREST", "AT_RECEPTION", "FOOD_REQUEST", "WAIT_FOR_FOOD", "EAT", "CHECKOUT", "LEAVING",
}

func (s GroupStatus) String() string {
	if s >= 0 && int(s) < len(groupStatusNames) {
		return groupStatusNames[s]
	}
	return fmt.Sprintf("GroupStatus(%d)", int(s))
}

// ChefStatus is the stage of the chef's cook cycle.
type ChefStatus int

// Chef stages.
const (
	ChefWaitForOrder ChefStatus = iota
	ChefCook
	ChefRest
)

func (s ChefStatus) String() string {
	switch s {
	case ChefWaitForOrder:
		return "WAIT_FOR_ORDER"
	case ChefCook:
		return "COOK"
	case ChefRest:
		return "REST"
	}
	return fmt.Sprintf("ChefStatus(%d)", int(s))
}

// WaiterStatus is the stage of the waiter.
type WaiterStatus int

// Waiter stages.
const (
	WaiterWaitForRequest WaiterStatus = iota
	WaiterInformChef
	WaiterTakeToTable
)

func (s WaiterStatus) String() string {
	switch s {
	case WaiterWaitForRequest:
		return "WAIT_FOR_REQUEST"
	case WaiterInformChef:
		return "INFORM_CHEF"
	case WaiterTakeToTable:
		return "TAKE_TO_TABLE"
	}
	return fmt.Sprintf("WaiterStatus(%d)", int(s))
}

// ReceptionistStatus is the stage of the receptionist.
type ReceptionistStatus int

// Receptionist stages. ReceptionistWaiting is the zero value.
const (
	ReceptionistWaiting ReceptionistStatus = iota
	ReceptionistAssignTable
	ReceptionistReceivePayment
)

func (s ReceptionistStatus) String() string {
	switch s {
	case ReceptionistWaiting:
		return "WAITING"
	case ReceptionistAssignTable:
		return "ASSIGN_TABLE"
	case ReceptionistReceivePayment:
		return "RECEIVE_PAYMENT"
	}
	return fmt.Sprintf("ReceptionistStatus(%d)", int(s))
}

// State holds the current status of every actor.
type State struct {
	Chef         ChefStatus
	Waiter       WaiterStatus
	Receptionist ReceptionistStatus
	Groups       []GroupStatus
}

// FullState is the single block of state shared by all actors.
//
// NGroups, StartTime and EatTime are loaded before any actor starts and are
// read-only afterwards. Every other field is mutated only while the mutex
// semaphore is held. The two mailboxes are additionally handed over between
// writer and reader by their own semaphore pairs.
type FullState struct {
	NGroups   int
	NTables   int
	StartTime []int
	EatTime   []int

	St            State
	AssignedTable []TableID

	WaiterRequest       Request
	ReceptionistRequest Request

	// FoodOrder is true while the chef holds an order it has not delivered.
	FoodOrder bool
	// FoodGroup is the group whose order is in flight to the chef.
	FoodGroup GroupID

	GroupsWaiting int
}

// NewFullState creates a zero-initialized state for nGroups groups and
// nTables tables.
func NewFullState(nGroups, nTables int) *FullState {
	st := &FullState{
		NGroups:       nGroups,
		NTables:       nTables,
		StartTime:     make([]int, nGroups),
		EatTime:       make([]int, nGroups),
		AssignedTable: make([]TableID, nGroups),
		FoodGroup:     NoGroup,
	}
	st.St.Groups = make([]GroupStatus, nGroups)
	for g := range st.AssignedTable {
		st.AssignedTable[g] = NoTable
	}
	return st
}

// Clone returns a deep copy of the state.
func (s *FullState) Clone() *FullState {
	cp := *s
	cp.StartTime = append([]int(nil), s.StartTime...)
	cp.EatTime = append([]int(nil), s.EatTime...)
	cp.AssignedTable = append([]TableID(nil), s.AssignedTable...)
	cp.St.Groups = append([]GroupStatus(nil), s.St.Groups...)
	return &cp
}

// OccupiedTables returns how many groups currently hold a table.
func (s *FullState) OccupiedTables() int {
	n := 0
	for _, t := range s.AssignedTable {
		if t != NoTable {
			n++
		}
	}
	return n
}
