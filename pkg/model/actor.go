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

package model

import "fmt"

// Role is the kind of an actor.
type Role int

// Actor roles.
const (
	RoleChef Role = iota
	RoleWaiter
	RoleReceptionist
	RoleGroup
)

func (r Role) String() string {
	switch r {
	case RoleChef:
		return "chef"
	case RoleWaiter:
		return "waiter"
	case RoleReceptionist:
		return "receptionist"
	case RoleGroup:
		return "group"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ActorID identifies one actor of the restaurant. Group is only meaningful
// for RoleGroup.
type ActorID struct {
	Role  Role
	Group GroupID
}

// ChefActor is the id of the chef.
func ChefActor() ActorID { return ActorID{Role: RoleChef, Group: NoGroup} }

// WaiterActor is the id of the waiter.
func WaiterActor() ActorID { return ActorID{Role: RoleWaiter, Group: NoGroup} }

// ReceptionistActor is the id of the receptionist.
func ReceptionistActor() ActorID { return ActorID{Role: RoleReceptionist, Group: NoGroup} }

// GroupActor is the id of group g.
func GroupActor(g GroupID) ActorID { return ActorID{Role: RoleGroup, Group: g} }

func (id ActorID) String() string {
	if id.Role == RoleGroup {
		return fmt.Sprintf("group-%02d", int(id.Group))
	}
	return id.Role.String()
}

// Stage returns the status of the actor in st.
func (id ActorID) Stage(st *FullState) string {
	switch id.Role {
	case RoleChef:
		return st.St.Chef.String()
	case RoleWaiter:
		return st.St.Waiter.String()
	case RoleReceptionist:
		return st.St.Receptionist.String()
	case RoleGroup:
		if int(id.Group) >= 0 && int(id.Group) < len(st.St.Groups) {
			return st.St.Groups[id.Group].String()
		}
	}
	return "UNKNOWN"
}
