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

package sim

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/pingcap/semrestaurant/pkg/config"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/leakutil"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/sem"
	"github.com/pingcap/semrestaurant/pkg/statelog"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	leakutil.SetUpLeakTest(m)
}

func newConfig(tables int, groups ...config.Group) *config.Config {
	tu := config.GetDefaultTunables()
	tu.Tables = tables
	tu.Seed = 1
	return &config.Config{Groups: groups, Tunables: tu}
}

func run(t *testing.T, cfg *config.Config, opts ...Option) (*Result, *statelog.Memory) {
	mem := statelog.NewMemory()
	s, err := New(cfg, mem, opts...)
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Completed)
	require.Nil(t, res.Report)
	return res, mem
}

// checkInvariants verifies the properties every saved state of a run must
// hold.
func checkInvariants(t *testing.T, states []*model.FullState) {
	require.NotEmpty(t, states)
	for i, st := range states {
		require.LessOrEqual(t, st.OccupiedTables(), st.NTables, "state %d", i)
		used := make(map[model.TableID]model.GroupID)
		for g, table := range st.AssignedTable {
			status := st.St.Groups[g]
			if table == model.NoTable {
				require.False(t, status >= model.GroupFoodRequest && status <= model.GroupEat,
					"state %d: group %d is %s without a table", i, g, status)
				continue
			}
			require.True(t, status >= model.GroupAtReception && status <= model.GroupCheckout,
				"state %d: group %d holds table %d while %s", i, g, table, status)
			other, ok := used[table]
			require.False(t, ok, "state %d: table %d shared by groups %d and %d", i, table, other, g)
			used[table] = model.GroupID(g)
		}
	}
}

// checkGroupPaths verifies every group walks its whole lifecycle in order.
func checkGroupPaths(t *testing.T, states []*model.FullState) {
	nGroups := states[0].NGroups
	for g := 0; g < nGroups; g++ {
		var path []model.GroupStatus
		for _, st := range states {
			status := st.St.Groups[g]
			if len(path) == 0 || path[len(path)-1] != status {
				path = append(path, status)
			}
		}
		require.Len(t, path, int(model.GroupLeaving)+1, "group %d walked %v", g, path)
		for i, status := range path {
			require.Equal(t, model.GroupStatus(i), status, "group %d walked %v", g, path)
		}
	}
}

// checkChefCycle verifies the chef finishes one order before it takes the
// next.
func checkChefCycle(t *testing.T, states []*model.FullState) {
	var cycle []model.ChefStatus
	for _, st := range states {
		if len(cycle) == 0 || cycle[len(cycle)-1] != st.St.Chef {
			cycle = append(cycle, st.St.Chef)
		}
	}
	for i, status := range cycle {
		require.Equal(t, model.ChefStatus(i%3), status, "chef walked %v", cycle)
	}
	require.Equal(t, model.ChefRest, cycle[len(cycle)-1])
}

func TestSingleGroup(t *testing.T) {
	t.Parallel()

	cfg := newConfig(2, config.Group{StartTime: 10, EatTime: 20})
	res, mem := run(t, cfg)

	require.Equal(t, []model.GroupID{0}, res.Seating)
	require.Equal(t, map[string]int{"receptionist": 2, "waiter": 2, "chef": 1}, res.Served)
	require.Equal(t, model.GroupLeaving, res.Final.St.Groups[0])
	require.Equal(t, model.NoTable, res.Final.AssignedTable[0])
	require.Equal(t, 0, res.Final.GroupsWaiting)
	require.False(t, res.Final.FoodOrder)
	require.Equal(t, mem.Len(), res.Saves)
	require.Equal(t, 1, res.MaxOccupiedTables)
	require.Zero(t, res.MaxGroupsWaiting)
	require.Len(t, res.ActorElapsed, 4)
	for _, name := range []string{"group-00", "receptionist", "waiter", "chef"} {
		require.Contains(t, res.ActorElapsed, name)
	}

	states := mem.States()
	checkInvariants(t, states)
	checkGroupPaths(t, states)
	checkChefCycle(t, states)
}

func TestFullRestaurantSeatsInArrivalOrder(t *testing.T) {
	t.Parallel()

	cfg := newConfig(1,
		config.Group{StartTime: 0, EatTime: 400},
		config.Group{StartTime: 200, EatTime: 1},
		config.Group{StartTime: 100, EatTime: 1},
	)
	cfg.Tunables.TimeUnit = config.TomlDuration(time.Millisecond)
	cfg.Tunables.StartDev = 0
	cfg.Tunables.EatDev = 0
	cfg.Tunables.CookMin = 1
	cfg.Tunables.CookMax = 1
	res, mem := run(t, cfg)

	require.Equal(t, []model.GroupID{0, 2, 1}, res.Seating)
	states := mem.States()
	checkInvariants(t, states)
	checkGroupPaths(t, states)
	checkChefCycle(t, states)

	maxWaiting := 0
	for _, st := range states {
		if st.GroupsWaiting > maxWaiting {
			maxWaiting = st.GroupsWaiting
		}
		require.LessOrEqual(t, st.OccupiedTables(), 1)
	}
	require.Equal(t, 2, maxWaiting)
	require.Equal(t, maxWaiting, res.MaxGroupsWaiting)
	require.Equal(t, 1, res.MaxOccupiedTables)
}

func TestLongCookTime(t *testing.T) {
	t.Parallel()

	groups := make([]config.Group, 5)
	for g := range groups {
		groups[g] = config.Group{StartTime: g * 10, EatTime: 50}
	}
	// Every group gets a table at once and orders long before the first
	// dish is cooked.
	cfg := newConfig(5, groups...)
	cfg.Tunables.CookMin = 20000
	cfg.Tunables.CookMax = 2000
	res, mem := run(t, cfg)

	require.Len(t, res.Seating, 5)
	require.Equal(t, 10, res.Served["receptionist"])
	require.Equal(t, 10, res.Served["waiter"])
	require.Equal(t, 5, res.Served["chef"])
	require.GreaterOrEqual(t, res.MaxPendingOrders, 2)
	require.Zero(t, res.MaxGroupsWaiting)

	states := mem.States()
	checkInvariants(t, states)
	checkGroupPaths(t, states)
	checkChefCycle(t, states)
}

func TestImmediateWaiterSingleGroup(t *testing.T) {
	t.Parallel()

	cfg := newConfig(1, config.Group{StartTime: 0, EatTime: 0})
	cfg.Tunables.WaiterPolicy = config.WaiterPolicyImmediate
	res, mem := run(t, cfg)

	require.Equal(t, 2, res.Served["waiter"])
	checkGroupPaths(t, mem.States())
}

func TestImmediateWaiterWithBusyChef(t *testing.T) {
	t.Parallel()

	groups := make([]config.Group, 4)
	for g := range groups {
		groups[g] = config.Group{StartTime: g, EatTime: 10}
	}
	cfg := newConfig(4, groups...)
	cfg.Tunables.WaiterPolicy = config.WaiterPolicyImmediate
	cfg.Tunables.CookMin = 10000
	cfg.Tunables.CookMax = 1000
	res, mem := run(t, cfg)

	require.Equal(t, 8, res.Served["waiter"])
	require.Equal(t, 4, res.Served["chef"])
	states := mem.States()
	checkInvariants(t, states)
	checkGroupPaths(t, states)
	checkChefCycle(t, states)

	// A new order is only recorded once the previous dish was delivered.
	for i := 1; i < len(states); i++ {
		prev, cur := states[i-1], states[i]
		if prev.FoodOrder && cur.FoodOrder {
			require.Equal(t, prev.FoodGroup, cur.FoodGroup, "state %d replaced an outstanding order", i)
		}
	}
}

func TestMissingChefTriggersWatchdog(t *testing.T) {
	t.Parallel()

	cfg := newConfig(2, config.Group{StartTime: 0, EatTime: 0})
	cfg.Tunables.WatchdogTimeout = config.TomlDuration(200 * time.Millisecond)
	var out bytes.Buffer
	s, err := New(cfg, nil, WithReportOutput(&out), withoutActor(model.ChefActor()), WithRunID("deadlock"))
	require.NoError(t, err)
	require.Equal(t, "deadlock", s.RunID())

	res, err := s.Run(context.Background())
	require.True(t, cerrors.ErrDeadlock.Equal(err), "%v", err)
	require.False(t, res.Completed)
	require.NotNil(t, res.Report)

	var waiterLast *sem.Key
	for _, a := range res.Report.Actors {
		if a.Actor == model.WaiterActor() {
			require.True(t, a.HasLast)
			require.Equal(t, sem.ActionDown, a.Last.Action)
			key := a.Last.Key
			waiterLast = &key
		}
	}
	require.NotNil(t, waiterLast)
	require.Equal(t, sem.OrderReceived(), *waiterLast)
	require.Equal(t, model.GroupWaitForFood, res.Final.St.Groups[0])
	require.True(t, res.Final.FoodOrder)
	require.Contains(t, out.String(), "DEADLOCK")
	require.Contains(t, out.String(), "waiter")
	require.Positive(t, res.Saves)
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(newConfig(2), nil)
	require.True(t, cerrors.ErrInvalidConfig.Equal(err))
}
