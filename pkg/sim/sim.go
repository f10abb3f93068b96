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

// Package sim wires the restaurant together: it seeds the shared state,
// opens the restaurant, runs every actor and watches them until they leave.
package sim

import (
	"context"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"github.com/pingcap/semrestaurant/pkg/actor"
	"github.com/pingcap/semrestaurant/pkg/clock"
	"github.com/pingcap/semrestaurant/pkg/config"
	"github.com/pingcap/semrestaurant/pkg/diag"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/logutil"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/restaurant"
	"github.com/pingcap/semrestaurant/pkg/sem"
	"github.com/pingcap/semrestaurant/pkg/shm"
	"github.com/pingcap/semrestaurant/pkg/statelog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const systemName = "restaurant"

type options struct {
	clock clock.Clock
	out   io.Writer
	runID string
	skip  map[model.ActorID]struct{}
}

// Option customizes a Simulation.
type Option func(*options)

// WithClock sets the clock the actors sleep on and the watchdog runs on.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithReportOutput sets where the deadlock report is written. It defaults to
// os.Stderr.
func WithReportOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithRunID sets the id every log line of the run carries. A random one is
// generated by default.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// withoutActor leaves an actor out of the restaurant.
func withoutActor(id model.ActorID) Option {
	return func(o *options) {
		o.skip[id] = struct{}{}
	}
}

// Result is the outcome of a run.
type Result struct {
	RunID     string
	Completed bool
	Elapsed   time.Duration
	// Served counts the requests handled by each server actor.
	Served map[string]int
	// Seating lists groups in the order they were granted a table.
	Seating []model.GroupID
	// ActorElapsed is how long each spawned actor ran, keyed by actor name.
	ActorElapsed map[string]time.Duration

	Saves             int
	MaxGroupsWaiting  int
	MaxOccupiedTables int
	// MaxPendingOrders is the most food requests the waiter held back at
	// once while the chef was busy.
	MaxPendingOrders int
	// Final is the last published state.
	Final *model.FullState
	// Report is set when the watchdog fired.
	Report *diag.Report
}

// Simulation is one run of the restaurant.
type Simulation struct {
	cfg   *config.Config
	saver shm.StateSaver
	opts  options

	logger *zap.Logger
	stats  *statelog.Stats
	set    *sem.Set
	store  *shm.Store
	board  *diag.Board
}

// New validates cfg and prepares a run. Every saved state is handed to
// saver, which may be nil.
func New(cfg *config.Config, saver shm.StateSaver, opts ...Option) (*Simulation, error) {
	if err := cfg.ValidateAndAdjust(); err != nil {
		return nil, errors.Trace(err)
	}
	o := options{
		clock: clock.New(),
		out:   os.Stderr,
		skip:  make(map[model.ActorID]struct{}),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.New().String()
	}

	nGroups, nTables := len(cfg.Groups), cfg.Tunables.Tables
	reg := sem.NewRegistry(nGroups, nTables)
	stats := statelog.NewStats()
	tee := statelog.Tee{stats}
	if saver != nil {
		tee = append(tee, saver)
	}
	s := &Simulation{
		cfg:    cfg,
		saver:  tee,
		opts:   o,
		logger: logutil.NewLogger4Run(o.runID),
		stats:  stats,
		set:    sem.NewSet(reg),
		board:  diag.NewBoard(cfg.Tunables.DebugRingSize, reg),
	}
	return s, nil
}

// RunID returns the id of the run.
func (s *Simulation) RunID() string {
	return s.opts.runID
}

func (s *Simulation) initialState() *model.FullState {
	nGroups := len(s.cfg.Groups)
	st := model.NewFullState(nGroups, s.cfg.Tunables.Tables)
	for g, timing := range s.cfg.Groups {
		st.StartTime[g] = timing.StartTime
		st.EatTime[g] = timing.EatTime
		st.St.Groups[g] = model.GroupGoToRestaurant
		st.AssignedTable[g] = model.NoTable
	}
	st.St.Chef = model.ChefWaitForOrder
	st.St.Waiter = model.WaiterWaitForRequest
	st.St.Receptionist = model.ReceptionistWaiting
	st.GroupsWaiting = 0
	st.FoodOrder = false
	st.FoodGroup = model.NoGroup
	return st
}

// open saves the seeded state and releases the semaphores that start out
// available.
func (s *Simulation) open() error {
	state := s.initialState()
	if err := s.saver.SaveState(state); err != nil {
		return cerrors.WrapError(cerrors.ErrSaveState, err)
	}
	s.store = shm.NewStore(s.set, state, s.saver)

	client := s.set.Client(nil)
	for _, key := range []sem.Key{sem.Mutex(), sem.WaiterRequestPossible(), sem.ReceptionistRequestPossible()} {
		if err := client.Up(key, "open the restaurant"); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

type servers struct {
	receptionist *restaurant.Receptionist
	waiter       *restaurant.Waiter
	chef         *restaurant.Chef
}

func (s *Simulation) spawn(system *actor.System, seed int64) (*servers, error) {
	tu := s.cfg.Tunables
	nGroups := len(s.cfg.Groups)
	var n int64
	newEnv := func(id model.ActorID) (*restaurant.Env, error) {
		ring, err := s.board.Register(id)
		if err != nil {
			return nil, errors.Trace(err)
		}
		n++
		return &restaurant.Env{
			ID:       id,
			Handle:   s.store.Attach(s.set.Client(ring)),
			Clock:    s.opts.clock,
			Rand:     rand.New(rand.NewSource(seed + n)),
			Tunables: tu,
			Logger:   logutil.NewLogger4Actor(s.opts.runID, id.Role.String(), id.String()),
		}, nil
	}
	launch := func(id model.ActorID, build func(env *restaurant.Env) actor.Actor) error {
		if _, ok := s.opts.skip[id]; ok {
			s.logger.Warn("actor left out of the restaurant", zap.Stringer("actor", id))
			return nil
		}
		env, err := newEnv(id)
		if err != nil {
			return errors.Trace(err)
		}
		return system.Spawn(id, build(env))
	}

	srv := &servers{}
	for g, timing := range s.cfg.Groups {
		timing := timing
		id := model.GroupID(g)
		err := launch(model.GroupActor(id), func(env *restaurant.Env) actor.Actor {
			return restaurant.NewGroup(env, id, timing)
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
	}
	err := launch(model.WaiterActor(), func(env *restaurant.Env) actor.Actor {
		srv.waiter = restaurant.NewWaiter(env, nGroups, tu.WaiterPolicy)
		return srv.waiter
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	err = launch(model.ChefActor(), func(env *restaurant.Env) actor.Actor {
		srv.chef = restaurant.NewChef(env, nGroups)
		return srv.chef
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	err = launch(model.ReceptionistActor(), func(env *restaurant.Env) actor.Actor {
		srv.receptionist = restaurant.NewReceptionist(env, nGroups, tu.Tables)
		return srv.receptionist
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return srv, nil
}

// Run opens the restaurant and blocks until every actor has left or the
// watchdog has terminated them. A stalled run returns ErrDeadlock together
// with a Result carrying the report. Run must only be called once.
func (s *Simulation) Run(ctx context.Context) (*Result, error) {
	if err := s.open(); err != nil {
		return nil, errors.Trace(err)
	}
	seed := s.cfg.Tunables.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.logger.Info("restaurant opened",
		zap.Int("groups", len(s.cfg.Groups)),
		zap.Int("tables", s.cfg.Tunables.Tables),
		zap.String("waiter-policy", string(s.cfg.Tunables.WaiterPolicy)),
		zap.Int64("seed", seed))

	start := s.opts.clock.Mono()
	system := actor.NewSystem(ctx, systemName, s.opts.clock)
	srv, err := s.spawn(system, seed)
	system.Seal()
	if err != nil {
		system.Terminate()
		<-system.Done()
		return nil, errors.Trace(err)
	}

	wd := &diag.Watchdog{
		Clock:     s.opts.clock,
		Timeout:   s.cfg.Tunables.WatchdogTimeout.Duration(),
		Board:     s.board,
		Source:    s.store,
		Live:      system,
		Out:       s.opts.out,
		Terminate: system.Terminate,
	}
	var report *diag.Report
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		report = wd.Run(egCtx, system.Done())
		return nil
	})
	eg.Go(func() error {
		return system.Wait()
	})
	actorErr := eg.Wait()

	res := &Result{
		RunID:             s.opts.runID,
		Elapsed:           s.opts.clock.Mono().Sub(start),
		Served:            make(map[string]int),
		ActorElapsed:      make(map[string]time.Duration),
		Saves:             s.stats.Saves(),
		MaxGroupsWaiting:  s.stats.MaxGroupsWaiting(),
		MaxOccupiedTables: s.stats.MaxOccupiedTables(),
		Final:             s.store.Snapshot(),
		Report:            report,
	}
	for _, id := range system.Actors() {
		res.ActorElapsed[id.String()] = system.Elapsed(id)
	}
	if srv.receptionist != nil {
		res.Served[model.ReceptionistActor().String()] = srv.receptionist.Served()
		res.Seating = srv.receptionist.Seating()
	}
	if srv.waiter != nil {
		res.Served[model.WaiterActor().String()] = srv.waiter.Served()
		res.MaxPendingOrders = srv.waiter.MaxPending()
	}
	if srv.chef != nil {
		res.Served[model.ChefActor().String()] = srv.chef.Served()
	}

	switch {
	case report != nil:
		if actorErr != nil {
			s.logger.Error("actors failed before the restaurant stalled", zap.Error(actorErr))
		}
		return res, cerrors.ErrDeadlock.GenWithStackByArgs(wd.Timeout)
	case actorErr != nil:
		return res, errors.Trace(actorErr)
	case ctx.Err() != nil:
		return res, errors.Trace(ctx.Err())
	}
	res.Completed = true
	s.logger.Info("restaurant closed",
		zap.Duration("elapsed", res.Elapsed),
		zap.Any("served", res.Served))
	return res, nil
}
