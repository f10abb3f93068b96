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

// Package statelog persists the snapshots of the shared state that actors
// save inside their critical sections.
package statelog

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pingcap/errors"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultMaxSizeMB = 300

// File writes one line per saved state to a log file.
type File struct {
	w   io.WriteCloser
	enc zapcore.Encoder
	seq uint64
	now func() time.Time
}

// Open creates or appends to the state log at path and writes a header line
// describing the restaurant.
func Open(path string, nGroups, nTables int, runID string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, cerrors.WrapError(cerrors.ErrOpenStateLog, err, path)
	}
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, cerrors.WrapError(cerrors.ErrOpenStateLog, err, path)
	}
	if err := fd.Close(); err != nil {
		return nil, cerrors.WrapError(cerrors.ErrOpenStateLog, err, path)
	}
	f := newFile(&lumberjack.Logger{
		Filename: path,
		MaxSize:  defaultMaxSizeMB,
	})
	if err := f.write("restaurant", []zapcore.Field{
		zap.String("run-id", runID),
		zap.Int("groups", nGroups),
		zap.Int("tables", nTables),
	}); err != nil {
		_ = f.Close()
		return nil, cerrors.WrapError(cerrors.ErrOpenStateLog, err, path)
	}
	return f, nil
}

func newFile(w io.WriteCloser) *File {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.LevelKey = ""
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	return &File{
		w:   w,
		enc: zapcore.NewConsoleEncoder(encCfg),
		now: time.Now,
	}
}

// SaveState implements shm.StateSaver. It is only called with the mutex held,
// so it needs no locking of its own.
func (f *File) SaveState(st *model.FullState) error {
	f.seq++
	return errors.Trace(f.write("state", stateFields(f.seq, st)))
}

func (f *File) write(msg string, fields []zapcore.Field) error {
	buf, err := f.enc.EncodeEntry(zapcore.Entry{Time: f.now(), Message: msg}, fields)
	if err != nil {
		return errors.Trace(err)
	}
	defer buf.Free()
	_, err = f.w.Write(buf.Bytes())
	return errors.Trace(err)
}

// Close closes the log file.
func (f *File) Close() error {
	return errors.Trace(f.w.Close())
}

func stateFields(seq uint64, st *model.FullState) []zapcore.Field {
	groups := make([]string, len(st.St.Groups))
	for g, s := range st.St.Groups {
		groups[g] = s.String()
	}
	tables := make([]int, len(st.AssignedTable))
	for g, t := range st.AssignedTable {
		tables[g] = int(t)
	}
	return []zapcore.Field{
		zap.Uint64("seq", seq),
		zap.Stringer("chef", st.St.Chef),
		zap.Stringer("waiter", st.St.Waiter),
		zap.Stringer("receptionist", st.St.Receptionist),
		zap.String("groups", strings.Join(groups, " ")),
		zap.Ints("tables", tables),
		zap.Int("waiting", st.GroupsWaiting),
		zap.Bool("food-order", st.FoodOrder),
		zap.Int("food-group", int(st.FoodGroup)),
	}
}

// Memory records every saved state in memory. It is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	states []*model.FullState
}

// NewMemory creates an empty recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// SaveState implements shm.StateSaver.
func (m *Memory) SaveState(st *model.FullState) error {
	cp := st.Clone()
	m.mu.Lock()
	m.states = append(m.states, cp)
	m.mu.Unlock()
	return nil
}

// States returns the recorded states in save order.
func (m *Memory) States() []*model.FullState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.FullState(nil), m.states...)
}

// Len returns the number of recorded states.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// Tee saves every state to all of its savers, stopping at the first error.
type Tee []interface {
	SaveState(st *model.FullState) error
}

// SaveState implements shm.StateSaver.
func (t Tee) SaveState(st *model.FullState) error {
	for _, s := range t {
		if err := s.SaveState(st); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Stats keeps running aggregates of the saved states. It is safe for
// concurrent use.
type Stats struct {
	mu          sync.Mutex
	saves       int
	maxWaiting  int
	maxOccupied int
}

// NewStats creates empty aggregates.
func NewStats() *Stats {
	return &Stats{}
}

// SaveState implements shm.StateSaver.
func (s *Stats) SaveState(st *model.FullState) error {
	occupied := st.OccupiedTables()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if st.GroupsWaiting > s.maxWaiting {
		s.maxWaiting = st.GroupsWaiting
	}
	if occupied > s.maxOccupied {
		s.maxOccupied = occupied
	}
	return nil
}

// Saves returns the number of saved states.
func (s *Stats) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// MaxGroupsWaiting returns the longest waitlist seen.
func (s *Stats) MaxGroupsWaiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxWaiting
}

// MaxOccupiedTables returns the largest number of tables taken at once.
func (s *Stats) MaxOccupiedTables() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxOccupied
}
