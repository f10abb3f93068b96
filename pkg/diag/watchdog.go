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
	"context"
	"io"
	"time"

	"github.com/pingcap/log"
	"github.com/pingcap/semrestaurant/pkg/clock"
	"go.uber.org/zap"
)

// DefaultWatchdogTimeout is the time every actor has to finish.
const DefaultWatchdogTimeout = 5 * time.Second

// Watchdog reports and terminates a restaurant whose actors do not all
// finish before a deadline.
type Watchdog struct {
	Clock   clock.Clock
	Timeout time.Duration
	Board   *Board
	Source  StateSource
	Live    Liveness
	// Out receives the rendered report, it may be nil.
	Out io.Writer
	// Terminate forcibly stops every actor.
	Terminate func()
}

// Run arms the deadline and waits. It returns nil if done is closed or ctx
// is canceled first. Otherwise it renders the report to Out, terminates all
// actors and returns the report.
func (w *Watchdog) Run(ctx context.Context, done <-chan struct{}) *Report {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultWatchdogTimeout
	}
	timer := w.Clock.Timer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-done:
		return nil
	case <-timer.C:
	}

	report := Collect(timeout, w.Board, w.Source, w.Live)
	stuck := report.Stuck()
	log.Warn("watchdog fired, actors did not finish in time",
		zap.Duration("timeout", timeout),
		zap.Int("actors", len(report.Actors)),
		zap.Int("blocked", len(stuck)))
	for _, a := range stuck {
		log.Warn("actor blocked",
			zap.Stringer("actor", a.Actor),
			zap.String("stage", a.Stage),
			zap.Stringer("semaphore", a.Last.Key),
			zap.String("reason", a.Last.Reason))
	}
	if w.Out != nil {
		if err := report.Render(w.Out); err != nil {
			log.Warn("render deadlock report failed", zap.Error(err))
		}
	}
	if w.Terminate != nil {
		w.Terminate()
	}
	return report
}
