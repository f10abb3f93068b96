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

package run

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"github.com/pingcap/failpoint"
	"github.com/pingcap/log"
	"github.com/pingcap/semrestaurant/pkg/actor"
	"github.com/pingcap/semrestaurant/pkg/cmd/util"
	cerrors "github.com/pingcap/semrestaurant/pkg/errors"
	"github.com/pingcap/semrestaurant/pkg/logutil"
	"github.com/pingcap/semrestaurant/pkg/model"
	"github.com/pingcap/semrestaurant/pkg/restaurant"
	"github.com/pingcap/semrestaurant/pkg/sem"
	"github.com/pingcap/semrestaurant/pkg/shm"
	"github.com/pingcap/semrestaurant/pkg/sim"
	"github.com/pingcap/semrestaurant/pkg/statelog"
	"github.com/pingcap/semrestaurant/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options defines flags for the `run` command.
type options struct {
	*configOptions

	logFile     string
	logLevel    string
	stateLog    string
	metricsAddr string
}

// newOptions creates new options for the `run` command.
func newOptions() *options {
	return &options{configOptions: newConfigOptions()}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to template printing to it.
func (o *options) addFlags(cmd *cobra.Command) {
	o.configOptions.addFlags(cmd)
	cmd.Flags().StringVar(&o.logFile, "log-file", "", "log file path")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "info", "log level (etc: debug|info|warn|error)")
	cmd.Flags().StringVar(&o.stateLog, "state-log", "", "Path of the file every saved state is appended to")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "Serve prometheus metrics, build status and the log level endpoint on this address while the restaurant runs")
}

type summary struct {
	RunID            string          `json:"run-id"`
	Completed        bool            `json:"completed"`
	Elapsed          string          `json:"elapsed"`
	Served           map[string]int  `json:"served"`
	Seating          []model.GroupID `json:"seating"`
	Saves            int             `json:"saves"`
	MaxGroupsWaiting int             `json:"max-groups-waiting"`
	MaxPendingOrders int             `json:"max-pending-orders"`
}

// run runs the `run` cmd.
func (o *options) run(cmd *cobra.Command) error {
	ctx, cancel := util.InitCmd(cmd, &logutil.Config{File: o.logFile, Level: o.logLevel})
	defer cancel()

	version.LogVersionInfo("semaphore restaurant")
	for _, path := range failpoint.List() {
		status, err := failpoint.Status(path)
		if err != nil {
			log.Error("fail to get failpoint status", zap.Error(err))
		}
		log.Info("failpoint enabled", zap.String("path", path), zap.String("status", status))
	}
	log.Info("restaurant config", zap.Stringer("config", o.cfg))

	if len(o.metricsAddr) > 0 {
		stop, err := serveStatus(o.metricsAddr)
		if err != nil {
			return errors.Trace(err)
		}
		defer stop()
	}

	runID := uuid.New().String()
	var saver shm.StateSaver
	if len(o.stateLog) > 0 {
		f, err := statelog.Open(o.stateLog, len(o.cfg.Groups), o.cfg.Tunables.Tables, runID)
		if err != nil {
			return errors.Trace(err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Warn("close state log failed", zap.Error(err))
			}
		}()
		saver = f
	}

	s, err := sim.New(o.cfg, saver, sim.WithRunID(runID), sim.WithReportOutput(os.Stderr))
	if err != nil {
		return errors.Trace(err)
	}
	done := make(chan struct{})
	// Actors stop at their next blocking point once the context is canceled.
	util.InitSignalHandling(func() <-chan struct{} {
		cancel()
		return done
	}, cancel)

	res, err := s.Run(ctx)
	close(done)
	if res != nil {
		if perr := util.JSONPrint(cmd, summary{
			RunID:            res.RunID,
			Completed:        res.Completed,
			Elapsed:          res.Elapsed.String(),
			Served:           res.Served,
			Seating:          res.Seating,
			Saves:            res.Saves,
			MaxGroupsWaiting: res.MaxGroupsWaiting,
			MaxPendingOrders: res.MaxPendingOrders,
		}); perr != nil {
			log.Warn("print summary failed", zap.Error(perr))
		}
	}
	if err != nil {
		code, _ := cerrors.RFCCode(err)
		log.Error("restaurant run failed",
			zap.String("kind", failureKind(err)),
			zap.String("code", string(code)),
			zap.String("error", errors.ErrorStack(err)))
		return errors.Trace(err)
	}
	log.Info("restaurant run exits successfully")
	return nil
}

// failureKind classifies why a run failed.
func failureKind(err error) string {
	switch {
	case cerrors.IsSetupError(err):
		return "setup"
	case cerrors.Is(err, cerrors.ErrDeadlock):
		return "deadlock"
	case cerrors.IsProtocolViolation(err):
		return "protocol-violation"
	case errors.Cause(err) == context.Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// handleLogLevel changes the log level of a running restaurant. The body is
// a JSON string such as "debug".
func handleLogLevel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}
	var level string
	if err := json.NewDecoder(r.Body).Decode(&level); err != nil {
		http.Error(w, cerrors.ErrInvalidArgument.GenWithStackByArgs(
			"invalid log level: "+err.Error()).Error(), http.StatusBadRequest)
		return
	}
	if err := logutil.SetLogLevel(level); err != nil {
		http.Error(w, cerrors.ErrInvalidArgument.GenWithStackByArgs(
			"fail to change log level: "+level).Error(), http.StatusBadRequest)
		return
	}
	log.Warn("log level changed", zap.String("level", level))
	w.WriteHeader(http.StatusOK)
}

// handleStatus reports the build and process of a running restaurant.
func handleStatus(w http.ResponseWriter, r *http.Request) {
	status := struct {
		version.Info
		Pid int `json:"pid"`
	}{Info: version.Get(), Pid: os.Getpid()}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Warn("write status failed", zap.Error(err))
	}
}

// serveStatus serves the metrics and the admin endpoints on addr.
func serveStatus(addr string) (stop func(), err error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sem.InitMetrics(registry)
	actor.InitMetrics(registry)
	restaurant.InitMetrics(registry)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Annotate(err, "listen metrics address")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", handleStatus)
	mux.HandleFunc("/admin/log", handleLogLevel)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving status", zap.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// NewCmdRun creates the `run` command.
func NewCmdRun() *cobra.Command {
	o := newOptions()

	command := &cobra.Command{
		Use:   "run",
		Short: "Run the restaurant simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.complete(cmd); err != nil {
				return err
			}
			return o.run(cmd)
		},
	}

	o.addFlags(command)

	return command
}
