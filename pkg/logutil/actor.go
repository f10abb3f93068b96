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

package logutil

import (
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

const (
	// constFieldRunKey is used to recognize logs of the same simulation run
	constFieldRunKey = "run-id"
	// constFieldRoleKey is used to recognize actors of the same role
	constFieldRoleKey  = "role"
	constFieldActorKey = "actor"
)

// NewLogger4Run returns a new logger for the coordinator of a simulation run.
func NewLogger4Run(runID string) *zap.Logger {
	return log.L().With(zap.String(constFieldRunKey, runID))
}

// NewLogger4Actor returns a new logger for one actor of a simulation run.
func NewLogger4Actor(runID string, role string, actorID string) *zap.Logger {
	return log.L().With(
		zap.String(constFieldRunKey, runID),
		zap.String(constFieldRoleKey, role),
		zap.String(constFieldActorKey, actorID),
	)
}
