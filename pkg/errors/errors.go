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

package errors

import (
	"github.com/pingcap/errors"
)

// errors
var (
	// setup errors
	ErrInvalidConfig = errors.Normalize(
		"invalid config: %s",
		errors.RFCCodeText("RST:ErrInvalidConfig"),
	)
	ErrParseGroupConfig = errors.Normalize(
		"parse group config %s failed: %s",
		errors.RFCCodeText("RST:ErrParseGroupConfig"),
	)
	ErrInvalidArgument = errors.Normalize(
		"invalid argument: %s",
		errors.RFCCodeText("RST:ErrInvalidArgument"),
	)
	ErrUnknownSemaphore = errors.Normalize(
		"semaphore %s is not registered",
		errors.RFCCodeText("RST:ErrUnknownSemaphore"),
	)
	ErrOpenStateLog = errors.Normalize(
		"open state log %s failed: %s",
		errors.RFCCodeText("RST:ErrOpenStateLog"),
	)

	// semaphore and shared state errors
	ErrSemaphoreDown = errors.Normalize(
		"down on semaphore %s interrupted: %s",
		errors.RFCCodeText("RST:ErrSemaphoreDown"),
	)
	ErrSaveState = errors.Normalize(
		"save state failed: %s",
		errors.RFCCodeText("RST:ErrSaveState"),
	)
	ErrGuardReleased = errors.Normalize(
		"shared state guard is used after it was released",
		errors.RFCCodeText("RST:ErrGuardReleased"),
	)

	// protocol violations
	ErrUnexpectedRequest = errors.Normalize(
		"%s received unexpected request %s",
		errors.RFCCodeText("RST:ErrUnexpectedRequest"),
	)
	ErrTableNotAssigned = errors.Normalize(
		"group %d has no table assigned",
		errors.RFCCodeText("RST:ErrTableNotAssigned"),
	)
	ErrTableStateInconsistent = errors.Normalize(
		"table occupancy is inconsistent: %s",
		errors.RFCCodeText("RST:ErrTableStateInconsistent"),
	)
	ErrGroupAlreadyWaiting = errors.Normalize(
		"group %d is already in the waitlist",
		errors.RFCCodeText("RST:ErrGroupAlreadyWaiting"),
	)
	ErrWaitlistFull = errors.Normalize(
		"waitlist is full, capacity %d",
		errors.RFCCodeText("RST:ErrWaitlistFull"),
	)

	// runtime errors
	ErrActorAlreadyExists = errors.Normalize(
		"actor %s already exists",
		errors.RFCCodeText("RST:ErrActorAlreadyExists"),
	)
	ErrActorFailed = errors.Normalize(
		"actor %s failed: %s",
		errors.RFCCodeText("RST:ErrActorFailed"),
	)
	ErrDeadlock = errors.Normalize(
		"deadlock detected, actors did not finish within %s",
		errors.RFCCodeText("RST:ErrDeadlock"),
	)
)
