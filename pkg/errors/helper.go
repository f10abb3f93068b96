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

// WrapError generates a new error based on given `*errors.Error`, wraps the err
// as cause error.
// If given `err` is nil, returns a nil error, which is different from the
// behavior of `errors.Error.Wrap`.
func WrapError(rfcError *errors.Error, err error, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return rfcError.Wrap(err).GenWithStackByCause(args...)
}

// Is returns true if any error in the chain of err is the normalized error
// target. Unlike (*errors.Error).Equal it also matches errors that were
// wrapped around a cause by WrapError.
func Is(err error, target *errors.Error) bool {
	return find(err, func(e *errors.Error) bool { return e.ID() == target.ID() }) != nil
}

// find walks the chain of err from the outermost error and returns the first
// normalized error accepted by match.
func find(err error, match func(e *errors.Error) bool) *errors.Error {
	for err != nil {
		if e, ok := err.(*errors.Error); ok && match(e) {
			return e
		}
		switch x := err.(type) {
		case interface{ Unwrap() []error }:
			// Combined failures of several actors.
			for _, inner := range x.Unwrap() {
				if e := find(inner, match); e != nil {
					return e
				}
			}
			return nil
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		case interface{ Cause() error }:
			err = x.Cause()
		default:
			return nil
		}
	}
	return nil
}

// protocolViolations are the errors raised when an actor observes something
// the protocol guarantees never happens.
var protocolViolations = []*errors.Error{
	ErrUnexpectedRequest,
	ErrTableNotAssigned,
	ErrTableStateInconsistent,
	ErrGroupAlreadyWaiting,
	ErrWaitlistFull,
	ErrGuardReleased,
}

// IsProtocolViolation returns true if the err is raised by a broken
// synchronization protocol rather than by setup or cancellation.
func IsProtocolViolation(err error) bool {
	for _, e := range protocolViolations {
		if Is(err, e) {
			return true
		}
	}
	return false
}

// IsSetupError returns true if the err is raised before any actor starts.
func IsSetupError(err error) bool {
	return Is(err, ErrInvalidConfig) ||
		Is(err, ErrParseGroupConfig) ||
		Is(err, ErrInvalidArgument) ||
		Is(err, ErrUnknownSemaphore) ||
		Is(err, ErrOpenStateLog)
}

// RFCCode returns the RFC code of the outermost normalized error in the
// chain of err, or false if there is none.
func RFCCode(err error) (errors.RFCErrorCode, bool) {
	e := find(err, func(*errors.Error) bool { return true })
	if e == nil {
		return "", false
	}
	return e.RFCCode(), true
}
