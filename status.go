// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dla

import (
	"errors"
)

// Status is the result code of a driver operation.
// The driver returns them as errors, with OK represented by a nil error.
type Status int

const (
	OK     Status = iota
	Error         // Unspecified failure
	BadArg        // Precondition violated, hardware untouched
	Locked        // Reserved
)

var (
	ErrError  error = Error
	ErrBadArg error = BadArg
	ErrLocked error = Locked

	// ErrTimeout is returned when a bounded poll gives up.
	ErrTimeout = errors.New("dla: poll limit exceeded")
	// ErrVerify is returned when DDR read back does not match.
	ErrVerify = errors.New("dla: DDR verify mismatch")
)

func (s Status) Error() string {
	switch s {
	case OK:
		return "dla: ok"
	case Error:
		return "dla: error"
	case BadArg:
		return "dla: bad argument"
	case Locked:
		return "dla: locked"
	}
	return "dla: unknown status"
}

// StatusOf maps an error returned by the driver to its result code.
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return Error
}
