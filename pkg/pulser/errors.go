/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package pulser

import (
	"errors"
	"fmt"
)

// ErrKind tells whether an error must abort the run or only the change
// that caused it.
type ErrKind int

const (
	Fatal ErrKind = iota
	Recoverable
)

func (k ErrKind) String() string {
	if k == Recoverable {
		return "recoverable"
	}
	return "fatal"
}

type ErrCode int

const (
	CodeInvalidTime ErrCode = iota
	CodeUnknownPulse
	CodeDuplicatePulse
	CodeAlreadySet
	CodeConfig
	CodePhaseUnmapped
	CodeOverlap
	CodePaddingCollision
	CodeSequenceTooLong
	CodeTooManyEntries
	CodeInvalidValue
	CodeWrongPhase
	CodeTransport
	CodeCancelled
)

var codeNames = map[ErrCode]string{
	CodeInvalidTime:      "invalid time",
	CodeUnknownPulse:     "unknown pulse",
	CodeDuplicatePulse:   "duplicate pulse",
	CodeAlreadySet:       "already set",
	CodeConfig:           "configuration error",
	CodePhaseUnmapped:    "phase type not mapped",
	CodeOverlap:          "pulse overlap",
	CodePaddingCollision: "padding collision",
	CodeSequenceTooLong:  "sequence too long",
	CodeTooManyEntries:   "too many table entries",
	CodeInvalidValue:     "invalid value",
	CodeWrongPhase:       "operation not allowed now",
	CodeTransport:        "communication failure",
	CodeCancelled:        "cancelled",
}

func (c ErrCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error code %d", int(c))
}

// Error is returned by every operation of the package.
// Only Fatal errors are meant to unwind past the experiment loop.
type Error struct {
	Kind ErrKind
	Code ErrCode
	What string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.What, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.What)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrCode, format string, v ...interface{}) *Error {
	return &Error{Kind: Fatal, Code: code, What: fmt.Sprintf(format, v...)}
}

// ErrInvalidTime returned when a time can not be expressed in ticks
type ErrInvalidTime struct {
	Time   float64
	Reason string
}

func (e ErrInvalidTime) Error() string {
	return fmt.Sprintf("invalid time %g s: %s", e.Time, e.Reason)
}

func invalidTime(t float64, reason string) *Error {
	return &Error{Kind: Fatal, Code: CodeInvalidTime, What: "conversion to ticks failed",
		Err: ErrInvalidTime{Time: t, Reason: reason}}
}

// ErrPulseOverlap returned when two pulses share a channel at the same time
type ErrPulseOverlap struct {
	First   int
	Second  int
	Channel string
}

func (e ErrPulseOverlap) Error() string {
	return fmt.Sprintf("pulses #%d and #%d overlap on channel %s", e.First, e.Second, e.Channel)
}

// asKind returns err with the given kind if it is one of ours.
func asKind(err error, kind ErrKind) error {
	var perr *Error
	if errors.As(err, &perr) {
		c := *perr
		c.Kind = kind
		return &c
	}
	return err
}

// IsRecoverable reports whether err only invalidates the last change request.
func IsRecoverable(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == Recoverable
}

// IsFatal reports whether err must stop the run.
func IsFatal(err error) bool {
	return err != nil && !IsRecoverable(err)
}

// HasCode reports whether err is a pulser error with the given code.
func HasCode(err error, code ErrCode) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Code == code
}
