// Copyright (C) 2024 right-sizer contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package errors gives each error kind a distinguishable type instead
// of string-matching, so callers can branch on Category rather than
// parsing messages.
package errors

import (
	"errors"
	"fmt"
)

// Error categories used across the control loop.
const (
	CategoryDecode        = "decode"         // transient telemetry decode error
	CategoryIngressDrop   = "ingress_drop"   // ingress overflow
	CategoryOrchestrator  = "orchestrator"   // read/patch failure
	CategoryNoProcessing  = "no_processing"  // no processing rate reported
	CategoryBusDisconnect = "bus_disconnect" // bus disconnect
	CategoryStartup       = "startup"        // fatal startup failure
)

// ControlError is a structured error carrying the failure category and
// the operation it occurred in.
type ControlError struct {
	Category string
	Op       string
	Err      error
	Message  string
}

func (e *ControlError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Category, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ControlError) Unwrap() error { return e.Err }

// Is implements error matching for errors.Is: two ControlErrors match
// when their category matches and either the target's Op is empty or
// matches exactly.
func (e *ControlError) Is(target error) bool {
	t, ok := target.(*ControlError)
	if !ok {
		return false
	}
	return e.Category == t.Category && (t.Op == "" || e.Op == t.Op)
}

// Wrap wraps err with category/op context. Returns nil if err is nil.
func Wrap(err error, category, op, message string) error {
	if err == nil {
		return nil
	}
	return &ControlError{Category: category, Op: op, Err: err, Message: message}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, category, op, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ControlError{Category: category, Op: op, Err: err, Message: fmt.Sprintf(format, args...)}
}

// New creates a ControlError without an underlying error.
func New(category, op, message string) error {
	return &ControlError{Category: category, Op: op, Err: errors.New(message), Message: message}
}

// Newf creates a ControlError with a formatted message.
func Newf(category, op, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return &ControlError{Category: category, Op: op, Err: errors.New(msg), Message: msg}
}

// IsCategory reports whether err (or something it wraps) belongs to category.
func IsCategory(err error, category string) bool {
	var ce *ControlError
	if errors.As(err, &ce) {
		return ce.Category == category
	}
	return false
}

// GetCategory extracts the category from err, or "" if it is not a ControlError.
func GetCategory(err error) string {
	var ce *ControlError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// OrchestratorError wraps an orchestrator read/patch failure.
func OrchestratorError(op string, err error) error {
	return Wrap(err, CategoryOrchestrator, op, "")
}

// OrchestratorErrorf wraps an orchestrator failure with a message.
func OrchestratorErrorf(op string, err error, format string, args ...interface{}) error {
	return Wrapf(err, CategoryOrchestrator, op, format, args...)
}

// DecodeError wraps a malformed-event decode failure.
func DecodeError(op string, err error) error {
	return Wrap(err, CategoryDecode, op, "")
}

// StartupError wraps a fatal startup failure.
func StartupError(op string, err error) error {
	return Wrap(err, CategoryStartup, op, "")
}

// StartupErrorf creates a fatal startup failure with a formatted message
// and no underlying error.
func StartupErrorf(op, format string, args ...interface{}) error {
	return Newf(CategoryStartup, op, format, args...)
}
