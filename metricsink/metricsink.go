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

// Package metricsink records named scalar samples per control
// iteration for offline analysis, as a structured
// per-iteration (timestamp, name, value) record fed to one or more
// pluggable sinks.
package metricsink

import "time"

// Sample is one named scalar observation emitted by the ControlLoop
// each tick (error, diff_error, control_signal, target, running_pods,
// q, r).
type Sample struct {
	Name  string
	Value float64
	At    time.Time
}

// Sink receives every Sample the ControlLoop emits. Implementations
// must not block the control loop for long; slow sinks should buffer
// internally.
type Sink interface {
	Emit(s Sample)
	Close() error
}

// Multi fans a Sample out to every sink in order. A Close failure
// from one sink does not stop the rest from being closed.
type Multi struct {
	sinks []Sink
}

// NewMulti builds a Sink that fans out to every given sink.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Emit(s Sample) {
	for _, sink := range m.sinks {
		sink.Emit(s)
	}
}

func (m *Multi) Close() error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
