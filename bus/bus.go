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

// Package bus defines the telemetry bus client contract this repo
// consumes. The bus client library itself is an external collaborator
// out of scope for the core; this package only holds the
// interface TelemetryIngress receives events through, an in-memory
// fake for tests, a reconnecting adapter around a pluggable low-level
// publish/subscribe client, and the minimal TCP transport (wire.go)
// that cmd/simulate publishes over.
package bus

import "context"

// RawEvent is what the bus delivers to a subscriber, before it has
// been validated and turned into a sensors.Event.
type RawEvent struct {
	SensorName []byte
	TimeNanos  int64
	Scope      string
	Value      float64
}

// Handler processes a single raw event from the bus. It must not
// block: TelemetryIngress only ever enqueues from inside a Handler.
type Handler func(RawEvent)

// Bus is the subscribe/publish contract consumed by TelemetryIngress.
type Bus interface {
	// Subscribe begins streaming events to onEvent until ctx is
	// canceled or Close is called. It returns once the subscription
	// is established; delivery happens on a bus-owned callback thread.
	Subscribe(ctx context.Context, onEvent Handler) error
	Close() error
}
