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

// Package ingress decouples the bus's callback thread from the
// control loop. The bus callback only ever enqueues onto a bounded
// channel; a dedicated worker drains it into the sensor store.
package ingress

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"autoscalerd/bus"
	cerrors "autoscalerd/errors"
	"autoscalerd/logger"
	"autoscalerd/sensors"
)

// DefaultCapacity is the default bounded-channel size.
const DefaultCapacity = 4096

// DrainDeadline bounds how long the worker keeps draining after
// shutdown is requested.
const DrainDeadline = 100 * time.Millisecond

// TelemetryIngress receives bus events through OnEvent and writes
// validated events into a sensors.Store via a dedicated worker
// goroutine.
type TelemetryIngress struct {
	store    *sensors.Store
	queue    chan sensors.Event
	capacity int

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}

	dropped    atomic.Int64
	decodeErrs atomic.Int64
}

// New creates a TelemetryIngress backed by store, with a bounded
// channel of the given capacity (DefaultCapacity if capacity <= 0).
func New(store *sensors.Store, capacity int) *TelemetryIngress {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &TelemetryIngress{
		store:    store,
		queue:    make(chan sensors.Event, capacity),
		capacity: capacity,
	}
}

// Start launches the drain worker. Call Stop to shut it down.
func (ti *TelemetryIngress) Start() {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if ti.done != nil {
		return
	}
	ti.done = make(chan struct{})
	ti.stopped = make(chan struct{})
	go ti.run(ti.done, ti.stopped)
}

// Stop signals the worker to drain remaining items up to
// DrainDeadline, then return.
func (ti *TelemetryIngress) Stop() {
	ti.mu.Lock()
	done, stopped := ti.done, ti.stopped
	ti.mu.Unlock()
	if done == nil {
		return
	}
	close(done)
	<-stopped
}

// OnEvent is the bus.Handler passed to Bus.Subscribe. It never
// blocks: on a full queue it drops the oldest pending event and
// increments the overflow counter.
func (ti *TelemetryIngress) OnEvent(raw bus.RawEvent) {
	ev, err := decode(raw)
	if err != nil {
		ti.decodeErrs.Add(1)
		logger.Error("ingress: dropping malformed event: %v", err)
		return
	}

	select {
	case ti.queue <- ev:
		return
	default:
	}

	// Queue full: drop the oldest pending event to make room, per the
	// drop-oldest overflow policy.
	select {
	case <-ti.queue:
		ti.dropped.Add(1)
	default:
	}
	select {
	case ti.queue <- ev:
	default:
		ti.dropped.Add(1)
	}
}

func decode(raw bus.RawEvent) (sensors.Event, error) {
	if len(raw.SensorName) == 0 {
		return sensors.Event{}, cerrors.New(cerrors.CategoryDecode, "decode", "empty sensor name")
	}
	name := string(raw.SensorName)
	for _, r := range name {
		if r < 0x20 || r > 0x7e {
			return sensors.Event{}, cerrors.Newf(cerrors.CategoryDecode, "decode", "sensor name %q contains non-printable byte", name)
		}
	}
	if raw.Scope == "" {
		return sensors.Event{}, cerrors.New(cerrors.CategoryDecode, "decode", "empty scope")
	}
	if math.IsNaN(raw.Value) || math.IsInf(raw.Value, 0) {
		return sensors.Event{}, cerrors.Newf(cerrors.CategoryDecode, "decode", "non-numeric value %s", strconv.FormatFloat(raw.Value, 'g', -1, 64))
	}
	return sensors.Event{
		Sensor:    name,
		TimeNanos: raw.TimeNanos,
		Scope:     raw.Scope,
		Value:     raw.Value,
	}, nil
}

// Dropped reports the number of events dropped for channel overflow.
func (ti *TelemetryIngress) Dropped() int64 { return ti.dropped.Load() }

// DecodeErrors reports the number of events dropped for decode failures.
func (ti *TelemetryIngress) DecodeErrors() int64 { return ti.decodeErrs.Load() }

func (ti *TelemetryIngress) run(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		select {
		case ev := <-ti.queue:
			ti.write(ev)
		case <-done:
			ti.drain()
			return
		}
	}
}

func (ti *TelemetryIngress) write(ev sensors.Event) {
	ti.store.Put(sensors.Key{Sensor: ev.Sensor, Scope: ev.Scope}, sensors.Sample{TNanos: ev.TimeNanos, Value: ev.Value})
}

func (ti *TelemetryIngress) drain() {
	deadline := time.NewTimer(DrainDeadline)
	defer deadline.Stop()
	for {
		select {
		case ev := <-ti.queue:
			ti.write(ev)
		case <-deadline.C:
			return
		}
	}
}
