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

// Package control runs the fixed-cadence closed loop: drain the store
// up to now, aggregate, evaluate the model selector and PD law,
// actuate, and emit scalar metrics. Every other package in this
// repo (sensors, aggregate, pid, modelselect, actuate, metricsink) is
// a leaf this package wires together; ControlLoop is the only place
// that holds ControllerState.
package control

import (
	"context"
	"time"

	"autoscalerd/actuate"
	"autoscalerd/aggregate"
	"autoscalerd/logger"
	"autoscalerd/metricsink"
	"autoscalerd/modelselect"
	"autoscalerd/pid"
	"autoscalerd/sensors"
)

// Config holds the immutable parameters loaded once at startup.
type Config struct {
	KP, KD            float64
	ContainerCapacity float64
	TargetFPS         float64
	BacklogHighWater  float64
	ControlPeriod     time.Duration
	SlidingWindow     time.Duration
	ModelSwapInterval time.Duration
	Namespace         string
	Deployment        string
	ModelVariants     []string
	// ExcludeTerminating, when true, makes Tick pass the set from
	// terminatingScopes to the aggregator as scopes to exclude. That set
	// is always empty, so every sample in the window is aggregated
	// either way. Defaults to false.
	ExcludeTerminating bool
}

// State is the control loop's own mutable state, confined to the
// control-loop thread. The current replica count is not duplicated
// here: it lives in the Actuator's per-model hysteresis shadow.
type State struct {
	PreviousError   float64
	ActiveModel     string
	LastControlTS   time.Time
	LastModelSwapTS time.Time
}

// ControlLoop ties the leaf packages together into the fixed-cadence
// loop.
type ControlLoop struct {
	cfg      Config
	store    *sensors.Store
	agg      *aggregate.Aggregator
	selector *modelselect.Selector
	actuator *actuate.Actuator
	sink     metricsink.Sink

	// OnTick, when set, is invoked after every tick Run schedules,
	// including skipped ones, so a liveness probe can observe the
	// loop's cadence.
	OnTick func(now time.Time)

	state State
}

// New builds a ControlLoop. startedAt seeds the model-swap cooldown
// (modelselect.New) and the initial ControllerState.
func New(cfg Config, store *sensors.Store, actuator *actuate.Actuator, sink metricsink.Sink, startedAt time.Time) *ControlLoop {
	return &ControlLoop{
		cfg:      cfg,
		store:    store,
		agg:      aggregate.New(store),
		selector: modelselect.New(cfg.BacklogHighWater, cfg.ModelSwapInterval, startedAt),
		actuator: actuator,
		sink:     sink,
		state: State{
			ActiveModel:   modelselect.ModelFullPrecision,
			LastControlTS: startedAt,
		},
	}
}

// State returns a copy of the current ControllerState, for tests and
// debug logging.
func (c *ControlLoop) State() State { return c.state }

// Run executes Tick on a fixed cadence until ctx is canceled. On
// cancellation it stops scheduling new ticks without attempting a
// final actuation, and closes the metrics sink.
func (c *ControlLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ControlPeriod)
	defer ticker.Stop()
	defer func() {
		if err := c.sink.Close(); err != nil {
			logger.Warn("control: metrics sink close failed: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.Tick(ctx, now)
			if c.OnTick != nil {
				c.OnTick(now)
			}
		}
	}
}

// Tick executes one control-loop iteration.
func (c *ControlLoop) Tick(ctx context.Context, now time.Time) {
	// Prune samples that have fallen outside the window as of now. The
	// ingress worker already writes every event into the store as it
	// arrives; this is the control loop's side of "draining up to
	// now" - bounding aggregation to a snapshot no staler than the
	// sliding window.
	c.store.GC(now)

	var excluded map[string]struct{}
	if c.cfg.ExcludeTerminating {
		excluded = c.terminatingScopes(ctx)
	}

	q := c.agg.TotalQueued(now, excluded)
	r := c.agg.TotalProcessingRate(now, excluded)

	if r == 0 {
		logger.Info("control: no processing rate reported, skipping tick (q=%v)", q)
		return
	}

	if c.selector.Enabled() && c.selector.ShouldSwap(q, now) {
		c.swapModel(ctx, now)
		return
	}

	errVal := c.cfg.TargetFPS + q
	target, newPreviousError, u := pid.Step(errVal, c.state.PreviousError, c.cfg.KP, c.cfg.KD, c.cfg.ContainerCapacity)
	diff := errVal - c.state.PreviousError
	c.state.PreviousError = newPreviousError
	c.state.LastControlTS = now

	actuateCtx, cancel := context.WithTimeout(ctx, c.cfg.ControlPeriod/2)
	defer cancel()

	runningPods, err := c.actuator.Reconcile(actuateCtx, actuate.Intent{Target: target, Model: c.state.ActiveModel})
	if err != nil {
		logger.Error("control: reconcile failed: %v", err)
	}

	c.emit(now, map[string]float64{
		"error":          errVal,
		"diff_error":     diff,
		"control_signal": u,
		"target":         float64(target),
		"running_pods":   float64(runningPods),
		"q":              q,
		"r":              r,
	})
}

func (c *ControlLoop) swapModel(ctx context.Context, now time.Time) {
	drainCtx, cancel := context.WithTimeout(ctx, c.cfg.ControlPeriod/2)
	defer cancel()

	outgoing := c.state.ActiveModel
	if err := c.actuator.Drain(drainCtx, outgoing); err != nil {
		logger.Error("control: drain failed during model swap: %v", err)
		return
	}

	c.selector.Swap(now)
	c.state.ActiveModel = c.selector.Active()
	c.state.LastModelSwapTS = now
	logger.Info("control: model swap %s -> %s", outgoing, c.state.ActiveModel)
}

// terminatingScopes is a hook for excluding terminating pods from
// aggregation; the orchestrator client does not correlate pod phase
// with telemetry scope, so this currently always returns an empty
// set. It is kept as its own method so that correlation can be added
// without touching Tick's control flow.
func (c *ControlLoop) terminatingScopes(ctx context.Context) map[string]struct{} {
	return nil
}

func (c *ControlLoop) emit(now time.Time, scalars map[string]float64) {
	for name, value := range scalars {
		c.sink.Emit(metricsink.Sample{Name: name, Value: value, At: now})
	}
}
