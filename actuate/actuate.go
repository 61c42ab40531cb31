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

// Package actuate reconciles a target replica count against the
// orchestrator, with hysteresis against redundant patches. Each
// successful or failed reconcile is recorded to an audit trail.
package actuate

import (
	"context"
	"time"

	cerrors "autoscalerd/errors"
	"autoscalerd/logger"
	"autoscalerd/orchestrator"
)

// Intent is the replica count and model variant the control loop wants
// in effect after this tick.
type Intent struct {
	Target int32
	Model  string
}

// Record is a single audit entry for one reconcile or drain call.
type Record struct {
	Timestamp      time.Time
	Namespace      string
	Deployment     string
	Model          string
	PreviousTarget int32
	NewTarget      int32
	RunningPods    int
	Status         string // "patched", "noop", "error"
	Error          string
}

// AuditTrail receives a Record for every reconcile/drain call. The
// default logs error records at error level and the rest at info
// level; callers may wrap it to also append to a
// file or metricsink.
type AuditTrail interface {
	Record(r Record)
}

// LogAuditTrail logs each record via the shared logger.
type LogAuditTrail struct{}

func (LogAuditTrail) Record(r Record) {
	if r.Status == "error" {
		logger.Error("actuate: namespace=%s deployment=%s model=%s target=%d running_pods=%d status=%s error=%s",
			r.Namespace, r.Deployment, r.Model, r.NewTarget, r.RunningPods, r.Status, r.Error)
		return
	}
	logger.Info("actuate: namespace=%s deployment=%s model=%s target=%d running_pods=%d status=%s",
		r.Namespace, r.Deployment, r.Model, r.NewTarget, r.RunningPods, r.Status)
}

// Actuator owns the hysteresis shadow (current replicas, per active
// model) and drives the orchestrator client.
type Actuator struct {
	client     orchestrator.Client
	namespace  string
	deployment string
	audit      AuditTrail

	// current tracks the replica count last successfully patched, keyed
	// by model so a swap resets the hysteresis independently.
	current map[string]int32
}

// New builds an Actuator against client for the given namespace and
// deployment name. audit may be nil, in which case LogAuditTrail is used.
func New(client orchestrator.Client, namespace, deployment string, audit AuditTrail) *Actuator {
	if audit == nil {
		audit = LogAuditTrail{}
	}
	return &Actuator{
		client:     client,
		namespace:  namespace,
		deployment: deployment,
		audit:      audit,
		current:    make(map[string]int32),
	}
}

// CurrentReplicas returns the hysteresis shadow's replica count for model.
func (a *Actuator) CurrentReplicas(model string) int32 {
	return a.current[model]
}

// Reconcile seeds the model's hysteresis shadow from the deployment's
// live replica count the first time that model is seen, lists running
// pods for the active model, no-ops if target already matches the
// shadow, else patches the deployment, updating the shadow only on
// success. It returns the number of pods observed in the Running
// phase, the same count recorded to the audit trail, so callers can
// report it as a metric without listing pods a second time. The count
// is 0 when listing pods fails; when the patch fails it is still the
// observed count.
func (a *Actuator) Reconcile(ctx context.Context, intent Intent) (int, error) {
	if _, seeded := a.current[intent.Model]; !seeded {
		if live, err := a.client.GetDeploymentReplicas(ctx, a.namespace, a.deployment); err == nil {
			a.current[intent.Model] = live
		}
	}

	runningPods, err := a.countRunning(ctx, intent.Model)
	if err != nil {
		a.audit.Record(Record{
			Timestamp: time.Now(), Namespace: a.namespace, Deployment: a.deployment,
			Model: intent.Model, NewTarget: intent.Target, Status: "error", Error: err.Error(),
		})
		return 0, err
	}

	if intent.Target == a.current[intent.Model] {
		a.audit.Record(Record{
			Timestamp: time.Now(), Namespace: a.namespace, Deployment: a.deployment,
			Model: intent.Model, PreviousTarget: a.current[intent.Model], NewTarget: intent.Target,
			RunningPods: runningPods, Status: "noop",
		})
		return runningPods, nil
	}

	if err := a.client.PatchDeploymentReplicas(ctx, a.namespace, a.deployment, intent.Target); err != nil {
		a.audit.Record(Record{
			Timestamp: time.Now(), Namespace: a.namespace, Deployment: a.deployment,
			Model: intent.Model, PreviousTarget: a.current[intent.Model], NewTarget: intent.Target,
			RunningPods: runningPods, Status: "error", Error: err.Error(),
		})
		return runningPods, cerrors.OrchestratorErrorf("reconcile", err, "namespace=%s deployment=%s", a.namespace, a.deployment)
	}

	prev := a.current[intent.Model]
	a.current[intent.Model] = intent.Target
	a.audit.Record(Record{
		Timestamp: time.Now(), Namespace: a.namespace, Deployment: a.deployment,
		Model: intent.Model, PreviousTarget: prev, NewTarget: intent.Target,
		RunningPods: runningPods, Status: "patched",
	})
	return runningPods, nil
}

// Drain asks the orchestrator to scale the outgoing model variant to
// zero, ahead of the ControlLoop actuating the new variant on
// subsequent ticks. It is a distinct, separately audited call from
// Reconcile so the metrics/log trail shows a swap as two actuation
// events instead of folding the drain into the next reconcile.
func (a *Actuator) Drain(ctx context.Context, outgoingModel string) error {
	runningPods, _ := a.countRunning(ctx, outgoingModel)

	if err := a.client.PatchDeploymentReplicas(ctx, a.namespace, a.deployment, 0); err != nil {
		a.audit.Record(Record{
			Timestamp: time.Now(), Namespace: a.namespace, Deployment: a.deployment,
			Model: outgoingModel, PreviousTarget: a.current[outgoingModel], NewTarget: 0,
			RunningPods: runningPods, Status: "error", Error: err.Error(),
		})
		return cerrors.OrchestratorErrorf("drain", err, "namespace=%s deployment=%s model=%s", a.namespace, a.deployment, outgoingModel)
	}

	prev := a.current[outgoingModel]
	a.current[outgoingModel] = 0
	a.audit.Record(Record{
		Timestamp: time.Now(), Namespace: a.namespace, Deployment: a.deployment,
		Model: outgoingModel, PreviousTarget: prev, NewTarget: 0,
		RunningPods: runningPods, Status: "patched",
	})
	return nil
}

func (a *Actuator) countRunning(ctx context.Context, model string) (int, error) {
	phases, err := a.client.ListPodPhases(ctx, a.namespace, model)
	if err != nil {
		return 0, cerrors.OrchestratorErrorf("list_pods", err, "namespace=%s model=%s", a.namespace, model)
	}
	running := 0
	for _, p := range phases {
		if p == orchestrator.PhaseRunning {
			running++
		}
	}
	return running, nil
}
