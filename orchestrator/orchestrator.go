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

// Package orchestrator defines the container-orchestrator contract
// this repo consumes: listing pod phases for a deployment's label
// selector, reading a deployment's replica count, and patching it.
// K8s implements this against client-go; Fake is an in-memory
// stand-in for tests.
package orchestrator

import (
	"context"

	corev1 "k8s.io/api/core/v1"
)

// PhaseRunning is the pod phase string counted toward running
// capacity by the Actuator.
const PhaseRunning = string(corev1.PodRunning)

// Client is the orchestrator contract consumed by the Actuator.
type Client interface {
	// ListPodPhases lists the phase string of every pod in namespace
	// matching label app=labelValue.
	ListPodPhases(ctx context.Context, namespace, labelValue string) ([]string, error)
	// GetDeploymentReplicas reads the current spec.replicas of the
	// named deployment.
	GetDeploymentReplicas(ctx context.Context, namespace, name string) (int32, error)
	// PatchDeploymentReplicas patches spec.replicas to replicas.
	PatchDeploymentReplicas(ctx context.Context, namespace, name string, replicas int32) error
}
