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

package orchestrator

import (
	"context"
	"sync"

	cerrors "autoscalerd/errors"
)

// Fake is an in-memory Client for unit tests, standing in for a
// fake-clientset backed cluster.
type Fake struct {
	mu sync.Mutex

	phases       map[string][]string // namespace/label -> phases
	replicas     map[string]int32    // namespace/name -> replicas
	PatchCalls   int
	PatchErr     error
	GetErr       error
	ListErr      error
	patchHistory []int32
}

// NewFake builds an empty Fake.
func NewFake() *Fake {
	return &Fake{
		phases:   make(map[string][]string),
		replicas: make(map[string]int32),
	}
}

// SetPodPhases seeds the phases returned for namespace/labelValue.
func (f *Fake) SetPodPhases(namespace, labelValue string, phases []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phases[key(namespace, labelValue)] = phases
}

// SetReplicas seeds the current replica count for namespace/name.
func (f *Fake) SetReplicas(namespace, name string, replicas int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replicas[key(namespace, name)] = replicas
}

// Replicas returns the current replica count for namespace/name.
func (f *Fake) Replicas(namespace, name string) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replicas[key(namespace, name)]
}

// PatchHistory returns every replica value ever successfully patched,
// in call order.
func (f *Fake) PatchHistory() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int32, len(f.patchHistory))
	copy(out, f.patchHistory)
	return out
}

func (f *Fake) ListPodPhases(ctx context.Context, namespace, labelValue string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.phases[key(namespace, labelValue)], nil
}

func (f *Fake) GetDeploymentReplicas(ctx context.Context, namespace, name string) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return 0, f.GetErr
	}
	return f.replicas[key(namespace, name)], nil
}

func (f *Fake) PatchDeploymentReplicas(ctx context.Context, namespace, name string, replicas int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PatchCalls++
	if f.PatchErr != nil {
		return cerrors.Wrap(f.PatchErr, cerrors.CategoryOrchestrator, "patch_deployment", "")
	}
	f.replicas[key(namespace, name)] = replicas
	f.patchHistory = append(f.patchHistory, replicas)
	return nil
}

func key(a, b string) string { return a + "/" + b }
