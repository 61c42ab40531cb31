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
	"encoding/json"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"

	cerrors "autoscalerd/errors"
	"autoscalerd/logger"
)

// jsonPatchOp is a single RFC 6902 JSON Patch operation.
type jsonPatchOp struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

// K8s implements Client against a real cluster via client-go.
// MetricsClient is optional: when set, ListPodPhases also logs a
// debug cross-check against the metrics-server API, observed
// only and never acted upon.
type K8s struct {
	clientset     kubernetes.Interface
	metricsClient metricsclientset.Interface
}

// NewK8s builds a K8s client. metricsClient may be nil.
func NewK8s(clientset kubernetes.Interface, metricsClient metricsclientset.Interface) *K8s {
	return &K8s{clientset: clientset, metricsClient: metricsClient}
}

// ListPodPhases lists the phase string of every pod in namespace
// labeled app=labelValue.
func (k *K8s) ListPodPhases(ctx context.Context, namespace, labelValue string) ([]string, error) {
	pods, err := k.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("app=%s", labelValue),
	})
	if err != nil {
		return nil, cerrors.OrchestratorErrorf("list_pods", err, "namespace=%s app=%s", namespace, labelValue)
	}

	phases := make([]string, 0, len(pods.Items))
	for _, p := range pods.Items {
		phases = append(phases, string(p.Status.Phase))
	}

	if k.metricsClient != nil {
		if usage, err := k.metricsClient.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{
			LabelSelector: fmt.Sprintf("app=%s", labelValue),
		}); err == nil {
			logger.Debug("orchestrator: metrics-server reports %d pod metrics for app=%s (observed only)", len(usage.Items), labelValue)
		}
	}

	return phases, nil
}

// GetDeploymentReplicas reads spec.replicas from the named deployment.
func (k *K8s) GetDeploymentReplicas(ctx context.Context, namespace, name string) (int32, error) {
	dep, err := k.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return 0, cerrors.OrchestratorErrorf("get_deployment", err, "namespace=%s name=%s", namespace, name)
	}
	if dep.Spec.Replicas == nil {
		return 0, nil
	}
	return *dep.Spec.Replicas, nil
}

// PatchDeploymentReplicas patches spec.replicas on the named
// deployment via a JSON Patch.
func (k *K8s) PatchDeploymentReplicas(ctx context.Context, namespace, name string, replicas int32) error {
	patch := []jsonPatchOp{{
		Op:    "replace",
		Path:  "/spec/replicas",
		Value: replicas,
	}}
	data, err := json.Marshal(patch)
	if err != nil {
		return cerrors.Wrap(err, cerrors.CategoryOrchestrator, "marshal_patch", "")
	}

	_, err = k.clientset.AppsV1().Deployments(namespace).Patch(
		ctx, name, types.JSONPatchType, data, metav1.PatchOptions{},
	)
	if err != nil {
		return cerrors.OrchestratorErrorf("patch_deployment", err, "namespace=%s name=%s replicas=%d", namespace, name, replicas)
	}
	return nil
}
