package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_ListPodPhases(t *testing.T) {
	f := NewFake()
	f.SetPodPhases("workload", "consumer", []string{"Running", "Running", "Pending"})

	phases, err := f.ListPodPhases(context.Background(), "workload", "consumer")
	require.NoError(t, err)
	assert.Equal(t, []string{"Running", "Running", "Pending"}, phases)
}

func TestFake_GetAndPatchReplicas(t *testing.T) {
	f := NewFake()
	f.SetReplicas("workload", "consumer", 5)

	n, err := f.GetDeploymentReplicas(context.Background(), "workload", "consumer")
	require.NoError(t, err)
	assert.Equal(t, int32(5), n)

	require.NoError(t, f.PatchDeploymentReplicas(context.Background(), "workload", "consumer", 7))
	assert.Equal(t, int32(7), f.Replicas("workload", "consumer"))
	assert.Equal(t, 1, f.PatchCalls)
	assert.Equal(t, []int32{7}, f.PatchHistory())
}

func TestFake_PatchErrorLeavesReplicasUnchanged(t *testing.T) {
	f := NewFake()
	f.SetReplicas("workload", "consumer", 5)
	f.PatchErr = errors.New("conflict")

	err := f.PatchDeploymentReplicas(context.Background(), "workload", "consumer", 7)
	assert.Error(t, err)
	assert.Equal(t, int32(5), f.Replicas("workload", "consumer"))
}

func TestFake_ListErr(t *testing.T) {
	f := NewFake()
	f.ListErr = errors.New("unreachable")

	_, err := f.ListPodPhases(context.Background(), "workload", "consumer")
	assert.Error(t, err)
}
