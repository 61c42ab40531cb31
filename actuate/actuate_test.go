package actuate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoscalerd/orchestrator"
)

type recordingAudit struct {
	records []Record
}

func (r *recordingAudit) Record(rec Record) { r.records = append(r.records, rec) }

func TestReconcile_PatchesWhenTargetDiffers(t *testing.T) {
	fake := orchestrator.NewFake()
	fake.SetReplicas("workload", "consumer", 5)
	fake.SetPodPhases("workload", "M1", []string{"Running", "Running"})
	audit := &recordingAudit{}
	a := New(fake, "workload", "consumer", audit)

	running, err := a.Reconcile(context.Background(), Intent{Target: 7, Model: "M1"})
	require.NoError(t, err)

	assert.Equal(t, 2, running)
	assert.Equal(t, int32(7), fake.Replicas("workload", "consumer"))
	assert.Equal(t, 1, fake.PatchCalls)
	assert.Equal(t, "patched", audit.records[0].Status)
}

// No-op hysteresis: a repeated target against the same model skips the patch.
func TestReconcile_NoOpWhenTargetMatchesShadow(t *testing.T) {
	fake := orchestrator.NewFake()
	fake.SetReplicas("workload", "consumer", 5)
	fake.SetPodPhases("workload", "M1", nil)
	a := New(fake, "workload", "consumer", nil)

	_, err := a.Reconcile(context.Background(), Intent{Target: 5, Model: "M1"})
	require.NoError(t, err)
	assert.Equal(t, 0, fake.PatchCalls)

	// Second call with the same target must also not patch (idempotence).
	_, err = a.Reconcile(context.Background(), Intent{Target: 5, Model: "M1"})
	require.NoError(t, err)
	assert.Equal(t, 0, fake.PatchCalls)
}

func TestReconcile_PatchFailureDoesNotUpdateShadow(t *testing.T) {
	fake := orchestrator.NewFake()
	fake.SetReplicas("workload", "consumer", 5)
	fake.PatchErr = errors.New("conflict")
	a := New(fake, "workload", "consumer", nil)

	_, err := a.Reconcile(context.Background(), Intent{Target: 9, Model: "M1"})
	assert.Error(t, err)
	assert.Equal(t, int32(5), a.CurrentReplicas("M1"))
}

func TestReconcile_ListFailurePropagatesAndSkipsPatch(t *testing.T) {
	fake := orchestrator.NewFake()
	fake.ListErr = errors.New("unreachable")
	a := New(fake, "workload", "consumer", nil)

	_, err := a.Reconcile(context.Background(), Intent{Target: 3, Model: "M1"})
	assert.Error(t, err)
	assert.Equal(t, 0, fake.PatchCalls)
}

func TestReconcile_HysteresisKeyedPerModel(t *testing.T) {
	fake := orchestrator.NewFake()
	fake.SetReplicas("workload", "consumer", 5)
	a := New(fake, "workload", "consumer", nil)

	_, err := a.Reconcile(context.Background(), Intent{Target: 5, Model: "M1"})
	require.NoError(t, err)
	assert.Equal(t, 0, fake.PatchCalls)

	// M0 has never been reconciled: its shadow starts from the live
	// read, so a target equal to that live value is still a no-op, but
	// a different model's shadow is independent of M1's.
	_, err = a.Reconcile(context.Background(), Intent{Target: 3, Model: "M0"})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.PatchCalls)
}

// Model swap drains the outgoing model to zero before the new one scales up.
func TestDrain_PatchesZeroAndResetsShadow(t *testing.T) {
	fake := orchestrator.NewFake()
	fake.SetReplicas("workload", "consumer", 10)
	a := New(fake, "workload", "consumer", nil)
	_, err := a.Reconcile(context.Background(), Intent{Target: 10, Model: "M1"})
	require.NoError(t, err)

	require.NoError(t, a.Drain(context.Background(), "M1"))
	assert.Equal(t, int32(0), a.CurrentReplicas("M1"))
	assert.Equal(t, int32(0), fake.Replicas("workload", "consumer"))
}
