package pid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Steady backlog held flat across two ticks.
func TestStep_SteadyBacklogScenario(t *testing.T) {
	target1, prevErr1, u1 := Step(1400, 0, 1, 3, 200)
	assert.Equal(t, int32(28), target1)
	assert.Equal(t, 1400.0, prevErr1)
	assert.Equal(t, 5600.0, u1)

	target2, _, u2 := Step(1400, prevErr1, 1, 3, 200)
	assert.Equal(t, int32(7), target2)
	assert.Equal(t, 1400.0, u2)
}

// Backlog summed across multiple pods before one Step call.
func TestStep_MultiPodScenario(t *testing.T) {
	target, _, u := Step(1200, 0, 0.5, 1, 64)
	assert.Equal(t, int32(28), target)
	assert.Equal(t, 1800.0, u)
}

// Error exactly equal to capacity with diff == 0 lands target on 1 without clamping.
func TestStep_ErrorEqualsCapacity(t *testing.T) {
	target, _, u := Step(200, 200, 1, 1, 200)
	assert.Equal(t, 200.0, u)
	assert.Equal(t, int32(1), target)
}

// Error strictly below capacity with diff == 0 yields a raw target of 0
// before the clamp.
func TestStep_BelowCapacityClampsToOne(t *testing.T) {
	target, _, u := Step(50, 50, 1, 0, 200)
	assert.Equal(t, 50.0, u)
	assert.Equal(t, int32(1), target)
}

func TestStep_NegativeSignalClampsToOne(t *testing.T) {
	target, _, _ := Step(-500, 0, 1, 1, 200)
	assert.Equal(t, int32(1), target)
}

func TestStep_Deterministic(t *testing.T) {
	t1, e1, u1 := Step(900, 400, 0.7, 2.1, 150)
	t2, e2, u2 := Step(900, 400, 0.7, 2.1, 150)
	assert.Equal(t, t1, t2)
	assert.Equal(t, e1, e2)
	assert.Equal(t, u1, u2)
}

func TestStep_FloorTowardNegativeInfinity(t *testing.T) {
	// u/capacity = -0.5 before clamp; floor(-0.5) = -1, clamped to 1.
	target, _, u := Step(-50, 0, 1, 0, 100)
	assert.Equal(t, -50.0, u)
	assert.Equal(t, int32(1), target)
}
