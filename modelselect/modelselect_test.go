package modelselect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_StartsAtM1(t *testing.T) {
	s := New(6000, 120*time.Second, time.Now())
	assert.Equal(t, ModelFullPrecision, s.Active())
	assert.True(t, s.Enabled())
}

func TestEnabled_FalseWhenHighWaterZero(t *testing.T) {
	s := New(0, 120*time.Second, time.Now())
	assert.False(t, s.Enabled())
	assert.False(t, s.ShouldSwap(1e9, time.Now().Add(time.Hour)))
}

// Swap triggers once backlog exceeds the high-water mark and the
// cooldown since startup has elapsed.
func TestShouldSwap_TriggersAboveHighWaterAfterCooldown(t *testing.T) {
	start := time.Unix(0, 0)
	s := New(6000, 120*time.Second, start)

	assert.False(t, s.ShouldSwap(7000, start))
	assert.False(t, s.ShouldSwap(7000, start.Add(119*time.Second)))
	assert.True(t, s.ShouldSwap(7000, start.Add(121*time.Second)))
}

func TestShouldSwap_FalseWhenBelowHighWater(t *testing.T) {
	start := time.Unix(0, 0)
	s := New(6000, 0, start)
	assert.False(t, s.ShouldSwap(5000, start))
}

func TestSwap_IsOneShot(t *testing.T) {
	start := time.Unix(0, 0)
	s := New(6000, 0, start)

	swapTime := start.Add(time.Minute)
	assert.True(t, s.ShouldSwap(7000, swapTime))
	s.Swap(swapTime)

	assert.Equal(t, ModelReducedPrecision, s.Active())
	// Even with backlog still high and interval elapsed, no further
	// swap is offered: re-promotion is out of scope.
	assert.False(t, s.ShouldSwap(8000, swapTime.Add(time.Hour)))
}
