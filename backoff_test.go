package overseer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultBackoff(t *testing.T) {
	policy := DefaultBackoff()
	for attempt := 1; attempt <= 8; attempt++ {
		want := min(30*time.Second, time.Duration(attempt)*5*time.Second)
		assert.Equal(t, want, policy.ComputeDelay(attempt), "attempt %d", attempt)
	}
}

func TestShouldGiveUp(t *testing.T) {
	tests := []struct {
		attempt, max int
		want         bool
	}{
		{1, 3, false},
		{2, 3, false},
		{3, 3, true},
		{4, 3, true},
		{1, 1, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShouldGiveUp(tt.attempt, tt.max), "attempt=%d max=%d", tt.attempt, tt.max)
	}
}

func TestLinearBackoff(t *testing.T) {
	policy := LinearBackoff(100*time.Millisecond, 500*time.Millisecond, 2*time.Second)

	assert.Equal(t, 600*time.Millisecond, policy.ComputeDelay(1))
	assert.Equal(t, 1100*time.Millisecond, policy.ComputeDelay(2))
	assert.Equal(t, 2*time.Second, policy.ComputeDelay(10))
	assert.Equal(t, 600*time.Millisecond, policy.ComputeDelay(0), "attempts below one are treated as the first")
}

func TestExponentialBackoff(t *testing.T) {
	policy := ExponentialBackoff(100*time.Millisecond, time.Second)

	assert.Equal(t, 100*time.Millisecond, policy.ComputeDelay(1))
	assert.Equal(t, 200*time.Millisecond, policy.ComputeDelay(2))
	assert.Equal(t, 800*time.Millisecond, policy.ComputeDelay(4))
	assert.Equal(t, time.Second, policy.ComputeDelay(5))
	assert.Equal(t, time.Second, policy.ComputeDelay(5000))
}

func TestConstantBackoff(t *testing.T) {
	policy := ConstantBackoff(time.Second)
	for _, attempt := range []int{1, 2, 50} {
		assert.Equal(t, time.Second, policy.ComputeDelay(attempt))
	}
}

func TestJitterBackoff(t *testing.T) {
	base := ConstantBackoff(10 * time.Second)

	low := newJitterBackoff(base, 0.2, func() float64 { return 0 })
	assert.Equal(t, 8*time.Second, low.ComputeDelay(1))

	mid := newJitterBackoff(base, 0.2, func() float64 { return 0.5 })
	assert.Equal(t, 10*time.Second, mid.ComputeDelay(1))

	clamped := newJitterBackoff(base, 5, func() float64 { return 0 })
	assert.Equal(t, time.Duration(0), clamped.ComputeDelay(1), "factor is clamped to 1")

	random := JitterBackoff(base, 0.2)
	for i := 0; i < 100; i++ {
		d := random.ComputeDelay(1)
		assert.GreaterOrEqual(t, d, 8*time.Second)
		assert.LessOrEqual(t, d, 12*time.Second)
	}
}
