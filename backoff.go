package overseer

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy calculates the wait before a worker is started again.
type BackoffPolicy interface {
	// ComputeDelay returns the delay before the next run. attempt is the
	// number of runs that have already ended, so it starts at 1.
	ComputeDelay(attempt int) time.Duration
}

// DefaultBackoff waits five seconds per failed attempt, capped at thirty seconds.
//
//   - 1st restart: 5s
//   - 2nd restart: 10s
//   - ...
//   - 6th+ restart: 30s
func DefaultBackoff() BackoffPolicy {
	return LinearBackoff(0, 5*time.Second, 30*time.Second)
}

// ShouldGiveUp reports whether a worker that has completed attempt runs has
// used up a budget of maxRestarts.
func ShouldGiveUp(attempt, maxRestarts int) bool {
	return attempt >= maxRestarts
}

type linearBackoff struct {
	initial   time.Duration
	increment time.Duration
	max       time.Duration
}

// LinearBackoff creates a policy returning initial + attempt*increment, capped at max.
//
// Example: LinearBackoff(0, 5*time.Second, 30*time.Second)
//   - attempt 1: 5s
//   - attempt 4: 20s
//   - attempt 7: 30s (capped)
func LinearBackoff(initial, increment, max time.Duration) BackoffPolicy {
	return &linearBackoff{initial: initial, increment: increment, max: max}
}

func (l *linearBackoff) ComputeDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := l.initial + time.Duration(attempt)*l.increment
	if l.max > 0 && delay > l.max {
		delay = l.max
	}
	return delay
}

type constantBackoff struct {
	delay time.Duration
}

// ConstantBackoff creates a policy with a fixed delay between runs.
func ConstantBackoff(delay time.Duration) BackoffPolicy {
	return &constantBackoff{delay: delay}
}

func (c *constantBackoff) ComputeDelay(int) time.Duration {
	return c.delay
}

type exponentialBackoff struct {
	initial time.Duration
	max     time.Duration
}

// ExponentialBackoff doubles the delay after every attempt, starting at initial
// for the first restart and capped at max.
func ExponentialBackoff(initial, max time.Duration) BackoffPolicy {
	return &exponentialBackoff{initial: initial, max: max}
}

func (e *exponentialBackoff) ComputeDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	f := float64(e.initial) * math.Pow(2, float64(attempt-1))
	if f > float64(e.max) || math.IsInf(f, 0) {
		return e.max
	}
	return time.Duration(f)
}

type jitterBackoff struct {
	base   BackoffPolicy
	factor float64
	rnd    func() float64
}

// JitterBackoff wraps another policy and spreads its delay by up to ±factor.
// Useful when several workers tend to fail together, e.g. on a shared network outage.
//
// Example: JitterBackoff(DefaultBackoff(), 0.2) turns 10s into 8s-12s.
func JitterBackoff(base BackoffPolicy, factor float64) BackoffPolicy {
	return newJitterBackoff(base, factor, rand.Float64)
}

func newJitterBackoff(base BackoffPolicy, factor float64, rnd func() float64) *jitterBackoff {
	factor = math.Max(0, math.Min(1, factor))
	return &jitterBackoff{base: base, factor: factor, rnd: rnd}
}

func (j *jitterBackoff) ComputeDelay(attempt int) time.Duration {
	baseDelay := j.base.ComputeDelay(attempt)
	jitter := time.Duration(float64(baseDelay) * j.factor * (j.rnd()*2 - 1))
	return max(baseDelay+jitter, 0)
}
