// Package retry re-invokes fallible operations with capped exponential
// backoff. Sleeping and the jitter source are injectable so callers can
// drive the loop deterministically in tests.
package retry

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// DefaultBase is the delay before the first retry, before jitter.
	DefaultBase = 1 * time.Second

	// DefaultCap bounds every computed delay.
	DefaultCap = 30 * time.Second
)

// Backoff computes min(base*2^attempt + U(0, base/2), cap).
// It is safe for concurrent use.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBackoff returns a Backoff whose jitter is drawn from a PCG source
// seeded with seed, so two policies built with the same seed produce the
// same delays.
func NewBackoff(base, limit time.Duration, seed uint64) *Backoff {
	if base <= 0 {
		base = DefaultBase
	}
	if limit <= 0 {
		limit = DefaultCap
	}
	return &Backoff{
		Base: base,
		Cap:  limit,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// DefaultBackoff returns a Backoff with the default base and cap and a
// randomly seeded jitter source.
func DefaultBackoff() *Backoff {
	return NewBackoff(DefaultBase, DefaultCap, rand.Uint64())
}

// Delay returns the wait before retry number attempt (0-based).
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	base := float64(b.Base)
	limit := float64(b.Cap)

	exp := base * math.Pow(2, float64(attempt))
	d := exp + b.jitter()*base*0.5
	if math.IsInf(exp, 0) || d > limit {
		return b.Cap
	}
	return time.Duration(d)
}

// jitter returns a uniform sample in [0, 1).
func (b *Backoff) jitter() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rng == nil {
		b.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return b.rng.Float64()
}
