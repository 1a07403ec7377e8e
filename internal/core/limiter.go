package core

// limiter.go bounds the number of conversions running at once.
//
// Conversions hold a slot for as long as their response is being produced.
// When every slot is taken a new request waits up to maxWait, then fails
// with ErrTooManyConversions. WaitForDrain lets shutdown wait for in-flight
// conversions to finish streaming.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyConversions is returned when no conversion slot frees up in time.
var ErrTooManyConversions = errors.New("too many concurrent conversions, please try again later")

// DefaultMaxConcurrentConversions is used when a non-positive limit is given.
const DefaultMaxConcurrentConversions = 8

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// Limiter is a counting semaphore for conversions.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
	served int64
}

// NewLimiter creates a limiter allowing maxConcurrent conversions.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentConversions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot.
// Returns ErrTooManyConversions when maxWait elapses, or ctx's error.
// The caller must call Release exactly once after a nil return.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.track(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyConversions
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.track(-1)
	<-l.slots
}

// Hold acquires a slot and returns a release func safe to call more than once.
func (l *Limiter) Hold(ctx context.Context) (func(), error) {
	if err := l.Acquire(ctx); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(l.Release) }, nil
}

func (l *Limiter) track(delta int) {
	l.mu.Lock()
	l.active += delta
	if delta > 0 {
		l.served++
	}
	l.mu.Unlock()
}

// ActiveCount returns the number of conversions holding a slot.
func (l *Limiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *Limiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no conversion holds a slot or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of limiter state.
type LimiterStatus struct {
	Active        int   `json:"active"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"max_concurrent"`
	Served        int64 `json:"served"`
}

// Status returns the current limiter state for monitoring.
func (l *Limiter) Status() LimiterStatus {
	l.mu.RLock()
	active, served := l.active, l.served
	l.mu.RUnlock()

	return LimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
		Served:        served,
	}
}
