package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWait(t *testing.T) {
	rl := newRateLimiter(60, 2)
	now := time.Now()

	assert.Zero(t, rl.wait("a", now))
	assert.Zero(t, rl.wait("a", now))
	delay := rl.wait("a", now)
	assert.InDelta(t, time.Second.Seconds(), delay.Seconds(), 0.01)

	// A rejected request does not consume a token.
	assert.Zero(t, rl.wait("a", now.Add(time.Second)))
	assert.Zero(t, rl.wait("b", now))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := newRateLimiter(60, 1)
	now := time.Now()
	rl.wait("old", now.Add(-time.Hour))
	rl.wait("new", now)

	rl.sweep(now.Add(-visitorTTL))

	assert.NotContains(t, rl.visitors, "old")
	assert.Contains(t, rl.visitors, "new")
}

func TestRateLimiterZeroBurst(t *testing.T) {
	rl := newRateLimiter(60, 0)
	assert.Equal(t, 1, rl.burst)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:8080"
	assert.Equal(t, "192.0.2.1", clientIP(r))

	r.RemoteAddr = "198.51.100.4"
	assert.Equal(t, "198.51.100.4", clientIP(r))
}
