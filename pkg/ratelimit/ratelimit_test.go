package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterRefills(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(2, time.Second)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	now = now.Add(500 * time.Millisecond)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.Equal(t, 500*time.Millisecond, l.RetryAfter())
}

func TestLimiterSweep(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(5, time.Second)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(3 * time.Second)
	l.Allow("fresh")
	l.sweep()
	assert.Equal(t, 1, l.Len())
}

func TestLimiterZeroLimit(t *testing.T) {
	l := New(0, time.Second)
	assert.False(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}
