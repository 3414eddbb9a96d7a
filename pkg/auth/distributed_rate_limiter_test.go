package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributedLimiter_NoClientAllowsEverything(t *testing.T) {
	limiter := NewDistributedUserRateLimiter(nil, "engram-memory", 2)

	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.NoError(t, limiter.Reset(context.Background(), "user-1"))
}

func TestDistributedLimiter_WindowKeyIsStablePerWindow(t *testing.T) {
	limiter := NewDistributedUserRateLimiter(nil, "engram-memory", 60)
	windowStart := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	a := limiter.windowKey("user-1", windowStart)
	b := limiter.windowKey("user-1", windowStart.Add(30*time.Second).Truncate(time.Minute))
	assert.Equal(t, a, b)

	next := limiter.windowKey("user-1", windowStart.Add(time.Minute))
	assert.NotEqual(t, a, next)
}
