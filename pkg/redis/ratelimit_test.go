package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	srv := miniredis.RunT(t)

	port, err := strconv.Atoi(srv.Port())
	require.NoError(t, err)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	client, err := NewClient(Config{Host: srv.Host(), Port: port}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func testActionLimiter(t *testing.T, limit int64) *ActionLimiter {
	limiter := NewRateLimiter(testClient(t), "test:ratelimit:")
	return NewActionLimiter(limiter, limit, time.Minute)
}

func TestActionLimiter_AllowWithinLimit(t *testing.T) {
	ctx := context.Background()
	limiter := testActionLimiter(t, 2)

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "buyer-1", "send")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "buyer-1", "send")
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different buyer has its own counter.
	allowed, err = limiter.Allow(ctx, "buyer-2", "send")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestActionLimiter_PauseBlocksSends(t *testing.T) {
	ctx := context.Background()
	limiter := testActionLimiter(t, 10)

	allowed, err := limiter.Allow(ctx, "buyer-1", "send")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, limiter.Pause(ctx, "buyer-1", "send", time.Minute))

	allowed, err = limiter.Allow(ctx, "buyer-1", "send")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "buyer-2", "send")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestActionLimiter_ResumeRestoresSends(t *testing.T) {
	ctx := context.Background()
	limiter := testActionLimiter(t, 1)

	allowed, err := limiter.Allow(ctx, "buyer-1", "send")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, limiter.Pause(ctx, "buyer-1", "send", time.Minute))
	require.NoError(t, limiter.Resume(ctx, "buyer-1", "send"))

	// Resume also resets the counter, so the buyer starts a fresh window.
	allowed, err = limiter.Allow(ctx, "buyer-1", "send")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_BlockedKeyReportsRetry(t *testing.T) {
	ctx := context.Background()
	limiter := NewRateLimiter(testClient(t), "test:ratelimit:")

	require.NoError(t, limiter.BlockFor(ctx, "buyer-1", time.Minute))

	blocked, ttl, err := limiter.IsBlocked(ctx, "buyer-1")
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Greater(t, ttl, time.Duration(0))

	result, err := limiter.Allow(ctx, "buyer-1", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, int64(0), result.Remaining)

	require.NoError(t, limiter.Unblock(ctx, "buyer-1"))

	blocked, _, err = limiter.IsBlocked(ctx, "buyer-1")
	require.NoError(t, err)
	assert.False(t, blocked)
}
