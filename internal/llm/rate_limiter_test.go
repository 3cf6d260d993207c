package llm

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/blockcanvas/indy/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRateLimiter connects to INDY_TEST_REDIS_ADDR (default
// localhost:6380) and skips when nothing is listening.
func newTestRateLimiter(t *testing.T, cfg config.RedisConfig) *RateLimiter {
	t.Helper()
	addr := os.Getenv("INDY_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6380"
	}
	cfg.Addr = addr

	rl, err := NewRateLimiter(cfg)
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = rl.Close() })

	minuteKey, tpmKey, dayKey := usageKeys(time.Now())
	require.NoError(t, rl.redis.Del(context.Background(), minuteKey, tpmKey, dayKey).Err())
	return rl
}

func TestRateLimiter_DefaultsFromConfig(t *testing.T) {
	rl := newTestRateLimiter(t, config.RedisConfig{})
	assert.Equal(t, int64(config.DefaultRPM), rl.rpmLimit)
	assert.Equal(t, int64(config.DefaultTPM), rl.tpmLimit)
	assert.Equal(t, int64(config.DefaultRPD), rl.rpdLimit)
}

func TestRateLimiter_InvalidConnection(t *testing.T) {
	rl, err := NewRateLimiter(config.RedisConfig{Addr: "localhost:1"})
	assert.Error(t, err)
	assert.Nil(t, rl)
}

func TestRateLimiter_CheckAndIncrement_Normal(t *testing.T) {
	rl := newTestRateLimiter(t, config.RedisConfig{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		assert.NoError(t, rl.CheckAndIncrement(ctx, 100))
	}

	rpm, tpm, rpd, err := rl.GetCurrentUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), rpm)
	assert.Equal(t, int64(1000), tpm)
	assert.Equal(t, int64(10), rpd)
}

func TestRateLimiter_RPMThrottle(t *testing.T) {
	rl := newTestRateLimiter(t, config.RedisConfig{RPMLimit: 10, TPMLimit: 1_000_000, RPDLimit: 1000})
	ctx := context.Background()

	// 90% of 10 is 9, so the ninth request trips the limit
	for i := 0; i < 8; i++ {
		require.NoError(t, rl.CheckAndIncrement(ctx, 1))
	}
	err := rl.CheckAndIncrement(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "approaching RPM limit")
	assert.Contains(t, err.Error(), "wait")
}

func TestRateLimiter_TPMThrottleDoesNotCount(t *testing.T) {
	rl := newTestRateLimiter(t, config.RedisConfig{RPMLimit: 1000, TPMLimit: 1000, RPDLimit: 1000})
	ctx := context.Background()

	require.NoError(t, rl.CheckAndIncrement(ctx, 500))
	for i := 0; i < 3; i++ {
		err := rl.CheckAndIncrement(ctx, 450)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "approaching TPM limit")
	}

	rpm, tpm, rpd, err := rl.GetCurrentUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rpm)
	assert.Equal(t, int64(500), tpm)
	assert.Equal(t, int64(1), rpd)
}

func TestRateLimiter_OversizedRequestFailsFast(t *testing.T) {
	rl := newTestRateLimiter(t, config.RedisConfig{RPMLimit: 1000, TPMLimit: 1000, RPDLimit: 1000})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err := rl.Wait(ctx, 950)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the per-minute token ceiling")
	assert.Less(t, time.Since(start), time.Second)

	_, tpm, _, err := rl.GetCurrentUsage(ctx)
	require.NoError(t, err)
	assert.Zero(t, tpm)
}

func TestRateLimiter_RPDAllowsExactlyTheLimit(t *testing.T) {
	rl := newTestRateLimiter(t, config.RedisConfig{RPMLimit: 1000, TPMLimit: 1_000_000, RPDLimit: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.CheckAndIncrement(ctx, 1))
	}
	err := rl.CheckAndIncrement(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily quota exceeded")
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	rl := newTestRateLimiter(t, config.RedisConfig{RPMLimit: 1000, TPMLimit: 1000, RPDLimit: 1000})
	require.NoError(t, rl.CheckAndIncrement(context.Background(), 500))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx, 450)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_extractWaitTime(t *testing.T) {
	tests := []struct {
		name     string
		errMsg   string
		expected int
	}{
		{"standard format", "approaching RPM limit (900/1000), wait 45s", 45},
		{"single digit", "approaching TPM limit (900000/1000000), wait 5s", 5},
		{"no wait time", "some other error", 60},
		{"zero wait", "wait 0s", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractWaitTime(tt.errMsg))
		})
	}
}

func TestSecondsToNextMinute(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 60, secondsToNextMinute(base))
	assert.Equal(t, 15, secondsToNextMinute(base.Add(45*time.Second)))
}

func TestUsageKeys(t *testing.T) {
	now := time.Date(2026, 3, 9, 14, 23, 5, 0, time.UTC)
	rpm, tpm, rpd := usageKeys(now)
	assert.Equal(t, "indy:rpm:2026-03-09T14:23", rpm)
	assert.Equal(t, "indy:tpm:2026-03-09T14:23", tpm)
	assert.Equal(t, "indy:rpd:2026-03-09", rpd)
}

func TestLocalLimiter(t *testing.T) {
	l := NewLocalLimiter(60, 600)
	ctx := context.Background()

	// oversized calls are charged the full burst, which is available at once
	require.NoError(t, l.Wait(ctx, 10_000))

	// the token bucket is now empty; a short deadline must fail
	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(short, 500))
}

func TestNewLimiter_FallsBackToLocal(t *testing.T) {
	l, closeFn := NewLimiter(config.RedisConfig{Addr: "localhost:1"})
	defer closeFn()
	_, ok := l.(*LocalLimiter)
	assert.True(t, ok)

	l, closeFn = NewLimiter(config.RedisConfig{})
	defer closeFn()
	_, ok = l.(*LocalLimiter)
	assert.True(t, ok)
}
