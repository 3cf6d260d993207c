package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/blockcanvas/indy/internal/config"
	"github.com/redis/go-redis/v9"
)

// Limiter throttles LLM calls. tokens is the estimated prompt plus
// completion size of the call about to be made.
type Limiter interface {
	Wait(ctx context.Context, tokens int64) error
}

// UsageReporter reports the shared counters of the current minute and day.
type UsageReporter interface {
	GetCurrentUsage(ctx context.Context) (rpm, tpm, rpd int64, err error)
}

// RateLimiter provides proactive rate limiting for LLM calls using Redis so
// that every indy process sharing one API key shares one budget.
type RateLimiter struct {
	redis    *redis.Client
	rpmLimit int64 // Requests Per Minute
	tpmLimit int64 // Tokens Per Minute
	rpdLimit int64 // Requests Per Day
	logger   *slog.Logger
}

var waitPattern = regexp.MustCompile(`wait (\d+)s`)

// rateScript reports the first limit the call would cross and only counts
// the call when none is crossed, so throttled retries cost nothing. Minute
// keys expire after 70s, day keys after 24h.
var rateScript = redis.NewScript(`
	local rpm_key = KEYS[1]
	local tpm_key = KEYS[2]
	local rpd_key = KEYS[3]
	local rpm_limit = tonumber(ARGV[1])
	local tpm_limit = tonumber(ARGV[2])
	local rpd_limit = tonumber(ARGV[3])
	local tokens = tonumber(ARGV[4])

	local rpm = tonumber(redis.call('GET', rpm_key) or '0') + 1
	local tpm = tonumber(redis.call('GET', tpm_key) or '0') + tokens
	local rpd = tonumber(redis.call('GET', rpd_key) or '0') + 1

	-- throttle at 90% of the minute limits, 100% of the daily one
	if rpm >= rpm_limit * 0.9 then
		return {-1, 'RPM', rpm, rpm_limit}
	end
	if tpm >= tpm_limit * 0.9 then
		return {-2, 'TPM', tpm, tpm_limit}
	end
	if rpd > rpd_limit then
		return {-3, 'RPD', rpd, rpd_limit}
	end

	redis.call('INCR', rpm_key)
	redis.call('INCRBY', tpm_key, tokens)
	redis.call('INCR', rpd_key)
	if rpm == 1 then redis.call('EXPIRE', rpm_key, 70) end
	if tpm == tokens then redis.call('EXPIRE', tpm_key, 70) end
	if rpd == 1 then redis.call('EXPIRE', rpd_key, 86400) end

	return {0, 'OK', rpm, tpm, rpd}
`)

// NewRateLimiter connects to Redis at cfg.Addr. Zero limits fall back to
// the config defaults.
func NewRateLimiter(cfg config.RedisConfig) (*RateLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return &RateLimiter{
		redis:    client,
		rpmLimit: orDefault(cfg.RPMLimit, config.DefaultRPM),
		tpmLimit: orDefault(cfg.TPMLimit, config.DefaultTPM),
		rpdLimit: orDefault(cfg.RPDLimit, config.DefaultRPD),
		logger:   slog.Default().With("component", "rate_limiter"),
	}, nil
}

func orDefault(v, def int64) int64 {
	if v <= 0 {
		return def
	}
	return v
}

func usageKeys(now time.Time) (string, string, string) {
	minute := now.Format("2006-01-02T15:04")
	return fmt.Sprintf("indy:rpm:%s", minute),
		fmt.Sprintf("indy:tpm:%s", minute),
		fmt.Sprintf("indy:rpd:%s", now.Format("2006-01-02"))
}

// CheckAndIncrement counts one request of estimatedTokens and returns an
// error, without counting it, when any limit is close to being reached.
func (r *RateLimiter) CheckAndIncrement(ctx context.Context, estimatedTokens int64) error {
	if ceiling := float64(r.tpmLimit) * 0.9; float64(estimatedTokens) >= ceiling {
		return fmt.Errorf("request of %d tokens exceeds the per-minute token ceiling of %.0f", estimatedTokens, ceiling)
	}

	now := time.Now()
	minuteKey, tpmKey, dayKey := usageKeys(now)

	result, err := rateScript.Run(ctx, r.redis,
		[]string{minuteKey, tpmKey, dayKey},
		r.rpmLimit, r.tpmLimit, r.rpdLimit, estimatedTokens).Result()
	if err != nil {
		return fmt.Errorf("rate limiter Redis operation failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 2 {
		return fmt.Errorf("invalid rate limiter response format")
	}

	code, _ := resultSlice[0].(int64)
	if code >= 0 {
		return nil
	}
	if len(resultSlice) < 4 {
		return fmt.Errorf("invalid rate limiter response format")
	}

	limitType, _ := resultSlice[1].(string)
	current, _ := resultSlice[2].(int64)
	limit, _ := resultSlice[3].(int64)

	if code == -3 {
		tomorrow := now.Add(24 * time.Hour)
		midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
		return fmt.Errorf("daily quota exceeded: %d/%d requests (resets in %ds)", current, limit, int(midnight.Sub(now).Seconds()))
	}

	return fmt.Errorf("approaching %s limit (%d/%d), wait %ds", limitType, current, limit, secondsToNextMinute(now))
}

func secondsToNextMinute(now time.Time) int {
	wait := 60 - now.Second()
	if wait <= 0 {
		wait = 1
	}
	return wait
}

// Wait blocks until the call fits the shared budget. It fails immediately
// when the daily quota is exhausted or the call can never fit a minute.
func (r *RateLimiter) Wait(ctx context.Context, tokens int64) error {
	for {
		err := r.CheckAndIncrement(ctx, tokens)
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "daily quota exceeded") {
			return err
		}

		if !strings.Contains(err.Error(), "wait") {
			return err
		}

		waitTime := extractWaitTime(err.Error())
		r.logger.Warn("rate limit approaching, throttling", "wait_seconds", waitTime, "reason", err.Error())

		select {
		case <-time.After(time.Duration(waitTime) * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// extractWaitTime parses wait time from error message
// Expected format: "... wait 45s"
func extractWaitTime(errMsg string) int {
	matches := waitPattern.FindStringSubmatch(errMsg)
	if len(matches) > 1 {
		waitTime, err := strconv.Atoi(matches[1])
		if err == nil && waitTime > 0 {
			return waitTime
		}
	}
	return 60
}

// Close closes the Redis connection
func (r *RateLimiter) Close() error {
	if r.redis != nil {
		return r.redis.Close()
	}
	return nil
}

// GetCurrentUsage returns current usage statistics (rpm, tpm, rpd).
func (r *RateLimiter) GetCurrentUsage(ctx context.Context) (int64, int64, int64, error) {
	minuteKey, tpmKey, dayKey := usageKeys(time.Now())

	pipe := r.redis.Pipeline()
	rpmCmd := pipe.Get(ctx, minuteKey)
	tpmCmd := pipe.Get(ctx, tpmKey)
	rpdCmd := pipe.Get(ctx, dayKey)

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return 0, 0, 0, fmt.Errorf("failed to get usage stats: %w", err)
	}

	rpm, _ := rpmCmd.Int64()
	tpm, _ := tpmCmd.Int64()
	rpd, _ := rpdCmd.Int64()

	return rpm, tpm, rpd, nil
}
