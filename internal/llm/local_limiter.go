package llm

import (
	"context"
	"log/slog"

	"github.com/blockcanvas/indy/internal/config"
	"golang.org/x/time/rate"
)

// LocalLimiter enforces the request and token per-minute limits inside one
// process. It is used when no Redis is configured.
type LocalLimiter struct {
	requests *rate.Limiter
	tokens   *rate.Limiter
}

// NewLocalLimiter converts per-minute limits into token buckets.
func NewLocalLimiter(rpm, tpm int64) *LocalLimiter {
	rpm = orDefault(rpm, config.DefaultRPM)
	tpm = orDefault(tpm, config.DefaultTPM)
	return &LocalLimiter{
		requests: rate.NewLimiter(rate.Limit(float64(rpm)/60), int(rpm)),
		tokens:   rate.NewLimiter(rate.Limit(float64(tpm)/60), int(tpm)),
	}
}

// Wait blocks until one request of the given size is allowed. Calls larger
// than the token burst are charged the full burst.
func (l *LocalLimiter) Wait(ctx context.Context, tokens int64) error {
	if err := l.requests.Wait(ctx); err != nil {
		return err
	}
	n := int(tokens)
	if burst := l.tokens.Burst(); n > burst {
		n = burst
	}
	if n <= 0 {
		return nil
	}
	return l.tokens.WaitN(ctx, n)
}

// NewLimiter returns a Redis-backed limiter when cfg.Addr is set and
// reachable, otherwise a LocalLimiter. The returned close func is never nil.
func NewLimiter(cfg config.RedisConfig) (Limiter, func() error) {
	logger := slog.Default().With("component", "rate_limiter")
	if cfg.Addr != "" {
		rl, err := NewRateLimiter(cfg)
		if err == nil {
			logger.Info("using redis rate limiter", "addr", cfg.Addr)
			return rl, rl.Close
		}
		logger.Warn("redis unavailable, falling back to in-process rate limiting", "error", err)
	}
	return NewLocalLimiter(cfg.RPMLimit, cfg.TPMLimit), func() error { return nil }
}
