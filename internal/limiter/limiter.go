package limiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("too many attempts")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// LoginLimiter throttles credential attempts with redis counters, one per
// identifier and one per client IP. Counters expire after the cooldown.
type LoginLimiter struct {
	Redis       *redis.Client
	MaxAttempts int
	Cooldown    time.Duration
}

func NewLoginLimiter(rdb *redis.Client, maxAttempts int, cooldown time.Duration) *LoginLimiter {
	return &LoginLimiter{
		Redis:       rdb,
		MaxAttempts: maxAttempts,
		Cooldown:    cooldown,
	}
}

// Enforce counts one attempt against both keys and fails with ErrRateLimited
// once either is over the limit within the cooldown.
func (l *LoginLimiter) Enforce(ctx context.Context, identifier, ip string) error {
	if identifier != "" {
		if err := l.enforceKey(ctx, identifierKey(identifier)); err != nil {
			return err
		}
	}
	if ip != "" {
		if err := l.enforceKey(ctx, ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *LoginLimiter) enforceKey(ctx context.Context, key string) error {
	count, err := l.Redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.Redis.Expire(ctx, key, l.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(l.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func identifierKey(identifier string) string {
	return "login:id:" + strings.ToLower(identifier)
}

func ipKey(ip string) string {
	return "login:ip:" + ip
}
