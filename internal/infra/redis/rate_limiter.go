package redis

import (
	"context"
	"fmt"
	"time"

	"telegram-usersettings/internal/infra/metrics"
)

// Limiter is a fixed-window counter per key.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var _ Limiter = (*RateLimiter)(nil)

type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	// first hit opens the window
	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		metrics.IncRateLimitTriggered()
		return false, nil
	}
	return true, nil
}

// UserActionKey scopes a limit to one user and one kind of action
// ("cmd:/usetting", "cb:userset").
func UserActionKey(userID int64, action string) string {
	return fmt.Sprintf("rate_limit:%d:%s", userID, action)
}
