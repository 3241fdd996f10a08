// Package ratelimit enforces per-user daily quotas in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"
)

// ErrQuotaExceeded is returned when the user has used up the quota of the day.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// Quota limits how often a user may perform an action.
type Quota interface {
	// Take consumes one unit of the user's quota.
	Take(ctx context.Context, userID int) error
}

// DailyQuota is a fixed-window counter per user and UTC day.
type DailyQuota struct {
	redis rueidis.Client
	name  string
	limit int
	nowFn func() time.Time
}

// NewDailyQuota creates a quota named name allowing limit actions per day. A limit of 0 is unlimited.
func NewDailyQuota(redis rueidis.Client, name string, limit int) *DailyQuota {
	return &DailyQuota{
		redis: redis,
		name:  name,
		limit: limit,
		nowFn: time.Now,
	}
}

var _ Quota = (*DailyQuota)(nil)

func (q *DailyQuota) key(userID int, now time.Time) string {
	return "ratelimit:" + q.name + ":" + strconv.Itoa(userID) + ":" + now.UTC().Format("20060102")
}

func (q *DailyQuota) Take(ctx context.Context, userID int) error {
	if q.limit <= 0 {
		return nil
	}

	key := q.key(userID, q.nowFn())

	count, err := q.redis.Do(ctx, q.redis.B().Incr().Key(key).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("increment quota: %w", err)
	}

	if count == 1 {
		// the window is a UTC day; keep the key a little longer than that
		if err := q.redis.Do(ctx, q.redis.B().Expire().Key(key).Seconds(int64((25 * time.Hour).Seconds())).Build()).Error(); err != nil {
			return fmt.Errorf("expire quota: %w", err)
		}
	}

	if count > int64(q.limit) {
		return ErrQuotaExceeded
	}

	return nil
}

// Remaining returns how many actions the user has left today, or -1 if unlimited.
func (q *DailyQuota) Remaining(ctx context.Context, userID int) (int, error) {
	if q.limit <= 0 {
		return -1, nil
	}

	count, err := q.redis.Do(ctx, q.redis.B().Get().Key(q.key(userID, q.nowFn())).Build()).AsInt64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return q.limit, nil
		}
		return 0, fmt.Errorf("get quota: %w", err)
	}

	return max(q.limit-int(count), 0), nil
}
