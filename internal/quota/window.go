package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyflow/course-processor/pkg/logger"
)

// slidingWindowScript counts requests inside a moving interval. Timestamps
// older than the window are dropped, the remainder is compared against the
// limit, and only an allowed request is recorded.
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
if count >= limit then
  return {0, count}
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, count + 1}
`)

// WindowResult reports one sliding-window decision.
type WindowResult struct {
	Allowed bool
	Count   int64
}

// SlidingWindow rate-limits raw request volume per identity (user id when
// authenticated, client IP otherwise). It protects HTTP throughput and is
// deliberately separate from the daily LLM quota.
type SlidingWindow struct {
	rdb    redis.Scripter
	window time.Duration
	now    func() time.Time
	logger logger.Logger
}

func NewSlidingWindow(rdb redis.Scripter, window time.Duration, log logger.Logger) *SlidingWindow {
	return &SlidingWindow{
		rdb:    rdb,
		window: window,
		now:    time.Now,
		logger: log,
	}
}

// Allow records one request for identity if it fits inside the window.
func (w *SlidingWindow) Allow(ctx context.Context, identity string, limit int) (WindowResult, error) {
	key := fmt.Sprintf("ratelimit:%s", identity)
	now := w.now()

	raw, err := slidingWindowScript.Run(ctx, w.rdb, []string{key},
		now.UnixMilli(),
		w.window.Milliseconds(),
		limit,
		fmt.Sprintf("%d", now.UnixNano()),
	).Result()
	if err != nil {
		return WindowResult{}, fmt.Errorf("sliding window check failed: %w", err)
	}

	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 2 {
		return WindowResult{}, fmt.Errorf("unexpected rate limit script reply")
	}

	return WindowResult{
		Allowed: toInt64(vals[0]) == 1,
		Count:   toInt64(vals[1]),
	}, nil
}
