package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyflow/course-processor/internal/errs"
	"github.com/studyflow/course-processor/pkg/logger"
)

// checkAndIncrScript reads, compares and increments in one server-side step
// so two tabs submitting at once cannot both slip under the limit. The 24h
// expiry is set only on the key's first increment.
var checkAndIncrScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if count >= limit then
  return {0, count}
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
end
return {1, count}
`)

// DailyResult reports one atomic quota decision.
type DailyResult struct {
	Allowed   bool
	Count     int64
	Remaining int64
}

// DailyQuota enforces the per-user per-day ceiling on expensive LLM
// ingestions. It is independent of the request-rate window: LLM spend and
// raw request volume must never share a counter.
type DailyQuota struct {
	rdb       redis.Scripter
	limitFree int
	limitPaid int
	now       func() time.Time
	logger    logger.Logger
}

func NewDailyQuota(rdb redis.Scripter, limitFree, limitPaid int, log logger.Logger) *DailyQuota {
	return &DailyQuota{
		rdb:       rdb,
		limitFree: limitFree,
		limitPaid: limitPaid,
		now:       time.Now,
		logger:    log,
	}
}

// CheckAndIncrement consumes one unit of the caller's daily quota. When the
// limit is already reached nothing is mutated. Infra failures fail closed:
// the caller gets QUOTA_ERROR, not a free pass.
func (q *DailyQuota) CheckAndIncrement(ctx context.Context, userID string, paid bool) (DailyResult, error) {
	limit := q.limitFree
	if paid {
		limit = q.limitPaid
	}

	day := q.now().UTC().Format("2006-01-02")
	key := fmt.Sprintf("quota:ingest:%s:%s", userID, day)

	raw, err := checkAndIncrScript.Run(ctx, q.rdb, []string{key}, limit, int(24*time.Hour/time.Second)).Result()
	if err != nil {
		q.logger.Error("Quota check failed",
			logger.String("userId", userID),
			logger.Error(err),
		)
		return DailyResult{}, errs.Wrap(errs.CodeQuotaError, "failed to check daily quota", err)
	}

	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 2 {
		return DailyResult{}, errs.New(errs.CodeQuotaError, "unexpected quota script reply")
	}

	allowed := toInt64(vals[0]) == 1
	count := toInt64(vals[1])

	res := DailyResult{
		Allowed:   allowed,
		Count:     count,
		Remaining: int64(limit) - count,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
