package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/studyflow/course-processor/internal/quota"
	"github.com/studyflow/course-processor/pkg/logger"
)

// RateLimitConfig carries the sliding-window ceilings. Authenticated
// callers get the higher limit; anonymous callers are keyed by client IP.
type RateLimitConfig struct {
	AnonLimit int
	AuthLimit int
}

// RateLimit applies the sliding-window request limiter to every inbound
// request, before any other work. This is abuse protection for raw HTTP
// throughput and is independent of the daily LLM quota.
//
// When Redis is unreachable the limiter fails open through a coarse
// process-local token bucket, so an infra outage degrades protection
// instead of taking the API down.
func RateLimit(window *quota.SlidingWindow, cfg RateLimitConfig, log logger.Logger) gin.HandlerFunc {
	fallback := rate.NewLimiter(rate.Limit(float64(cfg.AuthLimit)/60.0), cfg.AuthLimit)

	return func(c *gin.Context) {
		identity, authed := UserID(c)
		limit := cfg.AnonLimit
		if authed {
			limit = cfg.AuthLimit
		} else {
			identity = "ip:" + c.ClientIP()
		}

		res, err := window.Allow(c.Request.Context(), identity, limit)
		if err != nil {
			log.Warn("Rate limiter unavailable, using local fallback", logger.Error(err))
			if !fallback.Allow() {
				rejectRateLimited(c)
				return
			}
			c.Next()
			return
		}

		if !res.Allowed {
			rejectRateLimited(c)
			return
		}
		c.Next()
	}
}

func rejectRateLimited(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"code":    "QUOTA_EXCEEDED",
		"message": "too many requests, please slow down",
		"quota":   true,
	})
}
