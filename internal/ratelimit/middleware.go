package ratelimit

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/logger"
	"github.com/justsurfingit/jobtracker/internal/metrics"
)

// Middleware limits one endpoint class with the checker configured for it.
func (l Limiters) Middleware(class Class) gin.HandlerFunc {
	return Middleware(l.For(class), class)
}

// Middleware limits requests per caller identity for one endpoint class. It must
// run after the authentication middleware so signed-in callers are keyed by user.
func Middleware(checker Checker, class Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.Next()
			return
		}

		key := Key(authz.CallerFrom(c), class)
		res, err := checker.Check(c.Request.Context(), key)
		if err != nil {
			// Store outages must not take the API down with them.
			metrics.RateLimitErrors.WithLabelValues(string(class)).Inc()
			logger.FromContext(c).Warnw("rate limit check failed, allowing request", "class", class, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.UnixMilli(), 10))

		if !res.Allowed {
			metrics.RateLimitDecisions.WithLabelValues(string(class), "denied").Inc()
			apierrors.Respond(c, apierrors.TooManyRequests(res.RetryAfter(time.Now())))
			return
		}

		metrics.RateLimitDecisions.WithLabelValues(string(class), "allowed").Inc()
		c.Next()
	}
}
