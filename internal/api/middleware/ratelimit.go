package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ocandle/marketplace/internal/api/metrics"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

// RateLimitConfig configures a sliding-window quota.
type RateLimitConfig struct {
	// Scope names the quota; it prefixes store keys and labels metrics.
	Scope  string
	Max    int
	Window time.Duration
	Store  ports.RateLimitStore
	Log    zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// RateLimit caps requests per identity (principal id, or client IP for
// anonymous requests) within a sliding window. Store failures let the
// request through.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.Window.Seconds())))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := cfg.Scope + ":" + identity(c)
			at := now()

			count, err := cfg.Store.Count(ctx, key, at.Add(-cfg.Window))
			if err != nil {
				cfg.Log.Warn().Err(err).Str("scope", cfg.Scope).Msg("rate limit store unavailable, allowing request")
				return next(c)
			}
			if count >= cfg.Max {
				metrics.RateLimitRejectionsTotal.WithLabelValues(cfg.Scope).Inc()
				c.Response().Header().Set(echo.HeaderRetryAfter, retryAfter)
				return domain.ErrTooManyRequests
			}

			if err := cfg.Store.Increment(ctx, key, at); err != nil {
				cfg.Log.Warn().Err(err).Str("scope", cfg.Scope).Msg("rate limit increment failed")
			} else if err := cfg.Store.Expire(ctx, key, cfg.Window); err != nil {
				cfg.Log.Warn().Err(err).Str("scope", cfg.Scope).Msg("rate limit expire failed")
			}
			return next(c)
		}
	}
}

func identity(c echo.Context) string {
	if p := Principal(c); p != nil {
		return "user:" + p.ID
	}
	return "ip:" + c.RealIP()
}
