package echoapi

import (
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/beasiswa/core/user"
	"github.com/trezcool/beasiswa/services/ratelimit"
)

// userMiddleware loads the user of the token; deactivated accounts are refused.
func userMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := loadContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			return next(ctx)
		}
	}
}

// adminMiddleware checks the role of the stored user, so demoted admins lose access at once.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if usr := getContextUser(ctx); usr.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// rateLimitMiddleware allows `limit` requests per window to a route from a client IP; limit <= 0 disables it.
func rateLimitMiddleware(limiter ratelimit.Limiter, limit int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limit <= 0 {
				return next(ctx)
			}

			key := ctx.RealIP() + "|" + ctx.Request().Method + " " + ctx.Path()
			d := limiter.Allow(ctx.Request().Context(), key, limit)

			header := ctx.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				retry := int(math.Ceil(d.RetryAfter(time.Now().UTC()).Seconds()))
				if retry < 1 {
					retry = 1
				}
				header.Set("Retry-After", strconv.Itoa(retry))
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
