package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/core/domain"
)

// OwnedLoader loads the entity a route parameter names.
type OwnedLoader func(ctx context.Context, id string) (domain.Owned, error)

// CheckOwnership loads the entity named by the param route parameter, rejects
// principals that do not own it and stores it for the handler (see Resource).
func CheckOwnership(param string, load OwnedLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := Principal(c)
			if principal == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access denied. Please authenticate first.").
					SetInternal(domain.ErrUnauthenticated)
			}

			entity, err := load(c.Request().Context(), c.Param(param))
			if err != nil {
				return err
			}
			if !entity.OwnedBy(principal.ID) {
				return echo.NewHTTPError(http.StatusForbidden, "Access denied. You can only access your own resources.").
					SetInternal(domain.ErrForbidden)
			}

			SetResource(c, entity)
			return next(c)
		}
	}
}

// RequireVerified rejects principals whose account is not verified.
func RequireVerified() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := Principal(c)
			if principal == nil {
				return domain.ErrUnauthenticated
			}
			if !principal.IsVerified {
				return domain.ErrUnverifiedAccount
			}
			return next(c)
		}
	}
}
