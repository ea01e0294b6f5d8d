package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/core/domain"
)

// Authorize enforces role-based access control. It must run after Authenticate.
func Authorize(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	names := make([]string, 0, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
		names = append(names, string(r))
	}
	required := strings.Join(names, " or ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := Principal(c)
			if principal == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access denied. Please authenticate first.").
					SetInternal(domain.ErrUnauthenticated)
			}
			if _, ok := allowed[principal.Role]; !ok {
				msg := fmt.Sprintf("Access denied. Required role: %s. Your role: %s", required, principal.Role)
				return echo.NewHTTPError(http.StatusForbidden, msg).SetInternal(domain.ErrForbidden)
			}
			return next(c)
		}
	}
}

// Require admits principals whose role grants capability.
func Require(capability domain.Capability) echo.MiddlewareFunc {
	return Authorize(domain.RolesWith(capability)...)
}
