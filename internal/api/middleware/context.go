package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/core/domain"
)

const (
	principalKey = "principal"
	resourceKey  = "resource"
)

// SetPrincipal attaches the authenticated user to the request.
func SetPrincipal(c echo.Context, u *domain.User) {
	c.Set(principalKey, u)
}

// Principal returns the authenticated user, or nil for anonymous requests.
func Principal(c echo.Context) *domain.User {
	u, _ := c.Get(principalKey).(*domain.User)
	return u
}

// Resource returns the entity loaded by CheckOwnership.
func Resource(c echo.Context) domain.Owned {
	r, _ := c.Get(resourceKey).(domain.Owned)
	return r
}

// SetResource stores the entity a handler operates on.
func SetResource(c echo.Context, r domain.Owned) {
	c.Set(resourceKey, r)
}
