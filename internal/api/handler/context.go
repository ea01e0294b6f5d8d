package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/api/middleware"
	"github.com/ocandle/marketplace/internal/core/domain"
)

// principal returns the authenticated user and fails fast when the Auth
// middleware did not run for this route.
func principal(c echo.Context) (*domain.User, error) {
	u := middleware.Principal(c)
	if u == nil {
		return nil, domain.ErrUnauthenticated
	}
	return u, nil
}

// ownedProduct returns the listing loaded by the ownership middleware.
func ownedProduct(c echo.Context) (*domain.Product, error) {
	p, ok := middleware.Resource(c).(*domain.Product)
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}
