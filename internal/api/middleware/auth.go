package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/api/metrics"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/pkg/logger"
)

// TokenCookie is the cookie consulted when no Authorization header is sent.
const TokenCookie = "token"

// Authenticator resolves a bearer token to an active principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Authenticate rejects requests without a valid token and injects the
// principal into the context.
func Authenticate(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
				return domain.ErrUnauthenticated
			}

			user, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				metrics.AuthFailuresTotal.WithLabelValues(failureReason(err)).Inc()
				return err
			}

			attach(c, user)
			return next(c)
		}
	}
}

// OptionalAuthenticate injects the principal when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuthenticate(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := bearerToken(c); token != "" {
				if user, err := auth.Authenticate(c.Request().Context(), token); err == nil {
					attach(c, user)
				}
			}
			return next(c)
		}
	}
}

func attach(c echo.Context, user *domain.User) {
	SetPrincipal(c, user)

	ctx := c.Request().Context()
	l := logger.FromContext(ctx).With().Str("user_id", user.ID).Logger()
	c.SetRequest(c.Request().WithContext(logger.WithContext(ctx, l)))
}

// bearerToken reads "Authorization: Bearer <token>" and falls back to the
// token cookie.
func bearerToken(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrPrincipalNotFound):
		return "principal_not_found"
	case errors.Is(err, domain.ErrAccountDeactivated):
		return "deactivated"
	default:
		return "error"
	}
}
