package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/infrastructure/ratelimit"
)

type failingStore struct{}

func (failingStore) Count(context.Context, string, time.Time) (int, error) {
	return 0, errors.New("store down")
}
func (failingStore) Increment(context.Context, string, time.Time) error   { return nil }
func (failingStore) Expire(context.Context, string, time.Duration) error { return nil }

func TestRateLimit_RejectsAfterMax(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mw := RateLimit(RateLimitConfig{
		Scope:  "login",
		Max:    2,
		Window: 15 * time.Minute,
		Store:  ratelimit.NewMemoryStore(),
		Log:    zerolog.Nop(),
		Now:    func() time.Time { return now },
	})
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	call := func(ip string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		return rec, mw(next)(e.NewContext(req, rec))
	}

	for i := 0; i < 2; i++ {
		_, err := call("10.0.0.1")
		require.NoError(t, err)
	}

	rec, err := call("10.0.0.1")
	require.ErrorIs(t, err, domain.ErrTooManyRequests)
	assert.Equal(t, "900", rec.Header().Get(echo.HeaderRetryAfter))

	_, err = call("10.0.0.2")
	assert.NoError(t, err, "other clients keep their own quota")

	now = now.Add(16 * time.Minute)
	_, err = call("10.0.0.1")
	assert.NoError(t, err, "window slides past old requests")
}

func TestRateLimit_KeysByPrincipal(t *testing.T) {
	mw := RateLimit(RateLimitConfig{
		Scope:  "orders",
		Max:    1,
		Window: time.Minute,
		Store:  ratelimit.NewMemoryStore(),
		Log:    zerolog.Nop(),
	})
	e := echo.New()
	next := func(c echo.Context) error { return nil }

	call := func(userID string) error {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.9:1"
		c := e.NewContext(req, httptest.NewRecorder())
		SetPrincipal(c, &domain.User{ID: userID})
		return mw(next)(c)
	}

	require.NoError(t, call("a"))
	require.NoError(t, call("b"))
	assert.ErrorIs(t, call("a"), domain.ErrTooManyRequests)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mw := RateLimit(RateLimitConfig{Scope: "x", Max: 1, Window: time.Minute, Store: failingStore{}, Log: zerolog.Nop()})
	e := echo.New()
	called := 0
	next := func(c echo.Context) error { called++; return nil }

	for i := 0; i < 3; i++ {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		require.NoError(t, mw(next)(c))
	}
	assert.Equal(t, 3, called)
}
