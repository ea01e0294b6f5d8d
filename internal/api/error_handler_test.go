package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocandle/marketplace/internal/api/handler"
	"github.com/ocandle/marketplace/internal/core/domain"
)

func handle(t *testing.T, err error, development bool, prepare ...func(echo.Context)) (*httptest.ResponseRecorder, handler.ErrorResponse) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/x", nil), rec)
	for _, p := range prepare {
		p(c)
	}

	NewHTTPErrorHandler(zerolog.Nop(), development)(err, c)

	var resp handler.ErrorResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestErrorHandler_DomainErrors(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantMsg  string
	}{
		{domain.ErrUnauthenticated, http.StatusUnauthorized, "Access denied. No token provided."},
		{domain.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
		{domain.ErrUnverifiedAccount, http.StatusForbidden, "Please verify your email address to access this feature"},
		{fmt.Errorf("load: %w", domain.ErrProductNotFound), http.StatusNotFound, "Product not found"},
		{domain.ErrVendorNotFound, http.StatusNotFound, "Vendor not found"},
		{domain.ErrSelfOrder, http.StatusBadRequest, "You cannot order your own product"},
		{domain.ErrAlreadyPaid, http.StatusBadRequest, "Payment already completed for this order"},
		{domain.ErrInvalidID, http.StatusBadRequest, "Invalid ID format"},
		{domain.ErrConcurrentUpdate, http.StatusConflict, "Resource was modified concurrently, please retry"},
	}
	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			rec, resp := handle(t, tt.err, false)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantMsg, resp.Message)
		})
	}
}

func TestErrorHandler_StockErrorCarriesAvailable(t *testing.T) {
	rec, resp := handle(t, &domain.StockError{Available: 3}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only 3 items available in stock", resp.Message)
}

func TestErrorHandler_ValidationError(t *testing.T) {
	ve := domain.NewValidationError("email", "Please provide a valid email")
	rec, resp := handle(t, ve, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", resp.Message)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "email", resp.Errors[0].Field)

	ve = &domain.ValidationError{Message: "Invalid query parameters"}
	ve.Add("page", "page must be an integer")
	_, resp = handle(t, ve, false)
	assert.Equal(t, "Invalid query parameters", resp.Message)
}

func TestErrorHandler_HTTPErrors(t *testing.T) {
	rec, resp := handle(t, echo.ErrNotFound, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", resp.Message)

	custom := echo.NewHTTPError(http.StatusForbidden, "Only the buyer can rate this order").SetInternal(domain.ErrForbidden)
	rec, resp = handle(t, custom, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Only the buyer can rate this order", resp.Message)
}

func TestErrorHandler_TooManyRequestsReportsRetryAfter(t *testing.T) {
	rec, resp := handle(t, domain.ErrTooManyRequests, false, func(c echo.Context) {
		c.Response().Header().Set(echo.HeaderRetryAfter, "900")
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 900, resp.RetryAfter)
	assert.Equal(t, "Too many requests. Please try again later.", resp.Message)
}

func TestErrorHandler_UnexpectedError(t *testing.T) {
	boom := errors.New("mongo: connection reset")

	rec, resp := handle(t, boom, false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", resp.Message)

	_, resp = handle(t, boom, true)
	assert.Equal(t, "Internal server error: mongo: connection reset", resp.Message)
}

func TestErrorHandler_HeadHasNoBody(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodHead, "/api/x", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop(), false)(domain.ErrOrderNotFound, c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestErrorHandler_SkipsCommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/x", nil), rec)
	require.NoError(t, c.String(http.StatusOK, "done"))

	NewHTTPErrorHandler(zerolog.Nop(), false)(domain.ErrForbidden, c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}
