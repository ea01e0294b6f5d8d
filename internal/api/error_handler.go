package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ocandle/marketplace/internal/api/handler"
	"github.com/ocandle/marketplace/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes and client messages.
//   - Passes echo.HTTPError values through with their own code and message.
//   - Logs unexpected errors and hides their cause unless development is set.
//   - Renders the envelope {"success": false, "message": "...", "errors": [...]}.
func NewHTTPErrorHandler(log zerolog.Logger, development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c, development)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context, development bool) (int, handler.ErrorResponse) {
	resp := handler.ErrorResponse{Success: false}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Message = "Validation failed"
		if ve.Message != "" {
			resp.Message = ve.Message
		}
		resp.Errors = ve.Fields
		return http.StatusBadRequest, resp
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he == echo.ErrNotFound {
			resp.Message = "Route not found"
			return http.StatusNotFound, resp
		}
		resp.Message = httpErrorMessage(he)
		if he.Code == http.StatusTooManyRequests {
			resp.RetryAfter = retryAfter(c)
		}
		return he.Code, resp
	}

	var se *domain.StockError
	if errors.As(err, &se) {
		resp.Message = fmt.Sprintf("Only %d items available in stock", se.Available)
		return http.StatusBadRequest, resp
	}

	if code, msg, ok := domainStatus(err); ok {
		resp.Message = msg
		if code == http.StatusTooManyRequests {
			resp.RetryAfter = retryAfter(c)
		}
		return code, resp
	}

	log.Error().
		Err(err).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	resp.Message = "Internal server error"
	if development {
		resp.Message += ": " + err.Error()
	}
	return http.StatusInternalServerError, resp
}

// domainStatus maps sentinel errors to a status code and client message.
func domainStatus(err error) (int, string, bool) {
	switch {
	// 401
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Access denied. No token provided.", true
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid token", true
	case errors.Is(err, domain.ErrPrincipalNotFound):
		return http.StatusUnauthorized, "Token is valid but user not found", true
	case errors.Is(err, domain.ErrAccountDeactivated):
		return http.StatusUnauthorized, "Account has been deactivated", true
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password", true

	// 403
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Access denied", true
	case errors.Is(err, domain.ErrUnverifiedAccount):
		return http.StatusForbidden, "Please verify your email address to access this feature", true

	// 404
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found", true
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "Product not found", true
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found", true
	case errors.Is(err, domain.ErrVendorNotFound):
		return http.StatusNotFound, "Vendor not found", true

	// 400
	case errors.Is(err, domain.ErrProductUnavailable):
		return http.StatusBadRequest, "Product is not available for order", true
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusBadRequest, "Insufficient stock available", true
	case errors.Is(err, domain.ErrSelfOrder):
		return http.StatusBadRequest, "You cannot order your own product", true
	case errors.Is(err, domain.ErrSelfReview):
		return http.StatusBadRequest, "You cannot review your own product", true
	case errors.Is(err, domain.ErrAlreadyPaid):
		return http.StatusBadRequest, "Payment already completed for this order", true
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusBadRequest, "Invalid status transition", true
	case errors.Is(err, domain.ErrAlreadyRated):
		return http.StatusBadRequest, "Order has already been rated", true
	case errors.Is(err, domain.ErrIncorrectPassword):
		return http.StatusBadRequest, "Current password is incorrect", true
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusBadRequest, "User with this email already exists", true
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, "Invalid ID format", true
	case errors.Is(err, domain.ErrMediaRejected):
		return http.StatusBadRequest, "Only image files are allowed", true
	case errors.Is(err, domain.ErrMediaTooLarge):
		return http.StatusBadRequest, "File too large", true

	// 409, 429
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict, "Resource was modified concurrently, please retry", true
	case errors.Is(err, domain.ErrTooManyRequests):
		return http.StatusTooManyRequests, "Too many requests. Please try again later.", true
	}
	return 0, "", false
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	default:
		msg := fmt.Sprintf("%v", m)
		if msg == "" || msg == "<nil>" {
			return http.StatusText(he.Code)
		}
		return msg
	}
}

// retryAfter reads back the Retry-After header set by the rate limiter.
func retryAfter(c echo.Context) int {
	v := strings.TrimSpace(c.Response().Header().Get(echo.HeaderRetryAfter))
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
