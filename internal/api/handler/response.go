package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

// Response is the envelope every successful endpoint answers with.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the envelope returned on all 4xx/5xx responses.
type ErrorResponse struct {
	Success    bool                `json:"success" example:"false"`
	Message    string              `json:"message"`
	Errors     []domain.FieldError `json:"errors,omitempty"`
	RetryAfter int                 `json:"retryAfter,omitempty"`
}

func respond(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, Response{Success: true, Message: message, Data: data})
}

func ok(c echo.Context, message string, data any) error {
	return respond(c, http.StatusOK, message, data)
}

func created(c echo.Context, message string, data any) error {
	return respond(c, http.StatusCreated, message, data)
}

// invalidPayload reports a body that could not be decoded.
func invalidPayload(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload").SetInternal(err)
}

// deny turns a service-level ErrForbidden into a 403 with a specific message.
func deny(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrForbidden) {
		return echo.NewHTTPError(http.StatusForbidden, message).SetInternal(err)
	}
	return err
}

// Pagination is the page block listing endpoints attach to their data.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

func newPagination(p ports.PageInfo) Pagination {
	return Pagination{CurrentPage: p.CurrentPage, TotalPages: p.TotalPages, HasNextPage: p.HasNextPage, HasPrevPage: p.HasPrevPage}
}

type productPagination struct {
	Pagination
	TotalProducts int64 `json:"totalProducts"`
}

type orderPagination struct {
	Pagination
	TotalOrders int64 `json:"totalOrders"`
}

type vendorPagination struct {
	Pagination
	TotalVendors int64 `json:"totalVendors"`
}
