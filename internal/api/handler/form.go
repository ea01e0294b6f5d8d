package handler

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/core/domain"
)

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formValues returns the parsed form fields of a multipart or urlencoded body.
func formValues(c echo.Context) (url.Values, error) {
	values, err := c.FormParams()
	if err != nil {
		return nil, invalidPayload(err)
	}
	return values, nil
}

// formString returns the field value, or nil when the field was not sent.
func formString(values url.Values, field string) *string {
	v, ok := values[field]
	if !ok || len(v) == 0 {
		return nil
	}
	s := v[0]
	return &s
}

// formJSON decodes a form field holding a JSON document into dst and reports
// whether the field was present.
func formJSON(values url.Values, field string, dst any) (bool, error) {
	raw := formString(values, field)
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(*raw), dst); err != nil {
		return false, domain.NewValidationError(field, field+" must be valid JSON")
	}
	return true, nil
}
