package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/core/domain"
)

const invalidQueryMessage = "Invalid query parameters"

// queryReader collects typed query parameters and the problems found while
// parsing them.
type queryReader struct {
	c  echo.Context
	ve *domain.ValidationError
}

func newQueryReader(c echo.Context) *queryReader {
	return &queryReader{c: c, ve: &domain.ValidationError{Message: invalidQueryMessage}}
}

func (q *queryReader) present(name string) bool {
	return strings.TrimSpace(q.c.QueryParam(name)) != ""
}

func (q *queryReader) str(name string) string {
	return strings.TrimSpace(q.c.QueryParam(name))
}

func (q *queryReader) integer(name string, dst *int) {
	if !q.present(name) {
		return
	}
	n, err := strconv.Atoi(q.str(name))
	if err != nil {
		q.ve.Add(name, name+" must be an integer")
		return
	}
	*dst = n
}

func (q *queryReader) float(name string) *float64 {
	if !q.present(name) {
		return nil
	}
	f, err := strconv.ParseFloat(q.str(name), 64)
	if err != nil {
		q.ve.Add(name, name+" must be a number")
		return nil
	}
	return &f
}

func (q *queryReader) boolean(name string) *bool {
	if !q.present(name) {
		return nil
	}
	b, err := strconv.ParseBool(q.str(name))
	if err != nil {
		q.ve.Add(name, name+" must be true or false")
		return nil
	}
	return &b
}

// validate runs struct rules on dst and merges every problem found so far.
func (q *queryReader) validate(dst any) error {
	if err := q.c.Validate(dst); err != nil {
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		q.ve.Fields = append(q.ve.Fields, ve.Fields...)
	}
	return q.ve.OrNil()
}
