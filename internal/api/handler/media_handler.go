package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/infrastructure/media"
)

const mediaCacheControl = "public, max-age=86400"

// MediaReader opens stored images by public id.
type MediaReader interface {
	Read(ctx context.Context, publicID string) (*media.Object, error)
}

// MediaHandler serves uploaded images when the bucket has no public host of
// its own.
type MediaHandler struct {
	media MediaReader
}

func NewMediaHandler(media MediaReader) *MediaHandler {
	return &MediaHandler{media: media}
}

// Serve handles GET /media/*.
//
// @Summary      Fetch an uploaded image
// @Tags         media
// @Produce      image/png,image/jpeg,image/webp,image/gif
// @Param        path  path      string  true  "Image public id"
// @Success      200   {file}    binary
// @Failure      404   {object}  ErrorResponse
// @Router       /media/{path} [get]
func (h *MediaHandler) Serve(c echo.Context) error {
	publicID := strings.TrimPrefix(c.Param("*"), "/")
	if publicID == "" || strings.Contains(publicID, "..") {
		return echo.NewHTTPError(http.StatusNotFound, "Image not found")
	}

	obj, err := h.media.Read(c.Request().Context(), publicID)
	if err != nil {
		if errors.Is(err, media.ErrObjectNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Image not found").SetInternal(err)
		}
		return err
	}
	defer obj.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderCacheControl, mediaCacheControl)
	if obj.Size > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
	}
	return c.Stream(http.StatusOK, obj.ContentType, obj)
}
