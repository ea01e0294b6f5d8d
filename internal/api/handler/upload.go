package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/api/metrics"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

// Upload limits per image kind.
const (
	maxProductImageSize = 5 << 20
	maxProfileImageSize = 2 << 20
)

// imageField describes a multipart file field carrying images.
type imageField struct {
	name     string
	kind     string // metrics label
	maxFiles int
	maxSize  int64
}

var (
	productImagesField = imageField{name: "images", kind: "product", maxFiles: domain.MaxImagesPerUpload, maxSize: maxProductImageSize}
	newImagesField     = imageField{name: "newImages", kind: "product", maxFiles: domain.MaxImagesPerUpload, maxSize: maxProductImageSize}
	profileImageField  = imageField{name: "profileImage", kind: "profile", maxFiles: 1, maxSize: maxProfileImageSize}
)

// readImages loads the files sent under field. A request that is not
// multipart, or carries no such field, yields no images.
func readImages(c echo.Context, field imageField) ([]ports.ImageUpload, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, invalidPayload(err)
	}
	files := form.File[field.name]
	if len(files) > field.maxFiles {
		return nil, domain.NewValidationError(field.name, fmt.Sprintf("Maximum %d images allowed", field.maxFiles))
	}

	uploads := make([]ports.ImageUpload, 0, len(files))
	for _, fh := range files {
		img, err := readImage(fh, field.maxSize)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, img)
	}
	metrics.ImagesReceivedTotal.WithLabelValues(field.kind).Add(float64(len(uploads)))
	return uploads, nil
}

func readImage(fh *multipart.FileHeader, maxSize int64) (ports.ImageUpload, error) {
	if fh.Size > maxSize {
		return ports.ImageUpload{}, domain.ErrMediaTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return ports.ImageUpload{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return ports.ImageUpload{}, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	if int64(len(data)) > maxSize {
		return ports.ImageUpload{}, domain.ErrMediaTooLarge
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return ports.ImageUpload{}, domain.ErrMediaRejected
	}
	return ports.ImageUpload{Filename: fh.Filename, ContentType: mt.String(), Data: data}, nil
}
