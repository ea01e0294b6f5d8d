// Package media stores listing and profile images in a gocloud blob bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// BlobStore implements ports.MediaStore on a gocloud bucket.
type BlobStore struct {
	bucket  *blob.Bucket
	baseURL string
	log     zerolog.Logger
}

// Open opens the bucket at bucketURL (mem://, file:///path, ...). Public URLs
// are built as <publicBaseURL>/<publicID>.
func Open(ctx context.Context, bucketURL, publicBaseURL string, log zerolog.Logger) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open media bucket: %w", err)
	}
	return NewBlobStore(bucket, publicBaseURL, log), nil
}

func NewBlobStore(bucket *blob.Bucket, publicBaseURL string, log zerolog.Logger) *BlobStore {
	return &BlobStore{bucket: bucket, baseURL: strings.TrimRight(publicBaseURL, "/"), log: log}
}

// Upload sniffs the content type, rejects non-images and writes the object
// under folder with a random name.
func (s *BlobStore) Upload(ctx context.Context, folder string, img ports.ImageUpload) (domain.Image, error) {
	if len(img.Data) == 0 {
		return domain.Image{}, fmt.Errorf("%w: empty file", domain.ErrMediaRejected)
	}
	mtype := mimetype.Detect(img.Data)
	ext, ok := allowedTypes[mtype.String()]
	if !ok {
		return domain.Image{}, fmt.Errorf("%w: %s is not an accepted image type", domain.ErrMediaRejected, mtype.String())
	}

	publicID := path.Join(folder, uuid.NewString()+ext)
	opts := &blob.WriterOptions{
		ContentType: mtype.String(),
		Metadata:    map[string]string{"filename": path.Base(img.Filename)},
	}
	if err := s.bucket.WriteAll(ctx, publicID, img.Data, opts); err != nil {
		return domain.Image{}, fmt.Errorf("upload %s: %w", publicID, err)
	}

	s.log.Debug().Str("public_id", publicID).Int("bytes", len(img.Data)).Msg("image uploaded")
	return domain.Image{URL: s.baseURL + "/" + publicID, PublicID: publicID}, nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (s *BlobStore) Delete(ctx context.Context, publicID string) error {
	if err := s.bucket.Delete(ctx, publicID); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
		return fmt.Errorf("delete %s: %w", publicID, err)
	}
	return nil
}

// Object is a stored image opened for reading.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// ErrObjectNotFound is returned by Read for unknown ids.
var ErrObjectNotFound = errors.New("media object not found")

// Read opens the object for serving.
func (s *BlobStore) Read(ctx context.Context, publicID string) (*Object, error) {
	r, err := s.bucket.NewReader(ctx, publicID, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("read %s: %w", publicID, err)
	}
	return &Object{ReadCloser: r, ContentType: r.ContentType(), Size: r.Size()}, nil
}

// Ping reports whether the bucket is reachable.
func (s *BlobStore) Ping(ctx context.Context) error {
	ok, err := s.bucket.IsAccessible(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("media bucket not accessible")
	}
	return nil
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}
