package ports

import (
	"context"
	"time"

	"github.com/ocandle/marketplace/internal/core/domain"
)

// ImageUpload is a validated image file received from a client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MediaStore is the remote media host holding listing and profile images.
type MediaStore interface {
	// Upload stores the image under folder and returns its public reference.
	Upload(ctx context.Context, folder string, img ImageUpload) (domain.Image, error)
	// Delete releases a previously uploaded image.
	Delete(ctx context.Context, publicID string) error
}

// Media folders.
const (
	MediaFolderProducts = "ocandle/products"
	MediaFolderProfiles = "ocandle/profiles"
)

// TokenClaims is the verified content of a bearer token.
type TokenClaims struct {
	UserID string
	Email  string
	Role   domain.Role
}

// TokenService signs and verifies bearer tokens.
type TokenService interface {
	Issue(user *domain.User) (string, error)
	Verify(token string) (*TokenClaims, error)
}

// RateLimitStore keeps per-identity request timestamps for sliding-window quotas.
// Implementations are advisory; callers fail open when the store errors.
type RateLimitStore interface {
	// Count drops entries older than windowStart and returns how many remain.
	Count(ctx context.Context, key string, windowStart time.Time) (int, error)
	// Increment records a request at the given instant.
	Increment(ctx context.Context, key string, at time.Time) error
	// Expire bounds how long the key may be retained without new requests.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// OrderEventPublisher delivers order events to downstream consumers.
type OrderEventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}

// EventDispatcher accepts order events for asynchronous publication.
type EventDispatcher interface {
	Enqueue(event domain.OrderEvent)
}
