package ports

import (
	"context"
	"time"

	"github.com/ocandle/marketplace/internal/core/domain"
)

// UserChanges names the user fields to overwrite; nil fields keep their stored value.
type UserChanges struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	Address      *domain.Address
	BusinessInfo *domain.BusinessInfo
	ProfileImage *domain.Image
	PasswordHash *string
	IsActive     *bool
	LastLogin    *time.Time
	// UpdatedAt is written when non-zero.
	UpdatedAt time.Time
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create inserts a user and returns it with its assigned id.
	// A duplicate email yields domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByIDs returns the users that exist among ids, keyed by id.
	FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	// Update overwrites only the fields set in changes.
	Update(ctx context.Context, id string, changes UserChanges) error
	// AddRating folds value into the stored rating in one atomic write and
	// returns the resulting rating.
	AddRating(ctx context.Context, id string, value int) (domain.Rating, error)
	// ListVendors returns a page of active sellers and the total match count.
	ListVendors(ctx context.Context, q VendorQuery) ([]*domain.User, int64, error)
}

// VendorQuery carries the filters for seller listings.
type VendorQuery struct {
	Search       string  // matched against business name/description and names
	Location     string  // matched against address city or state
	MinRating    float64 // rating.average >= MinRating when > 0
	VerifiedOnly bool
	SortBy       string // rating | name | newest
	Ascending    bool
	Page         int
	Limit        int
}

// ProductRepository defines persistence operations for listings.
type ProductRepository interface {
	// NewID reserves a storage id so derived fields can be computed before insert.
	NewID() string
	Create(ctx context.Context, p *domain.Product) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error)
	// Save writes p if its version still matches the stored one, then bumps
	// the version. A stale version yields domain.ErrConcurrentUpdate.
	// The view counter is never overwritten by Save.
	Save(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	Search(ctx context.Context, f ProductFilter) ([]*domain.Product, int64, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	// CountActiveBySeller counts active listings per seller id.
	CountActiveBySeller(ctx context.Context, sellerIDs []string) (map[string]int64, error)
	// Stats aggregates listing figures for one seller.
	Stats(ctx context.Context, sellerID string, status domain.ProductStatus) (ProductStats, error)
}

// ProductStats is an aggregate over a seller's listings.
type ProductStats struct {
	TotalProducts  int64
	ActiveProducts int64
	TotalStock     int64
	TotalViews     int64
	AveragePrice   float64
	Categories     []domain.Category
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	// Create inserts o. A clash on the order number yields domain.ErrDuplicateOrderNumber.
	Create(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// Save writes o under optimistic versioning, like ProductRepository.Save.
	Save(ctx context.Context, o *domain.Order) error
	List(ctx context.Context, f OrderFilter) ([]*domain.Order, int64, error)
}

// OrderFilter carries the query parameters for listing orders.
// Exactly one of BuyerID and SellerID is set by the service layer.
type OrderFilter struct {
	BuyerID  string
	SellerID string
	Status   domain.OrderStatus
	Page     int
	Limit    int
}
