package ports

import (
	"context"

	"github.com/ocandle/marketplace/internal/core/domain"
)

// VendorView is a seller with the number of listings currently on sale.
type VendorView struct {
	*domain.User
	ProductCount int64 `json:"productCount"`
}

// VendorPage is a page of vendors.
type VendorPage struct {
	Items    []VendorView
	PageInfo PageInfo
}

// VendorStats summarises a vendor's active listings.
type VendorStats struct {
	TotalProducts int64             `json:"totalProducts"`
	AveragePrice  float64           `json:"averagePrice"`
	TotalStock    int64             `json:"totalStock"`
	Categories    []domain.Category `json:"categories"`
}

// VendorProfile is the public storefront of one vendor.
type VendorProfile struct {
	Vendor   *domain.User
	Products []*domain.Product
	Stats    VendorStats
}

// SellerStats is the dashboard summary a seller sees on their own profile.
type SellerStats struct {
	TotalProducts  int64   `json:"totalProducts"`
	ActiveProducts int64   `json:"activeProducts"`
	TotalStock     int64   `json:"totalStock"`
	TotalViews     int64   `json:"totalViews"`
	AveragePrice   float64 `json:"averagePrice"`
}

// ProfileView is the principal's own profile.
type ProfileView struct {
	User  *domain.User
	Stats *SellerStats
}

// DirectoryService exposes read-only vendor aggregations.
type DirectoryService interface {
	// FindBySeller lists a seller's listings; status "all" disables the filter
	// and an empty status means active.
	FindBySeller(ctx context.Context, sellerID, status string) ([]*domain.Product, error)
	ListVendors(ctx context.Context, q VendorQuery) (*VendorPage, error)
	VendorProfile(ctx context.Context, sellerID string) (*VendorProfile, error)
	VendorProducts(ctx context.Context, sellerID string, filter ProductFilter) (*ListingPage, error)
	SearchVendors(ctx context.Context, query string, limit int) ([]VendorView, error)
	FeaturedVendors(ctx context.Context, limit int) ([]VendorView, error)
	Profile(ctx context.Context, user *domain.User) (*ProfileView, error)
}
