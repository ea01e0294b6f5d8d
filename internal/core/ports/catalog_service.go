package ports

import (
	"context"

	"github.com/ocandle/marketplace/internal/core/domain"
)

// ListingInput carries the fields of a new listing.
type ListingInput struct {
	Name         string
	Description  string
	Category     domain.Category
	Subcategory  string
	Price        float64
	Unit         domain.SaleUnit
	Stock        domain.Stock
	Details      domain.ProductDetails
	Nutrition    *domain.Nutrition
	Tags         []string
	Availability *domain.Availability
}

// ListingPatch carries a partial listing update; nil fields are left untouched.
type ListingPatch struct {
	Name          *string
	Description   *string
	Category      *domain.Category
	Subcategory   *string
	Price         *float64
	Unit          *domain.SaleUnit
	StockQuantity *int
	StockUnit     *domain.StockUnit
	Status        *domain.ProductStatus
	Details       *domain.ProductDetails
	Nutrition     *domain.Nutrition
	Tags          []string
	Availability  *domain.Availability
}

// ProductSort selects the ordering of search results.
type ProductSort string

const (
	SortPriceLow  ProductSort = "price_low"
	SortPriceHigh ProductSort = "price_high"
	SortRating    ProductSort = "rating"
	SortNewest    ProductSort = "newest"
	SortOldest    ProductSort = "oldest"
	SortName      ProductSort = "name"
)

// ProductFilter carries listing search criteria.
type ProductFilter struct {
	Search       string
	Category     domain.Category
	MinPrice     *float64
	MaxPrice     *float64
	Organic      *bool
	LocallyGrown *bool
	SellerID     string
	Status       domain.ProductStatus // empty means any status
	InStock      bool
	Sort         ProductSort
	Page         int
	Limit        int
}

// ListingView is a listing with the summaries clients display alongside it.
type ListingView struct {
	Product   *domain.Product
	Seller    *domain.UserSummary
	Reviewers map[string]*domain.UserSummary
}

// ListingPage is a page of listings.
type ListingPage struct {
	Items    []ListingView
	PageInfo PageInfo
}

// CatalogService defines listing use cases.
type CatalogService interface {
	CreateListing(ctx context.Context, seller *domain.User, input ListingInput, images []ImageUpload) (*ListingView, error)
	UpdateListing(ctx context.Context, product *domain.Product, patch ListingPatch, newImages []ImageUpload, removeImageIDs []string) (*ListingView, error)
	DeleteListing(ctx context.Context, product *domain.Product) error
	AddReview(ctx context.Context, productID, reviewerID string, rating int, comment string) (*domain.Product, error)
	AdjustStock(ctx context.Context, product *domain.Product, amount int, op domain.StockOperation) (*domain.Product, error)
	Search(ctx context.Context, filter ProductFilter) (*ListingPage, error)
	// GetByID returns a listing and counts the view. Non-active listings are
	// visible only to their seller.
	GetByID(ctx context.Context, id string, viewer *domain.User) (*ListingView, error)
	FindProduct(ctx context.Context, id string) (*domain.Product, error)
	// CommitStock subtracts a paid quantity from a listing, flooring at zero.
	CommitStock(ctx context.Context, productID string, quantity int) error
	Categories(ctx context.Context) ([]domain.Category, error)
}
