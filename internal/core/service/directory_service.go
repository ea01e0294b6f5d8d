package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

const (
	defaultVendorLimit   = 10
	maxVendorLimit       = 50
	defaultFeaturedLimit = 6
	featuredMinRating    = 4.0
	minVendorQueryLength = 2
	storefrontListings   = 20
	sellerListingLimit   = 200
)

// DirectoryService aggregates listings by seller into vendor views.
type DirectoryService struct {
	users    ports.UserRepository
	products ports.ProductRepository
	catalog  ports.CatalogService
	logger   zerolog.Logger
}

func NewDirectoryService(users ports.UserRepository, products ports.ProductRepository, catalog ports.CatalogService, logger zerolog.Logger) *DirectoryService {
	return &DirectoryService{users: users, products: products, catalog: catalog, logger: logger}
}

// FindBySeller lists a seller's listings, newest first.
func (s *DirectoryService) FindBySeller(ctx context.Context, sellerID, status string) ([]*domain.Product, error) {
	filter := ports.ProductFilter{SellerID: sellerID, Sort: ports.SortNewest, Page: 1, Limit: sellerListingLimit}
	switch status {
	case "":
		filter.Status = domain.ProductActive
	case "all":
	default:
		filter.Status = domain.ProductStatus(status)
	}

	items, _, err := s.products.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find by seller: %w", err)
	}
	return items, nil
}

// ListVendors returns a page of active sellers with their live listing counts.
func (s *DirectoryService) ListVendors(ctx context.Context, q ports.VendorQuery) (*ports.VendorPage, error) {
	q.Page, q.Limit = normalizePage(q.Page, q.Limit, defaultVendorLimit, maxVendorLimit)

	vendors, total, err := s.users.ListVendors(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	views, err := s.withCounts(ctx, vendors)
	if err != nil {
		return nil, err
	}
	return &ports.VendorPage{Items: views, PageInfo: ports.NewPageInfo(q.Page, q.Limit, total)}, nil
}

// VendorProfile returns a seller's storefront: profile, newest listings and stats.
func (s *DirectoryService) VendorProfile(ctx context.Context, sellerID string) (*ports.VendorProfile, error) {
	vendor, err := s.vendor(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	products, _, err := s.products.Search(ctx, ports.ProductFilter{
		SellerID: sellerID,
		Status:   domain.ProductActive,
		Sort:     ports.SortNewest,
		Page:     1,
		Limit:    storefrontListings,
	})
	if err != nil {
		return nil, fmt.Errorf("vendor profile: %w", err)
	}

	stats, err := s.products.Stats(ctx, sellerID, domain.ProductActive)
	if err != nil {
		return nil, fmt.Errorf("vendor profile: %w", err)
	}

	return &ports.VendorProfile{
		Vendor:   vendor,
		Products: products,
		Stats: ports.VendorStats{
			TotalProducts: stats.TotalProducts,
			AveragePrice:  stats.AveragePrice,
			TotalStock:    stats.TotalStock,
			Categories:    stats.Categories,
		},
	}, nil
}

// VendorProducts pages through a vendor's active listings.
func (s *DirectoryService) VendorProducts(ctx context.Context, sellerID string, filter ports.ProductFilter) (*ports.ListingPage, error) {
	if _, err := s.vendor(ctx, sellerID); err != nil {
		return nil, err
	}
	filter.SellerID = sellerID
	return s.catalog.Search(ctx, filter)
}

// SearchVendors matches sellers by name or business name.
func (s *DirectoryService) SearchVendors(ctx context.Context, query string, limit int) ([]ports.VendorView, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minVendorQueryLength {
		return nil, domain.NewValidationError("q", "search query must be at least 2 characters long")
	}
	_, limit = normalizePage(1, limit, defaultVendorLimit, maxVendorLimit)

	vendors, _, err := s.users.ListVendors(ctx, ports.VendorQuery{Search: query, SortBy: "rating", Page: 1, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("search vendors: %w", err)
	}
	return s.withCounts(ctx, vendors)
}

// FeaturedVendors returns the best rated sellers.
func (s *DirectoryService) FeaturedVendors(ctx context.Context, limit int) ([]ports.VendorView, error) {
	_, limit = normalizePage(1, limit, defaultFeaturedLimit, maxVendorLimit)

	vendors, _, err := s.users.ListVendors(ctx, ports.VendorQuery{MinRating: featuredMinRating, SortBy: "rating", Page: 1, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("featured vendors: %w", err)
	}
	return s.withCounts(ctx, vendors)
}

// Profile returns the principal, with dashboard stats for sellers.
func (s *DirectoryService) Profile(ctx context.Context, user *domain.User) (*ports.ProfileView, error) {
	view := &ports.ProfileView{User: user}
	if user.Role != domain.RoleSeller {
		return view, nil
	}

	stats, err := s.products.Stats(ctx, user.ID, "")
	if err != nil {
		return nil, fmt.Errorf("profile stats: %w", err)
	}
	view.Stats = &ports.SellerStats{
		TotalProducts:  stats.TotalProducts,
		ActiveProducts: stats.ActiveProducts,
		TotalStock:     stats.TotalStock,
		TotalViews:     stats.TotalViews,
		AveragePrice:   stats.AveragePrice,
	}
	return view, nil
}

func (s *DirectoryService) vendor(ctx context.Context, sellerID string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return nil, domain.ErrVendorNotFound
		}
		return nil, err
	}
	if u.Role != domain.RoleSeller || !u.IsActive {
		return nil, domain.ErrVendorNotFound
	}
	return u, nil
}

func (s *DirectoryService) withCounts(ctx context.Context, vendors []*domain.User) ([]ports.VendorView, error) {
	ids := make([]string, 0, len(vendors))
	for _, v := range vendors {
		ids = append(ids, v.ID)
	}
	counts, err := s.products.CountActiveBySeller(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count vendor listings: %w", err)
	}

	views := make([]ports.VendorView, 0, len(vendors))
	for _, v := range vendors {
		views = append(views, ports.VendorView{User: v, ProductCount: counts[v.ID]})
	}
	return views, nil
}
