package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ocandle/marketplace/internal/api/middleware"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

type stubDirectoryService struct {
	bySellerFn       func(ctx context.Context, sellerID, status string) ([]*domain.Product, error)
	listVendorsFn    func(ctx context.Context, q ports.VendorQuery) (*ports.VendorPage, error)
	vendorProfileFn  func(ctx context.Context, sellerID string) (*ports.VendorProfile, error)
	vendorProductsFn func(ctx context.Context, sellerID string, f ports.ProductFilter) (*ports.ListingPage, error)
	searchFn         func(ctx context.Context, query string, limit int) ([]ports.VendorView, error)
	featuredFn       func(ctx context.Context, limit int) ([]ports.VendorView, error)
	profileFn        func(ctx context.Context, user *domain.User) (*ports.ProfileView, error)
}

func (s *stubDirectoryService) FindBySeller(ctx context.Context, sellerID, status string) ([]*domain.Product, error) {
	return s.bySellerFn(ctx, sellerID, status)
}

func (s *stubDirectoryService) ListVendors(ctx context.Context, q ports.VendorQuery) (*ports.VendorPage, error) {
	return s.listVendorsFn(ctx, q)
}

func (s *stubDirectoryService) VendorProfile(ctx context.Context, sellerID string) (*ports.VendorProfile, error) {
	return s.vendorProfileFn(ctx, sellerID)
}

func (s *stubDirectoryService) VendorProducts(ctx context.Context, sellerID string, f ports.ProductFilter) (*ports.ListingPage, error) {
	return s.vendorProductsFn(ctx, sellerID, f)
}

func (s *stubDirectoryService) SearchVendors(ctx context.Context, query string, limit int) ([]ports.VendorView, error) {
	return s.searchFn(ctx, query, limit)
}

func (s *stubDirectoryService) FeaturedVendors(ctx context.Context, limit int) ([]ports.VendorView, error) {
	return s.featuredFn(ctx, limit)
}

func (s *stubDirectoryService) Profile(ctx context.Context, user *domain.User) (*ports.ProfileView, error) {
	return s.profileFn(ctx, user)
}

func sampleVendor() *domain.User {
	return &domain.User{
		ID:           "s1",
		FirstName:    "Anna",
		LastName:     "Rossi",
		Role:         domain.RoleSeller,
		IsActive:     true,
		BusinessInfo: &domain.BusinessInfo{BusinessName: "Pizza Roma"},
	}
}

func TestUserHandler_ListVendors(t *testing.T) {
	e := newTestEcho()
	dir := &stubDirectoryService{
		listVendorsFn: func(_ context.Context, q ports.VendorQuery) (*ports.VendorPage, error) {
			if q.Search != "pizza" || q.MinRating != 4 || !q.VerifiedOnly || q.SortBy != "name" || !q.Ascending {
				t.Fatalf("unexpected query: %+v", q)
			}
			return &ports.VendorPage{
				Items:    []ports.VendorView{{User: sampleVendor(), ProductCount: 3}},
				PageInfo: ports.NewPageInfo(1, 10, 1),
			}, nil
		},
	}
	h := NewUserHandler(dir)

	req := httptest.NewRequest(http.MethodGet, "/api/users/vendors?q=pizza&minRating=4&verified=true&sortBy=name&sortOrder=asc", nil)
	rec := httptest.NewRecorder()
	if err := h.ListVendors(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	vendor := data["vendors"].([]any)[0].(map[string]any)
	if vendor["productCount"] != float64(3) || vendor["firstName"] != "Anna" {
		t.Fatalf("unexpected vendor: %+v", vendor)
	}
	if data["pagination"].(map[string]any)["totalVendors"] != float64(1) {
		t.Fatalf("unexpected pagination: %+v", data["pagination"])
	}
}

func TestUserHandler_ListVendors_InvalidQuery(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubDirectoryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/vendors?minRating=7&sortBy=price&limit=51", nil)
	fields := validationFields(t, h.ListVendors(e.NewContext(req, httptest.NewRecorder())))
	for _, f := range []string{"minRating", "sortBy", "limit"} {
		if _, ok := fields[f]; !ok {
			t.Fatalf("expected %s to be reported, got %+v", f, fields)
		}
	}
}

func TestUserHandler_VendorProfile(t *testing.T) {
	e := newTestEcho()
	dir := &stubDirectoryService{
		vendorProfileFn: func(_ context.Context, id string) (*ports.VendorProfile, error) {
			if id != "s1" {
				return nil, domain.ErrVendorNotFound
			}
			return &ports.VendorProfile{
				Vendor:   sampleVendor(),
				Products: []*domain.Product{sampleProduct()},
				Stats:    ports.VendorStats{TotalProducts: 1, AveragePrice: 9.5, TotalStock: 10},
			}, nil
		},
	}
	h := NewUserHandler(dir)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("s1")
	if err := h.VendorProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["stats"].(map[string]any)["averagePrice"] != 9.5 || len(data["products"].([]any)) != 1 {
		t.Fatalf("unexpected storefront: %+v", data)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("nobody")
	if err := h.VendorProfile(c); !errors.Is(err, domain.ErrVendorNotFound) {
		t.Fatalf("expected ErrVendorNotFound, got %v", err)
	}
}

func TestUserHandler_VendorProducts(t *testing.T) {
	e := newTestEcho()
	dir := &stubDirectoryService{
		vendorProductsFn: func(_ context.Context, id string, f ports.ProductFilter) (*ports.ListingPage, error) {
			if id != "s1" || f.Category != domain.CategoryBakery || f.MaxPrice == nil || *f.MaxPrice != 20 {
				t.Fatalf("unexpected call: %s %+v", id, f)
			}
			return &ports.ListingPage{
				Items:    []ports.ListingView{{Product: sampleProduct(), Seller: &domain.UserSummary{ID: "s1", FirstName: "Anna"}}},
				PageInfo: ports.NewPageInfo(1, 12, 1),
			}, nil
		},
	}
	h := NewUserHandler(dir)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?category=bakery&maxPrice=20", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("s1")
	if err := h.VendorProducts(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["vendor"].(map[string]any)["firstName"] != "Anna" {
		t.Fatalf("expected vendor summary, got %+v", data["vendor"])
	}
	if data["pagination"].(map[string]any)["totalProducts"] != float64(1) {
		t.Fatalf("unexpected pagination: %+v", data["pagination"])
	}
}

func TestUserHandler_SearchVendors(t *testing.T) {
	e := newTestEcho()
	dir := &stubDirectoryService{
		searchFn: func(_ context.Context, q string, limit int) ([]ports.VendorView, error) {
			if q != "roma" || limit != 3 {
				t.Fatalf("unexpected call: %q %d", q, limit)
			}
			return nil, nil
		},
	}
	h := NewUserHandler(dir)

	rec := httptest.NewRecorder()
	if err := h.SearchVendors(e.NewContext(httptest.NewRequest(http.MethodGet, "/?q=%20roma%20&limit=3", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if vendors, ok := decodeEnvelope(t, rec)["data"].(map[string]any)["vendors"].([]any); !ok || len(vendors) != 0 {
		t.Fatalf("expected an empty vendor array, got %s", rec.Body.String())
	}
}

func TestUserHandler_SearchVendors_ServiceValidation(t *testing.T) {
	e := newTestEcho()
	dir := &stubDirectoryService{
		searchFn: func(context.Context, string, int) ([]ports.VendorView, error) {
			return nil, domain.NewValidationError("q", "Search query must be at least 2 characters")
		},
	}
	h := NewUserHandler(dir)

	err := h.SearchVendors(e.NewContext(httptest.NewRequest(http.MethodGet, "/?q=a", nil), httptest.NewRecorder()))
	if _, ok := validationFields(t, err)["q"]; !ok {
		t.Fatalf("expected q to be reported, got %v", err)
	}
}

func TestUserHandler_FeaturedVendors(t *testing.T) {
	e := newTestEcho()
	dir := &stubDirectoryService{
		featuredFn: func(_ context.Context, limit int) ([]ports.VendorView, error) {
			if limit != 0 {
				t.Fatalf("expected the service default, got %d", limit)
			}
			return []ports.VendorView{{User: sampleVendor(), ProductCount: 2}}, nil
		},
	}
	h := NewUserHandler(dir)

	rec := httptest.NewRecorder()
	if err := h.FeaturedVendors(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if vendors := decodeEnvelope(t, rec)["data"].(map[string]any)["vendors"].([]any); len(vendors) != 1 {
		t.Fatalf("expected one vendor, got %d", len(vendors))
	}
}

func TestUserHandler_FeaturedVendors_BadLimit(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubDirectoryService{})

	err := h.FeaturedVendors(e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=six", nil), httptest.NewRecorder()))
	if validationFields(t, err)["limit"] != "limit must be an integer" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUserHandler_Profile(t *testing.T) {
	e := newTestEcho()
	seller := sampleVendor()
	dir := &stubDirectoryService{
		profileFn: func(_ context.Context, u *domain.User) (*ports.ProfileView, error) {
			if u != seller {
				t.Fatal("expected the principal to be forwarded")
			}
			return &ports.ProfileView{User: u, Stats: &ports.SellerStats{TotalProducts: 4, ActiveProducts: 3}}, nil
		},
	}
	h := NewUserHandler(dir)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	middleware.SetPrincipal(c, seller)
	if err := h.Profile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["stats"].(map[string]any)["activeProducts"] != float64(3) {
		t.Fatalf("unexpected stats: %+v", data["stats"])
	}
}

func TestUserHandler_Profile_BuyerHasNullStats(t *testing.T) {
	e := newTestEcho()
	dir := &stubDirectoryService{
		profileFn: func(_ context.Context, u *domain.User) (*ports.ProfileView, error) {
			return &ports.ProfileView{User: u}, nil
		},
	}
	h := NewUserHandler(dir)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	middleware.SetPrincipal(c, testBuyer)
	if err := h.Profile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if stats, present := data["stats"]; !present || stats != nil {
		t.Fatalf("expected stats to be null, got %v", stats)
	}
}
