package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

func newDirectoryFixture(t *testing.T) (*DirectoryService, *catalogFixture) {
	t.Helper()
	cf := newCatalogFixture()
	return NewDirectoryService(cf.users, cf.products, cf.svc, zerolog.Nop()), cf
}

func TestDirectoryService_FindBySeller_StatusFilter(t *testing.T) {
	svc, cf := newDirectoryFixture(t)
	active := cf.createPizza(t)
	hidden := cf.createPizza(t)
	inactive := domain.ProductInactive
	if _, err := cf.svc.UpdateListing(context.Background(), hidden, ports.ListingPatch{Status: &inactive}, nil, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	cases := []struct {
		status string
		want   int
	}{
		{"", 1},
		{"all", 2},
		{"inactive", 1},
	}
	for _, tc := range cases {
		items, err := svc.FindBySeller(context.Background(), cf.seller.ID, tc.status)
		if err != nil {
			t.Fatalf("status %q: %v", tc.status, err)
		}
		if len(items) != tc.want {
			t.Fatalf("status %q: expected %d listings, got %d", tc.status, tc.want, len(items))
		}
	}

	items, _ := svc.FindBySeller(context.Background(), cf.seller.ID, "")
	if items[0].ID != active.ID {
		t.Fatalf("expected the active listing, got %s", items[0].ID)
	}
}

func TestDirectoryService_ListVendors_Counts(t *testing.T) {
	svc, cf := newDirectoryFixture(t)
	cf.createPizza(t)
	cf.createPizza(t)
	seller(cf.users, "Green Farm")
	buyer(cf.users, "Bea")

	page, err := svc.ListVendors(context.Background(), ports.VendorQuery{})
	if err != nil {
		t.Fatalf("list vendors: %v", err)
	}
	if page.PageInfo.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected 2 vendors, got %+v", page.PageInfo)
	}

	counts := map[string]int64{}
	for _, v := range page.Items {
		counts[v.ID] = v.ProductCount
	}
	if counts[cf.seller.ID] != 2 {
		t.Fatalf("expected 2 live listings for %s, got %d", cf.seller.ID, counts[cf.seller.ID])
	}
}

func TestDirectoryService_VendorProfile(t *testing.T) {
	svc, cf := newDirectoryFixture(t)
	cf.createPizza(t)
	cf.createPizza(t)

	profile, err := svc.VendorProfile(context.Background(), cf.seller.ID)
	if err != nil {
		t.Fatalf("vendor profile: %v", err)
	}
	if len(profile.Products) != 2 || profile.Stats.TotalProducts != 2 {
		t.Fatalf("unexpected storefront: %d products, stats %+v", len(profile.Products), profile.Stats)
	}
	if profile.Stats.TotalStock != 100 || profile.Stats.AveragePrice != 18.99 {
		t.Fatalf("unexpected stats %+v", profile.Stats)
	}

	b := buyer(cf.users, "Bea")
	if _, err := svc.VendorProfile(context.Background(), b.ID); !errors.Is(err, domain.ErrVendorNotFound) {
		t.Fatalf("buyer is not a vendor, got %v", err)
	}
	if _, err := svc.VendorProfile(context.Background(), "missing"); !errors.Is(err, domain.ErrVendorNotFound) {
		t.Fatalf("expected ErrVendorNotFound, got %v", err)
	}
}

func TestDirectoryService_VendorProducts(t *testing.T) {
	svc, cf := newDirectoryFixture(t)
	cf.createPizza(t)
	other := seller(cf.users, "Green Farm")
	if _, err := cf.svc.CreateListing(context.Background(), other, pizzaInput(), []ports.ImageUpload{image("x.png")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, err := svc.VendorProducts(context.Background(), cf.seller.ID, ports.ProductFilter{})
	if err != nil {
		t.Fatalf("vendor products: %v", err)
	}
	if page.PageInfo.Total != 1 {
		t.Fatalf("expected only the vendor's listing, got %d", page.PageInfo.Total)
	}
	for _, p := range page.Items {
		if p.Product.SellerID != cf.seller.ID {
			t.Fatalf("foreign listing %s in storefront", p.Product.ID)
		}
	}
}

func TestDirectoryService_SearchVendors(t *testing.T) {
	svc, cf := newDirectoryFixture(t)
	seller(cf.users, "Green Farm")

	var ve *domain.ValidationError
	if _, err := svc.SearchVendors(context.Background(), " g ", 0); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for short query, got %v", err)
	}

	found, err := svc.SearchVendors(context.Background(), "roma", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != cf.seller.ID {
		t.Fatalf("unexpected search result %+v", found)
	}
}

func TestDirectoryService_FeaturedVendors(t *testing.T) {
	svc, cf := newDirectoryFixture(t)
	top := seller(cf.users, "Green Farm")
	top.Rating = domain.Rating{Average: 4.6, Count: 12}
	cf.users.put(top)

	featured, err := svc.FeaturedVendors(context.Background(), 0)
	if err != nil {
		t.Fatalf("featured: %v", err)
	}
	if len(featured) != 1 || featured[0].ID != top.ID {
		t.Fatalf("only highly rated vendors are featured, got %+v", featured)
	}
}

func TestDirectoryService_Profile(t *testing.T) {
	svc, cf := newDirectoryFixture(t)
	p := cf.createPizza(t)
	if _, err := cf.svc.GetByID(context.Background(), p.ID, nil); err != nil {
		t.Fatalf("view: %v", err)
	}

	view, err := svc.Profile(context.Background(), cf.seller)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if view.Stats == nil || view.Stats.TotalProducts != 1 || view.Stats.TotalViews != 1 {
		t.Fatalf("unexpected seller stats %+v", view.Stats)
	}

	b := buyer(cf.users, "Bea")
	view, err = svc.Profile(context.Background(), b)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if view.Stats != nil {
		t.Fatalf("buyers have no stats")
	}
}
