package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

// UserHandler serves the vendor directory and the principal's own profile.
type UserHandler struct {
	directory ports.DirectoryService
}

func NewUserHandler(directory ports.DirectoryService) *UserHandler {
	return &UserHandler{directory: directory}
}

type vendorQuery struct {
	Search    string  `query:"q"         validate:"omitempty,max=100"`
	Location  string  `query:"location"  validate:"omitempty,max=100"`
	MinRating float64 `query:"minRating" validate:"gte=0,lte=5"`
	Verified  *bool   `query:"verified"`
	Page      int     `query:"page"      validate:"omitempty,min=1"`
	Limit     int     `query:"limit"     validate:"omitempty,min=1,max=50"`
	SortBy    string  `query:"sortBy"    validate:"omitempty,oneof=rating name newest"`
	SortOrder string  `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

type vendorListData struct {
	Vendors    []ports.VendorView `json:"vendors"`
	Pagination vendorPagination   `json:"pagination"`
}

type vendorsData struct {
	Vendors []ports.VendorView `json:"vendors"`
}

type vendorProfileData struct {
	Vendor   *domain.User       `json:"vendor"`
	Products []productResponse `json:"products"`
	Stats    ports.VendorStats `json:"stats"`
}

type vendorProductsData struct {
	Products   []productResponse   `json:"products"`
	Vendor     *domain.UserSummary `json:"vendor,omitempty"`
	Pagination productPagination   `json:"pagination"`
}

type profileData struct {
	User  *domain.User       `json:"user"`
	Stats *ports.SellerStats `json:"stats"`
}

// ListVendors handles GET /api/users/vendors.
//
// @Summary      Browse vendors
// @Tags         users
// @Produce      json
// @Param        q          query     string  false  "Matches business name, description and owner names"
// @Param        location   query     string  false  "City or state"
// @Param        minRating  query     number  false  "Minimum average rating (0-5)"
// @Param        verified   query     bool    false  "Verified vendors only"
// @Param        page       query     int     false  "Page (default 1)"
// @Param        limit      query     int     false  "Page size (default 10, max 50)"
// @Param        sortBy     query     string  false  "rating|name|newest"
// @Param        sortOrder  query     string  false  "asc|desc"
// @Success      200        {object}  Response{data=vendorListData}
// @Failure      400        {object}  ErrorResponse
// @Router       /api/users/vendors [get]
func (h *UserHandler) ListVendors(c echo.Context) error {
	r := newQueryReader(c)
	q := vendorQuery{
		Search:    r.str("q"),
		Location:  r.str("location"),
		Verified:  r.boolean("verified"),
		SortBy:    r.str("sortBy"),
		SortOrder: r.str("sortOrder"),
	}
	if f := r.float("minRating"); f != nil {
		q.MinRating = *f
	}
	r.integer("page", &q.Page)
	r.integer("limit", &q.Limit)
	if err := r.validate(&q); err != nil {
		return err
	}

	page, err := h.directory.ListVendors(c.Request().Context(), ports.VendorQuery{
		Search:       q.Search,
		Location:     q.Location,
		MinRating:    q.MinRating,
		VerifiedOnly: q.Verified != nil && *q.Verified,
		SortBy:       q.SortBy,
		Ascending:    q.SortOrder == "asc",
		Page:         q.Page,
		Limit:        q.Limit,
	})
	if err != nil {
		return err
	}
	return ok(c, "", vendorListData{
		Vendors: nonNilVendors(page.Items),
		Pagination: vendorPagination{
			Pagination:   newPagination(page.PageInfo),
			TotalVendors: page.PageInfo.Total,
		},
	})
}

// VendorProfile handles GET /api/users/vendors/:id.
//
// @Summary      Vendor storefront
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "Vendor id"
// @Success      200  {object}  Response{data=vendorProfileData}
// @Failure      404  {object}  ErrorResponse
// @Router       /api/users/vendors/{id} [get]
func (h *UserHandler) VendorProfile(c echo.Context) error {
	profile, err := h.directory.VendorProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, "", vendorProfileData{
		Vendor:   profile.Vendor,
		Products: productResponses(profile.Products),
		Stats:    profile.Stats,
	})
}

// VendorProducts handles GET /api/users/vendors/:id/products.
//
// @Summary      Vendor listings
// @Tags         users
// @Produce      json
// @Param        id        path      string  true   "Vendor id"
// @Param        category  query     string  false  "Category"
// @Param        minPrice  query     number  false  "Minimum price"
// @Param        maxPrice  query     number  false  "Maximum price"
// @Param        inStock   query     bool    false  "Only listings with stock"
// @Param        page      query     int     false  "Page (default 1)"
// @Param        limit     query     int     false  "Page size (default 12, max 50)"
// @Success      200       {object}  Response{data=vendorProductsData}
// @Failure      400       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /api/users/vendors/{id}/products [get]
func (h *UserHandler) VendorProducts(c echo.Context) error {
	q, err := bindProductQuery(c)
	if err != nil {
		return err
	}

	page, err := h.directory.VendorProducts(c.Request().Context(), c.Param("id"), q.toFilter())
	if err != nil {
		return err
	}
	list := listingPageData(page)
	data := vendorProductsData{Products: list.Products, Pagination: list.Pagination}
	if len(page.Items) > 0 {
		data.Vendor = page.Items[0].Seller
	}
	return ok(c, "", data)
}

// SearchVendors handles GET /api/users/search/vendors.
//
// @Summary      Search vendors by name
// @Tags         users
// @Produce      json
// @Param        q      query     string  true   "At least 2 characters"
// @Param        limit  query     int     false  "Result cap (default 10)"
// @Success      200    {object}  Response{data=vendorsData}
// @Failure      400    {object}  ErrorResponse
// @Router       /api/users/search/vendors [get]
func (h *UserHandler) SearchVendors(c echo.Context) error {
	r := newQueryReader(c)
	var limit int
	r.integer("limit", &limit)
	if err := r.ve.OrNil(); err != nil {
		return err
	}

	vendors, err := h.directory.SearchVendors(c.Request().Context(), r.str("q"), limit)
	if err != nil {
		return err
	}
	return ok(c, "", vendorsData{Vendors: nonNilVendors(vendors)})
}

// FeaturedVendors handles GET /api/users/featured/vendors.
//
// @Summary      Top rated vendors
// @Tags         users
// @Produce      json
// @Param        limit  query     int  false  "Result cap (default 6)"
// @Success      200    {object}  Response{data=vendorsData}
// @Router       /api/users/featured/vendors [get]
func (h *UserHandler) FeaturedVendors(c echo.Context) error {
	r := newQueryReader(c)
	var limit int
	r.integer("limit", &limit)
	if err := r.ve.OrNil(); err != nil {
		return err
	}

	vendors, err := h.directory.FeaturedVendors(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return ok(c, "", vendorsData{Vendors: nonNilVendors(vendors)})
}

// Profile handles GET /api/users/profile.
//
// @Summary      My profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=profileData}
// @Failure      401  {object}  ErrorResponse
// @Router       /api/users/profile [get]
func (h *UserHandler) Profile(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	view, err := h.directory.Profile(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return ok(c, "", profileData{User: view.User, Stats: view.Stats})
}

func nonNilVendors(v []ports.VendorView) []ports.VendorView {
	if v == nil {
		return []ports.VendorView{}
	}
	return v
}
