package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/api/metrics"
	"github.com/ocandle/marketplace/internal/api/middleware"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

// ProductHandler handles HTTP requests for listings.
type ProductHandler struct {
	catalog   ports.CatalogService
	directory ports.DirectoryService
}

func NewProductHandler(catalog ports.CatalogService, directory ports.DirectoryService) *ProductHandler {
	return &ProductHandler{catalog: catalog, directory: directory}
}

// LoadOwned resolves a listing for the ownership middleware.
func (h *ProductHandler) LoadOwned(ctx context.Context, id string) (domain.Owned, error) {
	p, err := h.catalog.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List handles GET /api/products.
//
// @Summary      Search listings
// @Tags         products
// @Produce      json
// @Param        page          query     int     false  "Page (default 1)"
// @Param        limit         query     int     false  "Page size (default 12, max 50)"
// @Param        search        query     string  false  "Free text over name, description and tags"
// @Param        category      query     string  false  "Category"
// @Param        minPrice      query     number  false  "Minimum price"
// @Param        maxPrice      query     number  false  "Maximum price"
// @Param        organic       query     bool    false  "Organic only"
// @Param        locallyGrown  query     bool    false  "Locally grown only"
// @Param        seller        query     string  false  "Seller id"
// @Param        sort          query     string  false  "price_low|price_high|rating|newest|oldest|name"
// @Success      200           {object}  Response{data=productListData}
// @Failure      400           {object}  ErrorResponse
// @Router       /api/products [get]
func (h *ProductHandler) List(c echo.Context) error {
	q, err := bindProductQuery(c)
	if err != nil {
		return err
	}

	page, err := h.catalog.Search(c.Request().Context(), q.toFilter())
	if err != nil {
		return err
	}
	return ok(c, "", listingPageData(page))
}

// Get handles GET /api/products/:id. The view counter increases on every read.
//
// @Summary      Get a listing
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product id"
// @Success      200  {object}  Response{data=productData}
// @Failure      404  {object}  ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) Get(c echo.Context) error {
	view, err := h.catalog.GetByID(c.Request().Context(), c.Param("id"), middleware.Principal(c))
	if err != nil {
		return err
	}
	return ok(c, "", productData{Product: viewResponse(view)})
}

// Create handles POST /api/products.
//
// @Summary      Create a listing
// @Tags         products
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        name            formData  string  true   "Name"
// @Param        description     formData  string  true   "Description"
// @Param        category        formData  string  true   "Category"
// @Param        price           formData  number  true   "Price"
// @Param        unit            formData  string  true   "Sale unit"
// @Param        stock.quantity  formData  int     true   "Stock quantity"
// @Param        stock.unit      formData  string  true   "Stock unit"
// @Param        details         formData  string  false  "Details JSON"
// @Param        nutrition       formData  string  false  "Nutrition JSON"
// @Param        tags            formData  string  false  "Tags JSON array or comma list"
// @Param        availability    formData  string  false  "Availability JSON"
// @Param        images          formData  file    true   "Up to 5 images, 5MB each"
// @Success      201             {object}  Response{data=productData}
// @Failure      400             {object}  ErrorResponse
// @Failure      401             {object}  ErrorResponse
// @Failure      403             {object}  ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c echo.Context) error {
	seller, err := principal(c)
	if err != nil {
		return err
	}

	req, err := bindListing(c)
	if err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if err := req.requireCreateFields(); err != nil {
		return err
	}

	images, err := readImages(c, productImagesField)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "At least one product image is required")
	}

	view, err := h.catalog.CreateListing(c.Request().Context(), seller, req.toInput(), images)
	if err != nil {
		return err
	}
	metrics.ListingOperationsTotal.WithLabelValues("create").Inc()
	return created(c, "Product created successfully", productData{Product: viewResponse(view)})
}

// Update handles PUT /api/products/:id.
//
// @Summary      Update a listing
// @Tags         products
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string          true   "Product id"
// @Param        body          body      listingRequest  false  "Fields to change"
// @Param        newImages     formData  file            false  "Images to append"
// @Param        removeImages  formData  string          false  "JSON array of image public ids to remove"
// @Success      200           {object}  Response{data=productData}
// @Failure      400           {object}  ErrorResponse
// @Failure      403           {object}  ErrorResponse
// @Failure      404           {object}  ErrorResponse
// @Router       /api/products/{id} [put]
func (h *ProductHandler) Update(c echo.Context) error {
	product, err := ownedProduct(c)
	if err != nil {
		return err
	}

	req, err := bindListing(c)
	if err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	images, err := readImages(c, newImagesField)
	if err != nil {
		return err
	}

	view, err := h.catalog.UpdateListing(c.Request().Context(), product, req.toPatch(), images, req.RemoveImages)
	if err != nil {
		return err
	}
	metrics.ListingOperationsTotal.WithLabelValues("update").Inc()
	return ok(c, "Product updated successfully", productData{Product: viewResponse(view)})
}

// Delete handles DELETE /api/products/:id.
//
// @Summary      Delete a listing
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product id"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) Delete(c echo.Context) error {
	product, err := ownedProduct(c)
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteListing(c.Request().Context(), product); err != nil {
		return err
	}
	metrics.ListingOperationsTotal.WithLabelValues("delete").Inc()
	return ok(c, "Product deleted successfully", nil)
}

// AddReview handles POST /api/products/:id/reviews.
//
// @Summary      Review a listing
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Product id"
// @Param        body  body      reviewRequest  true  "Rating and comment"
// @Success      201   {object}  Response{data=productData}
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/products/{id}/reviews [post]
func (h *ProductHandler) AddReview(c echo.Context) error {
	reviewer, err := principal(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	product, err := h.catalog.AddReview(c.Request().Context(), c.Param("id"), reviewer.ID, req.Rating, strings.TrimSpace(req.Comment))
	if err != nil {
		return err
	}
	metrics.ListingOperationsTotal.WithLabelValues("review").Inc()
	return created(c, "Review added successfully", productData{Product: newProductResponse(product, nil, nil)})
}

// UpdateStock handles PUT /api/products/:id/stock.
//
// @Summary      Adjust stock
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Product id"
// @Param        body  body      stockAdjustRequest  true  "Quantity and operation (set, add, subtract)"
// @Success      200   {object}  Response{data=stockData}
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Router       /api/products/{id}/stock [put]
func (h *ProductHandler) UpdateStock(c echo.Context) error {
	product, err := ownedProduct(c)
	if err != nil {
		return err
	}
	var req stockAdjustRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	op := domain.StockOperation(req.Operation)
	if op == "" {
		op = domain.StockSet
	}

	updated, err := h.catalog.AdjustStock(c.Request().Context(), product, *req.Quantity, op)
	if err != nil {
		return err
	}
	metrics.ListingOperationsTotal.WithLabelValues("stock").Inc()
	return ok(c, "Stock updated successfully", stockData{Product: stockSnapshot{
		ID:     updated.ID,
		Name:   updated.Name,
		Stock:  updated.Stock,
		Status: updated.Status,
	}})
}

// BySeller handles GET /api/products/seller/:sellerId.
//
// @Summary      Listings of one seller
// @Tags         products
// @Produce      json
// @Param        sellerId  path      string  true   "Seller id"
// @Param        status    query     string  false  "Status filter; 'all' disables it (default active)"
// @Success      200       {object}  Response{data=sellerProductsData}
// @Router       /api/products/seller/{sellerId} [get]
func (h *ProductHandler) BySeller(c echo.Context) error {
	products, err := h.directory.FindBySeller(c.Request().Context(), c.Param("sellerId"), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return ok(c, "", sellerProductsData{Products: productResponses(products)})
}

// Categories handles GET /api/products/categories.
//
// @Summary      Categories in use
// @Tags         products
// @Produce      json
// @Success      200  {object}  Response{data=categoriesData}
// @Router       /api/products/categories [get]
func (h *ProductHandler) Categories(c echo.Context) error {
	categories, err := h.catalog.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return ok(c, "", categoriesData{Categories: categories})
}

func listingPageData(page *ports.ListingPage) productListData {
	items := make([]productResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, viewResponse(&page.Items[i]))
	}
	return productListData{
		Products: items,
		Pagination: productPagination{
			Pagination:    newPagination(page.PageInfo),
			TotalProducts: page.PageInfo.Total,
		},
	}
}

func bindProductQuery(c echo.Context) (productQuery, error) {
	r := newQueryReader(c)
	q := productQuery{
		Search:       r.str("search"),
		Category:     r.str("category"),
		Sort:         r.str("sort"),
		Seller:       r.str("seller"),
		MinPrice:     r.float("minPrice"),
		MaxPrice:     r.float("maxPrice"),
		Organic:      r.boolean("organic"),
		LocallyGrown: r.boolean("locallyGrown"),
		InStock:      r.boolean("inStock"),
	}
	r.integer("page", &q.Page)
	r.integer("limit", &q.Limit)
	if err := r.validate(&q); err != nil {
		return productQuery{}, err
	}
	return q, nil
}

// bindListing reads listing fields from a JSON or form body.
func bindListing(c echo.Context) (*listingRequest, error) {
	req := &listingRequest{}
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !isMultipart(c) && !strings.HasPrefix(ct, echo.MIMEApplicationForm) {
		if err := c.Bind(req); err != nil {
			return nil, invalidPayload(err)
		}
		return req, nil
	}

	values, err := formValues(c)
	if err != nil {
		return nil, err
	}
	ve := &domain.ValidationError{}

	req.Name = formString(values, "name")
	req.Description = formString(values, "description")
	req.Category = formString(values, "category")
	req.Subcategory = formString(values, "subcategory")
	req.Unit = formString(values, "unit")
	req.Status = formString(values, "status")

	if raw := formString(values, "price"); raw != nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64); err != nil {
			ve.Add("price", "price must be a number")
		} else {
			req.Price = &f
		}
	}

	qty, unit := formString(values, "stock.quantity"), formString(values, "stock.unit")
	if qty != nil || unit != nil {
		req.Stock = &stockRequest{Unit: unit}
		if qty != nil {
			if n, err := strconv.Atoi(strings.TrimSpace(*qty)); err != nil {
				ve.Add("stock.quantity", "stock.quantity must be an integer")
			} else {
				req.Stock.Quantity = &n
			}
		}
	}

	var details detailsRequest
	if found, err := formJSON(values, "details", &details); err != nil {
		return nil, err
	} else if found {
		req.Details = &details
	}
	var nutrition nutritionRequest
	if found, err := formJSON(values, "nutrition", &nutrition); err != nil {
		return nil, err
	} else if found {
		req.Nutrition = &nutrition
	}
	var availability availabilityRequest
	if found, err := formJSON(values, "availability", &availability); err != nil {
		return nil, err
	} else if found {
		req.Availability = &availability
	}
	if _, err := formJSON(values, "removeImages", &req.RemoveImages); err != nil {
		return nil, err
	}

	if raw := formString(values, "tags"); raw != nil {
		req.Tags = parseTags(*raw)
		if req.Tags == nil {
			ve.Add("tags", "tags must be a JSON array or a comma separated list")
		}
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return req, nil
}

// parseTags accepts a JSON array or a comma separated list.
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil
		}
		return tags
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
