package handler

import (
	"time"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

// --- Request types ---

type productQuery struct {
	Page         int      `query:"page"     validate:"omitempty,min=1"`
	Limit        int      `query:"limit"    validate:"omitempty,min=1,max=50"`
	Search       string   `query:"search"   validate:"omitempty,max=100"`
	Category     string   `query:"category" validate:"omitempty,oneof=fruits vegetables dairy meat seafood bakery beverages spices grains nuts herbs honey preserves other"`
	MinPrice     *float64 `query:"minPrice" validate:"omitempty,min=0"`
	MaxPrice     *float64 `query:"maxPrice" validate:"omitempty,min=0"`
	Sort         string   `query:"sort"     validate:"omitempty,oneof=price_low price_high rating newest oldest name"`
	Seller       string   `query:"seller"`
	Organic      *bool    `query:"organic"`
	LocallyGrown *bool    `query:"locallyGrown"`
	InStock      *bool    `query:"inStock"`
}

func (q productQuery) toFilter() ports.ProductFilter {
	return ports.ProductFilter{
		Search:       q.Search,
		Category:     domain.Category(q.Category),
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		Organic:      q.Organic,
		LocallyGrown: q.LocallyGrown,
		SellerID:     q.Seller,
		InStock:      q.InStock != nil && *q.InStock,
		Sort:         ports.ProductSort(q.Sort),
		Page:         q.Page,
		Limit:        q.Limit,
	}
}

type stockRequest struct {
	Quantity *int    `json:"quantity" validate:"omitempty,gte=0"`
	Unit     *string `json:"unit"     validate:"omitempty,oneof=pieces pounds kg dozens liters gallons packs"`
}

type detailsRequest struct {
	Origin       string     `json:"origin"       validate:"omitempty,max=100"`
	HarvestDate  *time.Time `json:"harvestDate"`
	ExpiryDate   *time.Time `json:"expiryDate"`
	Organic      bool       `json:"organic"`
	LocallyGrown bool       `json:"locallyGrown"`
	Seasonality  string     `json:"seasonality"  validate:"omitempty,oneof=spring summer fall winter year_round"`
}

func (r *detailsRequest) toDomain() *domain.ProductDetails {
	if r == nil {
		return nil
	}
	return &domain.ProductDetails{
		Origin:       r.Origin,
		HarvestDate:  r.HarvestDate,
		ExpiryDate:   r.ExpiryDate,
		Organic:      r.Organic,
		LocallyGrown: r.LocallyGrown,
		Seasonality:  domain.Seasonality(r.Seasonality),
	}
}

type nutritionRequest struct {
	Calories float64 `json:"calories" validate:"gte=0"`
	Protein  float64 `json:"protein"  validate:"gte=0"`
	Carbs    float64 `json:"carbs"    validate:"gte=0"`
	Fat      float64 `json:"fat"      validate:"gte=0"`
	Fiber    float64 `json:"fiber"    validate:"gte=0"`
	Sugar    float64 `json:"sugar"    validate:"gte=0"`
	Sodium   float64 `json:"sodium"   validate:"gte=0"`
}

func (r *nutritionRequest) toDomain() *domain.Nutrition {
	if r == nil {
		return nil
	}
	n := domain.Nutrition(*r)
	return &n
}

type availabilityRequest struct {
	IsAvailable     *bool      `json:"isAvailable"`
	AvailableFrom   *time.Time `json:"availableFrom"`
	AvailableTo     *time.Time `json:"availableTo"`
	DeliveryOptions []string   `json:"deliveryOptions" validate:"omitempty,dive,oneof=pickup local_delivery shipping"`
}

func (r *availabilityRequest) toDomain() *domain.Availability {
	if r == nil {
		return nil
	}
	a := &domain.Availability{
		IsAvailable:   r.IsAvailable == nil || *r.IsAvailable,
		AvailableFrom: r.AvailableFrom,
		AvailableTo:   r.AvailableTo,
	}
	for _, o := range r.DeliveryOptions {
		a.DeliveryOptions = append(a.DeliveryOptions, domain.DeliveryOption(o))
	}
	return a
}

// listingRequest carries create and update fields. Absent fields are nil.
// Multipart bodies send stock as "stock.quantity"/"stock.unit" and the nested
// documents as JSON strings.
type listingRequest struct {
	Name         *string              `json:"name"         validate:"omitempty,min=2,max=100"`
	Description  *string              `json:"description"  validate:"omitempty,min=10,max=2000"`
	Category     *string              `json:"category"     validate:"omitempty,oneof=fruits vegetables dairy meat seafood bakery beverages spices grains nuts herbs honey preserves other"`
	Subcategory  *string              `json:"subcategory"  validate:"omitempty,max=50"`
	Price        *float64             `json:"price"        validate:"omitempty,gte=0"`
	Unit         *string              `json:"unit"         validate:"omitempty,oneof=per_piece per_pound per_kg per_dozen per_liter per_gallon per_pack"`
	Stock        *stockRequest        `json:"stock"`
	Status       *string              `json:"status"       validate:"omitempty,oneof=active inactive out_of_stock discontinued"`
	Details      *detailsRequest      `json:"details"`
	Nutrition    *nutritionRequest    `json:"nutrition"`
	Tags         []string             `json:"tags"         validate:"omitempty,max=20,dive,max=30"`
	Availability *availabilityRequest `json:"availability"`
	RemoveImages []string             `json:"removeImages"`
}

// requireCreateFields reports the fields a new listing cannot do without.
func (r *listingRequest) requireCreateFields() error {
	ve := &domain.ValidationError{}
	if r.Name == nil {
		ve.Add("name", "name is required")
	}
	if r.Description == nil {
		ve.Add("description", "description is required")
	}
	if r.Category == nil {
		ve.Add("category", "category is required")
	}
	if r.Price == nil {
		ve.Add("price", "price is required")
	}
	if r.Unit == nil {
		ve.Add("unit", "unit is required")
	}
	if r.Stock == nil || r.Stock.Quantity == nil {
		ve.Add("stock.quantity", "stock.quantity is required")
	}
	if r.Stock == nil || r.Stock.Unit == nil {
		ve.Add("stock.unit", "stock.unit is required")
	}
	return ve.OrNil()
}

func (r *listingRequest) toInput() ports.ListingInput {
	in := ports.ListingInput{
		Name:        deref(r.Name),
		Description: deref(r.Description),
		Category:    domain.Category(deref(r.Category)),
		Subcategory: deref(r.Subcategory),
		Unit:        domain.SaleUnit(deref(r.Unit)),
		Nutrition:   r.Nutrition.toDomain(),
		Tags:        r.Tags,
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	if r.Stock != nil {
		if r.Stock.Quantity != nil {
			in.Stock.Quantity = *r.Stock.Quantity
		}
		in.Stock.Unit = domain.StockUnit(deref(r.Stock.Unit))
	}
	if d := r.Details.toDomain(); d != nil {
		in.Details = *d
	}
	in.Availability = r.Availability.toDomain()
	return in
}

func (r *listingRequest) toPatch() ports.ListingPatch {
	p := ports.ListingPatch{
		Name:         r.Name,
		Description:  r.Description,
		Subcategory:  r.Subcategory,
		Price:        r.Price,
		Details:      r.Details.toDomain(),
		Nutrition:    r.Nutrition.toDomain(),
		Tags:         r.Tags,
		Availability: r.Availability.toDomain(),
	}
	if r.Category != nil {
		v := domain.Category(*r.Category)
		p.Category = &v
	}
	if r.Unit != nil {
		v := domain.SaleUnit(*r.Unit)
		p.Unit = &v
	}
	if r.Status != nil {
		v := domain.ProductStatus(*r.Status)
		p.Status = &v
	}
	if r.Stock != nil {
		p.StockQuantity = r.Stock.Quantity
		if r.Stock.Unit != nil {
			v := domain.StockUnit(*r.Stock.Unit)
			p.StockUnit = &v
		}
	}
	return p
}

type reviewRequest struct {
	Rating  int    `json:"rating"  validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=500"`
}

type stockAdjustRequest struct {
	Quantity  *int   `json:"quantity"  validate:"required,gte=0"`
	Operation string `json:"operation" validate:"omitempty,oneof=set add subtract"`
}

// --- Response types ---

type reviewResponse struct {
	User      any       `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// productResponse is a listing with its seller and reviewers expanded when
// their summaries are known.
type productResponse struct {
	*domain.Product
	Seller  any              `json:"seller"`
	Reviews []reviewResponse `json:"reviews"`
}

func newProductResponse(p *domain.Product, seller *domain.UserSummary, reviewers map[string]*domain.UserSummary) productResponse {
	resp := productResponse{Product: p, Seller: p.SellerID, Reviews: []reviewResponse{}}
	if seller != nil {
		resp.Seller = seller
	}
	for _, r := range p.SortedReviews() {
		var user any = r.UserID
		if s, ok := reviewers[r.UserID]; ok && s != nil {
			user = s
		}
		resp.Reviews = append(resp.Reviews, reviewResponse{User: user, Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt})
	}
	return resp
}

func viewResponse(v *ports.ListingView) productResponse {
	return newProductResponse(v.Product, v.Seller, v.Reviewers)
}

func productResponses(products []*domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p, nil, nil))
	}
	return out
}

type productData struct {
	Product productResponse `json:"product"`
}

type productListData struct {
	Products   []productResponse `json:"products"`
	Pagination productPagination `json:"pagination"`
}

type sellerProductsData struct {
	Products []productResponse `json:"products"`
}

type categoriesData struct {
	Categories []domain.Category `json:"categories"`
}

type stockSnapshot struct {
	ID     string               `json:"_id"`
	Name   string               `json:"name"`
	Stock  domain.Stock         `json:"stock"`
	Status domain.ProductStatus `json:"status"`
}

type stockData struct {
	Product stockSnapshot `json:"product"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
