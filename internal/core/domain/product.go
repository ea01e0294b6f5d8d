package domain

import (
	"sort"
	"time"
)

// Category is the closed set of listing categories.
type Category string

const (
	CategoryFruits     Category = "fruits"
	CategoryVegetables Category = "vegetables"
	CategoryDairy      Category = "dairy"
	CategoryMeat       Category = "meat"
	CategorySeafood    Category = "seafood"
	CategoryBakery     Category = "bakery"
	CategoryBeverages  Category = "beverages"
	CategorySpices     Category = "spices"
	CategoryGrains     Category = "grains"
	CategoryNuts       Category = "nuts"
	CategoryHerbs      Category = "herbs"
	CategoryHoney      Category = "honey"
	CategoryPreserves  Category = "preserves"
	CategoryOther      Category = "other"
)

// SaleUnit is the unit a price refers to.
type SaleUnit string

const (
	UnitPerPiece  SaleUnit = "per_piece"
	UnitPerPound  SaleUnit = "per_pound"
	UnitPerKg     SaleUnit = "per_kg"
	UnitPerDozen  SaleUnit = "per_dozen"
	UnitPerLiter  SaleUnit = "per_liter"
	UnitPerGallon SaleUnit = "per_gallon"
	UnitPerPack   SaleUnit = "per_pack"
)

// StockUnit is the unit stock is counted in.
type StockUnit string

const (
	StockPieces  StockUnit = "pieces"
	StockPounds  StockUnit = "pounds"
	StockKg      StockUnit = "kg"
	StockDozens  StockUnit = "dozens"
	StockLiters  StockUnit = "liters"
	StockGallons StockUnit = "gallons"
	StockPacks   StockUnit = "packs"
)

// ProductStatus represents the sale state of a listing.
type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductInactive     ProductStatus = "inactive"
	ProductOutOfStock   ProductStatus = "out_of_stock"
	ProductDiscontinued ProductStatus = "discontinued"
)

// Seasonality describes when produce is in season.
type Seasonality string

const (
	SeasonSpring    Seasonality = "spring"
	SeasonSummer    Seasonality = "summer"
	SeasonFall      Seasonality = "fall"
	SeasonWinter    Seasonality = "winter"
	SeasonYearRound Seasonality = "year_round"
)

// DeliveryOption is a fulfilment channel a seller offers for a listing.
type DeliveryOption string

const (
	DeliveryPickup   DeliveryOption = "pickup"
	DeliveryLocal    DeliveryOption = "local_delivery"
	DeliveryShipping DeliveryOption = "shipping"
)

// StockOperation selects how AdjustStock applies an amount.
type StockOperation string

const (
	StockSet      StockOperation = "set"
	StockAdd      StockOperation = "add"
	StockSubtract StockOperation = "subtract"
)

// MaxImagesPerUpload caps the number of files accepted in one listing upload.
const MaxImagesPerUpload = 5

// Stock is the on-hand quantity of a listing.
type Stock struct {
	Quantity int       `json:"quantity" bson:"quantity"`
	Unit     StockUnit `json:"unit" bson:"unit"`
}

// ProductImage is a listing image stored on the media host.
type ProductImage struct {
	URL       string `json:"url" bson:"url"`
	PublicID  string `json:"publicId" bson:"public_id"`
	IsPrimary bool   `json:"isPrimary" bson:"is_primary"`
}

// ProductDetails holds provenance and freshness flags.
type ProductDetails struct {
	Origin       string      `json:"origin,omitempty" bson:"origin,omitempty"`
	HarvestDate  *time.Time  `json:"harvestDate,omitempty" bson:"harvest_date,omitempty"`
	ExpiryDate   *time.Time  `json:"expiryDate,omitempty" bson:"expiry_date,omitempty"`
	Organic      bool        `json:"organic" bson:"organic"`
	LocallyGrown bool        `json:"locallyGrown" bson:"locally_grown"`
	Seasonality  Seasonality `json:"seasonality,omitempty" bson:"seasonality,omitempty"`
}

// Nutrition holds optional per-serving nutrition facts.
type Nutrition struct {
	Calories float64 `json:"calories,omitempty" bson:"calories,omitempty"`
	Protein  float64 `json:"protein,omitempty" bson:"protein,omitempty"`
	Carbs    float64 `json:"carbs,omitempty" bson:"carbs,omitempty"`
	Fat      float64 `json:"fat,omitempty" bson:"fat,omitempty"`
	Fiber    float64 `json:"fiber,omitempty" bson:"fiber,omitempty"`
	Sugar    float64 `json:"sugar,omitempty" bson:"sugar,omitempty"`
	Sodium   float64 `json:"sodium,omitempty" bson:"sodium,omitempty"`
}

// Availability describes when and how a listing can be obtained.
type Availability struct {
	IsAvailable     bool             `json:"isAvailable" bson:"is_available"`
	AvailableFrom   *time.Time       `json:"availableFrom,omitempty" bson:"available_from,omitempty"`
	AvailableTo     *time.Time       `json:"availableTo,omitempty" bson:"available_to,omitempty"`
	DeliveryOptions []DeliveryOption `json:"deliveryOptions" bson:"delivery_options"`
}

// Review is one reviewer's rating of a listing.
type Review struct {
	Rating    int       `json:"rating" bson:"rating"`
	Comment   string    `json:"comment,omitempty" bson:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Product is a seller-owned listing.
type Product struct {
	ID            string            `json:"_id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Category      Category          `json:"category"`
	Subcategory   string            `json:"subcategory,omitempty"`
	Price         float64           `json:"price"`
	Unit          SaleUnit          `json:"unit"`
	Stock         Stock             `json:"stock"`
	Images        []ProductImage    `json:"images"`
	SellerID      string            `json:"seller"`
	Status        ProductStatus     `json:"status"`
	Details       ProductDetails    `json:"details"`
	Nutrition     *Nutrition        `json:"nutrition,omitempty"`
	Tags          []string          `json:"tags"`
	Reviews       map[string]Review `json:"-"`
	AverageRating float64           `json:"averageRating"`
	TotalReviews  int               `json:"totalReviews"`
	Availability  Availability      `json:"availability"`
	Slug          string            `json:"slug"`
	Views         int64             `json:"views"`
	Version       int64             `json:"-"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// OwnedBy reports whether principalID is the listing's seller.
func (p *Product) OwnedBy(principalID string) bool {
	return p.SellerID == principalID
}

// UpsertReview records reviewerID's review, replacing any earlier one.
func (p *Product) UpsertReview(reviewerID string, rating int, comment string, at time.Time) error {
	if reviewerID == p.SellerID {
		return ErrSelfReview
	}
	if p.Reviews == nil {
		p.Reviews = make(map[string]Review)
	}
	p.Reviews[reviewerID] = Review{Rating: rating, Comment: comment, CreatedAt: at}
	return nil
}

// AdjustStock applies op with amount, flooring the result at zero.
func (p *Product) AdjustStock(op StockOperation, amount int) {
	p.Stock.Quantity = ApplyStockOperation(p.Stock.Quantity, op, amount)
}

// RemoveImage drops the image with the given storage id and reports whether it existed.
func (p *Product) RemoveImage(publicID string) (ProductImage, bool) {
	for i, img := range p.Images {
		if img.PublicID == publicID {
			p.Images = append(p.Images[:i:i], p.Images[i+1:]...)
			return img, true
		}
	}
	return ProductImage{}, false
}

// Normalize runs every derivation that must hold before a listing is persisted.
// nameChanged forces slug regeneration.
func (p *Product) Normalize(now time.Time, nameChanged bool) {
	if nameChanged || p.Slug == "" {
		p.Slug = Slugify(p.Name, p.ID)
	}
	p.AverageRating, p.TotalReviews = ComputeRating(p.Reviews)
	p.Status = DeriveStatus(p.Status, p.Stock.Quantity)
	p.Images = EnsurePrimaryImage(p.Images)
	p.Tags = NormalizeTags(p.Tags)
	p.UpdatedAt = now
}

// ReviewEntry is a review paired with its author, used for ordered output.
type ReviewEntry struct {
	UserID string
	Review
}

// SortedReviews returns reviews newest first.
func (p *Product) SortedReviews() []ReviewEntry {
	out := make([]ReviewEntry, 0, len(p.Reviews))
	for uid, r := range p.Reviews {
		out = append(out, ReviewEntry{UserID: uid, Review: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ProductSummary is the projection of a listing embedded in orders.
type ProductSummary struct {
	ID       string         `json:"_id"`
	Name     string         `json:"name"`
	Price    float64        `json:"price"`
	Unit     SaleUnit       `json:"unit"`
	Category Category       `json:"category"`
	Images   []ProductImage `json:"images"`
}

// Summary projects the listing for embedding.
func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Unit:     p.Unit,
		Category: p.Category,
		Images:   p.Images,
	}
}
