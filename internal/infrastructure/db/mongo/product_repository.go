package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

const collectionProducts = "products"

// ProductRepository implements ports.ProductRepository using MongoDB.
type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(collectionProducts)}
}

type mongoProduct struct {
	ID            primitive.ObjectID       `bson:"_id"`
	Name          string                   `bson:"name"`
	Description   string                   `bson:"description"`
	Category      domain.Category          `bson:"category"`
	Subcategory   string                   `bson:"subcategory,omitempty"`
	Price         float64                  `bson:"price"`
	Unit          domain.SaleUnit          `bson:"unit"`
	Stock         domain.Stock             `bson:"stock"`
	Images        []domain.ProductImage    `bson:"images"`
	Seller        primitive.ObjectID       `bson:"seller"`
	Status        domain.ProductStatus     `bson:"status"`
	Details       domain.ProductDetails    `bson:"details"`
	Nutrition     *domain.Nutrition        `bson:"nutrition,omitempty"`
	Tags          []string                 `bson:"tags"`
	Reviews       map[string]domain.Review `bson:"reviews"`
	AverageRating float64                  `bson:"average_rating"`
	TotalReviews  int                      `bson:"total_reviews"`
	Availability  domain.Availability      `bson:"availability"`
	Slug          string                   `bson:"slug"`
	Views         int64                    `bson:"views"`
	Version       int64                    `bson:"version"`
	CreatedAt     time.Time                `bson:"created_at"`
	UpdatedAt     time.Time                `bson:"updated_at"`
}

func toMongoProduct(p *domain.Product) (mongoProduct, error) {
	id, err := objectID(p.ID)
	if err != nil {
		return mongoProduct{}, err
	}
	seller, err := objectID(p.SellerID)
	if err != nil {
		return mongoProduct{}, err
	}
	reviews := p.Reviews
	if reviews == nil {
		reviews = map[string]domain.Review{}
	}
	return mongoProduct{
		ID:            id,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Subcategory:   p.Subcategory,
		Price:         p.Price,
		Unit:          p.Unit,
		Stock:         p.Stock,
		Images:        p.Images,
		Seller:        seller,
		Status:        p.Status,
		Details:       p.Details,
		Nutrition:     p.Nutrition,
		Tags:          p.Tags,
		Reviews:       reviews,
		AverageRating: p.AverageRating,
		TotalReviews:  p.TotalReviews,
		Availability:  p.Availability,
		Slug:          p.Slug,
		Views:         p.Views,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}, nil
}

func (m mongoProduct) toDomain() *domain.Product {
	return &domain.Product{
		ID:            m.ID.Hex(),
		Name:          m.Name,
		Description:   m.Description,
		Category:      m.Category,
		Subcategory:   m.Subcategory,
		Price:         m.Price,
		Unit:          m.Unit,
		Stock:         m.Stock,
		Images:        m.Images,
		SellerID:      m.Seller.Hex(),
		Status:        m.Status,
		Details:       m.Details,
		Nutrition:     m.Nutrition,
		Tags:          m.Tags,
		Reviews:       m.Reviews,
		AverageRating: m.AverageRating,
		TotalReviews:  m.TotalReviews,
		Availability:  m.Availability,
		Slug:          m.Slug,
		Views:         m.Views,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (r *ProductRepository) NewID() string {
	return primitive.NewObjectID().Hex()
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	doc, err := toMongoProduct(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoProduct
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	var docs []mongoProduct
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	for _, d := range docs {
		out[d.ID.Hex()] = d.toDomain()
	}
	return out, nil
}

// Save writes p guarded by its version. Views are owned by IncrementViews.
func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	doc, err := toMongoProduct(p)
	if err != nil {
		return err
	}
	fields, err := setFields(doc, "_id", "views", "version", "created_at")
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "version": p.Version},
		bson.M{"$set": fields, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, doc.ID)
	}
	p.Version++
	return nil
}

func (r *ProductRepository) missOrConflict(ctx context.Context, id primitive.ObjectID) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return domain.ErrConcurrentUpdate
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) IncrementViews(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"views": 1}})
	return err
}

func (r *ProductRepository) Search(ctx context.Context, f ports.ProductFilter) ([]*domain.Product, int64, error) {
	filter, err := productFilter(f)
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs, total, err := findPage[mongoProduct](ctx, r.col, filter, pageOptions(f.Page, f.Limit, productSort(f.Sort)))
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	items := make([]*domain.Product, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toDomain())
	}
	return items, total, nil
}

// Categories returns the distinct categories with at least one active listing.
func (r *ProductRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	values, err := r.col.Distinct(ctx, "category", bson.M{"status": domain.ProductActive})
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	out := make([]domain.Category, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, domain.Category(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *ProductRepository) CountActiveBySeller(ctx context.Context, sellerIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(sellerIDs))
	oids := objectIDs(sellerIDs)
	if len(oids) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"seller": bson.M{"$in": oids}, "status": domain.ProductActive}}},
		{{Key: "$group", Value: bson.M{"_id": "$seller", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}
	var rows []struct {
		Seller primitive.ObjectID `bson:"_id"`
		Count  int64              `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode listing counts: %w", err)
	}
	for _, row := range rows {
		out[row.Seller.Hex()] = row.Count
	}
	return out, nil
}

func (r *ProductRepository) Stats(ctx context.Context, sellerID string, status domain.ProductStatus) (ports.ProductStats, error) {
	oid, err := objectID(sellerID)
	if err != nil {
		return ports.ProductStats{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, statsPipeline(oid, status))
	if err != nil {
		return ports.ProductStats{}, fmt.Errorf("listing stats: %w", err)
	}
	var rows []struct {
		TotalProducts  int64             `bson:"total_products"`
		ActiveProducts int64             `bson:"active_products"`
		TotalStock     int64             `bson:"total_stock"`
		TotalViews     int64             `bson:"total_views"`
		AveragePrice   float64           `bson:"average_price"`
		Categories     []domain.Category `bson:"categories"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return ports.ProductStats{}, fmt.Errorf("decode listing stats: %w", err)
	}
	if len(rows) == 0 {
		return ports.ProductStats{Categories: []domain.Category{}}, nil
	}

	row := rows[0]
	sort.Slice(row.Categories, func(i, j int) bool { return row.Categories[i] < row.Categories[j] })
	return ports.ProductStats{
		TotalProducts:  row.TotalProducts,
		ActiveProducts: row.ActiveProducts,
		TotalStock:     row.TotalStock,
		TotalViews:     row.TotalViews,
		AveragePrice:   row.AveragePrice,
		Categories:     row.Categories,
	}, nil
}

func statsPipeline(seller primitive.ObjectID, status domain.ProductStatus) mongo.Pipeline {
	match := bson.M{"seller": seller}
	if status != "" {
		match["status"] = status
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"total_products": bson.M{"$sum": 1},
			"active_products": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", domain.ProductActive}}, 1, 0},
			}},
			"total_stock":   bson.M{"$sum": "$stock.quantity"},
			"total_views":   bson.M{"$sum": "$views"},
			"average_price": bson.M{"$avg": "$price"},
			"categories":    bson.M{"$addToSet": "$category"},
		}}},
	}
}

// productFilter translates a listing query into a Mongo filter.
func productFilter(f ports.ProductFilter) (bson.M, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		for k, v := range anyFieldMatches(f.Search, "name", "description", "tags") {
			filter[k] = v
		}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.SellerID != "" {
		oid, err := objectID(f.SellerID)
		if err != nil {
			return nil, err
		}
		filter["seller"] = oid
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price"] = price
	}
	if f.Organic != nil {
		filter["details.organic"] = *f.Organic
	}
	if f.LocallyGrown != nil {
		filter["details.locally_grown"] = *f.LocallyGrown
	}
	if f.InStock {
		filter["stock.quantity"] = bson.M{"$gt": 0}
	}
	return filter, nil
}

func productSort(s ports.ProductSort) bson.D {
	switch s {
	case ports.SortPriceLow:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case ports.SortPriceHigh:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case ports.SortRating:
		return bson.D{{Key: "average_rating", Value: -1}, {Key: "total_reviews", Value: -1}, {Key: "_id", Value: 1}}
	case ports.SortOldest:
		return bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	case ports.SortName:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}
