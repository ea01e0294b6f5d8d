package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

const collectionOrders = "orders"

// OrderRepository implements ports.OrderRepository using MongoDB.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(collectionOrders)}
}

type mongoOrder struct {
	ID                    primitive.ObjectID      `bson:"_id,omitempty"`
	OrderNumber           string                  `bson:"order_number"`
	Buyer                 primitive.ObjectID      `bson:"buyer"`
	Seller                primitive.ObjectID      `bson:"seller"`
	Product               primitive.ObjectID      `bson:"product"`
	Quantity              int                     `bson:"quantity"`
	UnitPrice             float64                 `bson:"unit_price"`
	TotalAmount           float64                 `bson:"total_amount"`
	Currency              string                  `bson:"currency"`
	Status                domain.OrderStatus      `bson:"status"`
	PaymentStatus         domain.PaymentStatus    `bson:"payment_status"`
	PaymentMethod         domain.PaymentMethod    `bson:"payment_method"`
	PaymentDetails        domain.PaymentDetails   `bson:"payment_details"`
	DeliveryType          domain.DeliveryType     `bson:"delivery_type"`
	DeliveryAddress       *domain.DeliveryAddress `bson:"delivery_address,omitempty"`
	EstimatedDeliveryTime time.Time               `bson:"estimated_delivery_time"`
	ActualDeliveryTime    *time.Time              `bson:"actual_delivery_time,omitempty"`
	Notes                 string                  `bson:"notes,omitempty"`
	Rating                *domain.OrderRating     `bson:"rating,omitempty"`
	Version               int64                   `bson:"version"`
	CreatedAt             time.Time               `bson:"created_at"`
	UpdatedAt             time.Time               `bson:"updated_at"`
}

func toMongoOrder(o *domain.Order) (mongoOrder, error) {
	buyer, err := objectID(o.BuyerID)
	if err != nil {
		return mongoOrder{}, err
	}
	seller, err := objectID(o.SellerID)
	if err != nil {
		return mongoOrder{}, err
	}
	product, err := objectID(o.ProductID)
	if err != nil {
		return mongoOrder{}, err
	}
	return mongoOrder{
		OrderNumber:           o.OrderNumber,
		Buyer:                 buyer,
		Seller:                seller,
		Product:               product,
		Quantity:              o.Quantity,
		UnitPrice:             o.UnitPrice,
		TotalAmount:           o.TotalAmount,
		Currency:              o.Currency,
		Status:                o.Status,
		PaymentStatus:         o.PaymentStatus,
		PaymentMethod:         o.PaymentMethod,
		PaymentDetails:        o.PaymentDetails,
		DeliveryType:          o.DeliveryType,
		DeliveryAddress:       o.DeliveryAddress,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
		Notes:                 o.Notes,
		Rating:                o.Rating,
		Version:               o.Version,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}, nil
}

func (m mongoOrder) toDomain() *domain.Order {
	return &domain.Order{
		ID:                    m.ID.Hex(),
		OrderNumber:           m.OrderNumber,
		BuyerID:               m.Buyer.Hex(),
		SellerID:              m.Seller.Hex(),
		ProductID:             m.Product.Hex(),
		Quantity:              m.Quantity,
		UnitPrice:             m.UnitPrice,
		TotalAmount:           m.TotalAmount,
		Currency:              m.Currency,
		Status:                m.Status,
		PaymentStatus:         m.PaymentStatus,
		PaymentMethod:         m.PaymentMethod,
		PaymentDetails:        m.PaymentDetails,
		DeliveryType:          m.DeliveryType,
		DeliveryAddress:       m.DeliveryAddress,
		EstimatedDeliveryTime: m.EstimatedDeliveryTime,
		ActualDeliveryTime:    m.ActualDeliveryTime,
		Notes:                 m.Notes,
		Rating:                m.Rating,
		Version:               m.Version,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// Create inserts o and assigns its id. The unique order_number index turns a
// number clash into domain.ErrDuplicateOrderNumber.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	doc, err := toMongoOrder(o)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}
	o.ID = doc.ID.Hex()
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoOrder
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return doc.toDomain(), nil
}

// Save writes o guarded by its version.
func (r *OrderRepository) Save(ctx context.Context, o *domain.Order) error {
	oid, err := objectID(o.ID)
	if err != nil {
		return err
	}
	doc, err := toMongoOrder(o)
	if err != nil {
		return err
	}
	fields, err := setFields(doc, "_id", "version", "created_at", "order_number")
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "version": o.Version},
		bson.M{"$set": fields, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if n == 0 {
			return domain.ErrOrderNotFound
		}
		return domain.ErrConcurrentUpdate
	}
	o.Version++
	return nil
}

func (r *OrderRepository) List(ctx context.Context, f ports.OrderFilter) ([]*domain.Order, int64, error) {
	filter, err := orderFilter(f)
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	sort := bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	docs, total, err := findPage[mongoOrder](ctx, r.col, filter, pageOptions(f.Page, f.Limit, sort))
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders := make([]*domain.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, d.toDomain())
	}
	return orders, total, nil
}

func orderFilter(f ports.OrderFilter) (bson.M, error) {
	filter := bson.M{}
	if f.BuyerID != "" {
		oid, err := objectID(f.BuyerID)
		if err != nil {
			return nil, err
		}
		filter["buyer"] = oid
	}
	if f.SellerID != "" {
		oid, err := objectID(f.SellerID)
		if err != nil {
			return nil, err
		}
		filter["seller"] = oid
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter, nil
}
