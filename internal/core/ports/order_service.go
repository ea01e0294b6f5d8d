package ports

import (
	"context"

	"github.com/ocandle/marketplace/internal/core/domain"
)

// CreateOrderInput carries a buyer's order request.
type CreateOrderInput struct {
	ProductID       string
	Quantity        int
	PaymentMethod   domain.PaymentMethod
	PaymentDetails  domain.PaymentDetails
	DeliveryType    domain.DeliveryType
	DeliveryAddress *domain.DeliveryAddress
	Notes           string
}

// OrderView is an order with the summaries clients display alongside it.
type OrderView struct {
	Order   *domain.Order
	Product *domain.ProductSummary
	Buyer   *domain.UserSummary
	Seller  *domain.UserSummary
}

// OrderPage is a page of orders.
type OrderPage struct {
	Items    []OrderView
	PageInfo PageInfo
}

// ListOrdersInput carries the list endpoint parameters.
type ListOrdersInput struct {
	Status domain.OrderStatus
	Page   int
	Limit  int
}

// OrderService defines order and payment use cases. Every call receives the
// acting principal; party checks happen inside the service.
type OrderService interface {
	CreateOrder(ctx context.Context, buyer *domain.User, input CreateOrderInput) (*OrderView, error)
	ListOrders(ctx context.Context, principal *domain.User, input ListOrdersInput) (*OrderPage, error)
	GetOrder(ctx context.Context, principal *domain.User, orderID string) (*OrderView, error)
	UpdateStatus(ctx context.Context, principal *domain.User, orderID string, status domain.OrderStatus, notes string) (*OrderView, error)
	ProcessPayment(ctx context.Context, principal *domain.User, orderID string, details domain.PaymentDetails) (*OrderView, error)
	CancelOrder(ctx context.Context, principal *domain.User, orderID, reason string) (*OrderView, error)
	RateOrder(ctx context.Context, principal *domain.User, orderID string, value int, comment string) (*OrderView, error)
}
