package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

const (
	defaultOrderLimit = 20
	maxOrderLimit     = 50

	orderNumberAttempts = 3
	orderSuffixLength   = 10
)

// StockCommitter reconciles listing stock once an order is paid.
type StockCommitter interface {
	CommitStock(ctx context.Context, productID string, quantity int) error
}

// OrderService implements the order lifecycle and simulated payments.
type OrderService struct {
	orders   ports.OrderRepository
	products ports.ProductRepository
	users    ports.UserRepository
	stock    StockCommitter
	events   ports.EventDispatcher
	logger   zerolog.Logger
	now      func() time.Time
}

func NewOrderService(
	orders ports.OrderRepository,
	products ports.ProductRepository,
	users ports.UserRepository,
	stock StockCommitter,
	events ports.EventDispatcher,
	logger zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		users:    users,
		stock:    stock,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder places a pending order against an active listing. Stock is not
// touched until payment.
func (s *OrderService) CreateOrder(ctx context.Context, buyer *domain.User, in ports.CreateOrderInput) (*ports.OrderView, error) {
	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Status != domain.ProductActive {
		return nil, domain.ErrProductUnavailable
	}
	if product.Stock.Quantity < in.Quantity {
		return nil, &domain.StockError{Available: product.Stock.Quantity}
	}
	if product.SellerID == buyer.ID {
		return nil, domain.ErrSelfOrder
	}

	deliveryType := in.DeliveryType
	if deliveryType == "" {
		deliveryType = domain.DeliveryTypePickup
	}
	var address *domain.DeliveryAddress
	if deliveryType == domain.DeliveryTypeDelivery {
		if in.DeliveryAddress == nil {
			return nil, domain.NewValidationError("deliveryAddress", "delivery address is required for delivery orders")
		}
		address = in.DeliveryAddress
	}

	now := s.now()
	order := &domain.Order{
		BuyerID:               buyer.ID,
		SellerID:              product.SellerID,
		ProductID:             product.ID,
		Quantity:              in.Quantity,
		UnitPrice:             product.Price,
		Currency:              domain.DefaultCurrency,
		Status:                domain.OrderPending,
		PaymentStatus:         domain.PaymentPending,
		PaymentMethod:         in.PaymentMethod,
		PaymentDetails:        in.PaymentDetails,
		DeliveryType:          deliveryType,
		DeliveryAddress:       address,
		EstimatedDeliveryTime: domain.EstimateDelivery(deliveryType, now),
		Notes:                 strings.TrimSpace(in.Notes),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	order.Recalculate()

	for attempt := 1; ; attempt++ {
		order.OrderNumber = generateOrderNumber(now)
		err = s.orders.Create(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateOrderNumber) || attempt >= orderNumberAttempts {
			s.logger.Error().Err(err).Str("buyer_id", buyer.ID).Msg("failed to create order")
			return nil, fmt.Errorf("create order: %w", err)
		}
		s.logger.Warn().Str("order_number", order.OrderNumber).Msg("order number collision, regenerating")
	}

	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("buyer_id", buyer.ID).
		Str("seller_id", order.SellerID).
		Float64("total", order.TotalAmount).
		Msg("order created")
	s.events.Enqueue(domain.NewOrderEvent(domain.OrderEventCreated, order, now))

	return s.view(ctx, order)
}

// ListOrders returns the principal's sales when they manage sales, purchases otherwise.
func (s *OrderService) ListOrders(ctx context.Context, principal *domain.User, in ports.ListOrdersInput) (*ports.OrderPage, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, domain.NewValidationError("status", "invalid order status")
	}
	page, limit := normalizePage(in.Page, in.Limit, defaultOrderLimit, maxOrderLimit)

	filter := ports.OrderFilter{Status: in.Status, Page: page, Limit: limit}
	if principal.Role.Can(domain.CapManageSales) {
		filter.SellerID = principal.ID
	} else {
		filter.BuyerID = principal.ID
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	views, err := s.populate(ctx, orders...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &ports.OrderPage{Items: views, PageInfo: ports.NewPageInfo(page, limit, total)}, nil
}

// GetOrder returns an order to its buyer or seller.
func (s *OrderService) GetOrder(ctx context.Context, principal *domain.User, orderID string) (*ports.OrderView, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParty(principal.ID) {
		return nil, domain.ErrForbidden
	}
	return s.view(ctx, order)
}

// UpdateStatus lets the order's seller move it through the lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, principal *domain.User, orderID string, status domain.OrderStatus, notes string) (*ports.OrderView, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "invalid order status")
	}

	order, err := s.mutate(ctx, orderID, func(o *domain.Order) error {
		if o.SellerID != principal.ID {
			return domain.ErrForbidden
		}
		return o.SetStatus(status, strings.TrimSpace(notes), s.now())
	})
	if err != nil {
		return nil, err
	}

	eventType := domain.OrderEventStatusChanged
	if status == domain.OrderCancelled {
		eventType = domain.OrderEventCancelled
	}
	s.logger.Info().Str("order_number", order.OrderNumber).Str("status", string(status)).Msg("order status updated")
	s.events.Enqueue(domain.NewOrderEvent(eventType, order, order.UpdatedAt))
	return s.view(ctx, order)
}

// ProcessPayment records the buyer's payment and commits the ordered stock.
// The payment write and the stock write are separate; a failed stock commit
// is logged and the payment stands.
func (s *OrderService) ProcessPayment(ctx context.Context, principal *domain.User, orderID string, details domain.PaymentDetails) (*ports.OrderView, error) {
	order, err := s.mutate(ctx, orderID, func(o *domain.Order) error {
		if o.BuyerID != principal.ID {
			return domain.ErrForbidden
		}
		return o.RecordPayment(details, s.now())
	})
	if err != nil {
		return nil, err
	}

	if err := s.stock.CommitStock(ctx, order.ProductID, order.Quantity); err != nil {
		s.logger.Error().Err(err).
			Str("order_number", order.OrderNumber).
			Str("product_id", order.ProductID).
			Int("quantity", order.Quantity).
			Msg("payment recorded but stock commit failed")
	}

	s.logger.Info().Str("order_number", order.OrderNumber).Str("method", string(order.PaymentMethod)).Msg("payment processed")
	s.events.Enqueue(domain.NewOrderEvent(domain.OrderEventPaid, order, order.UpdatedAt))
	return s.view(ctx, order)
}

// CancelOrder lets either party cancel a non-terminal order.
func (s *OrderService) CancelOrder(ctx context.Context, principal *domain.User, orderID, reason string) (*ports.OrderView, error) {
	order, err := s.mutate(ctx, orderID, func(o *domain.Order) error {
		if !o.IsParty(principal.ID) {
			return domain.ErrForbidden
		}
		return o.Cancel(strings.TrimSpace(reason), s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_number", order.OrderNumber).Str("by", principal.ID).Msg("order cancelled")
	s.events.Enqueue(domain.NewOrderEvent(domain.OrderEventCancelled, order, order.UpdatedAt))
	return s.view(ctx, order)
}

// RateOrder records the buyer's rating of a delivered order and folds it into
// the seller's aggregate rating.
func (s *OrderService) RateOrder(ctx context.Context, principal *domain.User, orderID string, value int, comment string) (*ports.OrderView, error) {
	order, err := s.mutate(ctx, orderID, func(o *domain.Order) error {
		if o.BuyerID != principal.ID {
			return domain.ErrForbidden
		}
		return o.Rate(value, strings.TrimSpace(comment), s.now())
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.users.AddRating(ctx, order.SellerID, value); err != nil {
		s.logger.Warn().Err(err).Str("seller_id", order.SellerID).Msg("failed to update seller rating")
	}

	s.events.Enqueue(domain.NewOrderEvent(domain.OrderEventRated, order, order.UpdatedAt))
	return s.view(ctx, order)
}

// mutate loads the order, applies fn and saves it, retrying on version races.
func (s *OrderService) mutate(ctx context.Context, orderID string, fn func(*domain.Order) error) (*domain.Order, error) {
	var saved *domain.Order
	err := retryOnConflict(ctx, func() error {
		o, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		saved = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *OrderService) view(ctx context.Context, order *domain.Order) (*ports.OrderView, error) {
	views, err := s.populate(ctx, order)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// populate attaches product, buyer and seller summaries to orders.
func (s *OrderService) populate(ctx context.Context, orders ...*domain.Order) ([]ports.OrderView, error) {
	productIDs := make([]string, 0, len(orders))
	userIDs := make([]string, 0, 2*len(orders))
	for _, o := range orders {
		productIDs = append(productIDs, o.ProductID)
		userIDs = append(userIDs, o.BuyerID, o.SellerID)
	}

	products, err := s.products.FindByIDs(ctx, uniqueIDs(productIDs...))
	if err != nil {
		return nil, err
	}
	users, err := s.users.FindByIDs(ctx, uniqueIDs(userIDs...))
	if err != nil {
		return nil, err
	}

	views := make([]ports.OrderView, 0, len(orders))
	for _, o := range orders {
		v := ports.OrderView{
			Order:  o,
			Buyer:  summaryOf(users, o.BuyerID),
			Seller: summaryOf(users, o.SellerID),
		}
		if p, ok := products[o.ProductID]; ok {
			v.Product = p.Summary()
		}
		views = append(views, v)
	}
	return views, nil
}

// generateOrderNumber returns an order number in the format ORD-<unix ms>-<suffix>.
// Uniqueness rests on the random suffix, backed by a unique index.
func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix[:orderSuffixLength])
}
