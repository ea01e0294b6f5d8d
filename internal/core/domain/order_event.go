package domain

import "time"

// OrderEventType names a change in an order's lifecycle.
type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventPaid          OrderEventType = "order.paid"
	OrderEventCancelled     OrderEventType = "order.cancelled"
	OrderEventRated         OrderEventType = "order.rated"
)

// OrderEvent is the integration record emitted after an order mutation.
type OrderEvent struct {
	Type          OrderEventType `json:"type"`
	OrderID       string         `json:"orderId"`
	OrderNumber   string         `json:"orderNumber"`
	BuyerID       string         `json:"buyerId"`
	SellerID      string         `json:"sellerId"`
	ProductID     string         `json:"productId"`
	Status        OrderStatus    `json:"status"`
	PaymentStatus PaymentStatus  `json:"paymentStatus"`
	Quantity      int            `json:"quantity"`
	TotalAmount   float64        `json:"totalAmount"`
	Currency      string         `json:"currency"`
	OccurredAt    time.Time      `json:"occurredAt"`
}

// NewOrderEvent snapshots o for publication.
func NewOrderEvent(t OrderEventType, o *Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:          t,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		ProductID:     o.ProductID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Quantity:      o.Quantity,
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		OccurredAt:    at,
	}
}
