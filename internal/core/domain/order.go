package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// validTransitions lists the forward moves allowed from each non-terminal status.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderPreparing, OrderReady, OrderDelivered, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderReady, OrderDelivered, OrderCancelled},
	OrderPreparing: {OrderReady, OrderDelivered, OrderCancelled},
	OrderReady:     {OrderDelivered, OrderCancelled},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Re-applying the current status is always allowed and has no effect.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return next.Valid()
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus represents the settlement state of an order.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// PaymentMethod is the instrument a buyer pays with.
type PaymentMethod string

const (
	PaymentUPI        PaymentMethod = "upi"
	PaymentCard       PaymentMethod = "card"
	PaymentWallet     PaymentMethod = "wallet"
	PaymentCOD        PaymentMethod = "cod"
	PaymentNetBanking PaymentMethod = "netbanking"
)

// DeliveryType is how an order reaches the buyer.
type DeliveryType string

const (
	DeliveryTypePickup   DeliveryType = "pickup"
	DeliveryTypeDelivery DeliveryType = "delivery"
)

const (
	DefaultCurrency     = "INR"
	DefaultCancelReason = "Order cancelled by user"

	pickupLeadTime   = 30 * time.Minute
	deliveryLeadTime = 2 * time.Hour
)

// PaymentDetails holds gateway specific payment data.
type PaymentDetails struct {
	TransactionID  string `json:"transactionId,omitempty" bson:"transaction_id,omitempty"`
	PaymentGateway string `json:"paymentGateway,omitempty" bson:"payment_gateway,omitempty"`
	UPIID          string `json:"upiId,omitempty" bson:"upi_id,omitempty"`
	CardLast4      string `json:"cardLast4,omitempty" bson:"card_last4,omitempty"`
}

// DeliveryAddress is where a delivery order is sent.
type DeliveryAddress struct {
	Street   string `json:"street" bson:"street"`
	City     string `json:"city" bson:"city"`
	State    string `json:"state" bson:"state"`
	Pincode  string `json:"pincode" bson:"pincode"`
	Landmark string `json:"landmark,omitempty" bson:"landmark,omitempty"`
}

// OrderRating is the buyer's post-delivery feedback.
type OrderRating struct {
	Value     int       `json:"value" bson:"value"`
	Comment   string    `json:"comment,omitempty" bson:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Order is a single buyer-seller-product transaction.
type Order struct {
	ID                    string           `json:"_id"`
	OrderNumber           string           `json:"orderNumber"`
	BuyerID               string           `json:"buyer"`
	SellerID              string           `json:"seller"`
	ProductID             string           `json:"product"`
	Quantity              int              `json:"quantity"`
	UnitPrice             float64          `json:"unitPrice"`
	TotalAmount           float64          `json:"totalAmount"`
	Currency              string           `json:"currency"`
	Status                OrderStatus      `json:"status"`
	PaymentStatus         PaymentStatus    `json:"paymentStatus"`
	PaymentMethod         PaymentMethod    `json:"paymentMethod"`
	PaymentDetails        PaymentDetails   `json:"paymentDetails"`
	DeliveryType          DeliveryType     `json:"deliveryType"`
	DeliveryAddress       *DeliveryAddress `json:"deliveryAddress,omitempty"`
	EstimatedDeliveryTime time.Time        `json:"estimatedDeliveryTime"`
	ActualDeliveryTime    *time.Time       `json:"actualDeliveryTime,omitempty"`
	Notes                 string           `json:"notes,omitempty"`
	Rating                *OrderRating     `json:"rating,omitempty"`
	Version               int64            `json:"-"`
	CreatedAt             time.Time        `json:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt"`
}

// OrderTotal multiplies unit price by quantity, rounded to cents.
func OrderTotal(unitPrice float64, quantity int) float64 {
	return decimal.NewFromFloat(unitPrice).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}

// EstimateDelivery returns the promised fulfilment time for a delivery type.
func EstimateDelivery(t DeliveryType, from time.Time) time.Time {
	if t == DeliveryTypeDelivery {
		return from.Add(deliveryLeadTime)
	}
	return from.Add(pickupLeadTime)
}

// Recalculate derives the total from quantity and unit price.
func (o *Order) Recalculate() {
	o.TotalAmount = OrderTotal(o.UnitPrice, o.Quantity)
}

// IsParty reports whether principalID is the buyer or the seller.
func (o *Order) IsParty(principalID string) bool {
	return o.BuyerID == principalID || o.SellerID == principalID
}

// SetStatus moves the order to next. actualDeliveryTime is stamped only the
// first time the order becomes delivered.
func (o *Order) SetStatus(next OrderStatus, notes string, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	if next == OrderDelivered && o.ActualDeliveryTime == nil {
		t := now
		o.ActualDeliveryTime = &t
	}
	if notes != "" {
		o.Notes = notes
	}
	o.UpdatedAt = now
	return nil
}

// RecordPayment marks the order paid and merges the gateway details.
func (o *Order) RecordPayment(details PaymentDetails, now time.Time) error {
	if o.PaymentStatus == PaymentCompleted {
		return ErrAlreadyPaid
	}
	if o.Status == OrderCancelled {
		return fmt.Errorf("%w: cannot pay a cancelled order", ErrInvalidTransition)
	}
	o.PaymentStatus = PaymentCompleted
	mergePaymentDetails(&o.PaymentDetails, details)
	if o.Status == OrderPending {
		o.Status = OrderConfirmed
	}
	o.UpdatedAt = now
	return nil
}

// Cancel moves a non-terminal order to cancelled.
func (o *Order) Cancel(reason string, now time.Time) error {
	if o.Status.Terminal() {
		return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, o.Status)
	}
	if reason == "" {
		reason = DefaultCancelReason
	}
	o.Status = OrderCancelled
	o.Notes = reason
	o.UpdatedAt = now
	return nil
}

// Rate records the buyer's feedback on a delivered order.
func (o *Order) Rate(value int, comment string, now time.Time) error {
	if o.Status != OrderDelivered {
		return fmt.Errorf("%w: only delivered orders can be rated", ErrInvalidTransition)
	}
	if o.Rating != nil {
		return ErrAlreadyRated
	}
	o.Rating = &OrderRating{Value: value, Comment: comment, CreatedAt: now}
	o.UpdatedAt = now
	return nil
}

func mergePaymentDetails(dst *PaymentDetails, src PaymentDetails) {
	if src.TransactionID != "" {
		dst.TransactionID = src.TransactionID
	}
	if src.PaymentGateway != "" {
		dst.PaymentGateway = src.PaymentGateway
	}
	if src.UPIID != "" {
		dst.UPIID = src.UPIID
	}
	if src.CardLast4 != "" {
		dst.CardLast4 = src.CardLast4
	}
}
