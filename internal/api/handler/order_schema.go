package handler

import (
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

// --- Request types ---

type deliveryAddressRequest struct {
	Street   string `json:"street"   validate:"required,min=5,max=200"`
	City     string `json:"city"     validate:"required,min=2,max=50"`
	State    string `json:"state"    validate:"required,min=2,max=50"`
	Pincode  string `json:"pincode"  validate:"required,pincode"`
	Landmark string `json:"landmark" validate:"omitempty,max=100"`
}

type createOrderRequest struct {
	ProductID       string                  `json:"productId"       validate:"required"`
	Quantity        int                     `json:"quantity"        validate:"required,min=1"`
	PaymentMethod   string                  `json:"paymentMethod"   validate:"required,oneof=upi card wallet cod netbanking"`
	DeliveryType    string                  `json:"deliveryType"    validate:"omitempty,oneof=pickup delivery"`
	DeliveryAddress *deliveryAddressRequest `json:"deliveryAddress"`
	Notes           string                  `json:"notes"           validate:"omitempty,max=500"`
}

func (createOrderRequest) fieldMessages() map[string]string {
	return map[string]string{
		"productId":               "Valid product ID is required",
		"quantity":                "Quantity must be at least 1",
		"paymentMethod":           "Valid payment method is required",
		"deliveryType":            "Delivery type must be pickup or delivery",
		"deliveryAddress.street":  "Street address must be between 5 and 200 characters",
		"deliveryAddress.city":    "City must be between 2 and 50 characters",
		"deliveryAddress.state":   "State must be between 2 and 50 characters",
		"deliveryAddress.pincode": "Valid Indian pincode is required",
		"notes":                   "Notes cannot exceed 500 characters",
	}
}

func (r createOrderRequest) toInput() ports.CreateOrderInput {
	in := ports.CreateOrderInput{
		ProductID:     r.ProductID,
		Quantity:      r.Quantity,
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
		DeliveryType:  domain.DeliveryType(r.DeliveryType),
		Notes:         r.Notes,
	}
	if r.DeliveryAddress != nil {
		in.DeliveryAddress = &domain.DeliveryAddress{
			Street:   r.DeliveryAddress.Street,
			City:     r.DeliveryAddress.City,
			State:    r.DeliveryAddress.State,
			Pincode:  r.DeliveryAddress.Pincode,
			Landmark: r.DeliveryAddress.Landmark,
		}
	}
	return in
}

type orderQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=pending confirmed preparing ready delivered cancelled"`
	Page   int    `query:"page"   validate:"omitempty,min=1"`
	Limit  int    `query:"limit"  validate:"omitempty,min=1,max=50"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed preparing ready delivered cancelled"`
	Notes  string `json:"notes"  validate:"omitempty,max=500"`
}

func (updateStatusRequest) fieldMessages() map[string]string {
	return map[string]string{
		"status": "Invalid order status",
		"notes":  "Notes cannot exceed 500 characters",
	}
}

type paymentRequest struct {
	TransactionID  string `json:"transactionId"  validate:"required,min=5,max=100"`
	PaymentGateway string `json:"paymentGateway" validate:"omitempty,max=50"`
	UPIID          string `json:"upiId"          validate:"omitempty,upi"`
	CardLast4      string `json:"cardLast4"      validate:"omitempty,len=4,numeric"`
}

func (paymentRequest) fieldMessages() map[string]string {
	return map[string]string{
		"transactionId":  "Valid transaction ID is required",
		"paymentGateway": "Payment gateway name too long",
		"upiId":          "Valid UPI ID format required",
		"cardLast4":      "Card last 4 digits must be 4 numbers",
	}
}

func (r paymentRequest) toDomain() domain.PaymentDetails {
	return domain.PaymentDetails{
		TransactionID:  r.TransactionID,
		PaymentGateway: r.PaymentGateway,
		UPIID:          r.UPIID,
		CardLast4:      r.CardLast4,
	}
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type rateOrderRequest struct {
	Rating  int    `json:"rating"  validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=500"`
}

// --- Response types ---

// orderResponse is an order with its product and parties expanded when their
// summaries are known.
type orderResponse struct {
	*domain.Order
	Product any `json:"product"`
	Buyer   any `json:"buyer"`
	Seller  any `json:"seller"`
}

func newOrderResponse(v *ports.OrderView) orderResponse {
	resp := orderResponse{Order: v.Order, Product: v.Order.ProductID, Buyer: v.Order.BuyerID, Seller: v.Order.SellerID}
	if v.Product != nil {
		resp.Product = v.Product
	}
	if v.Buyer != nil {
		resp.Buyer = v.Buyer
	}
	if v.Seller != nil {
		resp.Seller = v.Seller
	}
	return resp
}

type orderData struct {
	Order orderResponse `json:"order"`
}

type orderListData struct {
	Orders     []orderResponse `json:"orders"`
	Pagination orderPagination `json:"pagination"`
}
