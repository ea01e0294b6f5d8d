package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ocandle/marketplace/internal/api/metrics"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

// OrderHandler handles HTTP requests for orders and payments.
type OrderHandler struct {
	service ports.OrderService
}

func NewOrderHandler(service ports.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// Create handles POST /api/orders.
//
// @Summary      Place an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createOrderRequest  true  "Order details"
// @Success      201   {object}  Response{data=orderData}
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c echo.Context) error {
	buyer, err := principal(c)
	if err != nil {
		return err
	}
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	view, err := h.service.CreateOrder(c.Request().Context(), buyer, req.toInput())
	if err != nil {
		return err
	}
	metrics.OrdersCreatedTotal.WithLabelValues(string(view.Order.DeliveryType)).Inc()
	return created(c, "Order created successfully", orderData{Order: newOrderResponse(view)})
}

// List handles GET /api/orders. Sellers see their sales, buyers their purchases.
//
// @Summary      List my orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status filter"
// @Param        page    query     int     false  "Page (default 1)"
// @Param        limit   query     int     false  "Page size (default 20, max 50)"
// @Success      200     {object}  Response{data=orderListData}
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Router       /api/orders [get]
func (h *OrderHandler) List(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}

	r := newQueryReader(c)
	q := orderQuery{Status: r.str("status")}
	r.integer("page", &q.Page)
	r.integer("limit", &q.Limit)
	if err := r.validate(&q); err != nil {
		return err
	}

	page, err := h.service.ListOrders(c.Request().Context(), user, ports.ListOrdersInput{
		Status: domain.OrderStatus(q.Status),
		Page:   q.Page,
		Limit:  q.Limit,
	})
	if err != nil {
		return err
	}

	orders := make([]orderResponse, 0, len(page.Items))
	for i := range page.Items {
		orders = append(orders, newOrderResponse(&page.Items[i]))
	}
	return ok(c, "", orderListData{
		Orders: orders,
		Pagination: orderPagination{
			Pagination:  newPagination(page.PageInfo),
			TotalOrders: page.PageInfo.Total,
		},
	})
}

// Get handles GET /api/orders/:id. Only the buyer or the seller may read it.
//
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  Response{data=orderData}
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) Get(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetOrder(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, "", orderData{Order: newOrderResponse(view)})
}

// UpdateStatus handles PUT /api/orders/:id/status.
//
// @Summary      Move an order forward
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Order id"
// @Param        body  body      updateStatusRequest  true  "New status"
// @Success      200   {object}  Response{data=orderData}
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	view, err := h.service.UpdateStatus(c.Request().Context(), user, c.Param("id"), domain.OrderStatus(req.Status), req.Notes)
	if err != nil {
		return deny(err, "Only the seller can update order status")
	}
	metrics.OrderStatusChangesTotal.WithLabelValues(req.Status).Inc()
	return ok(c, "Order status updated successfully", orderData{Order: newOrderResponse(view)})
}

// Pay handles POST /api/orders/:id/payment.
//
// @Summary      Pay for an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Order id"
// @Param        body  body      paymentRequest  true  "Gateway details"
// @Success      200   {object}  Response{data=orderData}
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/orders/{id}/payment [post]
func (h *OrderHandler) Pay(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	view, err := h.service.ProcessPayment(c.Request().Context(), user, c.Param("id"), req.toDomain())
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyPaid) {
			metrics.PaymentsTotal.WithLabelValues("unknown", "already_paid").Inc()
		}
		return deny(err, "Only the buyer can process payment")
	}
	metrics.PaymentsTotal.WithLabelValues(string(view.Order.PaymentMethod), "completed").Inc()
	return ok(c, "Payment processed successfully", orderData{Order: newOrderResponse(view)})
}

// Cancel handles POST /api/orders/:id/cancel. Either party may cancel.
//
// @Summary      Cancel an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true   "Order id"
// @Param        body  body      cancelRequest  false  "Reason"
// @Success      200   {object}  Response{data=orderData}
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	view, err := h.service.CancelOrder(c.Request().Context(), user, c.Param("id"), req.Reason)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return echo.NewHTTPError(http.StatusBadRequest, "Order cannot be cancelled").SetInternal(err)
		}
		return err
	}
	metrics.OrderStatusChangesTotal.WithLabelValues(string(domain.OrderCancelled)).Inc()
	return ok(c, "Order cancelled successfully", orderData{Order: newOrderResponse(view)})
}

// Rate handles POST /api/orders/:id/rating.
//
// @Summary      Rate a delivered order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Order id"
// @Param        body  body      rateOrderRequest  true  "Rating 1-5 and comment"
// @Success      200   {object}  Response{data=orderData}
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/orders/{id}/rating [post]
func (h *OrderHandler) Rate(c echo.Context) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req rateOrderRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	view, err := h.service.RateOrder(c.Request().Context(), user, c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		return deny(err, "Only the buyer can rate this order")
	}
	return ok(c, "Order rated successfully", orderData{Order: newOrderResponse(view)})
}
