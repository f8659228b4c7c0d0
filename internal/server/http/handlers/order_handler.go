package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
	"github.com/tiendita/pagoflow/internal/server/http/dto"
)

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade ReconciliationFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade ReconciliationFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	order, payments, err := h.facade.Order(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domainErrors.ErrOrderNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order, payments))
}

// InitiatePayment handles POST /api/orders/:id/payments. It opens a fresh
// payment attempt for an order whose previous attempt failed or stalled.
func (h *OrderHandler) InitiatePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	payment, redirect, err := h.facade.InitiatePayment(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrOrderNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrInvalidTransition):
			c.Status(http.StatusConflict)
		case errors.Is(err, domainErrors.ErrGatewayUnavailable), errors.Is(err, domainErrors.ErrGatewayRejected):
			c.Status(http.StatusBadGateway)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusCreated, dto.CheckoutResponse{
		OrderID:     payment.OrderID,
		PaymentID:   payment.ID,
		Status:      string(payment.Status),
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		RedirectURL: redirect,
	})
}

// OverrideStatus handles PATCH /api/orders/:id/status.
func (h *OrderHandler) OverrideStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	var req dto.StatusOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	target := model.OrderStatus(req.Status)
	if err := req.Validate(); err != nil || !model.ValidOrderStatus(target) {
		c.Status(http.StatusUnprocessableEntity)
		return
	}

	order, err := h.facade.OverrideOrderStatus(c.Request.Context(), id, target)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrOrderNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrInvalidTransition), errors.Is(err, domainErrors.ErrConflict):
			c.Status(http.StatusConflict)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order, nil))
}
