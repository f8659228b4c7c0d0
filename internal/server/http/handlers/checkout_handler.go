package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
	"github.com/tiendita/pagoflow/internal/server/http/dto"
)

// CheckoutHandler starts checkouts and closes the redirect-return loop.
type CheckoutHandler struct {
	facade CheckoutFacade
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(facade CheckoutFacade) *CheckoutHandler {
	return &CheckoutHandler{facade: facade}
}

// Checkout handles POST /api/checkout.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	draft := &model.Order{
		Customer: req.Customer,
		Email:    req.Email,
		Phone:    req.Phone,
		Locality: req.Locality,
	}
	for _, item := range req.Items {
		draft.Items = append(draft.Items, model.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Label:     item.Label,
		})
	}

	order, payment, redirect, err := h.facade.Checkout(c.Request.Context(), draft)
	if err != nil {
		// The order row survives a failed initiation; surface its id so the
		// client can retry payment without re-submitting the cart.
		body := gin.H{}
		if order != nil {
			body["order_id"] = order.ID
		}
		switch {
		case errors.Is(err, domainErrors.ErrGatewayUnavailable), errors.Is(err, domainErrors.ErrGatewayRejected):
			c.JSON(http.StatusBadGateway, body)
		default:
			c.JSON(http.StatusInternalServerError, body)
		}
		return
	}

	c.JSON(http.StatusCreated, dto.CheckoutResponse{
		OrderID:     order.ID,
		PaymentID:   payment.ID,
		Status:      string(payment.Status),
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		RedirectURL: redirect,
	})
}

// Return handles GET /api/checkout/return. The payer lands here after the
// gateway checkout; state is pulled instead of trusting redirect params.
func (h *CheckoutHandler) Return(c *gin.Context) {
	ref := c.Query("external_reference")
	if ref == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	payment, err := h.facade.ReconcileByReference(c.Request.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrUnknownReference):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrGatewayUnavailable):
			c.Status(http.StatusBadGateway)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, toPaymentResponse(payment))
}
