package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/server/http/dto"
)

// PaymentHandler manages payment-level operations.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Refund handles POST /api/payments/:id/refund. An empty body refunds the
// full amount.
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	var req dto.RefundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		if err := req.Validate(); err != nil {
			c.Status(http.StatusUnprocessableEntity)
			return
		}
	}

	payment, err := h.facade.Refund(c.Request.Context(), id, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrPaymentNotFound):
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

	c.JSON(http.StatusOK, toPaymentResponse(payment))
}
