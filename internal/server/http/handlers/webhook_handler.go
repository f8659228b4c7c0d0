package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
	"github.com/tiendita/pagoflow/internal/server/http/dto"
)

// WebhookHandler ingests gateway notifications. The route sits behind
// signature verification.
type WebhookHandler struct {
	facade PaymentFacade
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade PaymentFacade) *WebhookHandler {
	return &WebhookHandler{facade: facade}
}

// Receive handles POST /api/webhooks/gateway. Duplicates, stale events, and
// unknown references are acknowledged with 200 so the gateway stops
// redelivering; only genuine processing failures return 5xx.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var req dto.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	event := model.WebhookEvent{
		Type:              req.Type,
		GatewayPaymentID:  req.Data.ID.String(),
		ExternalReference: req.ExternalReference,
	}
	// Older gateway event versions send id and topic as query parameters.
	if event.GatewayPaymentID == "" {
		event.GatewayPaymentID = c.Query("id")
	}
	if event.Type == "" {
		event.Type = c.Query("topic")
	}

	if err := h.facade.HandleWebhookEvent(c.Request.Context(), event); err != nil {
		if errors.Is(err, domainErrors.ErrGatewayRejected) {
			// The referenced payment does not exist upstream; redelivery
			// cannot fix that.
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}
