package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tiendita/pagoflow/internal/domain/model"
	"github.com/tiendita/pagoflow/internal/server/http/dto"
)

// pathID parses the numeric :id path parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func toOrderResponse(order *model.Order, payments []model.Payment) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Label:     item.Label,
		})
	}

	response := dto.OrderResponse{
		ID:        order.ID,
		Customer:  order.Customer,
		Email:     order.Email,
		Phone:     order.Phone,
		Locality:  order.Locality,
		Status:    string(order.Status),
		Total:     order.Total(),
		Items:     items,
		CreatedAt: order.CreatedAt,
	}
	for _, p := range payments {
		response.Payments = append(response.Payments, toPaymentResponse(&p))
	}
	return response
}

func toPaymentResponse(payment *model.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:                payment.ID,
		OrderID:           payment.OrderID,
		ExternalReference: payment.ExternalReference,
		GatewayPaymentID:  payment.GatewayPaymentID,
		Status:            string(payment.Status),
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		CreatedAt:         payment.CreatedAt,
	}
}
