package dto

import "time"

// OrderItemResponse is one order line as stored at checkout time.
type OrderItemResponse struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Label     string  `json:"label,omitempty"`
}

// OrderResponse represents an order with its payment attempts.
type OrderResponse struct {
	ID        int64               `json:"id"`
	Customer  string              `json:"customer"`
	Email     string              `json:"email,omitempty"`
	Phone     string              `json:"phone,omitempty"`
	Locality  string              `json:"locality,omitempty"`
	Status    string              `json:"status"`
	Total     float64             `json:"total"`
	Items     []OrderItemResponse `json:"items"`
	Payments  []PaymentResponse   `json:"payments,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// PaymentResponse represents one payment attempt.
type PaymentResponse struct {
	ID                int64     `json:"id"`
	OrderID           int64     `json:"order_id"`
	ExternalReference string    `json:"external_reference"`
	GatewayPaymentID  string    `json:"gateway_payment_id,omitempty"`
	Status            string    `json:"status"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
}

// StatusOverrideRequest moves an order along its lifecycle administratively.
type StatusOverrideRequest struct {
	Status string `json:"status" validate:"required"`
}

// Validate runs struct-level validation on the request.
func (r *StatusOverrideRequest) Validate() error {
	return validate.Struct(r)
}

// RefundRequest refunds a payment; a nil amount means a full refund.
type RefundRequest struct {
	Amount *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

// Validate runs struct-level validation on the request.
func (r *RefundRequest) Validate() error {
	return validate.Struct(r)
}
