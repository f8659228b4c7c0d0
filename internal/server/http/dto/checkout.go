package dto

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// CheckoutItem is one line of a checkout request.
type CheckoutItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name" validate:"required"`
	UnitPrice float64 `json:"unit_price" validate:"gt=0"`
	Quantity  int     `json:"quantity" validate:"gt=0"`
	Label     string  `json:"label"`
}

// CheckoutRequest describes a new order with its items.
type CheckoutRequest struct {
	Customer string         `json:"customer" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Phone    string         `json:"phone"`
	Locality string         `json:"locality"`
	Items    []CheckoutItem `json:"items" validate:"required,min=1,dive"`
}

// Validate runs struct-level validation on the request.
func (r *CheckoutRequest) Validate() error {
	return validate.Struct(r)
}

// CheckoutResponse returns the ids and the gateway redirect for a started
// checkout.
type CheckoutResponse struct {
	OrderID     int64   `json:"order_id"`
	PaymentID   int64   `json:"payment_id"`
	Status      string  `json:"status"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	RedirectURL string  `json:"redirect_url"`
}
