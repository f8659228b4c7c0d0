package model

import "time"

// OrderStatus describes the order fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "CREATED"
	OrderStatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusInProgress      OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
)

// ValidOrderStatus reports whether s belongs to the order vocabulary.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusCreated, OrderStatusAwaitingPayment, OrderStatusPaid, OrderStatusInProgress, OrderStatusCompleted:
		return true
	}
	return false
}

// OrderItem is one line of the order snapshot. Prices are captured at
// order-creation time and never re-read from the live catalog.
type OrderItem struct {
	ProductID int64
	Name      string
	UnitPrice float64
	Quantity  int
	Label     string
}

// Order describes a customer's purchase request with an immutable
// item-price snapshot.
type Order struct {
	ID        int64
	Customer  string
	Email     string
	Phone     string
	Locality  string
	Status    OrderStatus
	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total returns the charged amount derived from the snapshot.
func (o *Order) Total() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.UnitPrice * float64(it.Quantity)
	}
	return sum
}
