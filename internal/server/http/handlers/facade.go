package handlers

import (
	"context"

	"github.com/tiendita/pagoflow/internal/domain/model"
)

// CheckoutFacade exposes checkout initiation to HTTP handlers.
type CheckoutFacade interface {
	Checkout(ctx context.Context, draft *model.Order) (*model.Order, *model.Payment, string, error)
	InitiatePayment(ctx context.Context, orderID int64) (*model.Payment, string, error)
	ReconcileByReference(ctx context.Context, externalReference string) (*model.Payment, error)
}

// OrderFacade exposes order queries and administrative transitions.
type OrderFacade interface {
	Order(ctx context.Context, orderID int64) (*model.Order, []model.Payment, error)
	OverrideOrderStatus(ctx context.Context, orderID int64, target model.OrderStatus) (*model.Order, error)
}

// PaymentFacade exposes webhook ingestion and refunds.
type PaymentFacade interface {
	HandleWebhookEvent(ctx context.Context, event model.WebhookEvent) error
	Refund(ctx context.Context, paymentID int64, amount *float64) (*model.Payment, error)
}

// HealthFacade reports service readiness.
type HealthFacade interface {
	Health(ctx context.Context) error
}

// ReconciliationFacade aggregates the full set of operations used across handlers.
type ReconciliationFacade interface {
	CheckoutFacade
	OrderFacade
	PaymentFacade
	HealthFacade
}
