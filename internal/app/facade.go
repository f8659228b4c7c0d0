package app

import (
	"context"
	"time"

	"github.com/tiendita/pagoflow/internal/domain/model"
	"github.com/tiendita/pagoflow/internal/usecase"
)

// HealthChecker reports storage connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ReconciliationFacade is the application surface consumed by HTTP handlers
// and the background sweeper.
type ReconciliationFacade struct {
	engine *usecase.Reconciler
	health HealthChecker
}

// NewReconciliationFacade constructs the facade.
func NewReconciliationFacade(engine *usecase.Reconciler, health HealthChecker) *ReconciliationFacade {
	return &ReconciliationFacade{engine: engine, health: health}
}

// Checkout creates an order and opens its first payment attempt. The order
// is returned even when initiation failed so the caller can retry.
func (f *ReconciliationFacade) Checkout(ctx context.Context, draft *model.Order) (*model.Order, *model.Payment, string, error) {
	result, err := f.engine.Checkout(ctx, draft)
	if result == nil {
		return nil, nil, "", err
	}
	return result.Order, result.Payment, result.RedirectURL, err
}

// InitiatePayment opens a fresh payment attempt for an existing order.
func (f *ReconciliationFacade) InitiatePayment(ctx context.Context, orderID int64) (*model.Payment, string, error) {
	return f.engine.InitiatePayment(ctx, orderID)
}

// ReconcileByReference pulls the gateway state for the reference and merges it.
func (f *ReconciliationFacade) ReconcileByReference(ctx context.Context, ref string) (*model.Payment, error) {
	return f.engine.ReconcileByExternalReference(ctx, ref)
}

// HandleWebhookEvent ingests one gateway notification.
func (f *ReconciliationFacade) HandleWebhookEvent(ctx context.Context, event model.WebhookEvent) error {
	return f.engine.HandleWebhookEvent(ctx, event)
}

// Order loads an order with its payment attempts.
func (f *ReconciliationFacade) Order(ctx context.Context, orderID int64) (*model.Order, []model.Payment, error) {
	return f.engine.Order(ctx, orderID)
}

// OverrideOrderStatus applies an administrative lifecycle transition.
func (f *ReconciliationFacade) OverrideOrderStatus(ctx context.Context, orderID int64, target model.OrderStatus) (*model.Order, error) {
	return f.engine.OverrideOrderStatus(ctx, orderID, target)
}

// Refund refunds a payment fully or partially.
func (f *ReconciliationFacade) Refund(ctx context.Context, paymentID int64, amount *float64) (*model.Payment, error) {
	return f.engine.Refund(ctx, paymentID, amount)
}

// UnsettledPayments lists non-terminal payments for the sweeper.
func (f *ReconciliationFacade) UnsettledPayments(ctx context.Context, age time.Duration, limit int) ([]model.Payment, error) {
	return f.engine.UnsettledPayments(ctx, age, limit)
}

// Health verifies the service can reach its storage.
func (f *ReconciliationFacade) Health(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
