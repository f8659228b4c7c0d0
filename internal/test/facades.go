package test

import (
	"context"
	"sync"
	"time"

	"github.com/tiendita/pagoflow/internal/domain/model"
)

// FacadeStub provides controllable behaviour for handler and worker tests.
// Zero-value methods return benign defaults; override the Fn fields to steer
// a scenario.
type FacadeStub struct {
	CheckoutFn        func(context.Context, *model.Order) (*model.Order, *model.Payment, string, error)
	InitiatePaymentFn func(context.Context, int64) (*model.Payment, string, error)
	ReconcileFn       func(context.Context, string) (*model.Payment, error)
	WebhookFn         func(context.Context, model.WebhookEvent) error
	OrderFn           func(context.Context, int64) (*model.Order, []model.Payment, error)
	OverrideFn        func(context.Context, int64, model.OrderStatus) (*model.Order, error)
	RefundFn          func(context.Context, int64, *float64) (*model.Payment, error)
	UnsettledFn       func(context.Context, time.Duration, int) ([]model.Payment, error)
	HealthFn          func(context.Context) error

	mu         sync.Mutex
	WebhookLog []model.WebhookEvent
	Reconciled []string
}

// Checkout delegates to the override or fabricates a started checkout.
func (s *FacadeStub) Checkout(ctx context.Context, draft *model.Order) (*model.Order, *model.Payment, string, error) {
	if s.CheckoutFn != nil {
		return s.CheckoutFn(ctx, draft)
	}
	order := *draft
	order.ID = 1
	order.Status = model.OrderStatusAwaitingPayment
	payment := &model.Payment{ID: 1, OrderID: 1, Status: model.PaymentStatusPending, Amount: order.Total(), Currency: "ARS"}
	return &order, payment, "https://gw/redirect", nil
}

// InitiatePayment delegates to the override or returns a pending attempt.
func (s *FacadeStub) InitiatePayment(ctx context.Context, orderID int64) (*model.Payment, string, error) {
	if s.InitiatePaymentFn != nil {
		return s.InitiatePaymentFn(ctx, orderID)
	}
	return &model.Payment{ID: 2, OrderID: orderID, Status: model.PaymentStatusPending}, "https://gw/redirect", nil
}

// ReconcileByReference records the reference and delegates or returns a
// pending payment.
func (s *FacadeStub) ReconcileByReference(ctx context.Context, ref string) (*model.Payment, error) {
	s.mu.Lock()
	s.Reconciled = append(s.Reconciled, ref)
	s.mu.Unlock()
	if s.ReconcileFn != nil {
		return s.ReconcileFn(ctx, ref)
	}
	return &model.Payment{ID: 1, ExternalReference: ref, Status: model.PaymentStatusPending}, nil
}

// HandleWebhookEvent records the event and delegates.
func (s *FacadeStub) HandleWebhookEvent(ctx context.Context, event model.WebhookEvent) error {
	s.mu.Lock()
	s.WebhookLog = append(s.WebhookLog, event)
	s.mu.Unlock()
	if s.WebhookFn != nil {
		return s.WebhookFn(ctx, event)
	}
	return nil
}

// Order delegates to the override or returns a minimal order.
func (s *FacadeStub) Order(ctx context.Context, orderID int64) (*model.Order, []model.Payment, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, orderID)
	}
	return &model.Order{ID: orderID, Customer: "stub", Status: model.OrderStatusCreated}, nil, nil
}

// OverrideOrderStatus delegates to the override or applies the target blindly.
func (s *FacadeStub) OverrideOrderStatus(ctx context.Context, orderID int64, target model.OrderStatus) (*model.Order, error) {
	if s.OverrideFn != nil {
		return s.OverrideFn(ctx, orderID, target)
	}
	return &model.Order{ID: orderID, Customer: "stub", Status: target}, nil
}

// Refund delegates to the override or returns a refunded payment.
func (s *FacadeStub) Refund(ctx context.Context, paymentID int64, amount *float64) (*model.Payment, error) {
	if s.RefundFn != nil {
		return s.RefundFn(ctx, paymentID, amount)
	}
	return &model.Payment{ID: paymentID, Status: model.PaymentStatusRefunded}, nil
}

// UnsettledPayments delegates to the override or returns nothing.
func (s *FacadeStub) UnsettledPayments(ctx context.Context, age time.Duration, limit int) ([]model.Payment, error) {
	if s.UnsettledFn != nil {
		return s.UnsettledFn(ctx, age, limit)
	}
	return nil, nil
}

// Health delegates to the override or reports healthy.
func (s *FacadeStub) Health(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}

// ReconciledReferences returns a copy of the references passed to
// ReconcileByReference.
func (s *FacadeStub) ReconciledReferences() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Reconciled...)
}
