package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
)

// OrderRepositoryStub allows tests to customize behaviour per method.
type OrderRepositoryStub struct {
	CreateFn          func(context.Context, *model.Order) (*model.Order, error)
	GetByIDFn         func(context.Context, int64) (*model.Order, error)
	UpdateStatusCASFn func(context.Context, int64, model.OrderStatus, model.OrderStatus) (bool, error)
}

// Create delegates or echoes the draft back with id 1.
func (s *OrderRepositoryStub) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, order)
	}
	clone := *order
	clone.ID = 1
	return &clone, nil
}

// GetByID delegates or returns a created order.
func (s *OrderRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, id)
	}
	return &model.Order{ID: id, Customer: "stub", Status: model.OrderStatusCreated}, nil
}

// UpdateStatusCAS delegates or reports a won swap.
func (s *OrderRepositoryStub) UpdateStatusCAS(ctx context.Context, id int64, expected, next model.OrderStatus) (bool, error) {
	if s.UpdateStatusCASFn != nil {
		return s.UpdateStatusCASFn(ctx, id, expected, next)
	}
	return true, nil
}

// PaymentRepositoryStub allows tests to customize behaviour per method.
type PaymentRepositoryStub struct {
	CreateFn          func(context.Context, *model.Payment) (*model.Payment, error)
	GetByIDFn         func(context.Context, int64) (*model.Payment, error)
	GetByGatewayIDFn  func(context.Context, string) (*model.Payment, error)
	LatestByRefFn     func(context.Context, string) (*model.Payment, error)
	ListByOrderFn     func(context.Context, int64) ([]model.Payment, error)
	ListUnsettledFn   func(context.Context, time.Duration, int) ([]model.Payment, error)
	UpdateStatusCASFn func(context.Context, int64, model.PaymentStatus, model.PaymentStatus, string) (bool, error)
}

// Create delegates or echoes the payment back with id 1.
func (s *PaymentRepositoryStub) Create(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, payment)
	}
	clone := *payment
	clone.ID = 1
	return &clone, nil
}

// GetByID delegates or returns a pending payment.
func (s *PaymentRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, id)
	}
	return &model.Payment{ID: id, OrderID: 1, Status: model.PaymentStatusPending}, nil
}

// GetByGatewayID delegates or reports not found.
func (s *PaymentRepositoryStub) GetByGatewayID(ctx context.Context, gatewayID string) (*model.Payment, error) {
	if s.GetByGatewayIDFn != nil {
		return s.GetByGatewayIDFn(ctx, gatewayID)
	}
	return nil, domainErrors.ErrPaymentNotFound
}

// LatestByExternalReference delegates or reports an unknown reference.
func (s *PaymentRepositoryStub) LatestByExternalReference(ctx context.Context, ref string) (*model.Payment, error) {
	if s.LatestByRefFn != nil {
		return s.LatestByRefFn(ctx, ref)
	}
	return nil, domainErrors.ErrUnknownReference
}

// ListByOrder delegates or returns nothing.
func (s *PaymentRepositoryStub) ListByOrder(ctx context.Context, orderID int64) ([]model.Payment, error) {
	if s.ListByOrderFn != nil {
		return s.ListByOrderFn(ctx, orderID)
	}
	return nil, nil
}

// ListUnsettled delegates or returns nothing.
func (s *PaymentRepositoryStub) ListUnsettled(ctx context.Context, age time.Duration, limit int) ([]model.Payment, error) {
	if s.ListUnsettledFn != nil {
		return s.ListUnsettledFn(ctx, age, limit)
	}
	return nil, nil
}

// UpdateStatusCAS delegates or reports a won swap.
func (s *PaymentRepositoryStub) UpdateStatusCAS(ctx context.Context, id int64, expected, next model.PaymentStatus, gatewayID string) (bool, error) {
	if s.UpdateStatusCASFn != nil {
		return s.UpdateStatusCASFn(ctx, id, expected, next, gatewayID)
	}
	return true, nil
}

// GatewayStub simulates the payment gateway client.
type GatewayStub struct {
	CreatePreferenceFn func(context.Context, model.PreferenceRequest) (*model.Preference, error)
	GetPaymentFn       func(context.Context, string) (*model.PaymentInfo, error)
	SearchFn           func(context.Context, string) ([]model.PaymentInfo, error)
	RefundFn           func(context.Context, string, *float64) (*model.RefundInfo, error)
}

// CreatePreference delegates or fabricates a preference.
func (s *GatewayStub) CreatePreference(ctx context.Context, req model.PreferenceRequest) (*model.Preference, error) {
	if s.CreatePreferenceFn != nil {
		return s.CreatePreferenceFn(ctx, req)
	}
	return &model.Preference{ID: "pref-stub", RedirectURL: "https://gw/redirect"}, nil
}

// GetPayment delegates or returns a pending report.
func (s *GatewayStub) GetPayment(ctx context.Context, id string) (*model.PaymentInfo, error) {
	if s.GetPaymentFn != nil {
		return s.GetPaymentFn(ctx, id)
	}
	return &model.PaymentInfo{GatewayPaymentID: id, Status: model.PaymentStatusPending}, nil
}

// SearchByExternalReference delegates or returns nothing.
func (s *GatewayStub) SearchByExternalReference(ctx context.Context, ref string) ([]model.PaymentInfo, error) {
	if s.SearchFn != nil {
		return s.SearchFn(ctx, ref)
	}
	return nil, nil
}

// Refund delegates or reports a refunded payment.
func (s *GatewayStub) Refund(ctx context.Context, id string, amount *float64) (*model.RefundInfo, error) {
	if s.RefundFn != nil {
		return s.RefundFn(ctx, id, amount)
	}
	return &model.RefundInfo{RefundID: "r-stub", GatewayPaymentID: id, Status: model.PaymentStatusRefunded}, nil
}

// NotifierStub records notification requests.
type NotifierStub struct {
	mu    sync.Mutex
	Calls []model.OrderStatus
}

// Notify appends the target status of each request.
func (s *NotifierStub) Notify(_ context.Context, _ *model.Order, _, next model.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, next)
}

// Count returns how many notifications were requested.
func (s *NotifierStub) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
