package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
	testhelpers "github.com/tiendita/pagoflow/internal/test"
	"github.com/tiendita/pagoflow/internal/usecase"
)

type healthStub struct {
	err error
}

func (h healthStub) HealthCheck(context.Context) error { return h.err }

func newTestFacade(orders *testhelpers.OrderRepositoryStub, payments *testhelpers.PaymentRepositoryStub, gw *testhelpers.GatewayStub, health error) (*ReconciliationFacade, *testhelpers.NotifierStub) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	notifier := &testhelpers.NotifierStub{}
	engine := usecase.NewReconciler(orders, payments, gw, notifier, "http://localhost:8080", logger)
	return NewReconciliationFacade(engine, healthStub{err: health}), notifier
}

func TestFacadeCheckout(t *testing.T) {
	facade, _ := newTestFacade(&testhelpers.OrderRepositoryStub{}, &testhelpers.PaymentRepositoryStub{}, &testhelpers.GatewayStub{}, nil)

	order, payment, redirect, err := facade.Checkout(context.Background(), &model.Order{
		Customer: "Ana",
		Items:    []model.OrderItem{{Name: "Yerba", UnitPrice: 100, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order == nil || payment == nil || redirect == "" {
		t.Fatalf("incomplete checkout result: order=%v payment=%v redirect=%q", order, payment, redirect)
	}
	if payment.Status != model.PaymentStatusPending {
		t.Fatalf("expected pending payment, got %s", payment.Status)
	}
}

func TestFacadeCheckoutPreservesOrderOnGatewayFailure(t *testing.T) {
	gw := &testhelpers.GatewayStub{CreatePreferenceFn: func(context.Context, model.PreferenceRequest) (*model.Preference, error) {
		return nil, domainErrors.ErrGatewayUnavailable
	}}
	orders := &testhelpers.OrderRepositoryStub{GetByIDFn: func(_ context.Context, id int64) (*model.Order, error) {
		return &model.Order{ID: id, Customer: "Ana", Status: model.OrderStatusCreated,
			Items: []model.OrderItem{{Name: "Yerba", UnitPrice: 100, Quantity: 1}}}, nil
	}}
	facade, _ := newTestFacade(orders, &testhelpers.PaymentRepositoryStub{}, gw, nil)

	order, payment, _, err := facade.Checkout(context.Background(), &model.Order{Customer: "Ana"})
	if !errors.Is(err, domainErrors.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if order == nil {
		t.Fatal("expected order to survive failed initiation")
	}
	if payment != nil {
		t.Fatal("no payment must exist when the preference failed")
	}
}

func TestFacadeHealth(t *testing.T) {
	facade, _ := newTestFacade(&testhelpers.OrderRepositoryStub{}, &testhelpers.PaymentRepositoryStub{}, &testhelpers.GatewayStub{}, nil)
	if err := facade.Health(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dbDown := errors.New("db down")
	facade, _ = newTestFacade(&testhelpers.OrderRepositoryStub{}, &testhelpers.PaymentRepositoryStub{}, &testhelpers.GatewayStub{}, dbDown)
	if err := facade.Health(context.Background()); !errors.Is(err, dbDown) {
		t.Fatalf("expected health error, got %v", err)
	}
}

func TestFacadeReconcileByReferenceNotifiesOnApproval(t *testing.T) {
	stored := &model.Payment{ID: 3, OrderID: 7, ExternalReference: "order-7-1", Status: model.PaymentStatusPending, Amount: 200}
	payments := &testhelpers.PaymentRepositoryStub{
		LatestByRefFn: func(context.Context, string) (*model.Payment, error) {
			clone := *stored
			return &clone, nil
		},
		GetByIDFn: func(context.Context, int64) (*model.Payment, error) {
			clone := *stored
			clone.Status = model.PaymentStatusApproved
			return &clone, nil
		},
	}
	gw := &testhelpers.GatewayStub{SearchFn: func(context.Context, string) ([]model.PaymentInfo, error) {
		return []model.PaymentInfo{{GatewayPaymentID: "gw-1", ExternalReference: "order-7-1", Status: model.PaymentStatusApproved, Amount: 200}}, nil
	}}
	orders := &testhelpers.OrderRepositoryStub{GetByIDFn: func(_ context.Context, id int64) (*model.Order, error) {
		return &model.Order{ID: id, Customer: "Ana", Status: model.OrderStatusAwaitingPayment}, nil
	}}

	facade, notifier := newTestFacade(orders, payments, gw, nil)
	payment, err := facade.ReconcileByReference(context.Background(), "order-7-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != model.PaymentStatusApproved {
		t.Fatalf("expected approved, got %s", payment.Status)
	}
	if notifier.Count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.Count())
	}
}
