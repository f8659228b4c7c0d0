package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
	"github.com/tiendita/pagoflow/internal/server/http/dto"
	testhelpers "github.com/tiendita/pagoflow/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(t *testing.T, method, route, path string, handler gin.HandlerFunc, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, route, handler)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func checkoutBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(dto.CheckoutRequest{
		Customer: "Ana",
		Email:    "ana@example.com",
		Locality: "Rosario",
		Items: []dto.CheckoutItem{
			{ProductID: 10, Name: "Yerba 1kg", UnitPrice: 100, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return body
}

func TestCheckoutHandler(t *testing.T) {
	facade := &testhelpers.FacadeStub{CheckoutFn: func(_ context.Context, draft *model.Order) (*model.Order, *model.Payment, string, error) {
		if draft.Customer != "Ana" || len(draft.Items) != 1 || draft.Items[0].Quantity != 2 {
			t.Fatalf("unexpected draft passed to facade: %+v", draft)
		}
		order := *draft
		order.ID = 7
		order.Status = model.OrderStatusAwaitingPayment
		payment := &model.Payment{ID: 3, OrderID: 7, Status: model.PaymentStatusPending, Amount: 200, Currency: "ARS"}
		return &order, payment, "https://gw/redirect/pref-1", nil
	}}

	resp := performRequest(t, http.MethodPost, "/checkout", "/checkout", NewCheckoutHandler(facade).Checkout, checkoutBody(t))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}

	var result dto.CheckoutResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.OrderID != 7 || result.PaymentID != 3 || result.RedirectURL != "https://gw/redirect/pref-1" {
		t.Fatalf("unexpected response %+v", result)
	}
}

func TestCheckoutHandlerFailures(t *testing.T) {
	tests := []struct {
		name   string
		facade *testhelpers.FacadeStub
		body   []byte
		status int
	}{
		{name: "bad json", facade: &testhelpers.FacadeStub{}, body: []byte("not json"), status: http.StatusBadRequest},
		{name: "no items", facade: &testhelpers.FacadeStub{}, body: []byte(`{"customer":"Ana","email":"ana@example.com","items":[]}`), status: http.StatusUnprocessableEntity},
		{name: "zero price", facade: &testhelpers.FacadeStub{}, body: []byte(`{"customer":"Ana","email":"ana@example.com","items":[{"name":"x","unit_price":0,"quantity":1}]}`), status: http.StatusUnprocessableEntity},
		{name: "bad email", facade: &testhelpers.FacadeStub{}, body: []byte(`{"customer":"Ana","email":"nope","items":[{"name":"x","unit_price":1,"quantity":1}]}`), status: http.StatusUnprocessableEntity},
		{name: "gateway down", facade: &testhelpers.FacadeStub{CheckoutFn: func(context.Context, *model.Order) (*model.Order, *model.Payment, string, error) {
			return &model.Order{ID: 9, Status: model.OrderStatusCreated}, nil, "", domainErrors.ErrGatewayUnavailable
		}}, status: http.StatusBadGateway},
		{name: "internal", facade: &testhelpers.FacadeStub{CheckoutFn: func(context.Context, *model.Order) (*model.Order, *model.Payment, string, error) {
			return nil, nil, "", errors.New("boom")
		}}, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == nil {
				body = checkoutBody(t)
			}
			resp := performRequest(t, http.MethodPost, "/checkout", "/checkout", NewCheckoutHandler(tt.facade).Checkout, body)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestCheckoutHandlerGatewayFailureKeepsOrderID(t *testing.T) {
	facade := &testhelpers.FacadeStub{CheckoutFn: func(context.Context, *model.Order) (*model.Order, *model.Payment, string, error) {
		return &model.Order{ID: 9, Status: model.OrderStatusCreated}, nil, "", domainErrors.ErrGatewayUnavailable
	}}
	resp := performRequest(t, http.MethodPost, "/checkout", "/checkout", NewCheckoutHandler(facade).Checkout, checkoutBody(t))
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["order_id"] != float64(9) {
		t.Fatalf("expected surviving order id in response, got %v", body)
	}
}

func TestCheckoutReturn(t *testing.T) {
	facade := &testhelpers.FacadeStub{ReconcileFn: func(_ context.Context, ref string) (*model.Payment, error) {
		if ref != "order-7-123" {
			t.Fatalf("unexpected reference %q", ref)
		}
		return &model.Payment{ID: 3, OrderID: 7, ExternalReference: ref, Status: model.PaymentStatusApproved}, nil
	}}
	resp := performRequest(t, http.MethodGet, "/return", "/return?external_reference=order-7-123", NewCheckoutHandler(facade).Return, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payment dto.PaymentResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payment); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payment.Status != string(model.PaymentStatusApproved) {
		t.Fatalf("unexpected payment %+v", payment)
	}
}

func TestCheckoutReturnFailures(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		facade *testhelpers.FacadeStub
		status int
	}{
		{name: "missing reference", path: "/return", facade: &testhelpers.FacadeStub{}, status: http.StatusBadRequest},
		{name: "unknown reference", path: "/return?external_reference=order-404-1", facade: &testhelpers.FacadeStub{ReconcileFn: func(context.Context, string) (*model.Payment, error) {
			return nil, domainErrors.ErrUnknownReference
		}}, status: http.StatusNotFound},
		{name: "gateway down", path: "/return?external_reference=order-7-1", facade: &testhelpers.FacadeStub{ReconcileFn: func(context.Context, string) (*model.Payment, error) {
			return nil, domainErrors.ErrGatewayUnavailable
		}}, status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodGet, "/return", tt.path, NewCheckoutHandler(tt.facade).Return, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestOrderHandlerGet(t *testing.T) {
	facade := &testhelpers.FacadeStub{OrderFn: func(_ context.Context, id int64) (*model.Order, []model.Payment, error) {
		order := &model.Order{
			ID: id, Customer: "Ana", Status: model.OrderStatusPaid,
			Items: []model.OrderItem{{Name: "Yerba 1kg", UnitPrice: 100, Quantity: 2}},
		}
		payments := []model.Payment{{ID: 3, OrderID: id, Status: model.PaymentStatusApproved, Amount: 200}}
		return order, payments, nil
	}}

	resp := performRequest(t, http.MethodGet, "/orders/:id", "/orders/7", NewOrderHandler(facade).Get, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var order dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if order.ID != 7 || order.Total != 200 || len(order.Payments) != 1 {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestOrderHandlerGetFailures(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		facade *testhelpers.FacadeStub
		status int
	}{
		{name: "bad id", path: "/orders/abc", facade: &testhelpers.FacadeStub{}, status: http.StatusBadRequest},
		{name: "not found", path: "/orders/404", facade: &testhelpers.FacadeStub{OrderFn: func(context.Context, int64) (*model.Order, []model.Payment, error) {
			return nil, nil, domainErrors.ErrOrderNotFound
		}}, status: http.StatusNotFound},
		{name: "internal", path: "/orders/7", facade: &testhelpers.FacadeStub{OrderFn: func(context.Context, int64) (*model.Order, []model.Payment, error) {
			return nil, nil, errors.New("boom")
		}}, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodGet, "/orders/:id", tt.path, NewOrderHandler(tt.facade).Get, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestOrderHandlerInitiatePayment(t *testing.T) {
	facade := &testhelpers.FacadeStub{InitiatePaymentFn: func(_ context.Context, id int64) (*model.Payment, string, error) {
		return &model.Payment{ID: 4, OrderID: id, Status: model.PaymentStatusPending, Amount: 200, Currency: "ARS"}, "https://gw/redirect/pref-2", nil
	}}
	resp := performRequest(t, http.MethodPost, "/orders/:id/payments", "/orders/7/payments", NewOrderHandler(facade).InitiatePayment, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	conflicted := &testhelpers.FacadeStub{InitiatePaymentFn: func(context.Context, int64) (*model.Payment, string, error) {
		return nil, "", domainErrors.ErrInvalidTransition
	}}
	resp = performRequest(t, http.MethodPost, "/orders/:id/payments", "/orders/7/payments", NewOrderHandler(conflicted).InitiatePayment, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for completed order, got %d", resp.Code)
	}
}

func TestOrderHandlerOverrideStatus(t *testing.T) {
	facade := &testhelpers.FacadeStub{OverrideFn: func(_ context.Context, id int64, target model.OrderStatus) (*model.Order, error) {
		if target != model.OrderStatusInProgress {
			t.Fatalf("unexpected target %s", target)
		}
		return &model.Order{ID: id, Customer: "Ana", Status: target}, nil
	}}
	body := []byte(`{"status":"IN_PROGRESS"}`)
	resp := performRequest(t, http.MethodPatch, "/orders/:id/status", "/orders/7/status", NewOrderHandler(facade).OverrideStatus, body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestOrderHandlerOverrideStatusFailures(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   []byte
		facade *testhelpers.FacadeStub
		status int
	}{
		{name: "bad json", path: "/orders/7/status", body: []byte("nope"), facade: &testhelpers.FacadeStub{}, status: http.StatusBadRequest},
		{name: "unknown status", path: "/orders/7/status", body: []byte(`{"status":"SHIPPED"}`), facade: &testhelpers.FacadeStub{}, status: http.StatusUnprocessableEntity},
		{name: "illegal transition", path: "/orders/7/status", body: []byte(`{"status":"AWAITING_PAYMENT"}`), facade: &testhelpers.FacadeStub{OverrideFn: func(context.Context, int64, model.OrderStatus) (*model.Order, error) {
			return nil, domainErrors.ErrInvalidTransition
		}}, status: http.StatusConflict},
		{name: "cas conflict", path: "/orders/7/status", body: []byte(`{"status":"COMPLETED"}`), facade: &testhelpers.FacadeStub{OverrideFn: func(context.Context, int64, model.OrderStatus) (*model.Order, error) {
			return nil, domainErrors.ErrConflict
		}}, status: http.StatusConflict},
		{name: "not found", path: "/orders/404/status", body: []byte(`{"status":"COMPLETED"}`), facade: &testhelpers.FacadeStub{OverrideFn: func(context.Context, int64, model.OrderStatus) (*model.Order, error) {
			return nil, domainErrors.ErrOrderNotFound
		}}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodPatch, "/orders/:id/status", tt.path, NewOrderHandler(tt.facade).OverrideStatus, tt.body)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestPaymentHandlerRefund(t *testing.T) {
	var gotAmount *float64
	facade := &testhelpers.FacadeStub{RefundFn: func(_ context.Context, id int64, amount *float64) (*model.Payment, error) {
		gotAmount = amount
		return &model.Payment{ID: id, Status: model.PaymentStatusRefunded}, nil
	}}

	resp := performRequest(t, http.MethodPost, "/payments/:id/refund", "/payments/3/refund", NewPaymentHandler(facade).Refund, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotAmount != nil {
		t.Fatal("empty body must request a full refund")
	}

	resp = performRequest(t, http.MethodPost, "/payments/:id/refund", "/payments/3/refund", NewPaymentHandler(facade).Refund, []byte(`{"amount":50}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotAmount == nil || *gotAmount != 50 {
		t.Fatalf("expected partial amount 50, got %v", gotAmount)
	}
}

func TestPaymentHandlerRefundFailures(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   []byte
		facade *testhelpers.FacadeStub
		status int
	}{
		{name: "bad id", path: "/payments/abc/refund", facade: &testhelpers.FacadeStub{}, status: http.StatusBadRequest},
		{name: "negative amount", path: "/payments/3/refund", body: []byte(`{"amount":-5}`), facade: &testhelpers.FacadeStub{}, status: http.StatusUnprocessableEntity},
		{name: "not approved", path: "/payments/3/refund", facade: &testhelpers.FacadeStub{RefundFn: func(context.Context, int64, *float64) (*model.Payment, error) {
			return nil, domainErrors.ErrInvalidTransition
		}}, status: http.StatusConflict},
		{name: "not found", path: "/payments/404/refund", facade: &testhelpers.FacadeStub{RefundFn: func(context.Context, int64, *float64) (*model.Payment, error) {
			return nil, domainErrors.ErrPaymentNotFound
		}}, status: http.StatusNotFound},
		{name: "gateway down", path: "/payments/3/refund", facade: &testhelpers.FacadeStub{RefundFn: func(context.Context, int64, *float64) (*model.Payment, error) {
			return nil, domainErrors.ErrGatewayUnavailable
		}}, status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodPost, "/payments/:id/refund", tt.path, NewPaymentHandler(tt.facade).Refund, tt.body)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestWebhookHandler(t *testing.T) {
	facade := &testhelpers.FacadeStub{}
	body := []byte(`{"type":"payment","data":{"id":"12345"}}`)
	resp := performRequest(t, http.MethodPost, "/webhook", "/webhook", NewWebhookHandler(facade).Receive, body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(facade.WebhookLog) != 1 || facade.WebhookLog[0].GatewayPaymentID != "12345" {
		t.Fatalf("unexpected events %+v", facade.WebhookLog)
	}
}

func TestWebhookHandlerNumericID(t *testing.T) {
	facade := &testhelpers.FacadeStub{}
	body := []byte(`{"type":"payment","data":{"id":12345}}`)
	resp := performRequest(t, http.MethodPost, "/webhook", "/webhook", NewWebhookHandler(facade).Receive, body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(facade.WebhookLog) != 1 || facade.WebhookLog[0].GatewayPaymentID != "12345" {
		t.Fatalf("unexpected events %+v", facade.WebhookLog)
	}
}

func TestWebhookHandlerQueryFallback(t *testing.T) {
	facade := &testhelpers.FacadeStub{}
	body := []byte(`{}`)
	resp := performRequest(t, http.MethodPost, "/webhook", "/webhook?topic=payment&id=777", NewWebhookHandler(facade).Receive, body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	event := facade.WebhookLog[0]
	if event.Type != "payment" || event.GatewayPaymentID != "777" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestWebhookHandlerFailures(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		facade *testhelpers.FacadeStub
		status int
	}{
		{name: "bad json", body: []byte("not json"), facade: &testhelpers.FacadeStub{}, status: http.StatusBadRequest},
		{name: "processing failure", body: []byte(`{"type":"payment","data":{"id":"1"}}`), facade: &testhelpers.FacadeStub{WebhookFn: func(context.Context, model.WebhookEvent) error {
			return domainErrors.ErrGatewayUnavailable
		}}, status: http.StatusInternalServerError},
		{name: "payment gone upstream", body: []byte(`{"type":"payment","data":{"id":"1"}}`), facade: &testhelpers.FacadeStub{WebhookFn: func(context.Context, model.WebhookEvent) error {
			return domainErrors.ErrGatewayRejected
		}}, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodPost, "/webhook", "/webhook", NewWebhookHandler(tt.facade).Receive, tt.body)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/health", "/health", NewHealthHandler(&testhelpers.FacadeStub{}).Check, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	down := &testhelpers.FacadeStub{HealthFn: func(context.Context) error { return errors.New("db down") }}
	resp = performRequest(t, http.MethodGet, "/health", "/health", NewHealthHandler(down).Check, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
