package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tiendita/pagoflow/internal/domain/model"
)

// Dispatcher emits notification requests for meaningful order transitions.
// Delivery is best effort: implementations never return an error and never
// block reconciliation.
type Dispatcher interface {
	Notify(ctx context.Context, order *model.Order, previous, next model.OrderStatus)
}

// request is the notification payload handed to the out-of-band channel.
// The engine only emits requests; composing and delivering the actual
// message happens elsewhere.
type request struct {
	OrderID        int64  `json:"order_id"`
	Customer       string `json:"customer"`
	Email          string `json:"email"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
}

// HTTPDispatcher posts notification requests to a configured sink and logs
// failures. With no sink configured it only logs the request.
type HTTPDispatcher struct {
	sinkURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPDispatcher builds a dispatcher. sinkURL may be empty.
func NewHTTPDispatcher(sinkURL string, logger *slog.Logger) *HTTPDispatcher {
	return &HTTPDispatcher{
		sinkURL:    sinkURL,
		logger:     logger,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Notify sends the notification request. Any failure is logged and swallowed:
// the Payment/Order rows must never roll back because a notification failed.
func (d *HTTPDispatcher) Notify(ctx context.Context, order *model.Order, previous, next model.OrderStatus) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification dispatch panicked", slog.Any("panic", r))
		}
	}()

	req := request{
		OrderID:        order.ID,
		Customer:       order.Customer,
		Email:          order.Email,
		PreviousStatus: string(previous),
		NewStatus:      string(next),
	}

	d.logger.Info("notification requested",
		slog.Int64("order_id", req.OrderID),
		slog.String("previous_status", req.PreviousStatus),
		slog.String("new_status", req.NewStatus),
	)

	if d.sinkURL == "" {
		return
	}

	body, err := json.Marshal(req)
	if err != nil {
		d.logger.Error("encode notification request failed", slog.String("error", err.Error()))
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.sinkURL, bytes.NewReader(body))
	if err != nil {
		d.logger.Error("build notification request failed", slog.String("error", err.Error()))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		d.logger.Error("notification delivery failed",
			slog.Int64("order_id", req.OrderID),
			slog.String("error", err.Error()),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		d.logger.Error("notification sink rejected request",
			slog.Int64("order_id", req.OrderID),
			slog.Int("status", resp.StatusCode),
		)
	}
}
