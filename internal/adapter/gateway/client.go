package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
)

// Client exposes the payment gateway operations used by the engine.
type Client interface {
	CreatePreference(ctx context.Context, req model.PreferenceRequest) (*model.Preference, error)
	GetPayment(ctx context.Context, gatewayPaymentID string) (*model.PaymentInfo, error)
	SearchByExternalReference(ctx context.Context, ref string) ([]model.PaymentInfo, error)
	Refund(ctx context.Context, gatewayPaymentID string, amount *float64) (*model.RefundInfo, error)
}

const (
	maxAttempts = 3
	backoffBase = 500 * time.Millisecond
)

// HTTPClient implements Client against the gateway REST API.
type HTTPClient struct {
	baseURL     *url.URL
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
	// sleep is swapped in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewHTTPClient validates credentials eagerly and builds the client.
// Missing or malformed configuration is ErrNotConfigured, not a deferred
// network failure.
func NewHTTPClient(baseURL, accessToken string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("empty access token: %w", domainErrors.ErrNotConfigured)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", domainErrors.ErrNotConfigured)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute: %w", domainErrors.ErrNotConfigured)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:     parsed,
		accessToken: accessToken,
		logger:      logger,
		httpClient:  &http.Client{Timeout: timeout},
		sleep:       time.Sleep,
	}, nil
}

type preferencePayload struct {
	Items             []preferenceItemPayload `json:"items"`
	Payer             payerPayload            `json:"payer"`
	ExternalReference string                  `json:"external_reference"`
	BackURLs          backURLsPayload         `json:"back_urls"`
	AutoReturn        string                  `json:"auto_return,omitempty"`
}

type preferenceItemPayload struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type payerPayload struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type backURLsPayload struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
}

type searchResponse struct {
	Results []paymentResponse `json:"results"`
}

type refundPayload struct {
	Amount *float64 `json:"amount,omitempty"`
}

type refundResponse struct {
	ID        json.Number `json:"id"`
	PaymentID json.Number `json:"payment_id"`
	Amount    float64     `json:"amount"`
	Status    string      `json:"status"`
}

// CreatePreference opens a checkout session. The external reference doubles
// as the idempotency scope: a retried call for the same order attempt reuses
// the same X-Idempotency-Key and cannot create two preferences.
func (c *HTTPClient) CreatePreference(ctx context.Context, req model.PreferenceRequest) (*model.Preference, error) {
	payload := preferencePayload{
		Payer: payerPayload{
			Name:  req.Payer.Name,
			Email: req.Payer.Email,
			Phone: req.Payer.Phone,
		},
		ExternalReference: req.ExternalReference,
		BackURLs: backURLsPayload{
			Success: req.ReturnURLs.Success,
			Failure: req.ReturnURLs.Failure,
			Pending: req.ReturnURLs.Pending,
		},
	}
	for _, it := range req.Items {
		payload.Items = append(payload.Items, preferenceItemPayload{
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	// The gateway rejects auto-return against callback-unreachable URLs, so
	// it is requested only when the success URL is publicly reachable.
	if strings.HasPrefix(req.ReturnURLs.Success, "https://") {
		payload.AutoReturn = "approved"
	}

	headers := map[string]string{
		"X-Idempotency-Key": uuid.NewSHA1(uuid.NameSpaceURL, []byte(req.ExternalReference)).String(),
	}

	var resp preferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", nil, payload, headers, &resp); err != nil {
		return nil, err
	}
	return &model.Preference{ID: resp.ID, RedirectURL: resp.InitPoint}, nil
}

// GetPayment fetches the authoritative payment state by gateway id.
func (c *HTTPClient) GetPayment(ctx context.Context, gatewayPaymentID string) (*model.PaymentInfo, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, path.Join("/v1/payments", gatewayPaymentID), nil, nil, nil, &resp); err != nil {
		return nil, err
	}
	info := toPaymentInfo(resp)
	return &info, nil
}

// SearchByExternalReference lists gateway payments created for the reference.
func (c *HTTPClient) SearchByExternalReference(ctx context.Context, ref string) ([]model.PaymentInfo, error) {
	query := url.Values{"external_reference": {ref}}
	var resp searchResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/search", query, nil, nil, &resp); err != nil {
		return nil, err
	}
	infos := make([]model.PaymentInfo, 0, len(resp.Results))
	for _, r := range resp.Results {
		infos = append(infos, toPaymentInfo(r))
	}
	return infos, nil
}

// Refund refunds a payment fully, or partially when amount is non-nil.
func (c *HTTPClient) Refund(ctx context.Context, gatewayPaymentID string, amount *float64) (*model.RefundInfo, error) {
	headers := map[string]string{"X-Idempotency-Key": uuid.NewString()}
	var resp refundResponse
	endpoint := path.Join("/v1/payments", gatewayPaymentID, "refunds")
	if err := c.do(ctx, http.MethodPost, endpoint, nil, refundPayload{Amount: amount}, headers, &resp); err != nil {
		return nil, err
	}
	return &model.RefundInfo{
		RefundID:         resp.ID.String(),
		GatewayPaymentID: resp.PaymentID.String(),
		Amount:           resp.Amount,
		Status:           model.PaymentStatusRefunded,
	}, nil
}

func toPaymentInfo(r paymentResponse) model.PaymentInfo {
	return model.PaymentInfo{
		GatewayPaymentID:  r.ID.String(),
		ExternalReference: r.ExternalReference,
		Status:            model.PaymentStatus(r.Status),
		Amount:            r.TransactionAmount,
		Currency:          r.CurrencyID,
	}
}

// do issues one gateway call with bounded retry. Transient failures (network
// errors, 5xx) are retried with exponential backoff; 4xx responses surface
// immediately as ErrGatewayRejected.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, query url.Values, body any, headers map[string]string, out any) error {
	target := *c.baseURL
	target.Path = path.Join(target.Path, endpoint)
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode gateway request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", domainErrors.ErrGatewayUnavailable, ctx.Err())
			default:
			}
			c.sleep(backoffBase << (attempt - 1))
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("gateway request failed",
				slog.String("method", method),
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
			continue
		}

		retry, err := c.decode(resp, method, endpoint, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %s %s: %w", domainErrors.ErrGatewayUnavailable, method, endpoint, lastErr)
}

func (c *HTTPClient) decode(resp *http.Response, method, endpoint string, out any) (retry bool, err error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("gateway server error",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return true, fmt.Errorf("gateway error: %s", resp.Status)
	case resp.StatusCode >= http.StatusBadRequest:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("gateway rejected request",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return false, fmt.Errorf("%w: %s: %s", domainErrors.ErrGatewayRejected, resp.Status, strconv.Quote(truncate(string(body), 256)))
	}

	if out == nil {
		return false, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode gateway response: %w", err)
	}
	return false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
