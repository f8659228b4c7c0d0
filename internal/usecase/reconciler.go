package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
	"github.com/tiendita/pagoflow/internal/domain/repository"
)

// Gateway is the subset of the payment gateway the engine depends on.
type Gateway interface {
	CreatePreference(ctx context.Context, req model.PreferenceRequest) (*model.Preference, error)
	GetPayment(ctx context.Context, gatewayPaymentID string) (*model.PaymentInfo, error)
	SearchByExternalReference(ctx context.Context, ref string) ([]model.PaymentInfo, error)
	Refund(ctx context.Context, gatewayPaymentID string, amount *float64) (*model.RefundInfo, error)
}

// Notifier receives notification requests for meaningful order transitions.
type Notifier interface {
	Notify(ctx context.Context, order *model.Order, previous, next model.OrderStatus)
}

// casAttempts bounds the merge retry loop when a concurrent writer wins the
// row-level compare-and-swap.
const casAttempts = 3

// Reconciler keeps Order and Payment rows consistent with the gateway across
// checkout, webhook deliveries, and polling.
type Reconciler struct {
	orders        repository.OrderRepository
	payments      repository.PaymentRepository
	gateway       Gateway
	notifier      Notifier
	logger        *slog.Logger
	publicBaseURL string
	now           func() time.Time
}

// NewReconciler constructs the engine.
func NewReconciler(orders repository.OrderRepository, payments repository.PaymentRepository, gw Gateway, notifier Notifier, publicBaseURL string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		orders:        orders,
		payments:      payments,
		gateway:       gw,
		notifier:      notifier,
		logger:        logger,
		publicBaseURL: publicBaseURL,
		now:           time.Now,
	}
}

// CheckoutResult is what a customer needs to continue paying.
type CheckoutResult struct {
	Order       *model.Order
	Payment     *model.Payment
	RedirectURL string
}

// Checkout creates the order with its immutable item snapshot and initiates
// the first payment attempt. The order row survives a failed initiation so a
// retry can reuse it.
func (r *Reconciler) Checkout(ctx context.Context, draft *model.Order) (*CheckoutResult, error) {
	draft.Status = model.OrderStatusCreated
	order, err := r.orders.Create(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	payment, redirect, err := r.InitiatePayment(ctx, order.ID)
	if err != nil {
		return &CheckoutResult{Order: order}, err
	}
	return &CheckoutResult{Order: order, Payment: payment, RedirectURL: redirect}, nil
}

// InitiatePayment asks the gateway for a preference, persists a pending
// Payment row, and moves the order to AwaitingPayment. A prior non-terminal
// payment for the order is left untouched; the new row becomes the latest
// attempt considered for status derivation.
func (r *Reconciler) InitiatePayment(ctx context.Context, orderID int64) (*model.Payment, string, error) {
	order, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}

	// Reject initiation outright for orders past the payment phase instead
	// of leaking a gateway preference that can never be reconciled.
	if _, err := model.ApplyOrderEvent(order.Status, model.EventPreferenceIssued); err != nil {
		return nil, "", err
	}

	ref := fmt.Sprintf("order-%d-%d", order.ID, r.now().UnixNano())

	items := make([]model.PreferenceItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, model.PreferenceItem{Title: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}

	pref, err := r.gateway.CreatePreference(ctx, model.PreferenceRequest{
		Items:             items,
		Payer:             model.Payer{Name: order.Customer, Email: order.Email, Phone: order.Phone},
		ExternalReference: ref,
		ReturnURLs: model.ReturnURLs{
			Success: r.publicBaseURL + "/api/checkout/return",
			Failure: r.publicBaseURL + "/api/checkout/return",
			Pending: r.publicBaseURL + "/api/checkout/return",
		},
	})
	if err != nil {
		return nil, "", err
	}

	// The preference now exists remotely. Persist the local row even if the
	// checkout request was aborted meanwhile; an orphaned local row is
	// recoverable by reference, an orphaned remote preference is not.
	persistCtx := context.WithoutCancel(ctx)
	payment, err := r.payments.Create(persistCtx, &model.Payment{
		OrderID:           order.ID,
		ExternalReference: ref,
		PreferenceID:      pref.ID,
		Status:            model.PaymentStatusPending,
		Amount:            order.Total(),
		Currency:          "ARS",
	})
	if err != nil {
		r.logger.Error("orphaned gateway preference: payment row not persisted",
			slog.String("external_reference", ref),
			slog.String("preference_id", pref.ID),
			slog.Int64("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return nil, "", fmt.Errorf("persist payment: %w", err)
	}

	next, err := model.ApplyOrderEvent(order.Status, model.EventPreferenceIssued)
	if err == nil && next != order.Status {
		if _, err := r.orders.UpdateStatusCAS(persistCtx, order.ID, order.Status, next); err != nil {
			return nil, "", fmt.Errorf("update order status: %w", err)
		}
	}

	return payment, pref.RedirectURL, nil
}

// HandleWebhookEvent ingests one gateway delivery. The payload is only a
// signal to re-fetch: amount and status always come from GetPayment. Unknown
// references and stale events are logged and acknowledged, never errors.
func (r *Reconciler) HandleWebhookEvent(ctx context.Context, event model.WebhookEvent) error {
	gatewayID := event.GatewayPaymentID
	if gatewayID == "" && event.ExternalReference != "" {
		info, err := r.bestByReference(ctx, event.ExternalReference)
		if err != nil {
			return err
		}
		if info != nil {
			gatewayID = info.GatewayPaymentID
		}
	}
	if gatewayID == "" {
		r.logger.Info("webhook event carries no resolvable payment id",
			slog.String("type", event.Type),
			slog.String("external_reference", event.ExternalReference),
		)
		return nil
	}

	info, err := r.gateway.GetPayment(ctx, gatewayID)
	if err != nil {
		return fmt.Errorf("fetch payment %s: %w", gatewayID, err)
	}

	payment, err := r.locatePayment(ctx, info, event.ExternalReference)
	if err != nil {
		return err
	}
	if payment == nil {
		r.logger.Info("webhook for unknown reference acknowledged",
			slog.String("gateway_payment_id", info.GatewayPaymentID),
			slog.String("external_reference", info.ExternalReference),
		)
		return nil
	}

	_, err = r.merge(ctx, payment, info)
	return err
}

// ReconcileByExternalReference pulls the gateway state for the reference and
// applies the same merge rule as webhook ingestion, so the redirect-return
// path and the webhook path can never disagree.
func (r *Reconciler) ReconcileByExternalReference(ctx context.Context, ref string) (*model.Payment, error) {
	payment, err := r.payments.LatestByExternalReference(ctx, ref)
	if err != nil {
		return nil, err
	}

	info, err := r.bestByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if info == nil {
		// Payer may not have reached the gateway checkout yet.
		return payment, nil
	}

	if _, err := r.merge(ctx, payment, info); err != nil {
		return nil, err
	}
	return r.payments.GetByID(ctx, payment.ID)
}

// Refund refunds an approved payment, fully or partially, then merges the
// resulting terminal status through the regular rule.
func (r *Reconciler) Refund(ctx context.Context, paymentID int64, amount *float64) (*model.Payment, error) {
	payment, err := r.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentStatusApproved {
		return nil, fmt.Errorf("refund requires approved payment, have %s: %w", payment.Status, domainErrors.ErrInvalidTransition)
	}

	refund, err := r.gateway.Refund(ctx, payment.GatewayPaymentID, amount)
	if err != nil {
		return nil, err
	}

	info := model.PaymentInfo{
		GatewayPaymentID:  payment.GatewayPaymentID,
		ExternalReference: payment.ExternalReference,
		Status:            refund.Status,
		Amount:            payment.Amount,
		Currency:          payment.Currency,
	}
	if _, err := r.merge(ctx, payment, &info); err != nil {
		return nil, err
	}
	return r.payments.GetByID(ctx, payment.ID)
}

// OverrideOrderStatus applies an administrative transition through the same
// state machine reconciliation uses.
func (r *Reconciler) OverrideOrderStatus(ctx context.Context, orderID int64, target model.OrderStatus) (*model.Order, error) {
	event, err := model.OrderEventForStatus(target)
	if err != nil {
		return nil, err
	}

	order, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, err := model.ApplyOrderEvent(order.Status, event)
	if err != nil {
		return nil, err
	}
	if next == order.Status {
		return order, nil
	}

	ok, err := r.orders.UpdateStatusCAS(ctx, order.ID, order.Status, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainErrors.ErrConflict
	}
	order.Status = next
	return order, nil
}

// Order loads an order with its payment attempts.
func (r *Reconciler) Order(ctx context.Context, orderID int64) (*model.Order, []model.Payment, error) {
	order, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	payments, err := r.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, payments, nil
}

// UnsettledPayments lists non-terminal payments older than age for the sweeper.
func (r *Reconciler) UnsettledPayments(ctx context.Context, age time.Duration, limit int) ([]model.Payment, error) {
	return r.payments.ListUnsettled(ctx, age, limit)
}

// bestByReference picks the most advanced gateway report for the reference.
func (r *Reconciler) bestByReference(ctx context.Context, ref string) (*model.PaymentInfo, error) {
	infos, err := r.gateway.SearchByExternalReference(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("search by reference %s: %w", ref, err)
	}
	if len(infos) == 0 {
		return nil, nil
	}
	best := infos[0]
	for _, info := range infos[1:] {
		if info.Status.Rank() > best.Status.Rank() {
			best = info
		}
	}
	return &best, nil
}

// locatePayment resolves the local row by gateway payment id first, falling
// back to external reference. A nil result means no local row matched.
func (r *Reconciler) locatePayment(ctx context.Context, info *model.PaymentInfo, eventRef string) (*model.Payment, error) {
	payment, err := r.payments.GetByGatewayID(ctx, info.GatewayPaymentID)
	if err == nil {
		return payment, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	ref := info.ExternalReference
	if ref == "" {
		ref = eventRef
	}
	if ref == "" {
		return nil, nil
	}

	payment, err = r.payments.LatestByExternalReference(ctx, ref)
	if err == nil {
		return payment, nil
	}
	if isNotFound(err) {
		return nil, nil
	}
	return nil, err
}

func isNotFound(err error) bool {
	return errors.Is(err, domainErrors.ErrPaymentNotFound) || errors.Is(err, domainErrors.ErrUnknownReference)
}

// merge applies the fetched gateway state to the local payment row under the
// monotonic rank rule, then derives the order transition. Returns whether
// the payment status actually changed.
func (r *Reconciler) merge(ctx context.Context, payment *model.Payment, info *model.PaymentInfo) (bool, error) {
	if info.Amount != 0 && math.Abs(info.Amount-payment.Amount) > 0.009 {
		// Anomaly only: the stored amount is never overwritten by reports.
		r.logger.Warn("gateway amount differs from stored payment",
			slog.Int64("payment_id", payment.ID),
			slog.Float64("stored", payment.Amount),
			slog.Float64("reported", info.Amount),
		)
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		switch model.MergePayment(payment.Status, info.Status) {
		case model.MergeUnchanged:
			// Redelivery of unchanged data: backfill the gateway id if the
			// row was created before the gateway assigned one, no side
			// effects otherwise.
			if payment.GatewayPaymentID == "" && info.GatewayPaymentID != "" {
				if _, err := r.payments.UpdateStatusCAS(ctx, payment.ID, payment.Status, payment.Status, info.GatewayPaymentID); err != nil {
					return false, err
				}
				payment.GatewayPaymentID = info.GatewayPaymentID
			}
			return false, nil

		case model.MergeStale:
			r.logger.Info("stale gateway event discarded",
				slog.Int64("payment_id", payment.ID),
				slog.String("stored_status", string(payment.Status)),
				slog.String("reported_status", string(info.Status)),
			)
			return false, nil

		case model.MergeApply:
			ok, err := r.payments.UpdateStatusCAS(ctx, payment.ID, payment.Status, info.Status, info.GatewayPaymentID)
			if err != nil {
				return false, err
			}
			if !ok {
				// Lost against a concurrent webhook or poll; re-read and
				// re-decide against the fresh row.
				fresh, err := r.payments.GetByID(ctx, payment.ID)
				if err != nil {
					return false, err
				}
				payment = fresh
				continue
			}

			previous := payment.Status
			payment.Status = info.Status
			if info.GatewayPaymentID != "" {
				payment.GatewayPaymentID = info.GatewayPaymentID
			}

			if info.Status == model.PaymentStatusApproved {
				r.onApproved(ctx, payment)
			} else {
				r.logger.Info("payment status merged",
					slog.Int64("payment_id", payment.ID),
					slog.String("from", string(previous)),
					slog.String("to", string(info.Status)),
				)
			}
			return true, nil
		}
	}

	return false, fmt.Errorf("merge payment %d: %w", payment.ID, domainErrors.ErrConflict)
}

// onApproved transitions the order to Paid and emits the notification
// request. Guarded by the payment CAS: only the delivery that actually
// changed the status into approved reaches this point.
func (r *Reconciler) onApproved(ctx context.Context, payment *model.Payment) {
	order, err := r.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		r.logger.Error("approved payment references missing order",
			slog.Int64("payment_id", payment.ID),
			slog.Int64("order_id", payment.OrderID),
			slog.String("error", err.Error()),
		)
		return
	}

	next, err := model.ApplyOrderEvent(order.Status, model.EventPaymentApproved)
	if err != nil {
		r.logger.Warn("order cannot accept approved payment",
			slog.Int64("order_id", order.ID),
			slog.String("status", string(order.Status)),
		)
		return
	}
	if next == order.Status {
		return
	}

	ok, err := r.orders.UpdateStatusCAS(ctx, order.ID, order.Status, next)
	if err != nil {
		r.logger.Error("order status update failed",
			slog.Int64("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !ok {
		// A concurrent merge already moved the order; that writer owns the
		// notification.
		return
	}

	previous := order.Status
	order.Status = next
	r.notifier.Notify(ctx, order, previous, next)
}
