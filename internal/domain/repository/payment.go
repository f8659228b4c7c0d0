package repository

import (
	"context"
	"time"

	"github.com/tiendita/pagoflow/internal/domain/model"
)

// PaymentRepository persists payment attempts, indexed by internal id,
// external reference, and gateway payment id.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) (*model.Payment, error)
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	GetByGatewayID(ctx context.Context, gatewayPaymentID string) (*model.Payment, error)
	// LatestByExternalReference resolves the most-recently-created payment
	// for the reference, so retried orders settle on the newest attempt.
	LatestByExternalReference(ctx context.Context, ref string) (*model.Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]model.Payment, error)
	// ListUnsettled returns non-terminal payments older than age, for the
	// reconciliation sweeper.
	ListUnsettled(ctx context.Context, age time.Duration, limit int) ([]model.Payment, error)
	// UpdateStatusCAS moves the payment from expected to next, backfilling
	// gatewayPaymentID when non-empty. Returns false without error when the
	// stored status no longer matches expected.
	UpdateStatusCAS(ctx context.Context, id int64, expected, next model.PaymentStatus, gatewayPaymentID string) (bool, error)
}
