package repository

import (
	"context"

	"github.com/tiendita/pagoflow/internal/domain/model"
)

// OrderRepository persists order rows and their item snapshots.
type OrderRepository interface {
	// Create inserts the order together with its immutable item snapshot.
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	// UpdateStatusCAS moves the order from expected to next. Returns false
	// without error when the stored status no longer matches expected.
	UpdateStatusCAS(ctx context.Context, id int64, expected, next model.OrderStatus) (bool, error)
}
