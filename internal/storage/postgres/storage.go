package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
	"github.com/tiendita/pagoflow/internal/domain/repository"
)

// pgxPool is the pool surface the storage uses; pgxmock satisfies it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// newPgxPool is swapped in tests to inject a mock pool.
var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type paymentRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Payments() repository.PaymentRepository {
	return &paymentRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            customer TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            locality TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            product_id BIGINT NOT NULL DEFAULT 0,
            name TEXT NOT NULL,
            unit_price DOUBLE PRECISION NOT NULL,
            quantity INT NOT NULL,
            label TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            external_reference TEXT NOT NULL,
            preference_id TEXT NOT NULL DEFAULT '',
            gateway_payment_id TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            amount DOUBLE PRECISION NOT NULL,
            currency TEXT NOT NULL DEFAULT 'ARS',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_reference ON payments(external_reference, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_gateway ON payments(gateway_payment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status, updated_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	result := *order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insertOrder = `INSERT INTO orders (customer, email, phone, locality, status)
                             VALUES ($1, $2, $3, $4, $5)
                             RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, insertOrder,
			order.Customer, order.Email, order.Phone, order.Locality, order.Status,
		).Scan(&result.ID, &result.CreatedAt, &result.UpdatedAt)
		if err != nil {
			return err
		}

		const insertItem = `INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, label)
                            VALUES ($1, $2, $3, $4, $5, $6)`
		for _, item := range order.Items {
			if _, err := tx.Exec(ctx, insertItem,
				result.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.Label,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	const query = `SELECT id, customer, email, phone, locality, status, created_at, updated_at
                   FROM orders WHERE id=$1`
	var order model.Order
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(
		&order.ID, &order.Customer, &order.Email, &order.Phone, &order.Locality,
		&order.Status, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}

	const itemsQuery = `SELECT product_id, name, unit_price, quantity, label
                        FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity, &item.Label); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusCAS moves the order to next only when it still carries the
// expected status. Zero affected rows means a concurrent writer won.
func (r *orderRepository) UpdateStatusCAS(ctx context.Context, id int64, expected, next model.OrderStatus) (bool, error) {
	const query = `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	tag, err := r.storage.pool.Exec(ctx, query, next, id, expected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// --- PaymentRepository implementation ---

const paymentColumns = `id, order_id, external_reference, preference_id, gateway_payment_id,
                        status, amount, currency, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.ExternalReference, &p.PreferenceID, &p.GatewayPaymentID,
		&p.Status, &p.Amount, &p.Currency, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPayments(rows pgx.Rows) ([]model.Payment, error) {
	defer rows.Close()
	var result []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	const query = `INSERT INTO payments (order_id, external_reference, preference_id, gateway_payment_id, status, amount, currency)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)
                   RETURNING id, created_at, updated_at`
	result := *payment
	err := r.storage.pool.QueryRow(ctx, query,
		payment.OrderID, payment.ExternalReference, payment.PreferenceID,
		payment.GatewayPaymentID, payment.Status, payment.Amount, payment.Currency,
	).Scan(&result.ID, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	payment, err := scanPayment(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) GetByGatewayID(ctx context.Context, gatewayID string) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_payment_id=$1 AND gateway_payment_id <> ''`
	payment, err := scanPayment(r.storage.pool.QueryRow(ctx, query, gatewayID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) LatestByExternalReference(ctx context.Context, ref string) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE external_reference=$1
              ORDER BY created_at DESC, id DESC LIMIT 1`
	payment, err := scanPayment(r.storage.pool.QueryRow(ctx, query, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrUnknownReference
		}
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

// ListUnsettled returns non-terminal payments whose last update is older than
// age, oldest first, so the sweeper re-checks the most neglected rows.
func (r *paymentRepository) ListUnsettled(ctx context.Context, age time.Duration, limit int) ([]model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
              WHERE status IN ('pending', 'in_process', 'authorized', 'in_mediation')
                AND updated_at < $1
              ORDER BY updated_at
              LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, time.Now().Add(-age), limit)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

// UpdateStatusCAS swaps the payment status only when the row still carries
// the expected one, backfilling the gateway id when it is known.
func (r *paymentRepository) UpdateStatusCAS(ctx context.Context, id int64, expected, next model.PaymentStatus, gatewayID string) (bool, error) {
	const query = `UPDATE payments
                   SET status=$1,
                       gateway_payment_id = CASE WHEN $2 <> '' THEN $2 ELSE gateway_payment_id END,
                       updated_at=NOW()
                   WHERE id=$3 AND status=$4`
	tag, err := r.storage.pool.Exec(ctx, query, next, gatewayID, id, expected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
