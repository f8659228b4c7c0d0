package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
)

// ReconciliationFacade exposes the subset of application functionality required by the sweeper.
type ReconciliationFacade interface {
	UnsettledPayments(ctx context.Context, age time.Duration, limit int) ([]model.Payment, error)
	ReconcileByReference(ctx context.Context, ref string) (*model.Payment, error)
}

// Sweeper periodically re-checks payments stuck in non-terminal states, the
// safety net for webhook deliveries that never arrived.
type Sweeper struct {
	facade    ReconciliationFacade
	interval  time.Duration
	age       time.Duration
	batchSize int
	workers   int
	logger    *slog.Logger

	jobs   chan model.Payment
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewSweeper constructs the reconciliation worker pool.
func NewSweeper(facade ReconciliationFacade, interval, age time.Duration, batchSize, workers int, logger *slog.Logger) *Sweeper {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Sweeper{
		facade:    facade,
		interval:  interval,
		age:       age,
		batchSize: batchSize,
		workers:   workers,
		logger:    logger,
		jobs:      make(chan model.Payment, batchSize*workers),
	}
}

// Start launches background processing.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(runCtx)
	}

	s.wg.Add(1)
	go s.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Sweeper) dispatch(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.jobs)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchAndDispatch(ctx)
		}
	}
}

func (s *Sweeper) fetchAndDispatch(ctx context.Context) {
	payments, err := s.facade.UnsettledPayments(ctx, s.age, s.batchSize)
	if err != nil {
		s.logger.Error("fetch unsettled payments failed", slog.String("error", err.Error()))
		return
	}
	for _, payment := range payments {
		select {
		case <-ctx.Done():
			return
		case s.jobs <- payment:
		}
	}
}

func (s *Sweeper) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payment, ok := <-s.jobs:
			if !ok {
				return
			}
			s.handlePayment(ctx, payment)
		}
	}
}

func (s *Sweeper) handlePayment(ctx context.Context, payment model.Payment) {
	if _, err := s.facade.ReconcileByReference(ctx, payment.ExternalReference); err != nil {
		if errors.Is(err, domainErrors.ErrGatewayUnavailable) {
			// The whole batch will hit the same outage; let the next tick retry.
			s.logger.Warn("gateway unavailable during sweep",
				slog.String("external_reference", payment.ExternalReference),
			)
			return
		}
		s.logger.Error("sweep reconciliation failed",
			slog.Int64("payment_id", payment.ID),
			slog.String("external_reference", payment.ExternalReference),
			slog.String("error", err.Error()),
		)
	}
}
