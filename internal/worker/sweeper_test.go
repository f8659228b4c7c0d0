package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"
	"github.com/tiendita/pagoflow/internal/domain/model"
	testhelpers "github.com/tiendita/pagoflow/internal/test"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewSweeperDefaults(t *testing.T) {
	sweeper := NewSweeper(&testhelpers.FacadeStub{}, time.Second, time.Minute, 0, 0, testLogger())
	if sweeper.batchSize != 1 {
		t.Fatalf("expected batch size default to 1, got %d", sweeper.batchSize)
	}
	if sweeper.workers != 1 {
		t.Fatalf("expected workers default to 1, got %d", sweeper.workers)
	}
}

func TestSweeperReconcilesUnsettledPayments(t *testing.T) {
	var served int32
	facade := &testhelpers.FacadeStub{UnsettledFn: func(context.Context, time.Duration, int) ([]model.Payment, error) {
		// Serve the batch once so assertions are deterministic.
		if atomic.CompareAndSwapInt32(&served, 0, 1) {
			return []model.Payment{
				{ID: 1, ExternalReference: "order-1-100"},
				{ID: 2, ExternalReference: "order-2-200"},
			}, nil
		}
		return nil, nil
	}}
	sweeper := NewSweeper(facade, 10*time.Millisecond, time.Minute, 2, 2, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.Start(ctx)

	deadline := time.After(2 * time.Second)
	for {
		if len(facade.ReconciledReferences()) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("sweeper did not reconcile in time, got %v", facade.ReconciledReferences())
		case <-time.After(10 * time.Millisecond):
		}
	}
	sweeper.Stop()

	refs := map[string]bool{}
	for _, ref := range facade.ReconciledReferences() {
		refs[ref] = true
	}
	if !refs["order-1-100"] || !refs["order-2-200"] {
		t.Fatalf("expected both references reconciled, got %v", refs)
	}
}

func TestSweeperSurvivesFacadeErrors(t *testing.T) {
	facade := &testhelpers.FacadeStub{
		UnsettledFn: func(context.Context, time.Duration, int) ([]model.Payment, error) {
			return []model.Payment{{ID: 1, ExternalReference: "order-1-100"}}, nil
		},
		ReconcileFn: func(context.Context, string) (*model.Payment, error) {
			return nil, domainErrors.ErrGatewayUnavailable
		},
	}
	sweeper := NewSweeper(facade, 10*time.Millisecond, time.Minute, 1, 1, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.Start(ctx)

	deadline := time.After(2 * time.Second)
	for len(facade.ReconciledReferences()) < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper stopped retrying after gateway errors")
		case <-time.After(10 * time.Millisecond):
		}
	}
	sweeper.Stop()
}

func TestSweeperStopWithoutStart(t *testing.T) {
	sweeper := NewSweeper(&testhelpers.FacadeStub{}, time.Second, time.Minute, 1, 1, testLogger())
	sweeper.Stop()
}

func TestSweeperListErrorsAreLoggedNotFatal(t *testing.T) {
	var calls int32
	facade := &testhelpers.FacadeStub{UnsettledFn: func(context.Context, time.Duration, int) ([]model.Payment, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("db hiccup")
	}}
	sweeper := NewSweeper(facade, 10*time.Millisecond, time.Minute, 1, 1, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.Start(ctx)

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("dispatch loop stopped after a list error")
		case <-time.After(10 * time.Millisecond):
		}
	}
	sweeper.Stop()
}
