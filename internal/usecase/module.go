package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/tiendita/pagoflow/internal/config"
	"github.com/tiendita/pagoflow/internal/domain/repository"
)

// Module provides the reconciliation engine to the fx container.
var Module = fx.Provide(newReconciler)

type reconcilerParams struct {
	fx.In

	Orders   repository.OrderRepository
	Payments repository.PaymentRepository
	Gateway  Gateway
	Notifier Notifier
	Config   *config.Config
	Logger   *slog.Logger
}

func newReconciler(p reconcilerParams) *Reconciler {
	return NewReconciler(p.Orders, p.Payments, p.Gateway, p.Notifier, p.Config.PublicBaseURL, p.Logger)
}
