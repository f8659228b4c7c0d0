package di

import (
	"go.uber.org/fx"

	"github.com/tiendita/pagoflow/internal/adapter/gateway"
	"github.com/tiendita/pagoflow/internal/adapter/notify"
	"github.com/tiendita/pagoflow/internal/app"
	"github.com/tiendita/pagoflow/internal/config"
	"github.com/tiendita/pagoflow/internal/logger"
	"github.com/tiendita/pagoflow/internal/pkg/signature"
	"github.com/tiendita/pagoflow/internal/server/http/handlers"
	"github.com/tiendita/pagoflow/internal/server/http/router"
	"github.com/tiendita/pagoflow/internal/storage/postgres"
	"github.com/tiendita/pagoflow/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		signature.Module,
		postgres.Module,
		gateway.Module,
		notify.Module,
		usecase.Module,
		fx.Provide(
			func(client gateway.Client) usecase.Gateway { return client },
			func(dispatcher notify.Dispatcher) usecase.Notifier { return dispatcher },
			func(s *postgres.Storage) app.HealthChecker { return s },
			func(f *app.ReconciliationFacade) handlers.ReconciliationFacade { return f },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
