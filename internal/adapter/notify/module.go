package notify

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/tiendita/pagoflow/internal/config"
)

// Module exposes the notification dispatcher to the fx graph.
var Module = fx.Provide(newDispatcher)

type dispatcherParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newDispatcher(p dispatcherParams) Dispatcher {
	return NewHTTPDispatcher(p.Config.NotificationURL, p.Logger)
}
