package signature

import (
	"go.uber.org/fx"

	"github.com/tiendita/pagoflow/internal/config"
)

// Module provides the webhook signature verifier.
var Module = fx.Provide(func(cfg *config.Config) *Verifier {
	return NewVerifier(cfg.WebhookSecret, Options{})
})
