package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/tiendita/pagoflow/internal/pkg/signature"
	"github.com/tiendita/pagoflow/internal/server/http/handlers"
	"github.com/tiendita/pagoflow/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.ReconciliationFacade, verifier *signature.Verifier, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	checkoutHandler := handlers.NewCheckoutHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)
	paymentHandler := handlers.NewPaymentHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade)
	healthHandler := handlers.NewHealthHandler(facade)

	api := engine.Group("/api")
	api.POST("/checkout", checkoutHandler.Checkout)
	api.GET("/checkout/return", checkoutHandler.Return)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/payments", orderHandler.InitiatePayment)
	api.PATCH("/orders/:id/status", orderHandler.OverrideStatus)
	api.POST("/payments/:id/refund", paymentHandler.Refund)
	api.GET("/health", healthHandler.Check)

	webhooks := api.Group("/webhooks")
	webhooks.Use(middleware.VerifySignature(verifier))
	webhooks.POST("/gateway", webhookHandler.Receive)

	return engine
}
