package handler

import (
	"github.com/PayStell/paystell-webhooks/internal/adapter/http/middleware"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SubscriptionSvc ports.SubscriptionService
	GatewaySvc      ports.GatewayService
	TokenSvc        ports.TokenService
	HealthCheckers  []ports.HealthChecker
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// --- Inbound anchor notifications (HMAC-verified, no JWT) ---
	inboundHandler := NewInboundHandler(deps.GatewaySvc)
	r.POST("/webhooks/stellar/:merchantId", inboundHandler.Receive)

	// --- Merchant management (JWT-authenticated) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	webhookHandler := NewWebhookHandler(deps.SubscriptionSvc, deps.GatewaySvc)

	merchants := r.Group("/merchants", jwtAuth)
	{
		merchants.POST("/webhooks/register", webhookHandler.Register)
		merchants.PUT("/webhooks/register/:id", webhookHandler.Update)
		merchants.GET("/webhooks", webhookHandler.Get)
		merchants.DELETE("/webhooks", webhookHandler.Delete)
		merchants.POST("/webhook/test", webhookHandler.Test)
	}

	return r
}
