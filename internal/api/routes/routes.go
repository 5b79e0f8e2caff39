package routes

import (
	"time"

	"alo17-service/internal/api/handlers"
	"alo17-service/internal/api/middleware"
	"alo17-service/internal/config"
	"alo17-service/internal/payment"
	"alo17-service/internal/relay"
	"alo17-service/internal/repositories/postgres"
	"alo17-service/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Router struct {
	engine         *gin.Engine
	wsHandler      *handlers.WSHandler
	messageHandler *handlers.MessageHandler
	paymentHandler *payment.Handler
	rateLimitMW    *middleware.RateLimitMiddleware
	authMW         *middleware.AuthMiddleware
}

func NewRouter(
	hub *relay.Hub,
	presence *services.PresenceService,
	db *gorm.DB,
	cfg *config.Config,
	events *services.KafkaEventPublisher,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	// Initialize repositories
	paymentRepo := postgres.NewPaymentRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	// Initialize services
	signer := payment.NewSigner(cfg.PayTR.MerchantKey, cfg.PayTR.MerchantSalt)
	var paymentEvents payment.EventPublisher
	if events != nil {
		paymentEvents = events
	}
	paymentService := payment.NewService(signer, paymentRepo, paymentEvents)

	// Initialize handlers and middleware
	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	return &Router{
		engine:         engine,
		wsHandler:      handlers.NewWSHandler(hub, authMW.WebSocketHandshake()),
		messageHandler: handlers.NewMessageHandler(messageRepo),
		paymentHandler: payment.NewHandler(paymentService),
		rateLimitMW:    middleware.NewRateLimitMiddleware(presence),
		authMW:         authMW,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint; the relay runs its own handshake auth
	api.GET("/ws", r.wsHandler.HandleWebSocket)

	// Provider webhook must stay reachable without auth; the digest is the
	// authentication. IP rate limit guards against noise.
	api.POST("/payments/paytr/webhook",
		r.rateLimitMW.RateLimitIP(60, time.Minute),
		r.paymentHandler.HandleWebhook,
	)

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		rooms := auth.Group("/rooms")
		rooms.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			rooms.GET("/:roomId/messages", r.messageHandler.GetRoomMessages)
		}

		payments := auth.Group("/payments")
		payments.Use(r.rateLimitMW.RateLimit(60, time.Minute))
		{
			payments.GET("/:merchant_oid", r.paymentHandler.GetPayment)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
