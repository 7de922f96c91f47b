package server

import (
	"context"
	"net/http"

	"github.com/vibex365/luna-heart-guide-sub005/internal/auth"
	"github.com/vibex365/luna-heart-guide-sub005/internal/billing"
	"github.com/vibex365/luna-heart-guide-sub005/internal/catalog"
	"github.com/vibex365/luna-heart-guide-sub005/internal/config"
	"github.com/vibex365/luna-heart-guide-sub005/internal/notify"
	"github.com/vibex365/luna-heart-guide-sub005/internal/pairing"
	"github.com/vibex365/luna-heart-guide-sub005/internal/payments"
	"github.com/vibex365/luna-heart-guide-sub005/internal/session"
	"github.com/vibex365/luna-heart-guide-sub005/internal/user"
	"github.com/vibex365/luna-heart-guide-sub005/internal/voice"
	"github.com/vibex365/luna-heart-guide-sub005/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
	notify *notify.Service
	http   *http.Server
}

func New(db *sqlx.DB, cfg *config.Config, notifyService *notify.Service) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(MetricsMiddleware())

	walletRepo := wallet.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	pairRepo := pairing.NewRepository(db)
	userRepo := user.NewRepository(db)

	reconciler := billing.NewReconciler(sessionRepo, walletRepo)
	voiceClient := voice.NewClient(cfg.VoiceAPIKey, cfg.VoiceBaseURL, cfg.VoiceModel, cfg.VoiceName)
	sessionService := session.NewService(sessionRepo, walletRepo, userRepo, pairRepo, reconciler, voiceClient, notifyService)
	checkout := payments.NewStripeCheckout(cfg.StripeSecretKey, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	paymentService := payments.NewService(catalogRepo, walletRepo, userRepo, checkout, notifyService)

	userHandler := user.NewHandler(db, cfg.JWTSecret)
	walletHandler := wallet.NewHandler(db)
	catalogHandler := catalog.NewHandler(db)
	pairHandler := pairing.NewHandler(db)
	sessionHandler := session.NewHandler(sessionService)
	paymentHandler := payments.NewHandler(paymentService, cfg.StripeWebhookSecret)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
	}

	// Stripe signs the raw body; this route stays outside auth.
	router.POST("/webhooks/stripe", paymentHandler.StripeWebhook)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/wallet", walletHandler.GetBalance)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)
		protected.GET("/packages", catalogHandler.ListPackages)
		protected.POST("/packages/:packageID/checkout", paymentHandler.InitiateCheckout)
		protected.POST("/pair-links", pairHandler.CreateLink)
		protected.POST("/pair-links/accept", pairHandler.AcceptLink)
		protected.GET("/pair-links", pairHandler.ListMine)
		protected.POST("/sessions", sessionHandler.Start)
		protected.GET("/sessions", sessionHandler.History)
		protected.POST("/sessions/:sessionID/end", sessionHandler.End)
		protected.POST("/sessions/:sessionID/token", sessionHandler.IssueToken)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/packages", catalogHandler.CreatePackage)
		admin.POST("/packages/:packageID/deactivate", catalogHandler.DeactivatePackage)
		admin.GET("/notifications/queue", NotificationQueue(notifyService))
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		notify: notifyService,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
