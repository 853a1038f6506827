package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/api/swagger"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/handler"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/middleware"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/repository"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/service"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/cache"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/config"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/database"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/jobs"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/logger"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/mailer"
	corsmiddleware "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/middleware/requestid"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/storage"
)

// @title TACT Freight Operations Portal API
// @version 1.0.0
// @description RFQ workflow, quotation engine and shipment tracking for the freight forwarding portal
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The portal runs without Redis; rosters then hit the database.
		logr.Warn("redis unavailable, directory cache disabled", zap.Error(err))
		redisClient = nil
	}

	quotationStore, err := storage.NewLocalStorage(cfg.Quotations.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare quotation storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Quotations.SignedURLSecret, cfg.Quotations.SignedURLTTL)

	// Repositories.
	rfqRepo := repository.NewRFQRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	directory := repository.NewCachedDirectory(userRepo, cacheRepo, cfg.Directory.CacheTTL, metricsSvc, logr)

	var mailSender service.EmailSender
	if cfg.SMTP.Host != "" {
		mailSender = mailer.NewSMTPSender(cfg.SMTP)
	} else {
		logr.Warn("smtp not configured, email channel disabled")
	}

	dispatcher := service.NewNotificationDispatcher(notificationRepo, directory, mailSender, logr)
	queue := jobs.NewQueue("notifications", dispatcher.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		BufferSize: cfg.Notifications.QueueBuffer,
		MaxRetries: cfg.Notifications.WorkerRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	events := service.NewQueueEventSink(queue)

	exportSvc := service.NewExportService(quotationStore, signer, logr)
	shipmentSvc := service.NewShipmentService(shipmentRepo, userRepo, events, logr)
	workflowSvc := service.NewRFQWorkflowService(
		rfqRepo,
		service.NewCargoService(),
		service.NewQuotationService(cfg.Quotations.DefaultValidityDays),
		service.NewAssignmentService(directory, logr),
		userRepo,
		events,
		logr,
		service.WithQuotationRenderer(exportSvc),
		service.WithShipmentCreator(shipmentSvc),
		service.WithTransitionObserver(metricsSvc),
	)
	authSvc := service.NewAuthService(userRepo, userRepo, cfg.JWT, logr)
	userSvc := service.NewUserService(userRepo, userRepo, logr)
	inboxSvc := service.NewNotificationService(notificationRepo, logr)

	// Handlers.
	rfqHandler := handler.NewRFQHandler(workflowSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	notificationHandler := handler.NewNotificationHandler(inboxSvc)
	shipmentHandler := handler.NewShipmentHandler(shipmentSvc)
	downloadHandler := handler.NewQuotationDownloadHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	auth := middleware.JWT(authSvc)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", auth, authHandler.Logout)

	// Token-authenticated download, no session required.
	api.GET("/quotations/download", downloadHandler.Download)

	staff := []models.UserRole{models.RoleAdmin, models.RoleSales, models.RolePricing, models.RoleOperations}

	rfqs := api.Group("/rfqs", auth)
	{
		rfqs.POST("", rfqHandler.Create)
		rfqs.GET("", rfqHandler.List)
		rfqs.POST("/cargo-preview", rfqHandler.PreviewCargo)
		rfqs.GET("/:id", rfqHandler.Get)
		rfqs.PUT("/:id/cargo", rfqHandler.UpdateCargo)
		rfqs.POST("/:id/assign-sales", middleware.RequireRoles(models.RoleAdmin, models.RoleSales), rfqHandler.AssignSales)
		rfqs.POST("/:id/assign-pricing", middleware.RequireRoles(models.RoleAdmin, models.RoleSales), rfqHandler.AssignPricing)
		rfqs.POST("/:id/send-to-pricing", middleware.RequireRoles(models.RoleAdmin, models.RoleSales), rfqHandler.SendToPricing)
		rfqs.POST("/:id/quotation", middleware.RequireRoles(models.RoleAdmin, models.RolePricing), rfqHandler.SubmitQuotation)
		rfqs.POST("/:id/send-to-client", middleware.RequireRoles(models.RoleAdmin, models.RoleSales), rfqHandler.SendToClient)
		rfqs.POST("/:id/decision", rfqHandler.Decide)
		rfqs.POST("/:id/outcome", middleware.RequireRoles(models.RoleAdmin, models.RoleSales), rfqHandler.MarkOutcome)
		rfqs.POST("/:id/cancel", middleware.RequireRoles(models.RoleAdmin, models.RoleSales), rfqHandler.Cancel)
	}

	shipments := api.Group("/shipments", auth)
	{
		shipments.GET("", shipmentHandler.List)
		shipments.GET("/:id", shipmentHandler.Get)
		shipments.PUT("/:id/status", middleware.RequireRoles(models.RoleAdmin, models.RoleOperations), shipmentHandler.UpdateStatus)
	}

	notifications := api.Group("/notifications", auth)
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
	}

	users := api.Group("/users", auth)
	{
		users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
		users.GET("", middleware.RequireRoles(staff...), userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	go func() {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exportSvc.CleanupExpired(cfg.Quotations.SignedURLTTL)
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
