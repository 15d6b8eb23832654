package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/examops/examsched-api/api/swagger"
	"github.com/examops/examsched-api/internal/handler"
	"github.com/examops/examsched-api/internal/middleware"
	"github.com/examops/examsched-api/internal/models"
	"github.com/examops/examsched-api/internal/repository"
	"github.com/examops/examsched-api/internal/service"
	"github.com/examops/examsched-api/pkg/cache"
	"github.com/examops/examsched-api/pkg/config"
	"github.com/examops/examsched-api/pkg/database"
	"github.com/examops/examsched-api/pkg/export"
	"github.com/examops/examsched-api/pkg/jobs"
	"github.com/examops/examsched-api/pkg/logger"
	corsmiddleware "github.com/examops/examsched-api/pkg/middleware/cors"
	reqidmiddleware "github.com/examops/examsched-api/pkg/middleware/requestid"
	"github.com/examops/examsched-api/pkg/storage"
)

// @title ExamSched API
// @version 0.1.0
// @description Exam and concours room scheduling backend
// @BasePath /
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	roomRepo := repository.NewRoomRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	eventRepo := repository.NewEventRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Metrics and cache.
	metricsSvc := service.NewMetricsService()
	cacheEnabled := cfg.Availability.CacheEnabled
	var cacheRepo service.CacheRepository
	if cacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, availability caching disabled")
			cacheEnabled = false
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Availability.CacheTTL, logr, cacheEnabled)

	// Document pipeline.
	store, err := storage.NewLocalStorage(cfg.Convocations.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init convocation storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Convocations.SignedURLSecret, cfg.Convocations.SignedURLTTL)

	convocationSvc := service.NewConvocationService(service.ConvocationServiceParams{
		Events:      eventRepo,
		Seats:       assignmentRepo,
		Renderer:    export.NewConvocationRenderer(cfg.Convocations.QREnabled),
		PDFExporter: export.NewPDFExporter(),
		CSVExporter: export.NewCSVExporter(),
		Store:       store,
		Signer:      signer,
		QueueConfig: jobs.QueueConfig{
			Workers:    cfg.Convocations.WorkerConcurrency,
			MaxRetries: cfg.Convocations.WorkerRetries,
			Logger:     logr,
		},
		Logger: logr,
	})
	convocationSvc.Start(ctx)
	defer convocationSvc.Stop()
	convocationSvc.StartCleanup(ctx, cfg.Convocations.CleanupInterval, cfg.Convocations.SignedURLTTL)

	// Core services.
	availabilitySvc := service.NewAvailabilityService(bookingRepo, cacheSvc, nil, logr)
	catalogSvc := service.NewCatalogService(roomRepo, bookingRepo, nil, logr)
	seatingSvc := service.NewSeatingService(logr)
	schedulingSvc := service.NewSchedulingService(service.SchedulingServiceParams{
		Events:       eventRepo,
		Rooms:        roomRepo,
		Participants: participantRepo,
		Bookings:     bookingRepo,
		Assignments:  assignmentRepo,
		Seating:      seatingSvc,
		Availability: availabilitySvc,
		Dispatcher:   convocationSvc,
		Tx:           db,
		Metrics:      metricsSvc,
		Logger:       logr,
	})
	eventSvc := service.NewEventService(eventRepo, schedulingSvc)
	participantSvc := service.NewParticipantService(participantRepo)
	importSvc := service.NewImportService(participantRepo, cfg.Import.MaxRows, logr)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, logr)

	// Handlers.
	roomHandler := handler.NewRoomHandler(catalogSvc, availabilitySvc)
	eventHandler := handler.NewEventHandler(eventSvc, schedulingSvc, convocationSvc)
	participantHandler := handler.NewParticipantHandler(participantSvc, importSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	convocationHandler := handler.NewConvocationHandler(convocationSvc)

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
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/downloads", convocationHandler.Download)

	auth := api.Group("/", middleware.JWT(authSvc))
	auth.GET("/auth/profile", authHandler.Profile)

	rooms := auth.Group("/rooms")
	{
		rooms.GET("", roomHandler.List)
		rooms.GET("/amphitheaters", roomHandler.ListAmphitheaters)
		rooms.GET("/occupied", roomHandler.Occupied)
		rooms.GET("/availability", roomHandler.Available)
		rooms.POST("/available", roomHandler.Excluding)
		rooms.GET("/department/:department", roomHandler.ListByDepartment)
		rooms.GET("/:id", roomHandler.Get)
		rooms.POST("", middleware.RequireRoles(models.RoleAdmin), roomHandler.Create)
		rooms.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), roomHandler.Update)
		rooms.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), roomHandler.Delete)
	}

	events := auth.Group("/events")
	{
		events.GET("", eventHandler.List)
		events.GET("/:id", eventHandler.Get)
		events.POST("", middleware.RequireRoles(models.RoleAdmin), eventHandler.Create)
		events.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), eventHandler.Update)
		events.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), eventHandler.Delete)

		events.POST("/:id/assignments", middleware.RequireRoles(models.RoleAdmin), eventHandler.CommitSchedule)
		events.DELETE("/:id/assignments", middleware.RequireRoles(models.RoleAdmin), eventHandler.CancelSchedule)
		events.GET("/:id/bookings", eventHandler.Bookings)
		events.GET("/:id/repartition", eventHandler.Repartition)
		events.GET("/:id/repartition/export", eventHandler.ExportRepartition)
		events.GET("/:id/convocations", eventHandler.Convocations)
		events.POST("/:id/convocations", middleware.RequireRoles(models.RoleAdmin), eventHandler.RegenerateConvocations)
	}

	participants := auth.Group("/participants")
	{
		participants.GET("", participantHandler.List)
		participants.GET("/:id", participantHandler.Get)
		participants.POST("", middleware.RequireRoles(models.RoleAdmin), participantHandler.Create)
		participants.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), participantHandler.Delete)
		participants.POST("/import", middleware.RequireRoles(models.RoleAdmin), participantHandler.Import)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
