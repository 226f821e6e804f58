package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/talimhub/edu-admin-api/api/swagger"
	"github.com/talimhub/edu-admin-api/internal/handler"
	"github.com/talimhub/edu-admin-api/internal/middleware"
	"github.com/talimhub/edu-admin-api/internal/models"
	"github.com/talimhub/edu-admin-api/internal/repository"
	"github.com/talimhub/edu-admin-api/internal/service"
	"github.com/talimhub/edu-admin-api/pkg/cache"
	"github.com/talimhub/edu-admin-api/pkg/config"
	"github.com/talimhub/edu-admin-api/pkg/database"
	"github.com/talimhub/edu-admin-api/pkg/jobs"
	"github.com/talimhub/edu-admin-api/pkg/logger"
	corsmiddleware "github.com/talimhub/edu-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/talimhub/edu-admin-api/pkg/middleware/requestid"
)

// @title Edu Admin API
// @version 0.1.0
// @description Teacher availability management core for the platform admin console
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Conflict results are recomputed on every miss, so the API stays up
		// without Redis.
		logr.Sugar().Warnw("redis unavailable, conflict cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	availabilityRepo := repository.NewAvailabilityRepository(db)
	requestRepo := repository.NewChangeRequestRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	metrics := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT)

	auditSvc := service.NewAuditService(auditRepo, logr)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	conflictOpts := []service.ConflictServiceOption{service.WithConflictMetrics(metrics)}
	if redisClient != nil {
		conflictOpts = append(conflictOpts,
			service.WithConflictCache(service.NewRedisConflictCache(redisClient, cfg.Availability.ConflictCacheTTL, logr)))
	}
	conflictSvc := service.NewConflictService(availabilityRepo, logr, conflictOpts...)

	refreshQueue := jobs.NewQueue("conflict-refresh", conflictSvc.RefreshHandler(), jobs.QueueConfig{
		Workers:    cfg.Availability.RefreshWorkers,
		BufferSize: cfg.Availability.RefreshBuffer,
		Logger:     logr,
	})
	refreshQueue.Start(ctx)
	defer refreshQueue.Stop()
	conflictSvc.AttachRefreshQueue(refreshQueue)

	availabilitySvc := service.NewAvailabilityService(availabilityRepo, teacherRepo, conflictSvc, logr)
	bulkSvc := service.NewBulkService(availabilityRepo, conflictSvc, auditSvc, cfg.Availability.BulkWorkers, logr).
		WithBulkMetrics(metrics)
	approvalSvc := service.NewApprovalService(availabilitySvc, requestRepo, conflictSvc, auditSvc, logr).
		WithApprovalMetrics(metrics)
	exportSvc := service.NewExportService(availabilitySvc, teacherRepo, logr)

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc, approvalSvc, bulkSvc, conflictSvc, exportSvc)
	requestHandler := handler.NewChangeRequestHandler(approvalSvc)

	checks := map[string]handler.ReadinessCheck{"postgres": db.Ping}
	if redisClient != nil {
		checks["redis"] = func() error { return redisClient.Ping(context.Background()).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	adminOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	availability := api.Group("/availability")
	{
		availability.GET("", availabilityHandler.List)
		availability.POST("", availabilityHandler.Create)
		availability.GET("/conflicts", adminOnly, availabilityHandler.Conflicts)
		availability.POST("/bulk/active", adminOnly, availabilityHandler.BulkSetActive)
		availability.POST("/bulk/delete", adminOnly, availabilityHandler.BulkDelete)
		if cfg.Exports.Enabled {
			availability.GET("/export/:teacherId",
				middleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), middleware.SelfRole),
				availabilityHandler.Export)
		}

		availability.GET("/requests", requestHandler.List)
		availability.GET("/requests/:id", requestHandler.Get)
		availability.POST("/requests/:id/approve", adminOnly, requestHandler.Approve)
		availability.POST("/requests/:id/reject", adminOnly, requestHandler.Reject)

		availability.GET("/:id", availabilityHandler.Get)
		availability.PUT("/:id", availabilityHandler.Update)
		availability.DELETE("/:id", availabilityHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
