package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campusforms/registry-api/api/swagger"
	"github.com/campusforms/registry-api/internal/handler"
	"github.com/campusforms/registry-api/internal/middleware"
	"github.com/campusforms/registry-api/internal/models"
	"github.com/campusforms/registry-api/internal/repository"
	"github.com/campusforms/registry-api/internal/service"
	"github.com/campusforms/registry-api/pkg/cache"
	"github.com/campusforms/registry-api/pkg/config"
	"github.com/campusforms/registry-api/pkg/database"
	"github.com/campusforms/registry-api/pkg/logger"
	corsmiddleware "github.com/campusforms/registry-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusforms/registry-api/pkg/middleware/requestid"
	"github.com/campusforms/registry-api/pkg/storage"
)

// @title Student Registry API
// @version 1.0.0
// @description Registration form and admin dashboard API with dual data backends
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	stateFile, err := storage.NewStateFile(cfg.Selector.StateFile)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare selector state file", "error", err)
	}

	docstore := repository.NewDocstoreRepository(db)
	restStore := repository.NewRestRepository(cfg.Legacy.BaseURL, cfg.Legacy.ProbeTimeout, logr)
	stateRepo := repository.NewStateRepository(redisClient, stateFile, logr)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	selector := service.NewSelectorService(stateRepo, restStore, logr)

	registry := service.NewRegistryService(selector, validate, logr, docstore, restStore)
	stats := service.NewStatsService(registry, selector, cacheRepo, cfg.Stats.CacheTTL, logr)

	selector.Subscribe(func(kind models.BackendKind) {
		metricsSvc.ObserveSwitch(kind)
		stats.Invalidate(context.Background(), kind)
	})
	auth := service.NewAuthService(cfg.Admin, cfg.Session, selector, restStore, validate, logr)
	exports := service.NewExportService(registry, logr)

	if err := selector.Resolve(context.Background()); err != nil {
		logr.Warn("failed to restore backend preference, using firestore", zap.Error(err))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	studentHandler := handler.NewStudentHandler(registry, stats)
	statsHandler := handler.NewStatsHandler(stats, metricsSvc)
	backendHandler := handler.NewBackendHandler(selector, restStore, metricsSvc)
	authHandler := handler.NewAuthHandler(auth)
	exportHandler := handler.NewExportHandler(exports)

	api := r.Group(cfg.APIPrefix)
	{
		// The registration form itself is public.
		api.POST("/students", studentHandler.Create)
		api.POST("/admin/login", authHandler.Login)
		api.GET("/backend", backendHandler.Status)

		// Everything else belongs to the dashboard session.
		session := api.Group("", middleware.Session(auth))
		{
			session.GET("/students", studentHandler.List)
			session.GET("/students/stats", statsHandler.Get)
			session.GET("/students/export", exportHandler.Download)
			session.GET("/students/:id", studentHandler.Get)
			session.PUT("/students/:id", studentHandler.Update)
			session.DELETE("/students/:id", studentHandler.Delete)
			session.POST("/students/bulk-delete", studentHandler.BulkDelete)
			session.POST("/backend/switch", backendHandler.Switch)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "backend", selector.Active())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
