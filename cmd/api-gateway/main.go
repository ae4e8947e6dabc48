package main

import (
	"context"
	"errors"
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

	_ "github.com/noah-isme/sma-results-api/api/swagger"
	"github.com/noah-isme/sma-results-api/internal/handler"
	"github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/repository"
	"github.com/noah-isme/sma-results-api/internal/results"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	"github.com/noah-isme/sma-results-api/pkg/config"
	"github.com/noah-isme/sma-results-api/pkg/database"
	"github.com/noah-isme/sma-results-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-results-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-results-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-results-api/pkg/storage"
)

// @title School Results API
// @version 1.0.0
// @description Score entry, class ranking, statistics and broadsheet exports
// @BasePath /
// @schemes http

const exportSweepInterval = time.Hour

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

	rankPolicy, err := results.ParseRankPolicy(cfg.Results.RankPolicy)
	if err != nil {
		logr.Fatal("invalid RESULTS_RANK_POLICY", zap.String("value", cfg.Results.RankPolicy), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Fatal("failed to prepare result schema", zap.Error(err))
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Results.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, report caching disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Results.CacheTTL, logr, cacheRepo != nil)

	resultSvc := service.NewResultService(repository.NewResultRepository(db), cacheSvc, metrics, logr, service.ResultServiceConfig{
		RankPolicy: rankPolicy,
		CacheTTL:   cfg.Results.CacheTTL,
	})

	exportStore, err := storage.NewLocalStorage(cfg.Reports.ExportDir)
	if err != nil {
		logr.Fatal("failed to prepare export directory", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SigningSecret, cfg.Reports.ArchiveTTL)
	exportSvc := service.NewExportService(exportStore, signer, service.ExportConfig{
		APIPrefix:  cfg.APIPrefix,
		SchoolName: cfg.Reports.SchoolName,
		ArchiveTTL: cfg.Reports.ArchiveTTL,
	}, logr)
	go sweepExports(ctx, exportSvc, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	routes := handler.RouteOptions{
		APIPrefix: cfg.APIPrefix,
		Results:   handler.NewResultHandler(resultSvc, exportSvc),
		Metrics:   handler.NewMetricsHandler(metrics, db),
	}
	if cfg.JWT.Enabled {
		routes.Tokens = service.NewTokenService(cfg.JWT.Secret)
	}
	handler.RegisterRoutes(r, routes)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("rank_policy", string(rankPolicy)),
			zap.Bool("cache", cacheSvc.Enabled()),
			zap.Bool("auth", cfg.JWT.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func sweepExports(ctx context.Context, exports *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(exportSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := exports.Cleanup(); err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}
