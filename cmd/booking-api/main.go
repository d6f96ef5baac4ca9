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
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lesson-booking-api/api/swagger"
	"github.com/noah-isme/lesson-booking-api/internal/availability"
	"github.com/noah-isme/lesson-booking-api/internal/handler"
	"github.com/noah-isme/lesson-booking-api/internal/repository"
	"github.com/noah-isme/lesson-booking-api/internal/service"
	"github.com/noah-isme/lesson-booking-api/pkg/cache"
	"github.com/noah-isme/lesson-booking-api/pkg/config"
	"github.com/noah-isme/lesson-booking-api/pkg/database"
	"github.com/noah-isme/lesson-booking-api/pkg/jobs"
	"github.com/noah-isme/lesson-booking-api/pkg/logger"
)

// @title Lesson Booking API
// @version 1.0.0
// @description Teacher availability and lesson booking
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
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	policies := availability.DefaultPolicies(cfg.Availability.LeadTime)
	if cfg.Availability.PolicyFile != "" {
		if policies, err = availability.LoadPolicyFile(cfg.Availability.PolicyFile, cfg.Availability.LeadTime); err != nil {
			logr.Fatal("failed to load availability policies", zap.String("path", cfg.Availability.PolicyFile), zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, using in-memory cache", zap.Error(err))
		cacheRepo = repository.NewMemoryCacheRepository(cache.NewMemory(cfg.Availability))
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Availability.CacheTTL, logr, cfg.Availability.CacheEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := jobs.NewQueue("cache-invalidation", service.CacheInvalidationHandler(cacheSvc), jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	slotRepo := repository.NewAvailableSlotRepository(db)
	bookedRepo := repository.NewBookedClassRepository(db)
	vacationRepo := repository.NewVacationRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	opts := service.AvailabilityOptions{
		Policies:  policies,
		MaxWindow: cfg.Availability.MaxWindow,
		CacheTTL:  cfg.Availability.CacheTTL,
	}
	availabilitySvc := service.NewAvailabilityService(slotRepo, bookedRepo, vacationRepo, studentRepo, cacheSvc, metrics, opts, validate, logr)
	bookingSvc := service.NewBookingService(db, slotRepo, bookedRepo, vacationRepo, studentRepo, bookedRepo, studentRepo, queue, metrics, opts, validate, logr)
	importSvc := service.NewSlotImportService(db, slotRepo, queue, metrics, logr)
	exportSvc := service.NewExportService(availabilitySvc, validate, logr)

	router := newRouter(routerDeps{
		cfg:          cfg,
		logger:       logr,
		metrics:      metrics,
		tokens:       service.NewTokenService(cfg.JWT.Secret),
		availability: handler.NewAvailabilityHandler(availabilitySvc, exportSvc, cfg.Booking.HorizonWeeks),
		bookings:     handler.NewBookingHandler(bookingSvc),
		slots:        handler.NewSlotImportHandler(importSvc),
		health:       handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
