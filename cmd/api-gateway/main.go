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
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/classquest-api/internal/handler"
	"github.com/noah-isme/classquest-api/internal/migrations"
	"github.com/noah-isme/classquest-api/internal/repository"
	"github.com/noah-isme/classquest-api/internal/service"
	"github.com/noah-isme/classquest-api/pkg/cache"
	"github.com/noah-isme/classquest-api/pkg/config"
	"github.com/noah-isme/classquest-api/pkg/database"
	"github.com/noah-isme/classquest-api/pkg/jobs"
	"github.com/noah-isme/classquest-api/pkg/logger"
)

// @title ClassQuest API
// @version 1.0.0
// @description XP ledger and progression engine for classroom gamification
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db.DB); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	rooms := repository.NewRoomRepository(db)
	activities := repository.NewActivityRepository(db)
	teams := repository.NewTeamRepository(db)
	students := repository.NewStudentRepository(db)
	ledger := repository.NewLedgerRepository(db)
	shop := repository.NewShopRepository(db)
	phases := repository.NewPhaseRepository(db)
	transfers := repository.NewTransferRepository(db)
	incidents := repository.NewIncidentRepository(db)
	artifacts := repository.NewArtifactRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Standings.CacheTTL, logr, cfg.Standings.CacheEnabled)
	standingsSvc := service.NewStandingsService(ledger, rooms, cacheSvc, nil, cfg.Game, cfg.Standings.CacheTTL, logr)
	standingsQueue := jobs.NewQueue("standings", standingsSvc.HandleRefresh, jobs.QueueConfig{
		Workers:    cfg.Standings.Workers,
		BufferSize: 64,
		MaxRetries: 3,
		RetryDelay: time.Second,
		Logger:     logr,
	})
	standingsSvc.SetQueue(standingsQueue)

	services := routeServices{
		auth: service.NewAuthService(users, validate, logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		grants:    service.NewGrantService(ledger, activities, rooms, students, teams, standingsSvc, metrics, cfg.Game, validate, logr),
		ledger:    service.NewLedgerService(ledger, activities, standingsSvc, metrics, logr),
		progress:  service.NewProgressService(ledger, students, cfg.Game, logr),
		shop:      service.NewShopService(shop, ledger, standingsSvc, metrics, cfg.Game, validate, logr),
		phases:    service.NewPhaseService(phases, rooms, standingsSvc, validate, logr),
		transfers: service.NewTransferService(transfers, students, standingsSvc, cfg.Game, validate, logr),
		powers:    service.NewPowerService(students, ledger, rooms, standingsSvc, cfg.Game, logr),
		standings: standingsSvc,
		portal:    service.NewPortalService(teams, ledger, rooms, phases, artifacts, cfg.Game, logr),
		incidents: service.NewIncidentService(incidents, teams, validate, logr),
		artifacts: service.NewArtifactService(artifacts, teams, students, validate, logr),
		metrics:   metrics,
		ready: map[string]handler.Pinger{
			"postgres": db,
			"redis":    handler.PingFunc(cacheRepo.Ping),
		},
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		standingsQueue.Start(gctx)
		<-gctx.Done()
		standingsQueue.Stop()
		return nil
	})

	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logr.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
