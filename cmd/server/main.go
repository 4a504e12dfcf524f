package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/smartexam/internal/auth"
	"github.com/stemsi/smartexam/internal/cache"
	"github.com/stemsi/smartexam/internal/clock"
	"github.com/stemsi/smartexam/internal/config"
	"github.com/stemsi/smartexam/internal/database"
	"github.com/stemsi/smartexam/internal/handler"
	"github.com/stemsi/smartexam/internal/logger"
	"github.com/stemsi/smartexam/internal/monitor"
	"github.com/stemsi/smartexam/internal/router"
	"github.com/stemsi/smartexam/internal/service"
	"github.com/stemsi/smartexam/internal/validator"
	"github.com/stemsi/smartexam/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("schedule_tz", cfg.ScheduleLocation().String()).
		Msg("Starting SmartExam")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Open Store ────────────────────────────────────────────────────
	store, err := database.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	var (
		catalog    service.Catalog = store.Catalog
		invalidate service.CatalogInvalidator
		events     service.EventPublisher = monitor.NopPublisher{}
		subscriber handler.EventSubscriber
	)
	if rdb != nil {
		defer rdb.Close()
		cached := cache.NewCachedCatalog(store.Catalog, rdb, cfg.CatalogCacheTTL, log)
		catalog, invalidate = cached, cached
		pub := monitor.NewRedisPublisher(rdb)
		events, subscriber = pub, pub
	}

	// ─── Initialize Services ──────────────────────────────────────────
	verifier := auth.NewTokenVerifier(cfg.JWTSecret)
	policy := service.NewVisibilityPolicy(cfg.ScheduleLocation())
	sessionService := service.NewExamSessionService(catalog, store.Sessions, clock.System{}, policy, events, log)
	countdown := service.NewCountdown(sessionService, cfg.CountdownTick)
	examService := service.NewExamService(store.Writer, catalog, invalidate, log)
	monitorService := service.NewMonitorService(catalog, store.Monitor)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		StudentPortal: handler.NewStudentPortalHandler(sessionService),
		Exam:          handler.NewExamHandler(examService),
		WS:            handler.NewWSHandler(sessionService, countdown, log, cfg.AllowedOrigins),
		Monitor:       handler.NewMonitorHandler(subscriber, monitorService, log),
		System:        handler.NewSystemHandler(store.Ping, rdb, log),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(verifier, handlers, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// ─── Start Server ──────────────────────────────────────────────────
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ─── Start Background Workers ─────────────────────────────────────
	expiryWorker := worker.NewExpiryWorker(sessionService, cfg.ExpirySweep, log)
	g.Go(func() error {
		expiryWorker.Start(gctx)
		return nil
	})

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
