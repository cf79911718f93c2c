package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	coverage "zonegrid/internal/coverage"
	coveragecache "zonegrid/internal/coverage/cache"
	coveragehandler "zonegrid/internal/coverage/handler"
	coveragemetrics "zonegrid/internal/coverage/metrics"
	outboxstore "zonegrid/internal/outbox/store"
	"zonegrid/internal/platform/config"
	"zonegrid/internal/platform/httpserver"
	"zonegrid/internal/platform/logger"
	platformmetrics "zonegrid/internal/platform/metrics"
	"zonegrid/internal/platform/middleware"
	"zonegrid/internal/platform/postgres"
	platformredis "zonegrid/internal/platform/redis"
	schedulehandler "zonegrid/internal/schedule/handler"
	scheduleservice "zonegrid/internal/schedule/service"
	schedulestore "zonegrid/internal/schedule/store"
	zonehandler "zonegrid/internal/zone/handler"
	zonemetrics "zonegrid/internal/zone/metrics"
	zoneservice "zonegrid/internal/zone/service"
	zonestore "zonegrid/internal/zone/store"
	"zonegrid/migrations"
	"zonegrid/pkg/platform/tx"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		return err
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Error("migrations failed", "error", err)
		return err
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	txRunner := tx.NewRunner(db)
	outboxStore := outboxstore.NewPostgres(db, outboxstore.WithMetrics(platformmetrics.New()))
	zoneStore := zonestore.NewPostgres(db)
	scheduleStore := schedulestore.NewPostgres(db)

	zoneOpts := []zoneservice.Option{
		zoneservice.WithLogger(log),
		zoneservice.WithMetrics(zonemetrics.New()),
	}
	coverageOpts := []coverage.Option{
		coverage.WithLogger(log),
		coverage.WithMetrics(coveragemetrics.New()),
	}
	if redisClient != nil {
		coverageCache := coveragecache.New(redisClient.Client, cfg.CoverageCacheTTL)
		zoneOpts = append(zoneOpts, zoneservice.WithCoverageInvalidator(coverageCache))
		coverageOpts = append(coverageOpts, coverage.WithCache(coverageCache))
	}

	zoneSvc := zoneservice.New(zoneStore, outboxStore, txRunner, zoneOpts...)
	scheduleSvc := scheduleservice.New(scheduleStore, zoneStore, outboxStore, txRunner,
		scheduleservice.WithLogger(log))
	coverageSvc := coverage.New(zoneStore, coverageOpts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Actor)
	r.Use(middleware.Logging(log))

	zonehandler.New(zoneSvc, log).Register(r)
	schedulehandler.New(scheduleSvc, log).Register(r)
	coveragehandler.New(coverageSvc, log).Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, r)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting zonegrid server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
