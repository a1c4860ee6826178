// Command server runs the schemabridge HTTP API: schema capture, mapping
// suggestion and review, guarded SQL generation, and two-phase execution
// against the warehouse.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"schemabridge/api"
	"schemabridge/internal/config"
	"schemabridge/internal/db"
	"schemabridge/internal/db/repository"
	"schemabridge/internal/domain"
	"schemabridge/internal/engine"
	"schemabridge/internal/middleware"
	"schemabridge/internal/service/governance"
	"schemabridge/internal/service/mapping"
	"schemabridge/internal/service/snapshot"
	"schemabridge/internal/service/transform"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	// Session store
	writeDB, readDB, err := db.OpenSQLitePair(cfg.SessionDBPath, 4)
	if err != nil {
		return err
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := db.RunMigrations(writeDB); err != nil {
		return err
	}

	// Warehouse
	warehouse, err := engine.Open(cfg.WarehousePath)
	if err != nil {
		return err
	}
	defer warehouse.Close()

	// Repositories
	snapRepo := repository.NewSnapshotRepo(writeDB, readDB)
	setRepo := repository.NewMappingSetRepo(writeDB, readDB)
	tokenRepo := repository.NewTokenRepo(writeDB, readDB)
	auditRepo := repository.NewAuditRepo(writeDB, readDB)

	clock := domain.RealClock{}
	ids := domain.UUIDGenerator{}

	rules, err := transform.LoadSynthesisRules(cfg.SynthesisRulesPath)
	if err != nil {
		return err
	}

	// Services
	snapSvc := snapshot.NewService(warehouse, snapRepo, auditRepo, clock)
	mapSvc := mapping.NewService(snapRepo, setRepo, auditRepo, clock, ids,
		mapping.NewScorer(cfg.Scoring),
		mapping.NewValidator(),
		mapping.NewClassifier(cfg.Thresholds))
	transformSvc := transform.NewService(snapRepo, setRepo, auditRepo, transform.NewGenerator(rules))
	controller := transform.NewController(tokenRepo, warehouse, auditRepo, clock, ids, cfg.TokenTTL)
	auditSvc := governance.NewAuditService(auditRepo)

	handler := api.NewHandler(snapSvc, mapSvc, transformSvc, controller, auditSvc)

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	handler.Routes(r)

	// Audit retention sweeper: the only deletion path for audit events.
	sweeper := governance.NewRetentionSweeper(auditRepo, clock, logger)
	var sched *cron.Cron
	if cfg.RetentionSweepSchedule != "" {
		sched = cron.New()
		_, err := sched.AddFunc(cfg.RetentionSweepSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_, _ = sweeper.Sweep(ctx)
		})
		if err != nil {
			return err
		}
		sched.Start()
		logger.Info("audit retention sweeper scheduled", "schedule", cfg.RetentionSweepSchedule)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		if sched != nil {
			<-sched.Stop().Done()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
