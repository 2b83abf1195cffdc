package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/classpulse/classpulse/internal/analytics"
	"github.com/classpulse/classpulse/internal/app"
	"github.com/classpulse/classpulse/internal/auth"
	"github.com/classpulse/classpulse/internal/authz"
	"github.com/classpulse/classpulse/internal/observability"
	"github.com/classpulse/classpulse/internal/platform/cache"
	"github.com/classpulse/classpulse/internal/platform/db"
	"github.com/classpulse/classpulse/internal/progress"
	"github.com/classpulse/classpulse/internal/schools"
	"github.com/classpulse/classpulse/internal/shared"
	"github.com/classpulse/classpulse/internal/students"
	"github.com/classpulse/classpulse/internal/teachers"
)

// studentDirectory adapts the students service for progress mutations.
type studentDirectory struct {
	service *students.Service
}

func (d studentDirectory) Snapshot(ctx context.Context, id int64) (*progress.StudentSnapshot, error) {
	profile, err := d.service.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, students.ErrNotFound) {
			return nil, fmt.Errorf("progress: student %d: %w", id, authz.ErrNotFound)
		}
		return nil, err
	}
	return &progress.StudentSnapshot{
		ID:        profile.ID,
		SchoolID:  profile.SchoolID,
		ClassName: profile.ClassName,
	}, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "classpulse_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()
	engine := authz.NewEngine(func(req authz.AccessRequest, dec authz.AccessDecision) {
		metrics.ObserveDecision(string(req.Resource), string(req.Operation), dec.Allow, string(dec.Reason))
	})
	guard := authz.NewGuard(engine)

	resolver := authz.NewResolver(authz.NewPGProfileStore(dbpool))
	principal := authz.Middleware{Resolver: resolver, Logger: logger}

	auditLogger := shared.NewAuditLogger(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	schoolsRepo := schools.NewRepository(dbpool)
	schoolsService := schools.NewService(schoolsRepo, engine, guard, auditLogger)
	schoolsHandler := schools.NewHandler(logger, schoolsService)

	teachersRepo := teachers.NewRepository(dbpool)
	teachersService := teachers.NewService(teachersRepo, schoolsService, engine, guard, auditLogger)
	teachersHandler := teachers.NewHandler(logger, teachersService)

	studentsRepo := students.NewRepository(dbpool)
	studentsService := students.NewService(studentsRepo, schoolsService, engine, guard, auditLogger)
	studentsHandler := students.NewHandler(logger, studentsService)

	progressRepo := progress.NewRepository(dbpool)
	progressService := progress.NewService(progressRepo, studentDirectory{service: studentsService}, engine, guard, auditLogger)
	progressHandler := progress.NewHandler(logger, progressService)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	if err := analyticsCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("analytics cache subscription", slog.Any("error", err))
	}
	analyticsRepo := analytics.NewRepository(dbpool)
	analyticsService := analytics.NewService(analyticsRepo, engine, analyticsCache)
	analyticsHandler := analytics.NewHandler(logger, analyticsService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		SchoolsHandler:   schoolsHandler,
		TeachersHandler:  teachersHandler,
		StudentsHandler:  studentsHandler,
		ProgressHandler:  progressHandler,
		AnalyticsHandler: analyticsHandler,
		Principal:        principal,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
