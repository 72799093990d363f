package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/app"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/audit"
	audithttp "github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/audit/http"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/auth"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/authz"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/departments"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/observability"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/platform/cache"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/platform/db"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/roles"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/users"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/jobs"
)

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

	sessionManager := shared.NewSessionManager(redisClient, "hotelmgr_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	recorder := audit.NewRecorder(dbpool, logger, nil)
	metrics := observability.NewMetrics()

	authzRepo := authz.NewRepository(dbpool)
	resolver := authz.NewResolver(authzRepo, logger, cfg.AuthzCheckTimeout)
	permCache := authz.NewCache(redisClient, resolver, cfg.PermissionCacheTTL, logger, metrics)
	admin := authz.NewAdmin(authzRepo, recorder, permCache, logger)
	authzHandler := authz.NewHandler(logger, admin, permCache, resolver)
	authzMiddleware := authz.Middleware{
		Resolver: resolver,
		Cache:    permCache,
		Policy:   authz.NewPolicy(authz.DefaultPageRules()),
		Logger:   logger,
		Metrics:  metrics,
	}

	auditRepo := audit.NewPgRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, recorder)
	rolesHandler := roles.NewHandler(logger, rolesService)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, admin, logger)
	usersHandler := users.NewHandler(logger, usersService)

	departmentsRepo := departments.NewRepository(dbpool)
	departmentsService := departments.NewService(departmentsRepo)
	departmentsHandler := departments.NewHandler(logger, departmentsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		AuthzHandler:       authzHandler,
		AuditHandler:       auditHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		DepartmentsHandler: departmentsHandler,
		JobHandler:         jobHandler,
		Authz:              authzMiddleware,
		Metrics:            metrics,
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
