package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexusbot/entitlements/pkg/audit"
	"github.com/nexusbot/entitlements/pkg/auth"
	"github.com/nexusbot/entitlements/pkg/config"
	"github.com/nexusbot/entitlements/pkg/gateway"
	"github.com/nexusbot/entitlements/pkg/graphql"
	"github.com/nexusbot/entitlements/pkg/licensing"
	"github.com/nexusbot/entitlements/pkg/logging"
	"github.com/nexusbot/entitlements/pkg/metrics"
)

var (
	configPath  = flag.String("config", "", "Path to YAML config file")
	addr        = flag.String("addr", "", "Listen address (or set ENTITLEMENTS_ADDR)")
	databaseURL = flag.String("database-url", "", "PostgreSQL connection string (or set ENTITLEMENTS_DATABASE_URL)")
	dataDir     = flag.String("data", "", "Data directory for the file store (or set ENTITLEMENTS_DATA_DIR)")
)

const auditLogSize = 4096

type Server struct {
	store      licensing.DocumentStore
	manager    *licensing.Manager
	dispatcher *gateway.Dispatcher
	registry   *gateway.Registry
	auditLog   *audit.Log
	metrics    *metrics.Registry
	jwt        *auth.JWTManager
	creds      *auth.CredentialStore
	logger     *slog.Logger
	startTime  time.Time
}

func main() {
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *databaseURL != "" {
		cfg.Store.DatabaseURL = *databaseURL
	}
	if *dataDir != "" {
		cfg.Store.DataDir = *dataDir
	}

	store := openStore(cfg, logger)
	defer store.Close()

	pkgLogger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Log.Level))
	reg := metrics.NewRegistry()
	auditLog := audit.NewLog(auditLogSize)

	manager, err := licensing.NewManager(store, cfg.Keys,
		licensing.WithLogger(pkgLogger),
		licensing.WithMetrics(reg),
		licensing.WithAudit(auditLog),
	)
	if err != nil {
		logger.Error("failed to create license manager", "error", err)
		os.Exit(1)
	}

	registry := gateway.NewRegistry()
	if err := gateway.RegisterBuiltins(registry, manager); err != nil {
		logger.Error("failed to register commands", "error", err)
		os.Exit(1)
	}
	dispatcher := gateway.NewDispatcher(registry, manager,
		gateway.WithDispatchLogger(pkgLogger),
		gateway.WithProvisionMetrics(reg),
		gateway.WithCooldown(cfg.Gateway.Cooldown.Std()),
		gateway.WithOwner(cfg.Gateway.OwnerID),
	)

	server := &Server{
		store:      store,
		manager:    manager,
		dispatcher: dispatcher,
		registry:   registry,
		auditLog:   auditLog,
		metrics:    reg,
		logger:     logger,
		startTime:  time.Now(),
	}

	// Admin API stays disabled without a JWT secret
	if cfg.Auth.JWTSecret != "" {
		server.jwt, err = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Std())
		if err != nil {
			logger.Error("failed to create JWT manager", "error", err)
			os.Exit(1)
		}
		server.creds = auth.NewCredentialStore()
		for _, op := range cfg.Auth.Operators {
			if err := server.creds.AddOperator(op.Username, op.Password, op.Role); err != nil {
				logger.Error("failed to register operator", "username", op.Username, "error", err)
				os.Exit(1)
			}
		}
	} else {
		logger.Warn("no JWT secret configured, admin API disabled")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.handleHealth)
	mux.Handle("/metrics", reg.Handler())
	mux.HandleFunc("POST /v1/check", server.handleCheck)
	mux.HandleFunc("POST /v1/redeem", server.handleRedeem)
	mux.HandleFunc("POST /v1/command", server.handleCommand)
	mux.HandleFunc("GET /v1/users/{id}/license", server.handleGetLicense)

	if server.jwt != nil {
		schema, err := graphql.NewSchema(manager)
		if err != nil {
			logger.Error("failed to build graphql schema", "error", err)
			os.Exit(1)
		}

		mux.HandleFunc("POST /v1/admin/login", server.handleLogin)

		protected := auth.Middleware(server.jwt)
		mux.Handle("POST /v1/admin/issue", protected(http.HandlerFunc(server.handleIssue)))
		mux.Handle("GET /v1/admin/licenses", protected(http.HandlerFunc(server.handleListLicenses)))
		mux.Handle("GET /v1/admin/users", protected(http.HandlerFunc(server.handleListUsers)))
		mux.Handle("POST /v1/admin/assign", protected(http.HandlerFunc(server.handleAssign)))
		mux.Handle("POST /v1/admin/revoke", protected(auth.RequireOwner(http.HandlerFunc(server.handleRevoke))))
		mux.Handle("POST /v1/admin/unrevoke", protected(auth.RequireOwner(http.HandlerFunc(server.handleUnrevoke))))
		mux.Handle("GET /v1/admin/audit", protected(http.HandlerFunc(server.handleAudit)))
		mux.Handle("POST /v1/admin/graphql", protected(graphql.NewHandler(schema)))
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.withRequestMetrics(mux),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("entitlement server starting",
			"addr", cfg.Server.Addr,
			"database", cfg.Store.DatabaseURL != "",
			"admin_api", server.jwt != nil,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// openStore prefers PostgreSQL, falling back to the JSON file store
func openStore(cfg *config.Config, logger *slog.Logger) licensing.DocumentStore {
	if cfg.Store.DatabaseURL != "" {
		logger.Info("initializing PostgreSQL store")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store, err := licensing.NewPGStore(ctx, cfg.Store.DatabaseURL)
		if err == nil {
			return store
		}
		logger.Error("failed to initialize PostgreSQL store", "error", err)
		logger.Info("falling back to JSON file store")
	}

	logger.Info("initializing JSON file store", "data_dir", cfg.Store.DataDir)
	store, err := licensing.NewFileStore(cfg.Store.DataDir)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	if cfg.Store.Backups {
		store = store.WithBackups()
	}
	return store
}
