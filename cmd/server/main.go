// Command server runs the workflow execution and scheduling engine: it
// wires storage, cache, the event bus, the action registry, the executor,
// the job scheduler, and the HTTP surface, then serves until signalled to
// shut down.
package main

import (
	"context"
	"log"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/floworc/engine/internal/action"
	"github.com/floworc/engine/internal/cache"
	"github.com/floworc/engine/internal/config"
	"github.com/floworc/engine/internal/email"
	"github.com/floworc/engine/internal/engine"
	"github.com/floworc/engine/internal/eventbus"
	"github.com/floworc/engine/internal/httpapi"
	"github.com/floworc/engine/internal/logger"
	"github.com/floworc/engine/internal/observer"
	"github.com/floworc/engine/internal/realtime"
	"github.com/floworc/engine/internal/scheduler"
	"github.com/floworc/engine/internal/storage"
	"github.com/floworc/engine/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.Logging)
	logger.SetDefault(appLogger)
	appLogger.Info("starting workflow engine", "port", cfg.Server.Port)

	dbCfg := &storage.Config{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MinConnections,
		ConnMaxLifetime: cfg.Database.MaxConnLifetime,
		ConnMaxIdleTime: cfg.Database.MaxIdleTime,
		Debug:           cfg.Logging.Level == "debug",
	}
	db, err := storage.NewDB(dbCfg)
	if err != nil {
		appLogger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer storage.Close(db)

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		appLogger.Warn("redis unavailable, running without cache/pub-sub", "error", err)
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	// Event bus: the local WebSocket hub and the external realtime bridge are
	// both just observers registered into the same bus.
	bus := eventbus.New(observer.WithLogger(appLogger))

	wsHub := ws.NewHub()
	if err := bus.Register(ws.NewObserver(wsHub, ws.WithLogger(appLogger))); err != nil {
		appLogger.Error("failed to register websocket observer", "error", err)
	}

	realtimeBridge := realtime.New(redisCache, cfg.Realtime.AblyAPIKey, cfg.Realtime.AblyRealtimeKey)
	if err := bus.Register(realtime.NewObserver(realtimeBridge, nil)); err != nil {
		appLogger.Error("failed to register realtime observer", "error", err)
	}

	var emailService *email.Service
	var emailSender action.EmailSender
	if cfg.Email.MailgunDomain != "" && cfg.Email.MailgunAPIKey != "" {
		emailService = email.New(cfg.Email.MailgunDomain, cfg.Email.MailgunAPIKey, cfg.Email.FromEmail, email.WithCache(redisCache))
		emailSender = emailService
	}

	registry := action.NewRegistry()
	action.RegisterBuiltins(registry, emailSender, &http.Client{Timeout: 30 * time.Second})

	executionStore := storage.NewExecutionStore(db)
	workflowStore := storage.NewWorkflowStore(db)

	executor := engine.New(registry, executionStore, bus, appLogger)

	var schedulerEmailer scheduler.EmailSender
	if emailService != nil {
		schedulerEmailer = emailService
	}
	sched := scheduler.New(
		cfg.Scheduler,
		bus,
		realtimeBridge,
		appLogger,
		schedulerEmailer,
		&http.Client{Timeout: 30 * time.Second},
		workflowStore,
		executor,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	server := &httpapi.Server{
		Workflows: workflowStore,
		Executor:  executor,
		History:   executionStore,
		Jobs:      sched,
		WSHandler: ws.NewHandler(wsHub),
		Logger:    appLogger,
		JWT:       cfg.JWT,
		CORS:      cfg.Server.CORSOrigins,
	}
	router := server.NewRouter()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", "error", err)
	}
}
