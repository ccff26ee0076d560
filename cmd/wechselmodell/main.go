package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"

	"github.com/melnik909-create/wechselmodell/calendar"
	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/config"
	"github.com/melnik909-create/wechselmodell/internal/logger"
	"github.com/melnik909-create/wechselmodell/internal/scheduler"
	"github.com/melnik909-create/wechselmodell/server"
	"github.com/melnik909-create/wechselmodell/server/auth"
	authmemory "github.com/melnik909-create/wechselmodell/server/auth/memory"
	"github.com/melnik909-create/wechselmodell/storage"
	"github.com/melnik909-create/wechselmodell/storage/memory"
	"github.com/melnik909-create/wechselmodell/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"locale":      cfg.Locale,
		"timezone":    cfg.Location.String(),
	}).Info("Configuration loaded.")

	ctx := context.Background()

	store, closeStore, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Could not initialize storage: %v", err)
	}
	defer closeStore()

	serviceConfig, err := cfg.ServiceConfig()
	if err != nil {
		log.Fatalf("Could not build calendar configuration: %v", err)
	}

	engine := custody.NewEngine(custody.WithLogger(log.WithField("component", "engine")))
	svc := calendar.New(store, engine, serviceConfig, calendar.WithLogger(log.WithField("component", "calendar")))
	defer svc.Close()

	sessions := authmemory.New(authmemory.WithLogger(log.WithField("component", "auth")))
	for _, s := range cfg.Sessions {
		if err := sessions.AddSession(s.Token, auth.Principal{ID: s.Name, FamilyID: s.FamilyID, Parent: s.Parent}); err != nil {
			log.Fatalf("Could not register session for %s: %v", s.Name, err)
		}
	}
	if len(cfg.Sessions) == 0 {
		log.Warn("AUTH_TOKENS is empty, every family request will be rejected.")
	}

	srv, err := server.New(svc,
		server.WithLogger(log.WithField("component", "http")),
		server.WithDefaultLocale(cfg.Locale),
		server.WithParentNames(cfg.ParentNames()),
	)
	if err != nil {
		log.Fatalf("Could not create HTTP server: %v", err)
	}

	var notifier scheduler.Notifier = scheduler.NewLogNotifier(log.WithField("component", "notifier"), cfg.ParentNames())
	if cfg.WebhookURL != "" {
		webhook, err := scheduler.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookToken, cfg.ParentNames(), log.WithField("component", "webhook"))
		if err != nil {
			log.Fatalf("Could not create webhook notifier: %v", err)
		}
		notifier = scheduler.MultiNotifier{notifier, webhook}
	}

	reminders := scheduler.NewHandoverScheduler(svc,
		notifier,
		log.WithField("component", "scheduler"),
		cfg.CronSpecHandovers,
	)
	if err := reminders.Start(); err != nil {
		log.Fatalf("Could not start scheduler: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           auth.Middleware(sessions, "/healthz")(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening.")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	reminders.Stop(shutdownCtx)
	log.Info("Application shut down gracefully.")
}

// openStorage connects to PostgreSQL when DATABASE_URL is set and falls back to memory otherwise.
func openStorage(ctx context.Context, cfg *config.AppConfig, log logrus.FieldLogger) (storage.Storage, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL is not set, using in-memory storage. Data is lost on restart.")
		return memory.New(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db, err := postgres.Open(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(connectCtx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("Database connection established successfully.")

	return postgres.New(db), func() { db.Close() }, nil
}
