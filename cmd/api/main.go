package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/auth"
	"github.com/khanofemperia/gethsemane-sub001/internal/cache"
	"github.com/khanofemperia/gethsemane-sub001/internal/config"
	"github.com/khanofemperia/gethsemane-sub001/internal/database"
	"github.com/khanofemperia/gethsemane-sub001/internal/jobs"
	"github.com/khanofemperia/gethsemane-sub001/internal/logger"
	"github.com/khanofemperia/gethsemane-sub001/internal/mailer"
	"github.com/khanofemperia/gethsemane-sub001/internal/payment"
	"github.com/khanofemperia/gethsemane-sub001/internal/server"
	"github.com/khanofemperia/gethsemane-sub001/internal/storage"
	"github.com/khanofemperia/gethsemane-sub001/internal/telemetry"
)

const migrationsDir = "migrations"

func gracefulShutdown(apiServer *server.Server, scheduler *jobs.Scheduler, shutdownTracing func(context.Context) error, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	// In-flight requests get 30 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := scheduler.Shutdown(); err != nil {
		logger.Error("Failed to stop background jobs", zap.Error(err))
	}

	if err := shutdownTracing(ctx); err != nil {
		logger.Error("Failed to flush traces", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

// openStore connects the configured store driver. Postgres is migrated
// before use.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (server.Repositories, func() map[string]string, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return server.Repositories{}, nil, nil, err
		}
		if err := database.RunMigrations(ctx, db.DB(), migrationsDir, log); err != nil {
			db.Close()
			return server.Repositories{}, nil, nil, err
		}
		return server.PostgresRepositories(db.DB()), db.Health, db, nil

	case config.StoreFirestore:
		client, err := database.NewFirestore(ctx, cfg.Firebase)
		if err != nil {
			return server.Repositories{}, nil, nil, err
		}
		return server.FirestoreRepositories(client), nil, client, nil
	}

	return server.Repositories{}, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newSessions(ctx context.Context, cfg *config.Config) (auth.SessionManager, error) {
	if cfg.Session.Driver == config.SessionJWT {
		return auth.NewJWTSessions(cfg.Session.JWTSecret)
	}
	return auth.NewFirebaseSessions(ctx, cfg.Firebase)
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting storefront API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	shutdownTracing := func(context.Context) error { return nil }
	if tracerProvider != nil {
		shutdownTracing = tracerProvider.Shutdown
		log.Info("Tracing enabled", zap.String("collector", cfg.Tracing.CollectorHost))
	}

	repos, health, store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	closers := []io.Closer{store}

	sessions, err := newSessions(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize sessions", zap.Error(err))
	}

	sender, err := mailer.NewSender(cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	deps := server.Deps{
		Config:   cfg,
		Logger:   log,
		Repos:    repos,
		Sessions: sessions,
		Payments: payment.NewPayPalClient(cfg.PayPal),
		Notifier: mailer.NewOrderMailer(sender, cfg.Server.PublicBaseURL),
		Health:   health,
		Tracing:  tracerProvider != nil,
	}

	if cfg.Redis.Enabled() {
		client := cache.NewRedisClient(cfg.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		deps.Redis = client
		closers = append(closers, client)
	} else {
		log.Warn("Redis is not configured, page cache and rate limiting are off")
	}

	if cfg.Storage.Bucket != "" {
		uploader, err := storage.NewUploader(ctx, cfg.Storage.Bucket, cfg.Firebase)
		if err != nil {
			log.Fatal("Failed to initialize image storage", zap.Error(err))
		}
		deps.Uploader = uploader
		closers = append(closers, uploader)
	}
	deps.Closers = closers

	srv := server.NewServer(deps)

	seeded, err := srv.Services.Categories.SeedCategories(ctx)
	if err != nil {
		log.Fatal("Failed to seed categories", zap.Error(err))
	}
	log.Info("Categories reconciled", zap.Int("written", seeded))

	scheduler, err := jobs.NewScheduler(log)
	if err != nil {
		log.Fatal("Failed to create job scheduler", zap.Error(err))
	}
	maxAge := time.Duration(cfg.Cart.CookieMaxAge) * 24 * time.Hour
	if err := scheduler.AddCartJanitor(srv.Services.Carts, cfg.Cart.JanitorInterval, maxAge); err != nil {
		log.Fatal("Failed to schedule cart janitor", zap.Error(err))
	}
	scheduler.Start()

	done := make(chan bool, 1)
	go gracefulShutdown(srv, scheduler, shutdownTracing, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
