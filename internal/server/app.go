// Package server assembles and runs the application: configuration,
// database, Redis guard, mail, object storage, services, and the HTTP
// endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contacthub/contacthub/internal/logging"
	"github.com/contacthub/contacthub/internal/server/auth"
	"github.com/contacthub/contacthub/internal/server/avatars"
	"github.com/contacthub/contacthub/internal/server/cache"
	"github.com/contacthub/contacthub/internal/server/config"
	"github.com/contacthub/contacthub/internal/server/httpapi"
	"github.com/contacthub/contacthub/internal/server/mail"
	"github.com/contacthub/contacthub/internal/server/repositories/repomanager"
	"github.com/contacthub/contacthub/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger

	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       *cache.RedisGuard
	limiter     *httpapi.IPRateLimiter
	server      *http.Server
}

// NewApp builds the full dependency graph. It fails fast on configuration
// problems; connectivity is checked in Run.
func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	tokens, err := auth.NewTokenService([]byte(cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	guard := cache.NewRedisGuard(cfg.RedisAddr)
	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	store := avatars.NewS3Store(cfg.S3RootUser, cfg.S3RootPassword, cfg.S3Bucket, cfg.S3Region, cfg.S3BaseEndpoint)

	userService := services.NewUserService(db, rm, tokens, guard, sender, store, logger, cfg)
	contactService := services.NewContactService(db, rm)

	limiter := httpapi.NewIPRateLimiter(httpapi.DefaultIPRateLimiterConfig())
	router := httpapi.NewRouter(&httpapi.RouterDeps{
		Auth:          userService,
		Contacts:      contactService,
		Logger:        logger,
		Metrics:       httpapi.NewMetrics(),
		RateLimiter:   limiter,
		LockoutWindow: cfg.LoginAttemptWindow,
	})

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		repomanager: rm,
		guard:       guard,
		limiter:     limiter,
		server:      &http.Server{Addr: cfg.EndpointAddrHTTP, Handler: router},
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema, checks Redis connectivity, and serves HTTP until
// the context is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddrHTTP)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	if err := app.guard.Ping(ctx); err != nil {
		return fmt.Errorf("redis init error: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
		app.logger.Error(ctx, "http server error", "error", serveErr)
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "shutdown error", "error", err)
	}

	app.limiter.Stop()
	if err := app.guard.Close(); err != nil {
		app.logger.Error(ctx, "redis close error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	return serveErr
}
