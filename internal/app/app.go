// Package app initializes and runs the link shortening service.
// It configures logging, storage, authentication, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinylink/internal/auth"
	"github.com/patric-chuzhbe/tinylink/internal/config"
	"github.com/patric-chuzhbe/tinylink/internal/db/memstore"
	"github.com/patric-chuzhbe/tinylink/internal/ipchecker"
	"github.com/patric-chuzhbe/tinylink/internal/logger"
	"github.com/patric-chuzhbe/tinylink/internal/passhash"
	"github.com/patric-chuzhbe/tinylink/internal/router"
	"github.com/patric-chuzhbe/tinylink/internal/service"
	"github.com/patric-chuzhbe/tinylink/internal/urlsremover"
)

// App encapsulates the configuration, HTTP handler, storage backend,
// and background services (such as the URLs remover) needed to run the
// link shortener.
type App struct {
	cfg             *config.Config
	db              *memstore.Storage
	urlsRemover     *urlsremover.URLsRemover
	stopUrlsRemover context.CancelFunc
	httpHandler     http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - setting up the in-memory storage
// - setting up the background URLs remover
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db = memstore.New()

	authCookieSigningSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.AuthCookieSigningSecretKey)
	if err != nil {
		return nil, err
	}

	app.urlsRemover = urlsremover.New(
		app.db,
		app.cfg.RemoverChannelCapacity,
		app.cfg.RemoverFlushDelay,
	)
	urlsRemoverRunCtx, stopUrlsRemover := context.WithCancel(context.Background())
	app.stopUrlsRemover = stopUrlsRemover

	app.urlsRemover.Run(urlsRemoverRunCtx)
	app.urlsRemover.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `app.urlsRemover.ListenErrors()`:", zap.Error(err))
	})

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(
		service.New(
			app.db,
			passhash.New(app.cfg.PasswordHashCost),
			app.urlsRemover,
			app.cfg.ShortURLBase,
		),
		auth.New(
			app.db,
			app.cfg.AuthCookieName,
			authCookieSigningSecretKey,
			app.cfg.VisitorCookieName,
		),
		ipChecker,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Draining the removal queue and exiting...")
		a.stopUrlsRemover()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}
