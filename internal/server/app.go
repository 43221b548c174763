// Package server initializes and runs the keepsake API server. It opens the
// record store, runs migrations, and starts the HTTP API plus the expiration
// sweeper, shutting both down gracefully on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/keepsake-app/keepsake/internal/logging"
	"github.com/keepsake-app/keepsake/internal/query"
	"github.com/keepsake-app/keepsake/internal/server/api"
	"github.com/keepsake-app/keepsake/internal/server/config"
	"github.com/keepsake-app/keepsake/internal/server/services"
	"github.com/keepsake-app/keepsake/internal/store/db"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *db.Manager
	api     *api.Server
	sweeper *services.Sweeper
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	dbm, err := db.NewManager(ctx, cfg.DatabaseDSN, true)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	queries := query.NewService(dbm.Conn(), dbm.Gifts(), dbm.DisplayData(), logger)
	giftSvc := services.NewGiftService(dbm.Gifts(), dbm.Relationships(), queries, logger)
	photoSvc := services.NewPhotoService(cfg)
	sweeper := services.NewSweeper(dbm.Gifts(), cfg.SweepInterval, logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      dbm,
		api:     api.NewServer(giftSvc, photoSvc, logger),
		sweeper: sweeper,
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.api.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server error", "error", err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting keepsake server")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err.Error())
	}
	app.logger.Info(ctx, "server stopped")
}
