// Package client initializes and runs the keepsake device agent. The agent
// keeps the local cache in step with the record store: it listens for gift
// inserts, accepts push wakes, resyncs periodically, and nudges the
// rendering surface after every cache update.
package client

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/keepsake-app/keepsake/internal/client/cache"
	"github.com/keepsake-app/keepsake/internal/client/config"
	"github.com/keepsake-app/keepsake/internal/client/push"
	"github.com/keepsake-app/keepsake/internal/client/realtime"
	"github.com/keepsake-app/keepsake/internal/client/session"
	"github.com/keepsake-app/keepsake/internal/client/surface"
	"github.com/keepsake-app/keepsake/internal/client/syncer"
	"github.com/keepsake-app/keepsake/internal/logging"
	"github.com/keepsake-app/keepsake/internal/query"
	"github.com/keepsake-app/keepsake/internal/store/db"

	_ "modernc.org/sqlite"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *db.Manager
	cacheDB  *sql.DB
	syncer   *syncer.Syncer
	listener *realtime.Listener
	hook     *push.Hook
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	sess, err := session.Parse(cfg.SessionToken, []byte(cfg.SessionSecret))
	if err != nil {
		return nil, fmt.Errorf("session error: %w", err)
	}

	cacheDB, err := cache.Open(ctx, cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	dbm, err := db.NewManager(ctx, cfg.DatabaseDSN, false)
	if err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	var notifier surface.Notifier = surface.Nop{}
	if cfg.SurfaceURL != "" {
		notifier = surface.NewHTTPNotifier(cfg.SurfaceURL, logger)
	}

	queries := query.NewService(dbm.Conn(), dbm.Gifts(), dbm.DisplayData(), logger)
	bundles := cache.NewBundleStore(cache.NewSQLiteRepository(cacheDB))
	orchestrator := syncer.NewSyncer(sess.UserID, queries, dbm.Gifts(), bundles, notifier, logger)
	listener := realtime.NewListener(cfg.DatabaseDSN, sess.UserID, orchestrator, logger)
	hook := push.NewHook(push.NewBridge(orchestrator, push.NewLogAlerter(logger), logger), logger)

	return &App{
		config:   cfg,
		logger:   logger,
		db:       dbm,
		cacheDB:  cacheDB,
		syncer:   orchestrator,
		listener: listener,
		hook:     hook,
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

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting keepsake agent")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.syncer.Run(ctx, app.config.ResyncInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.listener.Run(ctx)
	}()

	if app.config.PushHookAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.hook.Serve(ctx, app.config.PushHookAddr)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err.Error())
	}
	if err := app.cacheDB.Close(); err != nil {
		app.logger.Error(ctx, "closing cache", "error", err.Error())
	}
	app.logger.Info(ctx, "agent stopped")
}
