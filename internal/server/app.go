// Package server wires configuration, storage backends and the HTTP API into
// a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/recipebox/internal/logging"
	"github.com/dmitrijs2005/recipebox/internal/server/blobstore"
	"github.com/dmitrijs2005/recipebox/internal/server/config"
	"github.com/dmitrijs2005/recipebox/internal/server/httpapi"
	"github.com/dmitrijs2005/recipebox/internal/server/images"
	"github.com/dmitrijs2005/recipebox/internal/server/recipes"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

// bucketEnsurer is implemented by stores that can create their bucket on startup.
type bucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	store  blobstore.Store
	server *httpapi.HTTPServer
}

var newStore = func(ctx context.Context, cfg *config.Config, l logging.Logger) (blobstore.Store, error) {
	return blobstore.NewS3Store(ctx, cfg, l)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, dialect, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewSQLRepositoryManager(dialect, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := newStore(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	im, err := images.NewManager(store, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	rs := recipes.NewService(db, rm, im, c, logger)

	srv := httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, rs, im, c.AllowedOrigins, c.MaxUploadBytes)

	return &App{config: c, logger: logger, db: db, store: store, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if b, ok := app.store.(bucketEnsurer); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			app.logger.Warn(ctx, "bucket check failed", "error", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(ctx)
	})

	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(context.Background(), "db close", "error", cerr)
	}
	app.logger.Info(context.Background(), "App stopped")

	return err
}
