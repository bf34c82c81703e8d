// Package server wires configuration, storage, services and the HTTP and
// gRPC listeners into one runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/logging"
	"github.com/dmitrijs2005/betclever/internal/server/config"
	"github.com/dmitrijs2005/betclever/internal/server/mail"
	"github.com/dmitrijs2005/betclever/internal/server/metrics"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/memory"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/betclever/internal/server/rest"
	"github.com/dmitrijs2005/betclever/internal/server/revocation"
	"github.com/dmitrijs2005/betclever/internal/server/services"
	"github.com/dmitrijs2005/betclever/internal/server/storage"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/betclever/internal/server/grpc"
)

// MemoryDSN selects the in-process store and blob storage instead of
// PostgreSQL and S3. Data is lost on exit.
const MemoryDSN = "memory://"

var (
	openDB        = repomanager.OpenDB
	runMigrations = func(ctx context.Context, m repomanager.RepositoryManager, db *sql.DB) error {
		return m.RunMigrations(ctx, db)
	}
	newBlobStore = func(ctx context.Context, o storage.S3Options) (storage.BlobStore, error) {
		return storage.NewS3Store(ctx, o)
	}
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	http    *rest.Server
	grpc    *gs.GRPCServer
	closers []func() error
}

// NewApp connects to every backing service named by c and builds the
// listeners. Call Close if Run is never invoked.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, err
	}
	app := &App{config: c, logger: logger}

	deps := services.Deps{
		Config:  c,
		Log:     logger,
		Metrics: metrics.New(),
	}

	var (
		ping      func(context.Context) error
		blobRoute http.Handler
	)
	if c.DatabaseDSN == MemoryDSN {
		logger.Warn(ctx, "using in-memory storage, data is not persisted")
		st := memory.NewStore()
		blobs := storage.NewMemoryStore(localBlobURL(c.HTTPAddr))
		deps.Tx, deps.Repos, deps.Blobs = st, st, blobs
		blobRoute = blobs
	} else {
		db, err := openDB(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.closers = append(app.closers, db.Close)

		rm := repomanager.NewPostgresRepositoryManager()
		if err := runMigrations(ctx, rm, db); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		deps.DB, deps.Tx, deps.Repos = db, dbx.NewSQLTransactor(db, nil), rm
		ping = db.PingContext

		blobs, err := newBlobStore(ctx, storage.S3Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("blob storage: %w", err)
		}
		deps.Blobs = blobs
	}

	if c.RedisURL != "" {
		client, err := revocation.NewRedisClient(c.RedisURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		app.closers = append(app.closers, client.Close)
		deps.Revoked = revocation.NewRedisStore(client)
	} else {
		deps.Revoked = revocation.NewMemoryStore()
	}

	if c.SendGridAPIKey != "" {
		deps.Mailer = mail.NewSendGridMailer(c.SendGridAPIKey, c.MailFrom, c.MailFromName)
	} else {
		deps.Mailer = mail.NewLogMailer(logger)
	}

	h := rest.NewHandler(
		services.NewAuthService(deps),
		services.NewMemberService(deps),
		services.NewAdminService(deps),
		rest.Options{
			Metrics:        deps.Metrics,
			Logger:         logger,
			Ping:           ping,
			MaxUploadBytes: c.MaxUploadBytes,
			CORSOrigins:    c.CORSOrigins,
			Blobs:          blobRoute,
		},
	)
	app.http = rest.NewServer(c.HTTPAddr, h.Router(), logger)
	app.grpc = gs.NewGRPCServer(c.GRPCAddr, logger, ping, c.HealthCheckInterval)

	return app, nil
}

// localBlobURL is where the HTTP listener at addr serves in-memory blobs.
func localBlobURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://localhost/blobs"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/blobs"
}

// Run serves until SIGINT/SIGTERM/SIGQUIT or until a listener fails, then
// releases every backing connection.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(gctx) })
	g.Go(func() error { return app.grpc.Run(gctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "app stopped with error", "error", err)
	} else {
		app.logger.Info(ctx, "app stopped")
	}
	return err
}

// Close releases backing connections in reverse order of opening.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}
