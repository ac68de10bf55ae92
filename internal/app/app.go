// Package app wires configuration, stores, the reference client, the core
// service and the HTTP server into one runnable unit shared by the
// long-running server and the Lambda entry point.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/catchcert/internal/config"
	"github.com/JonMunkholm/catchcert/internal/core"
	"github.com/JonMunkholm/catchcert/internal/refdata"
	"github.com/JonMunkholm/catchcert/internal/session"
	"github.com/JonMunkholm/catchcert/internal/store"
	"github.com/JonMunkholm/catchcert/internal/web"
)

// App is a fully wired landings service.
type App struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Store   *store.Postgres
	Service *core.Service
	Server  *web.Server
}

// New connects to Postgres, applies the schema and wires the service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := OpenPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := store.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	pg := store.NewPostgres(pool)
	sessions, err := newSessionStore(ctx, cfg.Session, pg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	service := core.NewService(core.Deps{
		Reference:            refdata.NewClient(cfg.Reference.URL, cfg.Reference.Timeout),
		Favourites:           pg,
		Drafts:               pg,
		Sessions:             sessions,
		Limits:               cfg.Limits(),
		MaxConcurrentUploads: cfg.Upload.MaxConcurrent,
		UploadWait:           cfg.Upload.MaxWaitTime,
		UploadTimeout:        cfg.Upload.Timeout,
	})

	slog.Info("service wired",
		"session_backend", cfg.Session.Backend,
		"max_landings", cfg.Landings.MaxLandings,
		"reference_url", cfg.Reference.URL,
	)

	return &App{
		Config:  cfg,
		Pool:    pool,
		Store:   pg,
		Service: service,
		Server:  web.NewServer(service, cfg),
	}, nil
}

// OpenPool parses the database URL, applies pool limits and pings.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// newSessionStore picks the journey session backend.
func newSessionStore(ctx context.Context, cfg config.SessionConfig, pg *store.Postgres) (session.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.SessionBackendDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return store.NewDynamoSessions(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable, cfg.TTL), nil
	case config.SessionBackendMemory:
		slog.Warn("using in-memory session store; sessions are lost on restart")
		return session.NewMemoryStore(), nil
	default:
		return pg, nil
	}
}

// RunSessionSweeper purges stale Postgres sessions until ctx is cancelled.
// Other backends expire sessions themselves, so it returns immediately.
func (a *App) RunSessionSweeper(ctx context.Context) {
	if !strings.EqualFold(a.Config.Session.Backend, config.SessionBackendPostgres) {
		return
	}
	core.StartSessionSweeper(ctx, a.Store, core.SweepConfig{
		TTL:      a.Config.Session.TTL,
		Interval: a.Config.Session.SweepInterval,
	})
}

// Shutdown stops the HTTP server, drains uploads and background cleanups,
// then closes the pool.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := a.Server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("http shutdown: %w", err)
	}
	if err := a.Service.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("service shutdown: %w", err)
	}
	a.Pool.Close()
	return firstErr
}
