package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sundayezeilo/tinylink/codegen"
	"github.com/sundayezeilo/tinylink/internal/config"
	"github.com/sundayezeilo/tinylink/internal/database"
	"github.com/sundayezeilo/tinylink/internal/logger"
	"github.com/sundayezeilo/tinylink/internal/metrics"
	"github.com/sundayezeilo/tinylink/internal/server"
	"github.com/sundayezeilo/tinylink/internal/shortener"
	"github.com/sundayezeilo/tinylink/internal/view"
)

// App holds the application dependencies and configuration.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Server  *server.Server
	Handler *shortener.Handler
	Metrics *metrics.Metrics

	closeStore func() error
}

// New loads configuration from the environment and wires up the application.
func New(ctx context.Context) (*App, error) {
	loaded := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Options{
		Development: cfg.App.IsDevelopment(),
		Level:       cfg.App.LogLevel,
		Service:     cfg.App.ServiceName,
		Version:     cfg.App.ServiceVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	if len(loaded) > 0 {
		log.Debug("loaded env files", zap.Strings("files", loaded))
	}

	a, err := NewWithConfig(ctx, cfg, log)
	if err != nil {
		_ = logger.Sync(log)
		return nil, err
	}
	return a, nil
}

// NewWithConfig wires up the application from an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	log.Info("starting application",
		zap.String("env", cfg.App.Environment),
		zap.String("db_driver", cfg.Database.Driver),
	)

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	views, err := view.New()
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	var m *metrics.Metrics
	var recorder shortener.Recorder
	if cfg.Metrics.Enabled {
		m = metrics.New()
		recorder = m
	}

	svc := shortener.NewService(repo, &shortener.ServiceConfig{
		CodeGenerator:  codegen.NewAlphanumeric(),
		CodeLength:     cfg.Shortener.CodeLength,
		CodeMaxRetries: cfg.Shortener.MaxRetries,
		ReservedCodes:  server.ReservedCodes(cfg),
	})
	handler := shortener.NewHandler(shortener.HandlerConfig{
		Service:  svc,
		Logger:   log,
		Views:    views,
		Recorder: recorder,
		BaseURL:  cfg.Server.BaseURL,
		Version:  cfg.App.ServiceVersion,
	})

	srv := server.New(cfg, server.Deps{
		Logger:  log,
		Handler: handler,
		Store:   svc,
		Metrics: m,
	})

	log.Info("application initialized",
		zap.String("port", cfg.Server.Port),
		zap.String("base_url", cfg.Server.BaseURL),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)

	return &App{
		Config:     cfg,
		Logger:     log,
		Server:     srv,
		Handler:    handler,
		Metrics:    m,
		closeStore: closeStore,
	}, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown releases the store and flushes the logger. Call it after Start returns.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	var errs []error
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		} else {
			a.Logger.Info("database connection closed")
		}
	}
	if err := logger.Sync(a.Logger); err != nil {
		errs = append(errs, fmt.Errorf("sync logger: %w", err))
	}

	return errors.Join(errs...)
}

// openStore connects the configured database, applies the schema when asked,
// and returns the repository together with its close function.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (shortener.Repository, func() error, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		log.Info("connecting to database",
			zap.String("driver", cfg.Database.Driver),
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Name),
		)

		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.MigratePostgres(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			log.Info("database schema applied")
		}
		closeFn := func() error {
			pool.Close()
			return nil
		}
		return shortener.NewPostgresRepository(pool), closeFn, nil

	case config.DriverSQLite:
		log.Info("connecting to database",
			zap.String("driver", cfg.Database.Driver),
			zap.String("sql_driver", database.SQLiteDriver(cfg.Database.URL)),
		)

		db, err := database.OpenSQLite(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.MigrateSQLite(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			log.Info("database schema applied")
		}
		return shortener.NewSQLiteRepository(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
