package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/sunnyside/kitchen/internal/config"
	"github.com/sunnyside/kitchen/internal/database"
	"github.com/sunnyside/kitchen/internal/kitchen"
	"github.com/sunnyside/kitchen/internal/metrics"
	"github.com/sunnyside/kitchen/internal/notify"
	"github.com/sunnyside/kitchen/internal/util"
)

// env is a loaded configuration with logging set up, before any database is opened.
type env struct {
	cfg       *config.Config
	cfgPath   string
	logger    *slog.Logger
	dbPath    string
	backupDir string
	closers   []func() error
}

// app is an env with an open, migrated database and the services over it.
type app struct {
	*env
	db        *database.DB
	migration *database.MigrationResult
	metrics   *metrics.Metrics
	notifier  notify.Notifier
	svc       *kitchen.Services
	clock     util.Clock
}

// loadEnv reads the configuration and installs the process logger.
func loadEnv(opts *globalOptions) (*env, error) {
	cfg, cfgPath, err := config.Load(opts.configPath, true)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logLevel := slog.LevelInfo
	if opts.debug {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case config.LogLevelDebug:
			logLevel = slog.LevelDebug
		case config.LogLevelWarn:
			logLevel = slog.LevelWarn
		case config.LogLevelError:
			logLevel = slog.LevelError
		}
	}

	e := &env{cfg: cfg, cfgPath: cfgPath}

	logPath, err := config.EnsureLogDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	var logHandler slog.Handler
	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		e.closers = append(e.closers, logFile.Close)

		logHandler = slog.NewJSONHandler(logFile, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		})
	}

	e.logger = slog.New(logHandler)
	slog.SetDefault(e.logger)

	if e.dbPath, err = config.EnsureDataDir(cfg); err != nil {
		e.close()
		return nil, fmt.Errorf("ensuring data directory: %w", err)
	}

	if e.backupDir, err = config.BackupDir(cfg); err != nil {
		slog.Warn("failed to create backup directory", "error", err)
		e.backupDir = ""
	}

	slog.Debug("configuration loaded",
		"version", Version,
		"config_path", cfgPath,
		"database", e.dbPath,
	)

	return e, nil
}

// close releases env resources in reverse order of acquisition.
func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			slog.Error("error during shutdown", "error", err)
		}
	}
	e.closers = nil
}

// openApp loads the environment, opens and migrates the database and wires the services.
func openApp(ctx context.Context, opts *globalOptions) (*app, error) {
	e, err := loadEnv(opts)
	if err != nil {
		return nil, err
	}

	a := &app{env: e, clock: util.SystemClock{}}
	if err := a.open(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	db, err := database.Open(a.dbPath, &a.cfg.Database, a.backupDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func() error {
		slog.Debug("closing database")
		return db.Close()
	})

	migrator, err := database.NewMigrator(db)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if a.migration, err = migrator.MigrateUp(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if len(a.migration.Applied) > 0 {
		slog.Info("applied migrations",
			"count", len(a.migration.Applied),
			"to_version", a.migration.TargetVersion,
		)
	}

	if a.cfg.Metrics.Enabled {
		a.metrics = metrics.New()
		if err := a.serveMetrics(); err != nil {
			return err
		}
	}

	if a.notifier, err = a.newNotifier(); err != nil {
		return err
	}

	a.svc = kitchen.New(db.DB, a.cfg, kitchen.Deps{
		Logger:   a.logger,
		Clock:    a.clock,
		Metrics:  a.metrics,
		Notifier: a.notifier,
	})
	return nil
}

// newNotifier selects the shortage notification driver.
func (a *app) newNotifier() (notify.Notifier, error) {
	n := a.cfg.Notify
	if n.Driver != config.NotifyDriverNATS {
		return notify.NewLogNotifier(a.logger.With("component", "notify")), nil
	}

	nn, err := notify.Connect(n.NATSURL, n.SubjectPrefix, n.Timeout())
	if err != nil {
		return nil, fmt.Errorf("connecting notifier: %w", err)
	}
	a.closers = append(a.closers, nn.Close)
	slog.Debug("notifier connected", "url", n.NATSURL, "prefix", n.SubjectPrefix)
	return nn, nil
}

// serveMetrics exposes the registry on the configured listen address until the app closes.
func (a *app) serveMetrics() error {
	ln, err := net.Listen("tcp", a.cfg.Metrics.Listen)
	if err != nil {
		return fmt.Errorf("listening for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", ln.Addr().String())

	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
	return nil
}

// withApp runs fn against an opened app and closes it afterwards.
func withApp(ctx context.Context, opts *globalOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
