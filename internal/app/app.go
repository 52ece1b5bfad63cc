// Package app opens the configured store and assembles the ledgers shared by the
// server, the worker and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/eventease/backend/config"
	"github.com/eventease/backend/internal/analytics"
	"github.com/eventease/backend/internal/attendance"
	"github.com/eventease/backend/internal/catalog"
	"github.com/eventease/backend/internal/emaillogs"
	"github.com/eventease/backend/internal/metrics"
	"github.com/eventease/backend/internal/notify"
	"github.com/eventease/backend/internal/registrations"
	"github.com/eventease/backend/internal/session"
	"github.com/eventease/backend/pkg/database"
	"github.com/eventease/backend/pkg/kvstore"
	"github.com/eventease/backend/pkg/queue"
	"github.com/eventease/backend/pkg/redis"
)

// App is the assembled domain of one process.
type App struct {
	Store         kvstore.Store
	Redis         *redis.Client // nil unless the redis driver or the job queue is in use
	Queue         *queue.Queue  // nil unless jobs are enabled
	Metrics       *metrics.Metrics
	Catalog       *catalog.Catalog
	Sessions      *session.Provider
	Registrations *registrations.Ledger
	Attendance    *attendance.Ledger
	Analytics     *analytics.Engine
	EmailLog      *emaillogs.Log
	Emails        *notify.EmailEnqueuer // nil unless jobs are enabled

	closers []func()
	logger  *zap.Logger
}

// Options tune New.
type Options struct {
	// Registerer receives the ledger metrics; nil disables metrics.
	Registerer prometheus.Registerer
	// Store, when set, is used instead of opening cfg.Store.Driver.
	Store kvstore.Store
}

// New opens the backing services named by cfg and wires the ledgers over them.
func New(ctx context.Context, cfg *config.Config, opts Options, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Catalog: catalog.Default(), logger: logger}
	if opts.Registerer != nil {
		a.Metrics = metrics.New(opts.Registerer)
	}

	needRedis := cfg.Jobs.Enabled || (opts.Store == nil && cfg.Store.Driver == config.DriverRedis)
	if needRedis {
		rdb, err := redis.NewClient(ctx, redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: 5 * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.Redis = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	store := opts.Store
	if store == nil {
		var err error
		store, err = a.openStore(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Store = store

	a.Sessions = session.NewProvider(store, session.DefaultKeys(), logger)
	a.Registrations = registrations.NewLedger(store, a.Sessions, registrations.Options{
		Namespace:       cfg.Store.Namespace,
		AllowDuplicates: cfg.Store.AllowDuplicates,
	}, logger, a.Metrics)
	a.Attendance = attendance.NewLedger(store, a.Sessions, a.Registrations, attendance.Options{
		Namespace:       cfg.Store.Namespace,
		AllowDuplicates: cfg.Store.AllowDuplicates,
	}, logger, a.Metrics)
	a.Analytics = analytics.NewEngine(a.Registrations, a.Attendance)
	a.EmailLog = emaillogs.NewLog(store, cfg.Store.Namespace, logger)
	a.closers = append(a.closers, a.Registrations.Close, a.Attendance.Close, a.EmailLog.Close)

	if cfg.Jobs.Enabled {
		a.Queue = queue.NewQueue(a.Redis.Client, logger)
		a.Emails = notify.NewEmailEnqueuer(a.Queue, a.Catalog, logger)
		a.closers = append(a.closers, a.Emails.Attach(a.Registrations, a.Attendance))
	}

	logger.Info("store ready",
		zap.String("driver", cfg.Store.Driver),
		zap.String("namespace", cfg.Store.Namespace),
		zap.Bool("allow_duplicates", cfg.Store.AllowDuplicates),
		zap.Bool("jobs", cfg.Jobs.Enabled))
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (kvstore.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return kvstore.NewMemory(), nil
	case config.DriverSQLite:
		s, err := kvstore.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil
	case config.DriverRedis:
		return kvstore.NewRedis(a.Redis.Client, cfg.Store.KeyPrefix), nil
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, a.logger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := database.Migrate(ctx, pool, a.logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return kvstore.NewPostgres(pool), nil
	}
	return nil, errors.New("unknown store driver: " + cfg.Store.Driver)
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
