// Package app assembles the storage backend, the backup sink and the service
// from configuration. Both the HTTP server and posctl start from here.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"quicksale/backend/internal/backup"
	"quicksale/backend/internal/config"
	"quicksale/backend/internal/logging"
	"quicksale/backend/internal/notify"
	"quicksale/backend/internal/products"
	"quicksale/backend/internal/reports"
	"quicksale/backend/internal/service"
	"quicksale/backend/internal/store"
	"quicksale/backend/internal/store/memory"
	pgstore "quicksale/backend/internal/store/postgres"
	redisstore "quicksale/backend/internal/store/redis"
	sqlitestore "quicksale/backend/internal/store/sqlite"
)

type App struct {
	KV            store.KV
	Service       *service.Service
	Notifications *notify.Recorder

	closers []func() error
	logger  logrus.FieldLogger
}

// Open connects the configured backend and sink and loads the catalog and
// reports. Close releases whatever Open acquired.
func Open(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &App{logger: logger}

	kv, err := a.openKV(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	sink, err := a.openSink(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.KV = kv
	a.Notifications = notify.NewRecorder(200)
	a.Service = service.New(service.Deps{
		Catalog:  products.New(kv, logger, products.WithSeed(cfg.SeedProducts)),
		Reports:  reports.New(kv, logger),
		Notifier: notify.Multi(notify.LogSink{Logger: logger}, a.Notifications),
		Sink:     sink,
		Logger:   logger,
	})
	a.Service.Load(ctx)
	return a, nil
}

func (a *App) openKV(ctx context.Context, cfg config.Config) (store.KV, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rs := redisstore.New(redisstore.Options{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			Namespace:  cfg.KVNamespace,
			LockWrites: cfg.RedisLock,
		})
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis unavailable: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		a.logger.WithField("backend", "redis").Info("storage ready")
		return rs, nil
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, cfg.KVNamespace)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		a.logger.WithField("backend", "postgres").Info("storage ready")
		return pg, nil
	case config.BackendSQLite:
		db, err := sqlitestore.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite unavailable: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.logger.WithFields(logrus.Fields{"backend": "sqlite", "path": cfg.SQLitePath}).Info("storage ready")
		return db, nil
	default:
		a.logger.WithField("backend", "memory").Info("storage ready")
		return memory.New(), nil
	}
}

func (a *App) openSink(ctx context.Context, cfg config.Config) (backup.Sink, error) {
	switch cfg.BackupSink {
	case config.SinkFile:
		return backup.DirSink{Dir: cfg.BackupDir}, nil
	case config.SinkS3:
		s3, err := backup.NewS3Sink(ctx, backup.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.BackupPrefix,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	case config.SinkGCS:
		gcs, err := backup.NewGCSSink(ctx, cfg.GCSBucket, cfg.BackupPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gcs.Close)
		return gcs, nil
	default:
		return backup.NopSink{}, nil
	}
}

// Close runs the registered closers in reverse order and returns the first error.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
