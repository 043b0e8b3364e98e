// Package app wires configuration, database, storage, and the conversion
// pipeline into the stores service. The API server, the worker, and the CLI
// all bootstrap through here so they agree on the stack.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/Digitalmx/mattibud-web/internal/config"
	"github.com/Digitalmx/mattibud-web/internal/database"
	"github.com/Digitalmx/mattibud-web/internal/pdfconvert"
	"github.com/Digitalmx/mattibud-web/internal/repository"
	"github.com/Digitalmx/mattibud-web/internal/s3storage"
	"github.com/Digitalmx/mattibud-web/internal/storage"
	"github.com/Digitalmx/mattibud-web/internal/stores"
)

// App bundles the long lived pieces a process needs.
type App struct {
	Cfg     *config.Config
	Log     *logrus.Logger
	Pool    *pgxpool.Pool
	Blobs   storage.BlobStorage
	Service *stores.Service
}

// Bootstrap loads configuration, connects to Postgres, selects the blob
// backend, and builds the stores service on top.
func Bootstrap(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	blobs, err := buildStorage(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	storeRepo := repository.NewStoreRepository(pool)
	imageRepo := repository.NewStoreImageRepository(pool)

	runner := pdfconvert.ExecRunner{Timeout: cfg.ToolTimeout}
	pipeline := pdfconvert.NewPipeline(blobs, imageRepo, runner, log)
	svc := stores.NewService(storeRepo, imageRepo, blobs, pipeline, log)

	return &App{
		Cfg:     cfg,
		Log:     log,
		Pool:    pool,
		Blobs:   blobs,
		Service: svc,
	}, nil
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}

func buildStorage(ctx context.Context, cfg *config.Config) (storage.BlobStorage, error) {
	switch cfg.StorageBackend {
	case "local":
		blobs, err := storage.NewLocal(cfg.StorageRoot)
		if err != nil {
			return nil, fmt.Errorf("open local storage: %w", err)
		}
		return blobs, nil
	case "s3":
		blobs, err := s3storage.New(s3storage.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 storage: %w", err)
		}
		if err := blobs.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		return blobs, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
