package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-receivables/internal/analytics"
	"github.com/odyssey-erp/odyssey-receivables/internal/exports"
	"github.com/odyssey-erp/odyssey-receivables/internal/invoicing"
	"github.com/odyssey-erp/odyssey-receivables/internal/observability"
	"github.com/odyssey-erp/odyssey-receivables/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-receivables/internal/platform/db"
	"github.com/odyssey-erp/odyssey-receivables/internal/receivables"
	"github.com/odyssey-erp/odyssey-receivables/jobs"
)

// ErrExportsDisabled is returned by OpenExports when REDIS_ADDR is empty.
var ErrExportsDisabled = errors.New("app: exports disabled, REDIS_ADDR is empty")

// RedisOptions returns the Redis settings shared by the store and the queue.
func (c *Config) RedisOptions() cache.Options {
	return cache.Options{Addr: c.RedisAddr, DB: c.RedisDB}
}

// OpenCatalog connects to the ledger database and assembles the report
// catalog. The returned func closes the pool.
func OpenCatalog(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*analytics.Catalog, func(), error) {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, nil, err
	}
	tables, err := db.NewTables(cfg.DBPrefix)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("app: table prefix: %w", err)
	}

	arService := receivables.NewService(receivables.NewRepository(pool, tables), cfg.ReceivablesOptions(), logger)
	arService.WithRecorder(metrics)
	invoiceService := invoicing.NewService(invoicing.NewRepository(pool, tables))

	catalog := analytics.NewCatalog(arService, invoiceService, cfg.WorkbookMeta(), logger)
	catalog.WithRecorder(metrics)
	return catalog, pool.Close, nil
}

// OpenExports connects to Redis and builds the export service on top of
// builder. The returned func closes the queue client and Redis.
func OpenExports(ctx context.Context, cfg *Config, logger *slog.Logger, builder exports.Builder) (*exports.Service, func(), error) {
	if !cfg.ExportsEnabled() {
		return nil, nil, ErrExportsDisabled
	}
	opts := cfg.RedisOptions()
	client, err := cache.New(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	queue := jobs.NewClient(opts.Queue())
	cleanup := func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
		if err := client.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}
	store := exports.NewStore(client, cfg.ExportTTL)
	return exports.NewService(store, queue, builder, logger), cleanup, nil
}
