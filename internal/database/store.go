package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/smartexam/internal/config"
	"github.com/stemsi/smartexam/internal/repository"
	"github.com/stemsi/smartexam/internal/repository/sqlite"
	"github.com/stemsi/smartexam/internal/service"
)

// Store bundles the catalog and session store of the configured backend.
type Store struct {
	Catalog  service.Catalog
	Writer   service.CatalogWriter
	Sessions service.SessionStore
	Monitor  service.ExamSessionLister
	Ping     func(ctx context.Context) error
	Close    func()
}

// OpenStore opens the backend selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		catalog := repository.NewCatalog(pool)
		sessions := repository.NewExamSessionRepository(pool)
		return &Store{
			Catalog:  catalog,
			Writer:   catalog,
			Sessions: sessions,
			Monitor:  sessions,
			Ping:     pool.Ping,
			Close:    pool.Close,
		}, nil

	case config.StoreDriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info().Str("dsn", cfg.SQLiteDSN).Msg("SQLite store opened")
		return &Store{
			Catalog:  db,
			Writer:   db,
			Sessions: db,
			Monitor:  db,
			Ping:     db.Ping,
			Close:    func() { db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
