package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/donaldgifford/amul-stock-tracker/internal/config"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// pgxPool is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it
// in unit tests.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore keeps the status map in the product_status table, one row per
// product.
type PostgresStore struct {
	pool    pgxPool
	log     *slog.Logger
	nowFunc func() time.Time
}

// NewPostgresStore creates a PostgresStore with connection pooling.
func NewPostgresStore(
	ctx context.Context,
	cfg *config.DatabaseConfig,
	opts ...Option,
) (*PostgresStore, error) {
	return NewPostgresStoreFromDSN(ctx, cfg.DSN(), int32(cfg.PoolSize), opts...)
}

// NewPostgresStoreFromDSN creates a PostgresStore from a connection string.
func NewPostgresStoreFromDSN(
	ctx context.Context,
	dsn string,
	poolSize int32,
	opts ...Option,
) (*PostgresStore, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if poolSize > 0 {
		pcfg.MaxConns = poolSize
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return NewPostgresStoreWithPool(pool, opts...), nil
}

// NewPostgresStoreWithPool wraps an existing pool.
func NewPostgresStoreWithPool(pool pgxPool, opts ...Option) *PostgresStore {
	o := buildOptions(opts)
	return &PostgresStore{
		pool:    pool,
		log:     o.log,
		nowFunc: time.Now,
	}
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	applied, err := RunMigrations(ctx, s.pool)
	for _, v := range applied {
		s.log.Info("applied migration", "version", v)
	}
	return err
}

// Load reads every row into a map. Rows whose status is not recognized are
// skipped.
func (s *PostgresStore) Load(ctx context.Context) (domain.StatusMap, error) {
	query, args, err := selectStatuses()
	if err != nil {
		return nil, fmt.Errorf("building status query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying statuses: %w", err)
	}
	defer rows.Close()

	out := make(domain.StatusMap)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("scanning status row: %w", err)
		}
		if !domain.Status(status).Valid() {
			s.log.Warn("dropping state entry with unknown status",
				"source", statusTable,
				"product", id,
				"value", status,
			)
			continue
		}
		out[id] = domain.Status(status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status rows: %w", err)
	}

	return out, nil
}

// Save replaces the table contents with m in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, m domain.StatusMap) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if len(m) > 0 {
		query, args, buildErr := upsertStatuses(m, s.nowFunc().UTC())
		if buildErr != nil {
			return fmt.Errorf("building upsert: %w", buildErr)
		}
		if _, err = tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upserting statuses: %w", err)
		}
	}

	query, args, buildErr := deleteStatusesExcept(m.Keys())
	if buildErr != nil {
		return fmt.Errorf("building delete: %w", buildErr)
	}
	if _, err = tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("pruning statuses: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing statuses: %w", err)
	}

	s.log.Debug("saved state", "table", statusTable, "products", len(m))
	return nil
}
