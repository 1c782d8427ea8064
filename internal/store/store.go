// Package store persists the product status map between runs. Business logic
// depends on the Store interface, never on a concrete backend, so the engine
// can be tested against mocks without a filesystem or database.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/donaldgifford/amul-stock-tracker/internal/config"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// Store loads and saves the whole status map. There is a single writer per
// process, so implementations do no locking of their own.
type Store interface {
	// Load returns the persisted map. A missing or unreadable document yields
	// an empty map and no error.
	Load(ctx context.Context) (domain.StatusMap, error)
	// Save replaces the persisted map with m.
	Save(ctx context.Context, m domain.StatusMap) error
	Ping(ctx context.Context) error
	Close() error
}

// Option configures a store backend.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New opens the backend selected by cfg.Backend. Postgres schemas are migrated
// here when auto_migrate is set.
func New(ctx context.Context, cfg *config.StateConfig, log *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.File, WithLogger(log)), nil

	case config.BackendPostgres:
		s, err := NewPostgresStore(ctx, &cfg.Postgres, WithLogger(log))
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := s.Migrate(ctx); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("running migrations: %w", err)
			}
		}
		return s, nil

	case config.BackendGCS:
		return NewGCSStore(ctx, cfg.GCS, WithLogger(log))

	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

// decodeStatusMap parses a persisted document. Invalid JSON self-heals to an
// empty map. Boolean values written by older trackers map to available and
// unavailable; any other value keeps its key as unavailable.
func decodeStatusMap(data []byte, source string, log *slog.Logger) domain.StatusMap {
	out := make(domain.StatusMap)
	if len(data) == 0 {
		return out
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn("state document is not valid JSON, starting empty",
			"source", source,
			"error", err,
		)
		return out
	}

	for id, v := range raw {
		out[id] = decodeStatus(v, id, source, log)
	}

	return out
}

func decodeStatus(v any, id, source string, log *slog.Logger) domain.Status {
	switch val := v.(type) {
	case bool:
		if val {
			return domain.StatusAvailable
		}
		return domain.StatusUnavailable
	case string:
		if s := domain.Status(val); s.Valid() {
			return s
		}
	}

	log.Warn("state entry has unknown status, treating as unavailable",
		"source", source,
		"product", id,
		"value", v,
	)
	return domain.StatusUnavailable
}

// encodeStatusMap renders the map with sorted keys, two-space indentation and
// a trailing newline.
func encodeStatusMap(m domain.StatusMap) ([]byte, error) {
	if m == nil {
		m = domain.StatusMap{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding status map: %w", err)
	}
	return append(data, '\n'), nil
}
