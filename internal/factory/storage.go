// Package factory builds concrete dependencies from configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lodestone-app/lodestone/internal/config"
	storepkg "github.com/lodestone-app/lodestone/internal/store"
	storemem "github.com/lodestone-app/lodestone/internal/store/memory"
	storepg "github.com/lodestone-app/lodestone/internal/store/postgres"
	storesqlite "github.com/lodestone-app/lodestone/internal/store/sqlite"
)

// NewStore returns the store.Store selected by cfg.DBDriver: memory for tests
// and throwaway runs, sqlite for local single-user deployments, postgres for
// hosted ones. Schema bootstrap runs synchronously; the planner cannot serve
// anything useful against a half-created schema.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "memory":
		log.Warn().Msg("using in-memory store; data will not survive restarts")
		return storemem.New(), nil
	case "sqlite":
		s, err := storesqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store at %s: %w", cfg.SQLitePath, err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
		return s, nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("LODESTONE_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		s, err := storepg.Bootstrap(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("bootstrap postgres store: %w", err)
		}
		log.Info().Msg("postgres store ready")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
