package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/config"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/repository/memory"
	"github.com/jwalitptl/icu-api/internal/repository/postgres"
	"github.com/jwalitptl/icu-api/internal/repository/redisstore"
	"github.com/jwalitptl/icu-api/pkg/metrics"
)

// resources holds the connections opened for one command run.
type resources struct {
	store    repository.Store
	database repository.Database
	tokens   repository.TokenRepository

	closers []func() error
}

func openResources(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*resources, error) {
	res := &resources{}

	switch cfg.Database.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		res.store = store
		res.database = store
		res.closers = append(res.closers, store.Close)
		log.Warn().Msg("using the in-memory store, data is lost on restart")
	default:
		db := postgres.NewDB(cfg.Database, m)
		if err := db.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		res.closers = append(res.closers, db.Close)
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				res.Close()
				return nil, err
			}
		}
		res.store = postgres.NewStore(db)
		res.database = db
	}

	if cfg.Redis.URL != "" {
		client, err := redisstore.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			res.Close()
			return nil, err
		}
		res.closers = append(res.closers, client.Close)
		res.tokens = redisstore.NewTokenStore(client)
		log.Info().Msg("token revocation shared through redis")
	} else {
		res.tokens = memory.NewTokenStore()
	}

	return res, nil
}

// Close releases resources in reverse order of opening.
func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close resource")
		}
	}
	r.closers = nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
