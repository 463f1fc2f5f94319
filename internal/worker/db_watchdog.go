package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/pkg/circuitbreaker"
)

const pingTimeout = 5 * time.Second

// DatabaseWatchdog pings the database periodically and reconnects when the
// ping fails. Reconnects go through a circuit breaker so a database that is
// down for a while is not hammered with connection attempts every tick.
type DatabaseWatchdog struct {
	db       repository.Database
	interval time.Duration
	breaker  *circuitbreaker.CircuitBreaker
}

func NewDatabaseWatchdog(db repository.Database, interval time.Duration, breaker *circuitbreaker.CircuitBreaker) *DatabaseWatchdog {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "database-reconnect",
			MaxFailures: 3,
			Timeout:     time.Minute,
		})
	}
	return &DatabaseWatchdog{
		db:       db,
		interval: interval,
		breaker:  breaker,
	}
}

func (w *DatabaseWatchdog) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Check(ctx); err != nil && !errors.Is(err, circuitbreaker.ErrOpen) {
				log.Error().Err(err).Str("driver", w.db.Driver()).Msg("Database still unreachable")
			}
		}
	}
}

// Check pings once and reconnects on failure. It returns nil when the
// database is reachable after the call.
func (w *DatabaseWatchdog) Check(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := w.db.Ping(pingCtx)
	cancel()
	if err == nil {
		return nil
	}

	log.Warn().Err(err).Msg("Database ping failed, reconnecting")
	return w.breaker.Execute(func() error {
		if err := w.db.Reconnect(ctx); err != nil {
			return err
		}
		log.Info().Str("driver", w.db.Driver()).Msg("Database reconnected by watchdog")
		return nil
	})
}
