package postgres

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/config"
	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/pkg/metrics"
)

// DB owns the connection pool. The pool can be replaced at runtime through
// Reconnect, so repositories fetch it on every call via Conn.
type DB struct {
	cfg     config.DatabaseConfig
	metrics *metrics.Metrics

	mu   sync.RWMutex
	conn *sqlx.DB

	reconnects atomic.Int64
}

func NewDB(cfg config.DatabaseConfig, m *metrics.Metrics) *DB {
	return &DB{cfg: cfg, metrics: m}
}

func (d *DB) Driver() string {
	return config.DriverPostgres
}

// Connect opens the pool, trying ConnectAttempts times with RetryDelay
// between attempts.
func (d *DB) Connect(ctx context.Context) error {
	attempts := d.cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := d.open(ctx)
		if err == nil {
			d.mu.Lock()
			old := d.conn
			d.conn = conn
			d.mu.Unlock()
			if old != nil {
				old.Close()
			}
			log.Info().Int("attempt", i).Str("host", d.cfg.Host).Msg("Connected to database")
			return nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", i).Int("max_attempts", attempts).Msg("Database connection failed")

		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", repository.ErrUnavailable, ctx.Err())
		case <-time.After(d.cfg.RetryDelay):
		}
	}
	return fmt.Errorf("%w: %v", repository.ErrUnavailable, lastErr)
}

func (d *DB) open(ctx context.Context) (*sqlx.DB, error) {
	conn, err := sqlx.Open("postgres", d.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(d.cfg.MaxOpenConns)
	conn.SetMaxIdleConns(d.cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(d.cfg.ConnMaxLifetime)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// Reconnect drops the current pool and connects again.
func (d *DB) Reconnect(ctx context.Context) error {
	d.reconnects.Add(1)
	err := d.Connect(ctx)
	d.metrics.ObserveReconnect(err == nil)
	return err
}

// Conn returns the live pool or ErrUnavailable when none is open.
func (d *DB) Conn() (*sqlx.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil {
		return nil, repository.ErrUnavailable
	}
	return d.conn, nil
}

func (d *DB) Ping(ctx context.Context) error {
	conn, err := d.Conn()
	if err != nil {
		return err
	}
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return nil
}

func (d *DB) Stats() model.DatabaseStats {
	stats := model.DatabaseStats{
		Driver:     d.Driver(),
		Reconnects: d.reconnects.Load(),
	}
	conn, err := d.Conn()
	if err != nil {
		return stats
	}
	s := conn.Stats()
	stats.Connected = true
	stats.OpenConnections = s.OpenConnections
	stats.InUse = s.InUse
	stats.Idle = s.Idle
	return stats
}

func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
