package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/icu-api/internal/config"
	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
)

func TestMapError(t *testing.T) {
	boom := errors.New("boom")
	syntax := &pq.Error{Code: "42601", Message: "syntax error"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, repository.ErrNotFound},
		{"wrapped no rows", errors.Join(boom, sql.ErrNoRows), repository.ErrNotFound},
		{"unique violation", &pq.Error{Code: "23505", Constraint: "beds_bed_number_key"}, repository.ErrDuplicate},
		{"connection failure", &pq.Error{Code: "08006"}, repository.ErrUnavailable},
		{"admin shutdown", &pq.Error{Code: "57P01"}, repository.ErrUnavailable},
		{"cannot connect now", &pq.Error{Code: "57P03"}, repository.ErrUnavailable},
		{"bad conn", driver.ErrBadConn, repository.ErrUnavailable},
		{"conn done", sql.ErrConnDone, repository.ErrUnavailable},
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: boom}, repository.ErrUnavailable},
		{"other pq error", syntax, syntax},
		{"other error", boom, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}

	assert.NoError(t, mapError(nil))

	dup := mapError(&pq.Error{Code: "23505", Constraint: "idx_users_email"})
	assert.Contains(t, dup.Error(), "idx_users_email")
	assert.NotErrorIs(t, mapError(syntax), repository.ErrUnavailable)
}

type rowsResult struct {
	n   int64
	err error
}

func (r rowsResult) LastInsertId() (int64, error) { return 0, nil }
func (r rowsResult) RowsAffected() (int64, error) { return r.n, r.err }

func TestAffected(t *testing.T) {
	assert.NoError(t, affected(rowsResult{n: 1}, nil))
	assert.ErrorIs(t, affected(rowsResult{n: 0}, nil), repository.ErrNotFound)
	assert.ErrorIs(t, affected(nil, &pq.Error{Code: "23505"}), repository.ErrDuplicate)

	countErr := errors.New("rows affected unsupported")
	assert.ErrorIs(t, affected(rowsResult{err: countErr}, nil), countErr)
}

func TestWhere(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var w where
		w.search("   ", "name")
		assert.Empty(t, w.String())

		query, args := w.page("SELECT * FROM beds", model.BaseFilter{})
		assert.Equal(t, "SELECT * FROM beds", query)
		assert.Empty(t, args)
	})

	t.Run("conditions search and paging", func(t *testing.T) {
		var w where
		w.add("status = ?", "available")
		w.search(" 50%_off\\ ", "name", "ward")

		assert.Equal(t, " WHERE status = ? AND (name ILIKE ? OR ward ILIKE ?)", w.String())

		query, args := w.page("SELECT * FROM beds"+w.String(), model.BaseFilter{Limit: 10, Offset: 20})
		assert.Equal(t,
			"SELECT * FROM beds WHERE status = $1 AND (name ILIKE $2 OR ward ILIKE $3) LIMIT $4 OFFSET $5",
			sqlx.Rebind(sqlx.DOLLAR, query))
		assert.Equal(t, []interface{}{"available", `%50\%\_off\\%`, `%50\%\_off\\%`, 10, 20}, args)
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "ICU-001", escapeLike("ICU-001"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\temp`, escapeLike(`c:\temp`))
}

func TestStoreWithoutPool(t *testing.T) {
	db := NewDB(config.DatabaseConfig{}, nil)
	store := NewStore(db)
	ctx := context.Background()

	_, err := db.Conn()
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.ErrorIs(t, db.Ping(ctx), repository.ErrUnavailable)
	assert.NoError(t, db.Close())

	stats := db.Stats()
	assert.Equal(t, config.DriverPostgres, stats.Driver)
	assert.False(t, stats.Connected)

	_, err = store.Beds().List(ctx, nil)
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	_, err = store.Patients().Get(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrUnavailable)

	called := false
	err = store.WithTx(ctx, func(tx repository.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.False(t, called)
}

func TestConnectUnreachable(t *testing.T) {
	db := NewDB(config.DatabaseConfig{
		Host:            "127.0.0.1",
		Port:            1,
		User:            "icu",
		Name:            "icu",
		SSLMode:         "disable",
		ConnectAttempts: 2,
		RetryDelay:      time.Millisecond,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := db.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.False(t, db.Stats().Connected)
}
