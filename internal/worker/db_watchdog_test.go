package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository/memory"
	"github.com/jwalitptl/icu-api/pkg/circuitbreaker"
)

type mockDatabase struct {
	mock.Mock
}

func (m *mockDatabase) Driver() string { return "mock" }

func (m *mockDatabase) Ping(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockDatabase) Reconnect(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockDatabase) Stats() model.DatabaseStats {
	return model.DatabaseStats{Driver: "mock"}
}

func TestDatabaseWatchdog_Check(t *testing.T) {
	ctx := context.Background()
	down := errors.New("connection refused")

	t.Run("healthy database is left alone", func(t *testing.T) {
		db := &mockDatabase{}
		db.On("Ping").Return(nil).Once()

		w := NewDatabaseWatchdog(db, time.Second, nil)
		assert.NoError(t, w.Check(ctx))
		db.AssertExpectations(t)
		db.AssertNotCalled(t, "Reconnect")
	})

	t.Run("failed ping triggers reconnect", func(t *testing.T) {
		db := &mockDatabase{}
		db.On("Ping").Return(down).Once()
		db.On("Reconnect").Return(nil).Once()

		w := NewDatabaseWatchdog(db, time.Second, nil)
		assert.NoError(t, w.Check(ctx))
		db.AssertExpectations(t)
	})

	t.Run("breaker stops reconnect storms", func(t *testing.T) {
		db := &mockDatabase{}
		db.On("Ping").Return(down)
		db.On("Reconnect").Return(down).Twice()

		breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			MaxFailures: 2,
			Timeout:     time.Hour,
		})
		w := NewDatabaseWatchdog(db, time.Second, breaker)

		assert.ErrorIs(t, w.Check(ctx), down)
		assert.ErrorIs(t, w.Check(ctx), down)
		assert.ErrorIs(t, w.Check(ctx), circuitbreaker.ErrOpen)
		db.AssertNumberOfCalls(t, "Reconnect", 2)
	})

	t.Run("reopens a closed memory store", func(t *testing.T) {
		store := memory.NewStore()
		assert.NoError(t, store.Close())

		w := NewDatabaseWatchdog(store, time.Second, nil)
		assert.NoError(t, w.Check(ctx))
		assert.NoError(t, store.Ping(ctx))
		assert.Equal(t, int64(1), store.Stats().Reconnects)
	})
}

func TestDatabaseWatchdog_StartStopsWithContext(t *testing.T) {
	pinged := make(chan struct{}, 1)
	db := &mockDatabase{}
	db.On("Ping").Return(nil).Run(func(mock.Arguments) {
		select {
		case pinged <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewDatabaseWatchdog(db, 5*time.Millisecond, nil).Start(ctx)
		close(done)
	}()

	select {
	case <-pinged:
	case <-time.After(time.Second):
		t.Fatal("watchdog never pinged")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop")
	}
}
