package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/concurrency"
)

func TestRunNow(t *testing.T) {
	s := NewScheduler(time.UTC, concurrency.NewGuard())
	calls := 0
	s.Register(Tick{Name: "income", Spec: "0 12 * * *", Run: func(context.Context) (string, error) {
		calls++
		return "ok", nil
	}})
	s.Register(Tick{Name: "broken", Spec: "@hourly", Run: func(context.Context) (string, error) {
		return "", errors.New("boom")
	}})

	out, err := s.RunNow(context.Background(), "income")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, calls)

	_, err = s.RunNow(context.Background(), "broken")
	assert.EqualError(t, err, "boom")

	_, err = s.RunNow(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.Equal(t, []string{"broken", "income"}, s.TickNames())
}

func TestRunNowHoldsWorldLock(t *testing.T) {
	guard := concurrency.NewGuard()
	s := NewScheduler(time.UTC, guard)
	entered := make(chan struct{})
	release := make(chan struct{})
	s.Register(Tick{Name: "slow", Spec: "@every 1m", Run: func(context.Context) (string, error) {
		close(entered)
		<-release
		return "", nil
	}})

	go func() { _, _ = s.RunNow(context.Background(), "slow") }()
	<-entered

	done := make(chan struct{})
	go func() {
		_ = guard.WithUser(1, func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("command ran while a tick held the world lock")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-done
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.UTC, concurrency.NewGuard())
	s.Register(Tick{Name: "bad", Spec: "every tuesday", Run: func(context.Context) (string, error) { return "", nil }})
	assert.Error(t, s.Start(context.Background()))
}
