package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/business"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/economy"
	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// testParams — дешёвые параметры, чтобы тесты не тратили 64 MB на хеш.
var testParams = Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

type fakeTicks struct{ ran []string }

func (f *fakeTicks) RunNow(_ context.Context, name string) (string, error) {
	f.ran = append(f.ran, name)
	return name + ": ok", nil
}

func (f *fakeTicks) TickNames() []string { return []string{"income"} }

func newTestService(t *testing.T) (*Service, *economy.Service, *fakeTicks) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	clk := clock.NewFakeClock(time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC))

	accRepo, err := economy.NewRepository(ctx, st)
	require.NoError(t, err)
	ledger := economy.NewService(accRepo, clk, 1000)
	effects, err := business.NewEffects(ctx, st, clk)
	require.NoError(t, err)

	hash, err := HashPassword("s3cret", testParams)
	require.NoError(t, err)

	ticks := &fakeTicks{}
	svc := NewService(Options{
		AdminIDs:     []int64{7},
		PasswordHash: hash,
		SessionTTL:   time.Hour,
		Ledger:       ledger,
		Effects:      effects,
		Ticks:        ticks,
	})
	return svc, ledger, ticks
}

func TestHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("pa$$word", testParams)
	require.NoError(t, err)
	assert.True(t, VerifyPassword("pa$$word", hash))
	assert.False(t, VerifyPassword("password", hash))
	assert.False(t, VerifyPassword("pa$$word", "not-a-hash"))
}

func TestLoginLocksAfterFailedAttempts(t *testing.T) {
	svc, _, _ := newTestService(t)

	assert.ErrorIs(t, svc.Login(8, "s3cret"), common.ErrNotAdmin)

	for i := 0; i < MaxAttempts; i++ {
		assert.ErrorIs(t, svc.Login(7, "wrong"), common.ErrWrongPassword)
	}
	assert.ErrorIs(t, svc.Login(7, "s3cret"), common.ErrTooManyAttempts)
	assert.ErrorIs(t, svc.Authorize(7), common.ErrSessionExpired)
}

func TestPrivilegedActionsRequireSession(t *testing.T) {
	svc, ledger, ticks := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Give(ctx, 7, 1, 500), common.ErrSessionExpired)

	require.NoError(t, svc.Login(7, "s3cret"))
	require.NoError(t, svc.Give(ctx, 7, 1, 500))

	taken, err := svc.Take(ctx, 7, 1, 10_000)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), taken, "take is floored at the available cash")
	acc, _ := ledger.Peek(1)
	assert.Zero(t, acc.Cash)

	n, err := svc.Warn(ctx, 7, 1, "спам")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	eff, err := svc.ActivateEffect(ctx, 7, "кофейня", 0)
	require.NoError(t, err)
	assert.Equal(t, "boost:coffee", eff.Key)

	out, err := svc.RunTick(ctx, 7, "income")
	require.NoError(t, err)
	assert.Equal(t, "income: ok", out)
	assert.Equal(t, []string{"income"}, ticks.ran)

	svc.Logout(7)
	assert.ErrorIs(t, svc.Give(ctx, 7, 1, 500), common.ErrSessionExpired)
}
