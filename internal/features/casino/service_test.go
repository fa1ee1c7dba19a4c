package casino

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/concurrency"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/economy"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/tax"
	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

// accountsFailStore ломает запись аккаунтов, пока fail == true.
type accountsFailStore struct {
	store.Store
	fail bool
}

func (f *accountsFailStore) Save(ctx context.Context, dataset string, v any) error {
	if f.fail && dataset == store.DatasetAccounts {
		return errors.New("disk full")
	}
	return f.Store.Save(ctx, dataset, v)
}

type fixture struct {
	svc    *Service
	ledger *economy.Service
	timers *clock.ManualTimers
	st     *accountsFailStore
}

func newFixture(t *testing.T, rng RNG) *fixture {
	t.Helper()
	ctx := context.Background()
	st := &accountsFailStore{Store: store.NewMemoryStore()}
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	accRepo, err := economy.NewRepository(ctx, st)
	require.NoError(t, err)
	ledger := economy.NewService(accRepo, clk, 1000)

	repo, err := NewRepository(ctx, st)
	require.NoError(t, err)

	timers := clock.NewManualTimers(clk)
	svc := NewService(Options{
		Ledger:           ledger,
		Repo:             repo,
		Policy:           tax.DefaultPolicy(),
		Guard:            concurrency.NewGuard(),
		Clock:            clk,
		Timers:           timers,
		RNG:              rng,
		BlackjackTimeout: 60 * time.Second,
	})
	return &fixture{svc: svc, ledger: ledger, timers: timers, st: st}
}

func (f *fixture) cash(t *testing.T, userID int64) int64 {
	t.Helper()
	acc, err := f.ledger.Get(context.Background(), userID)
	require.NoError(t, err)
	return acc.Cash
}

func TestFlipWinBelowThreshold(t *testing.T) {
	f := newFixture(t, fixed(0))
	ctx := context.Background()

	assert.Equal(t, int64(1000), f.cash(t, 1))

	res, st, err := f.svc.Flip(ctx, 1, 100, "орел")
	require.NoError(t, err)
	assert.Equal(t, Heads, res.Side)
	assert.Equal(t, int64(200), st.Gross)
	assert.Zero(t, st.Tax)
	assert.Equal(t, int64(1100), st.Cash)
	assert.Equal(t, int64(1100), f.cash(t, 1))
}

func TestSpinJackpotTaxesProfitOnly(t *testing.T) {
	f := newFixture(t, fixed(0))
	ctx := context.Background()
	require.NoError(t, f.ledger.Credit(ctx, 1, 24000, economy.TxAdminGive, "пополнение"))

	res, st, err := f.svc.Spin(ctx, 1, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Multiplier)
	assert.Equal(t, int64(50000), st.Gross)
	assert.Equal(t, int64(7200), st.Tax)
	assert.Equal(t, int64(42800), st.Net)
	assert.Equal(t, int64(57800), f.cash(t, 1))

	stats := f.svc.Stats(1)
	assert.Equal(t, int64(1), stats.Games)
	assert.Equal(t, int64(10000), stats.Wagered)
	assert.Equal(t, int64(32800), stats.BiggestWin)
}

func TestGameRejectsWithoutStateChange(t *testing.T) {
	f := newFixture(t, fixed(0))
	ctx := context.Background()

	_, _, err := f.svc.Flip(ctx, 1, 5000, "о")
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	_, _, err = f.svc.Flip(ctx, 1, 0, "о")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, _, err = f.svc.Flip(ctx, 1, 100, "ребро")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, _, err = f.svc.Dice(ctx, 1, 100, 7)
	assert.ErrorIs(t, err, common.ErrValidation)

	assert.Equal(t, int64(1000), f.cash(t, 1))
	assert.Zero(t, f.svc.Stats(1).Games)
}

func TestRouletteInvalidTargetRefunds(t *testing.T) {
	f := newFixture(t, fixed(0))
	ctx := context.Background()

	res, st, err := f.svc.Roulette(ctx, 1, 300, "фиолетовое")
	require.NoError(t, err)
	assert.True(t, res.Refund)
	assert.Equal(t, int64(300), st.Net)
	assert.Equal(t, int64(1000), f.cash(t, 1))
}

// С RNG, всегда возвращающим 0, игрок получает 2♥ A♠ (13), дилер K♠ Q♠ (20).
func TestBlackjackStandLoses(t *testing.T) {
	f := newFixture(t, fixed(0))
	ctx := context.Background()

	r, st, err := f.svc.StartBlackjack(ctx, 1, 10, 100)
	require.NoError(t, err)
	require.Nil(t, st)
	assert.Equal(t, 13, HandValue(r.Player))
	assert.Equal(t, int64(900), f.cash(t, 1))

	_, _, err = f.svc.StartBlackjack(ctx, 1, 10, 100)
	assert.ErrorIs(t, err, common.ErrStateConflict)

	r, st, err = f.svc.Stand(ctx, 1, r.ID)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, ResultDealerWin, r.Result)
	assert.Equal(t, int64(900), f.cash(t, 1))
	assert.Zero(t, f.timers.Pending())
}

func TestBlackjackRejectsOtherPlayer(t *testing.T) {
	f := newFixture(t, fixed(0))
	ctx := context.Background()

	r, _, err := f.svc.StartBlackjack(ctx, 1, 10, 100)
	require.NoError(t, err)

	_, _, err = f.svc.Hit(ctx, 2, r.ID)
	assert.ErrorIs(t, err, common.ErrPermission)

	r2, _, err := f.svc.Hit(ctx, 1, r.ID)
	require.NoError(t, err)
	assert.Len(t, r2.Player, 3, "other player's click must not draw a card")
}

func TestBlackjackTimeoutStands(t *testing.T) {
	f := newFixture(t, fixed(0))
	ctx := context.Background()

	var (
		notified Round
		calls    int
	)
	f.svc.OnTimeout(func(_ context.Context, r Round, _ Settlement) {
		notified = r
		calls++
	})

	r, _, err := f.svc.StartBlackjack(ctx, 1, 10, 100)
	require.NoError(t, err)

	f.timers.Advance(30 * time.Second)
	_, _, err = f.svc.Hit(ctx, 1, r.ID) // 2♥ A♠ J♠ = 13
	require.NoError(t, err)

	f.timers.Advance(40 * time.Second)
	assert.Zero(t, calls, "hit restarts the decision timer")

	f.timers.Advance(20 * time.Second)
	require.Equal(t, 1, calls)
	assert.True(t, notified.TimedOut)
	assert.Equal(t, StateFinished, notified.State)

	_, _, err = f.svc.Stand(ctx, 1, r.ID)
	assert.ErrorIs(t, err, common.ErrStateConflict)
}

func TestBlackjackNaturalPaysThree(t *testing.T) {
	identity := func(n int) int { return n - 1 }
	f := newFixture(t, identity)
	ctx := context.Background()

	r, st, err := f.svc.StartBlackjack(ctx, 1, 10, 100)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, ResultNatural, r.Result)
	assert.Equal(t, int64(300), st.Net)
	assert.Equal(t, int64(1200), f.cash(t, 1))
	assert.Zero(t, f.timers.Pending())
}

func TestBlackjackPayoutRetriedAfterSaveFailure(t *testing.T) {
	// игрок 2+3, дилер 4+5 добирает 6 и 7 — перебор
	f := newFixture(t, fixed(52))
	ctx := context.Background()

	r, _, err := f.svc.StartBlackjack(ctx, 1, 10, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(900), f.cash(t, 1))

	f.st.fail = true
	_, st, err := f.svc.Stand(ctx, 1, r.ID)
	require.Error(t, err)
	assert.Nil(t, st)
	assert.Equal(t, int64(900), f.cash(t, 1))

	// раунд не потерян: повторный ход доплачивает выигрыш
	f.st.fail = false
	out, st, err := f.svc.Stand(ctx, 1, r.ID)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, ResultDealerBust, out.Result)
	assert.Equal(t, int64(1100), st.Cash)
	assert.Equal(t, int64(1100), f.cash(t, 1))

	_, _, err = f.svc.Stand(ctx, 1, r.ID)
	assert.ErrorIs(t, err, common.ErrStateConflict)
}

func TestBlackjackTimeoutRetriesFailedPayout(t *testing.T) {
	f := newFixture(t, fixed(52))
	ctx := context.Background()

	var calls int
	f.svc.OnTimeout(func(_ context.Context, _ Round, _ Settlement) { calls++ })

	r, _, err := f.svc.StartBlackjack(ctx, 1, 10, 100)
	require.NoError(t, err)

	f.st.fail = true
	f.timers.Advance(60 * time.Second)
	assert.Zero(t, calls)
	assert.Equal(t, int64(900), f.cash(t, 1))
	assert.Equal(t, 1, f.timers.Pending(), "таймер перезапущен")

	f.st.fail = false
	f.timers.Advance(60 * time.Second)
	require.Equal(t, 1, calls)
	assert.Equal(t, int64(1100), f.cash(t, 1))

	_, _, err = f.svc.Stand(ctx, 1, r.ID)
	assert.ErrorIs(t, err, common.ErrStateConflict)
}
