package loans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/concurrency"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/economy"
	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

type tenures map[int64]int

func (t tenures) TenureDays(userID int64) int { return t[userID] }

// datasetFailStore ломает запись одного набора данных.
type datasetFailStore struct {
	store.Store
	dataset string
}

func (f *datasetFailStore) Save(ctx context.Context, dataset string, v any) error {
	if dataset == f.dataset {
		return errors.New("disk full")
	}
	return f.Store.Save(ctx, dataset, v)
}

type fixture struct {
	svc    *Service
	ledger *economy.Service
	clock  *clock.FakeClock
	st     *datasetFailStore
	sent   []string
}

var start = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, maxDoublings int) *fixture {
	t.Helper()
	ctx := context.Background()
	st := &datasetFailStore{Store: store.NewMemoryStore()}
	clk := clock.NewFakeClock(start)

	accRepo, err := economy.NewRepository(ctx, st)
	require.NoError(t, err)
	ledger := economy.NewService(accRepo, clk, 1000)
	repo, err := NewRepository(ctx, st)
	require.NoError(t, err)

	f := &fixture{ledger: ledger, clock: clk, st: st}
	f.svc = NewService(Options{
		Repo:         repo,
		Ledger:       ledger,
		Tenure:       tenures{1: 100, 2: 20, 3: 45, 4: 150},
		Guard:        concurrency.NewGuard(),
		Clock:        clk,
		MaxDoublings: maxDoublings,
	})
	f.svc.OnNotify(func(_ context.Context, _ int64, text string) {
		f.sent = append(f.sent, text)
	})
	return f
}

func (f *fixture) cash(t *testing.T, userID int64) int64 {
	acc, err := f.ledger.Get(context.Background(), userID)
	require.NoError(t, err)
	return acc.Cash
}

func TestTenureTiers(t *testing.T) {
	tests := []struct {
		tenure int
		limit  int64
		rate   string
	}{
		{0, 0, "0.2"},
		{29, 0, "0.2"},
		{30, 100_000, "0.2"},
		{59, 100_000, "0.2"},
		{60, 300_000, "0.2"},
		{90, 500_000, "0.2"},
		{120, 1_000_000, "0.2"},
		{121, 1_000_000, "0.15"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.limit, MaxPrincipal(tt.tenure), "tenure %d", tt.tenure)
		assert.True(t, RateFor(tt.tenure).Equal(decimal.RequireFromString(tt.rate)), "tenure %d", tt.tenure)
	}
}

func TestApplyLoan(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	loan, err := f.svc.Apply(ctx, 1, 50000, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(8571), loan.DailyPayment)
	assert.Equal(t, start.Add(7*24*time.Hour), loan.DueAt)
	assert.Equal(t, int64(60000), loan.Owed())
	assert.Equal(t, int64(51000), f.cash(t, 1))

	_, err = f.svc.Apply(ctx, 1, 1000, 3)
	assert.ErrorIs(t, err, common.ErrLoanActive)
	assert.Equal(t, int64(51000), f.cash(t, 1))
}

func TestApplyRejections(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, 2, 1000, 7)
	assert.ErrorIs(t, err, common.ErrPermission, "tenure below minimum")

	_, err = f.svc.Apply(ctx, 3, 200_000, 7)
	assert.ErrorIs(t, err, common.ErrValidation, "principal above tier limit")

	_, err = f.svc.Apply(ctx, 1, 1000, 8)
	assert.ErrorIs(t, err, common.ErrValidation, "term above maximum")

	_, err = f.svc.Apply(ctx, 1, 0, 3)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	for _, id := range []int64{1, 2, 3} {
		_, ok := f.svc.Get(id)
		assert.False(t, ok)
	}
}

func TestQuoteHasNoSideEffects(t *testing.T) {
	f := newFixture(t, 3)

	q, err := f.svc.Quote(4, 100_000, 5)
	require.NoError(t, err)
	assert.Equal(t, "15%", q.RatePercent())
	assert.Equal(t, int64(115_000), q.Total)
	assert.Equal(t, int64(23_000), q.Daily)

	_, ok := f.svc.Get(4)
	assert.False(t, ok)
	_, ok = f.ledger.Peek(4)
	assert.False(t, ok)
}

func TestPayClampsToRemaining(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, 1, 50000, 7)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Credit(ctx, 1, 100_000, economy.TxAdminGive, "тест"))

	res, err := f.svc.Pay(ctx, 1, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), res.Remaining)
	assert.False(t, res.Closed)

	res, err = f.svc.Pay(ctx, 1, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), res.Paid)
	assert.True(t, res.Closed)

	// 1000 + 50000 + 100000 - 60000
	assert.Equal(t, int64(91000), f.cash(t, 1))

	_, err = f.svc.Pay(ctx, 1, 100)
	assert.ErrorIs(t, err, common.ErrNoLoan)
}

func TestPayInsufficientFundsLeavesLoan(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, 1, 50000, 7)
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, 1, 60000)
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	loan, ok := f.svc.Get(1)
	require.True(t, ok)
	assert.Zero(t, loan.Paid)
	assert.Equal(t, int64(51000), f.cash(t, 1))
}

func TestCheckDoublesOncePerDueDate(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, 1, 50000, 7)
	require.NoError(t, err)

	res, err := f.svc.Check(ctx, 1)
	require.NoError(t, err)
	assert.False(t, res.Overdue)

	f.clock.Advance(7*24*time.Hour + time.Second)
	res, err = f.svc.Check(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Doubled)
	assert.Equal(t, int64(100_000), res.Loan.Principal)
	assert.Equal(t, start.Add(9*24*time.Hour), res.Loan.DueAt)

	res, err = f.svc.Check(ctx, 1)
	require.NoError(t, err)
	assert.False(t, res.Doubled)
	assert.Equal(t, int64(100_000), res.Loan.Principal)
}

func TestDoublingIsCapped(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, 1, 10000, 1)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		f.clock.Advance(Grace + time.Hour)
		_, err := f.svc.Check(ctx, 1)
		require.NoError(t, err)
	}
	loan, ok := f.svc.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2, loan.Doublings)
	assert.Equal(t, int64(40000), loan.Principal)
}

func TestHandleUnpaidPenaltyFloorsAtZero(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, 1, 10000, 1)
	require.NoError(t, err)

	f.clock.Advance(24*time.Hour + time.Hour)
	u, err := f.svc.HandleUnpaid(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, u, "grace window not over yet")

	f.clock.Advance(Grace)
	u, err = f.svc.HandleUnpaid(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(100_000), u.Penalty)
	assert.Equal(t, int64(11000), u.Charged)
	assert.Zero(t, f.cash(t, 1))

	_, ok := f.svc.Get(1)
	assert.False(t, ok)
}

func TestTickOnlyWarns(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, 1, 10000, 7)
	require.NoError(t, err)

	assert.Zero(t, f.svc.Tick(ctx).Warned)

	f.clock.Advance(4*24*time.Hour + time.Hour) // до срока 71ч
	assert.Equal(t, 1, f.svc.Tick(ctx).Warned)
	assert.Zero(t, f.svc.Tick(ctx).Warned)
	require.Len(t, f.sent, 1)
	assert.Contains(t, f.sent[0], "3 дня")

	f.clock.Advance(48 * time.Hour) // 23ч
	assert.Equal(t, 1, f.svc.Tick(ctx).Warned)
	assert.Contains(t, f.sent[1], "1 день")

	f.clock.Advance(22*time.Hour + 30*time.Minute) // 30 минут
	assert.Equal(t, 1, f.svc.Tick(ctx).Warned)
	assert.Contains(t, f.sent[2], "1 час")
	assert.Zero(t, f.svc.Tick(ctx).Warned)

	// просрочка: тик долг не трогает
	f.clock.Advance(3 * Grace)
	assert.Zero(t, f.svc.Tick(ctx).Warned)
	loan, ok := f.svc.Get(1)
	require.True(t, ok)
	assert.Equal(t, int64(10000), loan.Principal)
	assert.Zero(t, loan.Doublings)
	assert.Equal(t, int64(1000+10000), f.cash(t, 1))
	assert.Len(t, f.sent, 3)
}

func TestWarningsRearmAfterDoubling(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, 1, 10000, 1)
	require.NoError(t, err)

	f.clock.Advance(23*time.Hour + 30*time.Minute) // 30 минут
	assert.Equal(t, 1, f.svc.Tick(ctx).Warned)
	require.Len(t, f.sent, 1)
	assert.Contains(t, f.sent[0], "1 час")

	f.clock.Advance(time.Hour)
	res, err := f.svc.Check(ctx, 1)
	require.NoError(t, err)
	require.True(t, res.Doubled)

	// новый срок через 47,5ч: «3 дня» уже не к месту, остальные снова в силе
	assert.Zero(t, f.svc.Tick(ctx).Warned)

	f.clock.Advance(24 * time.Hour) // 23,5ч
	assert.Equal(t, 1, f.svc.Tick(ctx).Warned)
	assert.Contains(t, f.sent[1], "1 день")

	f.clock.Advance(23 * time.Hour) // 30 минут
	assert.Equal(t, 1, f.svc.Tick(ctx).Warned)
	assert.Contains(t, f.sent[2], "1 час")
	assert.Zero(t, f.svc.Tick(ctx).Warned)
}

func TestApplyRollsBackWhenLedgerSaveFails(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	f.cash(t, 1)

	f.st.dataset = store.DatasetAccounts
	_, err := f.svc.Apply(ctx, 1, 50000, 7)
	require.Error(t, err)

	_, ok := f.svc.Get(1)
	assert.False(t, ok)
	acc, _ := f.ledger.Peek(1)
	assert.Equal(t, int64(1000), acc.Cash)
}
