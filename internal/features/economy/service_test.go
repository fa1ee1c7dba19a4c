package economy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

type failingStore struct {
	store.Store
	fail bool
}

func (f *failingStore) Save(ctx context.Context, dataset string, v any) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.Save(ctx, dataset, v)
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	repo, err := NewRepository(context.Background(), st)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewService(repo, clk, 1000), st
}

func TestGetCreatesAccountWithStartingCash(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	acc, err := svc.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), acc.Cash)
	assert.Equal(t, 1, st.Saves(store.DatasetAccounts))

	_, err = svc.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Saves(store.DatasetAccounts), "existing account must not be rewritten")
}

func TestDebitGuarded(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Debit(ctx, 1, 1500, TxGameBet, "ставка")
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	acc, _ := svc.Peek(1)
	assert.Nil(t, acc, "failed debit must not create the account")

	require.NoError(t, svc.Debit(ctx, 1, 400, TxGameBet, "ставка"))
	acc, _ = svc.Peek(1)
	assert.Equal(t, int64(600), acc.Cash)
	require.Len(t, acc.History, 1)
	assert.Equal(t, int64(-400), acc.History[0].Amount)
	assert.NotEmpty(t, acc.History[0].ID)
}

func TestDebitUpToFloorsAtZero(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	taken, err := svc.DebitUpTo(ctx, 1, 5000, TxLoanPenalty, "штраф")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), taken)

	acc, _ := svc.Peek(1)
	assert.Equal(t, int64(0), acc.Cash)

	taken, err = svc.DebitUpTo(ctx, 1, 5000, TxLoanPenalty, "штраф")
	require.NoError(t, err)
	assert.Zero(t, taken)
}

func TestInvalidAmounts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Credit(ctx, 1, 0, TxAdminGive, ""), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Debit(ctx, 1, -5, TxAdminTake, ""), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Transfer(ctx, 1, 2, 0), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Transfer(ctx, 1, 1, 10), common.ErrSelfTransfer)
}

func TestTransfer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Transfer(ctx, 1, 2, 300))
	a, _ := svc.Peek(1)
	b, _ := svc.Peek(2)
	assert.Equal(t, int64(700), a.Cash)
	assert.Equal(t, int64(1300), b.Cash)

	err := svc.Transfer(ctx, 1, 2, 10_000)
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	a, _ = svc.Peek(1)
	b, _ = svc.Peek(2)
	assert.Equal(t, int64(700), a.Cash)
	assert.Equal(t, int64(1300), b.Cash)
}

func TestDepositWithdraw(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	moved, err := svc.DepositAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), moved)

	_, err = svc.DepositAll(ctx, 1)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	moved, err = svc.Withdraw(ctx, 1, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(250), moved)

	acc, _ := svc.Peek(1)
	assert.Equal(t, int64(250), acc.Cash)
	assert.Equal(t, int64(750), acc.Bank)

	_, err = svc.Withdraw(ctx, 1, 1000)
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	moved, err = svc.WithdrawAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(750), moved)
}

func TestDepositWithdrawRejectNonPositive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Deposit(ctx, 1, 300)
	require.NoError(t, err)

	// отрицательная или нулевая сумма — ошибка, а не «всё»
	for _, amount := range []int64{0, -100} {
		moved, err := svc.Deposit(ctx, 1, amount)
		assert.ErrorIs(t, err, common.ErrInvalidAmount)
		assert.Zero(t, moved)

		moved, err = svc.Withdraw(ctx, 1, amount)
		assert.ErrorIs(t, err, common.ErrInvalidAmount)
		assert.Zero(t, moved)
	}

	acc, _ := svc.Peek(1)
	assert.Equal(t, int64(700), acc.Cash)
	assert.Equal(t, int64(300), acc.Bank)
}

func TestHistoryCapped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 1; i <= HistoryLimit+5; i++ {
		require.NoError(t, svc.Credit(ctx, 1, int64(i), TxAdminGive, "бонус"))
	}
	acc, _ := svc.Peek(1)
	require.Len(t, acc.History, HistoryLimit)
	assert.Equal(t, int64(6), acc.History[0].Amount)
	assert.Equal(t, int64(HistoryLimit+5), acc.History[HistoryLimit-1].Amount)
}

func TestInventory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, 1, "🏆 Кубок недели", 1))
	assert.ErrorIs(t, svc.TakeItem(ctx, 1, "🏆 Кубок недели", 2), common.ErrStateConflict)
	require.NoError(t, svc.TakeItem(ctx, 1, "🏆 Кубок недели", 1))

	acc, _ := svc.Peek(1)
	assert.Empty(t, acc.Inventory)
}

func TestSaveFailureLeavesStateUntouched(t *testing.T) {
	fs := &failingStore{Store: store.NewMemoryStore()}
	repo, err := NewRepository(context.Background(), fs)
	require.NoError(t, err)
	svc := NewService(repo, clock.RealClock{}, 1000)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, 1, 500, TxAdminGive, ""))

	fs.fail = true
	assert.Error(t, svc.Credit(ctx, 1, 500, TxAdminGive, ""))
	assert.Error(t, svc.Credit(ctx, 2, 500, TxAdminGive, ""))

	acc, _ := svc.Peek(1)
	assert.Equal(t, int64(1500), acc.Cash)
	_, ok := svc.Peek(2)
	assert.False(t, ok)
}

func TestSweepIsolatesFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		_, err := svc.Get(ctx, id)
		require.NoError(t, err)
	}

	failed, err := svc.Sweep(ctx, func(tx *Tx, userID int64) error {
		if err := tx.Credit(userID, 100, TxBusinessIncome, "доход"); err != nil {
			return err
		}
		if userID == 2 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, failed, 1)
	assert.Contains(t, failed, int64(2))

	a1, _ := svc.Peek(1)
	a2, _ := svc.Peek(2)
	a3, _ := svc.Peek(3)
	assert.Equal(t, int64(1100), a1.Cash)
	assert.Equal(t, int64(1000), a2.Cash)
	assert.Equal(t, int64(1100), a3.Cash)
}

func TestPersistenceRoundTrip(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Transfer(ctx, 5, 6, 100))

	repo, err := NewRepository(ctx, st)
	require.NoError(t, err)
	reloaded := NewService(repo, clock.RealClock{}, 1000)

	a, ok := reloaded.Peek(5)
	require.True(t, ok)
	assert.Equal(t, int64(900), a.Cash)
}

func TestTop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Credit(ctx, 1, 10, TxAdminGive, ""))
	require.NoError(t, svc.Credit(ctx, 2, 5000, TxAdminGive, ""))
	require.NoError(t, svc.Credit(ctx, 3, 200, TxAdminGive, ""))

	top := svc.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].UserID)
	assert.Equal(t, int64(3), top[1].UserID)
}

func TestWealthTaxTick(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, 1, 9_000, TxAdminGive, ""))  // 10 000
	require.NoError(t, svc.Credit(ctx, 2, 99_000, TxAdminGive, "")) // 100 000
	_, err := svc.Deposit(ctx, 2, 50_000)
	require.NoError(t, err)

	rep, err := svc.WealthTaxTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Accounts)
	assert.Equal(t, int64(1_900+12_500), rep.Collected)

	a1, _ := svc.Peek(1)
	assert.Equal(t, int64(8_100), a1.Cash)
	a2, _ := svc.Peek(2)
	assert.Equal(t, int64(37_500), a2.Cash)
	assert.Equal(t, int64(50_000), a2.Bank, "bank is exempt")
}
