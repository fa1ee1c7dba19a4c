// Package economy — service.go содержит операции Ledger: зачисление,
// списание, переводы, банк, опыт, инвентарь и предупреждения.
// Сервис не берёт замки Guard: каждая операция атомарна на уровне
// репозитория, а последовательности шагов сериализует вызывающая фича.
package economy

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

// Service — Ledger.
type Service struct {
	repo         *Repository
	clock        clock.Clock
	startingCash int64
}

// NewService создаёт Ledger. Новые аккаунты получают startingCash наличными.
func NewService(repo *Repository, clk clock.Clock, startingCash int64) *Service {
	return &Service{repo: repo, clock: clk, startingCash: startingCash}
}

// Tx — набор аккаунтов, изменяемых одной атомарной операцией.
type Tx struct {
	accs map[int64]*Account
	now  time.Time
}

// Account возвращает изменяемый аккаунт из транзакции.
func (tx *Tx) Account(userID int64) *Account {
	return tx.accs[userID]
}

// Credit зачисляет amount наличными.
func (tx *Tx) Credit(userID, amount int64, txType, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	a := tx.accs[userID]
	a.Cash += amount
	tx.record(a, txType, amount, description)
	return nil
}

// Debit списывает amount наличными. Если денег не хватает — ErrInsufficientFunds.
func (tx *Tx) Debit(userID, amount int64, txType, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	a := tx.accs[userID]
	if a.Cash < amount {
		return common.InsufficientFunds(amount, a.Cash)
	}
	a.Cash -= amount
	tx.record(a, txType, -amount, description)
	return nil
}

// DebitUpTo списывает min(cash, amount) и возвращает фактически списанное.
// Баланс никогда не уходит в минус.
func (tx *Tx) DebitUpTo(userID, amount int64, txType, description string) int64 {
	a := tx.accs[userID]
	taken := min(amount, a.Cash)
	if taken <= 0 {
		return 0
	}
	a.Cash -= taken
	tx.record(a, txType, -taken, description)
	return taken
}

// AddItem добавляет предмет в инвентарь.
func (tx *Tx) AddItem(userID int64, item string, qty int64) {
	a := tx.accs[userID]
	if a.Inventory == nil {
		a.Inventory = make(map[string]int64)
	}
	a.Inventory[item] += qty
	if a.Inventory[item] <= 0 {
		delete(a.Inventory, item)
	}
}

func (tx *Tx) record(a *Account, txType string, amount int64, description string) {
	a.History = append(a.History, Entry{
		ID:          uuid.NewString(),
		Type:        txType,
		Amount:      amount,
		Description: description,
		CreatedAt:   tx.now,
	})
	if n := len(a.History); n > HistoryLimit {
		a.History = append([]Entry(nil), a.History[n-HistoryLimit:]...)
	}
}

func (s *Service) newAccount(id int64) *Account {
	return &Account{UserID: id, Cash: s.startingCash, CreatedAt: s.clock.Now()}
}

// Do выполняет fn над аккаунтами ids как одну операцию: либо сохраняются
// все изменения, либо ни одно.
func (s *Service) Do(ctx context.Context, ids []int64, fn func(tx *Tx) error) error {
	return s.repo.Update(ctx, ids, s.newAccount, func(accs map[int64]*Account) error {
		return fn(&Tx{accs: accs, now: s.clock.Now()})
	})
}

// Sweep применяет fn к каждому аккаунту отдельно (для тиков).
// Возвращает id аккаунтов, на которых fn вернула ошибку.
func (s *Service) Sweep(ctx context.Context, fn func(tx *Tx, userID int64) error) (map[int64]error, error) {
	now := s.clock.Now()
	return s.repo.Sweep(ctx, func(a *Account) error {
		return fn(&Tx{accs: map[int64]*Account{a.UserID: a}, now: now}, a.UserID)
	})
}

// Get возвращает аккаунт, создавая его при первом обращении.
func (s *Service) Get(ctx context.Context, userID int64) (*Account, error) {
	if a, ok := s.repo.Get(userID); ok {
		return a, nil
	}
	var out *Account
	err := s.Do(ctx, []int64{userID}, func(tx *Tx) error {
		out = tx.Account(userID).Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithField("user_id", userID).Info("Создан аккаунт")
	return out, nil
}

// Peek возвращает аккаунт без создания.
func (s *Service) Peek(userID int64) (*Account, bool) {
	return s.repo.Get(userID)
}

// IDs возвращает id всех аккаунтов.
func (s *Service) IDs() []int64 {
	return s.repo.IDs()
}

// Credit зачисляет деньги одному игроку.
func (s *Service) Credit(ctx context.Context, userID, amount int64, txType, description string) error {
	return s.Do(ctx, []int64{userID}, func(tx *Tx) error {
		return tx.Credit(userID, amount, txType, description)
	})
}

// Debit списывает деньги, если их хватает.
func (s *Service) Debit(ctx context.Context, userID, amount int64, txType, description string) error {
	return s.Do(ctx, []int64{userID}, func(tx *Tx) error {
		return tx.Debit(userID, amount, txType, description)
	})
}

// DebitUpTo списывает сколько есть, но не больше amount.
func (s *Service) DebitUpTo(ctx context.Context, userID, amount int64, txType, description string) (int64, error) {
	var taken int64
	err := s.Do(ctx, []int64{userID}, func(tx *Tx) error {
		taken = tx.DebitUpTo(userID, amount, txType, description)
		return nil
	})
	return taken, err
}

// Transfer переводит наличные от одного игрока другому.
func (s *Service) Transfer(ctx context.Context, fromID, toID, amount int64) error {
	if fromID == toID {
		return common.ErrSelfTransfer
	}
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	err := s.Do(ctx, []int64{fromID, toID}, func(tx *Tx) error {
		if err := tx.Debit(fromID, amount, TxTransferOut, "перевод игроку"); err != nil {
			return err
		}
		return tx.Credit(toID, amount, TxTransferIn, "перевод от игрока")
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"from":   fromID,
		"to":     toID,
		"amount": amount,
	}).Info("Перевод выполнен")
	return nil
}

// Deposit переносит amount наличных в банк.
func (s *Service) Deposit(ctx context.Context, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	return s.deposit(ctx, userID, amount, false)
}

// DepositAll переносит в банк все наличные.
func (s *Service) DepositAll(ctx context.Context, userID int64) (int64, error) {
	return s.deposit(ctx, userID, 0, true)
}

func (s *Service) deposit(ctx context.Context, userID, amount int64, all bool) (int64, error) {
	var moved int64
	err := s.Do(ctx, []int64{userID}, func(tx *Tx) error {
		a := tx.Account(userID)
		moved = amount
		if all {
			moved = a.Cash
		}
		if moved <= 0 {
			return common.ErrInvalidAmount
		}
		if a.Cash < moved {
			return common.InsufficientFunds(moved, a.Cash)
		}
		a.Cash -= moved
		a.Bank += moved
		tx.record(a, TxDeposit, -moved, "в банк")
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// Withdraw переносит amount из банка в наличные.
func (s *Service) Withdraw(ctx context.Context, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	return s.withdraw(ctx, userID, amount, false)
}

// WithdrawAll снимает весь банк.
func (s *Service) WithdrawAll(ctx context.Context, userID int64) (int64, error) {
	return s.withdraw(ctx, userID, 0, true)
}

func (s *Service) withdraw(ctx context.Context, userID, amount int64, all bool) (int64, error) {
	var moved int64
	err := s.Do(ctx, []int64{userID}, func(tx *Tx) error {
		a := tx.Account(userID)
		moved = amount
		if all {
			moved = a.Bank
		}
		if moved <= 0 {
			return common.ErrInvalidAmount
		}
		if a.Bank < moved {
			return common.InsufficientFunds(moved, a.Bank)
		}
		a.Bank -= moved
		a.Cash += moved
		tx.record(a, TxWithdraw, moved, "из банка")
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// AddXP начисляет опыт.
func (s *Service) AddXP(ctx context.Context, userID, xp int64) error {
	if xp <= 0 {
		return nil
	}
	return s.Do(ctx, []int64{userID}, func(tx *Tx) error {
		tx.Account(userID).XP += xp
		return nil
	})
}

// AddItem кладёт предмет в инвентарь.
func (s *Service) AddItem(ctx context.Context, userID int64, item string, qty int64) error {
	if qty <= 0 {
		return common.ErrInvalidAmount
	}
	return s.Do(ctx, []int64{userID}, func(tx *Tx) error {
		tx.AddItem(userID, item, qty)
		return nil
	})
}

// TakeItem забирает предмет из инвентаря.
func (s *Service) TakeItem(ctx context.Context, userID int64, item string, qty int64) error {
	if qty <= 0 {
		return common.ErrInvalidAmount
	}
	return s.Do(ctx, []int64{userID}, func(tx *Tx) error {
		if tx.Account(userID).Inventory[item] < qty {
			return common.Conflict("в инвентаре нет %d × %s", qty, item)
		}
		tx.AddItem(userID, item, -qty)
		return nil
	})
}

// AddWarn выдаёт предупреждение и возвращает их общее число.
func (s *Service) AddWarn(ctx context.Context, userID, issuerID int64, reason string) (int, error) {
	var count int
	err := s.Do(ctx, []int64{userID}, func(tx *Tx) error {
		a := tx.Account(userID)
		a.Warns = append(a.Warns, Warn{Reason: reason, IssuerID: issuerID, IssuedAt: tx.now})
		count = len(a.Warns)
		return nil
	})
	return count, err
}

// Top возвращает n самых богатых игроков (наличные + банк).
func (s *Service) Top(n int) []*Account {
	ids := s.repo.IDs()
	accs := make([]*Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.repo.Get(id); ok {
			accs = append(accs, a)
		}
	}
	sort.SliceStable(accs, func(i, j int) bool { return accs[i].Total() > accs[j].Total() })
	if len(accs) > n {
		accs = accs[:n]
	}
	return accs
}
