// Package loans — service.go оформляет, гасит и проверяет кредиты.
// Деньги и запись о кредите меняются в одной операции ledger.Do:
// если не удалось сохранить кредит, аккаунт тоже не меняется.
package loans

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/concurrency"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/economy"
	"github.com/sahaproshurik/bazarcikpmbot/internal/metrics"
)

// Tenure сообщает стаж игрока в днях.
type Tenure interface {
	TenureDays(userID int64) int
}

// Notifier доставляет игроку личное сообщение о кредите.
type Notifier func(ctx context.Context, userID int64, text string)

// Options — зависимости сервиса кредитов.
type Options struct {
	Repo         *Repository
	Ledger       *economy.Service
	Tenure       Tenure
	Guard        *concurrency.Guard
	Clock        clock.Clock
	MaxDoublings int
}

// Service — кредитный движок.
type Service struct {
	repo         *Repository
	ledger       *economy.Service
	tenure       Tenure
	guard        *concurrency.Guard
	clock        clock.Clock
	maxDoublings int
	notify       Notifier
}

// NewService создаёт сервис кредитов.
func NewService(o Options) *Service {
	return &Service{
		repo:         o.Repo,
		ledger:       o.Ledger,
		tenure:       o.Tenure,
		guard:        o.Guard,
		clock:        o.Clock,
		maxDoublings: o.MaxDoublings,
	}
}

// OnNotify задаёт доставку напоминаний и штрафов из тика.
func (s *Service) OnNotify(fn Notifier) {
	s.notify = fn
}

func validateTerms(principal int64, term int) error {
	if principal <= 0 {
		return common.ErrInvalidAmount
	}
	if term < 1 || term > MaxTerm {
		return common.Validation("срок кредита от 1 до %d дней", MaxTerm)
	}
	return nil
}

// Quote считает кредит по стажу игрока, ничего не меняя.
func (s *Service) Quote(userID, principal int64, term int) (Quote, error) {
	if err := validateTerms(principal, term); err != nil {
		return Quote{}, err
	}
	return NewQuote(principal, term, RateFor(s.tenure.TenureDays(userID))), nil
}

// Apply оформляет кредит: сумма сразу зачисляется наличными,
// дата погашения — через term дней.
func (s *Service) Apply(ctx context.Context, userID, principal int64, term int) (*Loan, error) {
	if err := validateTerms(principal, term); err != nil {
		return nil, err
	}
	tenure := s.tenure.TenureDays(userID)
	if tenure < MinTenure {
		return nil, common.Permission("кредит доступен после %d дней в чате, у вас %d", MinTenure, tenure)
	}
	if limit := MaxPrincipal(tenure); principal > limit {
		return nil, common.Validation("вы можете взять кредит не более %s", common.FormatMoney(limit))
	}

	var out *Loan
	err := s.guard.WithUser(userID, func() error {
		if _, ok := s.repo.Get(userID); ok {
			return common.ErrLoanActive
		}
		now := s.clock.Now()
		q := NewQuote(principal, term, RateFor(tenure))
		loan := &Loan{
			ID:           uuid.NewString(),
			UserID:       userID,
			Principal:    principal,
			Rate:         q.Rate,
			Term:         term,
			DailyPayment: q.Daily,
			IssuedAt:     now,
			DueAt:        now.Add(time.Duration(term) * 24 * time.Hour),
		}
		err := s.ledger.Do(ctx, []int64{userID}, func(tx *economy.Tx) error {
			if err := tx.Credit(userID, principal, economy.TxLoanIssue,
				fmt.Sprintf("кредит на %d дн.", term)); err != nil {
				return err
			}
			return s.repo.Put(ctx, userID, loan)
		})
		if err != nil {
			s.rollback(ctx, userID, nil)
			return err
		}
		out = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LoansIssued.Inc()
	log.WithFields(log.Fields{
		"user_id":   userID,
		"principal": principal,
		"term":      term,
		"rate":      out.Rate.String(),
	}).Info("Кредит выдан")
	return out, nil
}

// rollback возвращает запись о кредите, если деньги не сохранились.
func (s *Service) rollback(ctx context.Context, userID int64, prev *Loan) {
	cur, ok := s.repo.Get(userID)
	switch {
	case prev == nil && !ok:
		return
	case prev != nil && ok && cur.Paid == prev.Paid && cur.Principal == prev.Principal:
		return
	}
	if err := s.repo.Put(ctx, userID, prev); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Не удалось откатить кредит")
	}
}

// PayResult — итог платежа.
type PayResult struct {
	Paid      int64
	Remaining int64
	Closed    bool
}

// Pay гасит кредит. Сумма больше остатка урезается до остатка,
// полностью погашенный кредит закрывается.
func (s *Service) Pay(ctx context.Context, userID, amount int64) (PayResult, error) {
	if amount <= 0 {
		return PayResult{}, common.ErrInvalidAmount
	}
	var res PayResult
	err := s.guard.WithUser(userID, func() error {
		loan, ok := s.repo.Get(userID)
		if !ok {
			return common.ErrNoLoan
		}
		prev := loan.Clone()
		pay := min(amount, loan.Remaining())
		loan.Paid += pay

		next := loan
		if loan.Remaining() == 0 {
			next = nil
		}
		err := s.ledger.Do(ctx, []int64{userID}, func(tx *economy.Tx) error {
			if pay > 0 {
				if err := tx.Debit(userID, pay, economy.TxLoanPayment, "погашение кредита"); err != nil {
					return err
				}
			}
			return s.repo.Put(ctx, userID, next)
		})
		if err != nil {
			s.rollback(ctx, userID, prev)
			return err
		}
		res = PayResult{Paid: pay, Remaining: loan.Remaining(), Closed: next == nil}
		return nil
	})
	if err == nil && res.Closed {
		log.WithField("user_id", userID).Info("Кредит погашен")
	}
	return res, err
}

// CheckResult — состояние кредита после проверки срока.
type CheckResult struct {
	Loan    Loan
	Overdue bool
	Doubled bool
}

// Check проверяет срок. Если срок прошёл и лимит удвоений не исчерпан,
// долг удваивается, а срок сдвигается на Grace. Повторная проверка
// до нового срока ничего не меняет.
func (s *Service) Check(ctx context.Context, userID int64) (CheckResult, error) {
	var res CheckResult
	err := s.guard.WithUser(userID, func() error {
		loan, ok := s.repo.Get(userID)
		if !ok {
			return common.ErrNoLoan
		}
		r, err := s.check(ctx, loan)
		res = r
		return err
	})
	return res, err
}

func (s *Service) check(ctx context.Context, loan *Loan) (CheckResult, error) {
	now := s.clock.Now()
	if !now.After(loan.DueAt) {
		return CheckResult{Loan: *loan}, nil
	}
	if loan.Doublings >= s.maxDoublings {
		return CheckResult{Loan: *loan, Overdue: true}, nil
	}
	loan.Principal *= 2
	loan.DueAt = loan.DueAt.Add(Grace)
	loan.Doublings++
	loan.Warned = rearmWarnings(Grace)
	if err := s.repo.Put(ctx, loan.UserID, loan); err != nil {
		return CheckResult{}, err
	}
	metrics.LoanPenalties.WithLabelValues("doubling").Inc()
	log.WithFields(log.Fields{
		"user_id":   loan.UserID,
		"principal": loan.Principal,
		"doublings": loan.Doublings,
	}).Warn("Кредит просрочен, долг удвоен")
	return CheckResult{Loan: *loan, Overdue: true, Doubled: true}, nil
}

// Unpaid — сколько списано штрафом за непогашенный кредит.
type Unpaid struct {
	Penalty int64
	Charged int64
}

// penalize закрывает кредит, просроченный больше чем на Grace после
// последнего срока: списывает PenaltyFactor × principal, но не ниже нуля.
func (s *Service) penalize(ctx context.Context, loan *Loan) (*Unpaid, error) {
	if s.clock.Now().Sub(loan.DueAt) <= Grace {
		return nil, nil
	}
	prev := loan.Clone()
	penalty := loan.Principal * PenaltyFactor
	var charged int64
	err := s.ledger.Do(ctx, []int64{loan.UserID}, func(tx *economy.Tx) error {
		charged = tx.DebitUpTo(loan.UserID, penalty, economy.TxLoanPenalty, "штраф за непогашенный кредит")
		return s.repo.Put(ctx, loan.UserID, nil)
	})
	if err != nil {
		s.rollback(ctx, loan.UserID, prev)
		return nil, err
	}
	metrics.LoanPenalties.WithLabelValues("unpaid").Inc()
	log.WithFields(log.Fields{
		"user_id": loan.UserID,
		"penalty": penalty,
		"charged": charged,
	}).Warn("Кредит не погашен, списан штраф")
	return &Unpaid{Penalty: penalty, Charged: charged}, nil
}

// HandleUnpaid доводит просроченный кредит до развязки: сначала удвоения,
// а когда они исчерпаны и отсрочка истекла, штраф. Возвращает nil,
// если штрафовать пока рано.
func (s *Service) HandleUnpaid(ctx context.Context, userID int64) (*Unpaid, error) {
	var out *Unpaid
	err := s.guard.WithUser(userID, func() error {
		loan, ok := s.repo.Get(userID)
		if !ok {
			return common.ErrNoLoan
		}
		res, err := s.check(ctx, loan)
		if err != nil || !res.Overdue || res.Doubled {
			return err
		}
		out, err = s.penalize(ctx, loan)
		return err
	})
	return out, err
}

// Get возвращает активный кредит игрока.
func (s *Service) Get(userID int64) (Loan, bool) {
	l, ok := s.repo.Get(userID)
	if !ok {
		return Loan{}, false
	}
	return *l, true
}

// dueWarning возвращает ближайшее неотправленное напоминание и помечает
// отправленными его и все более дальние.
func dueWarning(loan *Loan, now time.Time) (warningLead, bool) {
	left := loan.DueAt.Sub(now)
	if left <= 0 {
		return warningLead{}, false
	}
	due := -1
	for i, w := range warningLeads {
		if left <= w.Before {
			due = i
		}
	}
	if due < 0 || loan.Warned[warningLeads[due].Key] {
		return warningLead{}, false
	}
	if loan.Warned == nil {
		loan.Warned = make(map[string]bool)
	}
	for _, w := range warningLeads[:due+1] {
		loan.Warned[w.Key] = true
	}
	return warningLeads[due], true
}

// rearmWarnings заново включает напоминания для нового срока. Те, что
// дальше window, помечаются отправленными: до них срок уже не дотянет.
func rearmWarnings(window time.Duration) map[string]bool {
	warned := make(map[string]bool)
	for _, w := range warningLeads {
		if w.Before > window {
			warned[w.Key] = true
		}
	}
	return warned
}

// TickReport — итог обхода кредитов.
type TickReport struct {
	Warned int
	Failed int
}

// Tick рассылает напоминания о сроке: за 3 дня, 1 день, 12 и 1 час,
// каждое один раз на срок. Долг не удваивает и не штрафует: это делают
// !checkloan и !handleunpaidloan. Вызывается под мировым замком, поэтому
// замки игроков не берёт.
func (s *Service) Tick(ctx context.Context) TickReport {
	var rep TickReport
	now := s.clock.Now()
	for _, id := range s.repo.UserIDs() {
		loan, ok := s.repo.Get(id)
		if !ok {
			continue
		}
		// ближайшее ещё не отправленное напоминание
		w, ok := dueWarning(loan, now)
		if !ok {
			continue
		}

		// отметка сохраняется до отправки
		if err := s.repo.Put(ctx, id, loan); err != nil {
			log.WithError(err).WithFields(log.Fields{"tick": "loans", "user_id": id}).
				Error("Не удалось отметить напоминание")
			rep.Failed++
			continue
		}
		rep.Warned++
		s.send(ctx, id, fmt.Sprintf("⏰ Ваш кредит истекает через %s. Остаток: %s",
			w.Text, common.FormatMoney(loan.Remaining())))
	}
	if rep.Failed > 0 {
		metrics.TickAccountFailures.WithLabelValues("loans").Add(float64(rep.Failed))
	}
	log.WithFields(log.Fields{
		"tick":   "loans",
		"warned": rep.Warned,
		"failed": rep.Failed,
	}).Debug("Напоминания о кредитах разосланы")
	return rep
}

func (s *Service) send(ctx context.Context, userID int64, text string) {
	if s.notify != nil {
		s.notify(ctx, userID, text)
	}
}
