// Package casino — service.go проводит ставки через Ledger: списать ставку,
// разыграть исход, удержать налог с прибыли и зачислить выплату.
// Блэкджек живёт между командами: раунд хранится в памяти, а ожидание хода
// ограничено таймером, по которому раунд закрывается как «хватит».
package casino

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/concurrency"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/economy"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/tax"
	"github.com/sahaproshurik/bazarcikpmbot/internal/metrics"
)

// TimeoutNotifier сообщает игроку об автоматически закрытом раунде.
type TimeoutNotifier func(ctx context.Context, r Round, s Settlement)

// Service — казино.
type Service struct {
	ledger  *economy.Service
	repo    *Repository
	policy  tax.Policy
	guard   *concurrency.Guard
	clock   clock.Clock
	timers  clock.Timers
	rng     RNG
	timeout time.Duration

	mu        sync.Mutex
	rounds    map[string]*activeRound
	byUser    map[int64]string
	onTimeout TimeoutNotifier
}

type activeRound struct {
	round *Round
	timer clock.Timer
	gen   int // номер ожидания хода; устаревший таймер не трогает раунд
}

// Options — зависимости сервиса казино.
type Options struct {
	Ledger           *economy.Service
	Repo             *Repository
	Policy           tax.Policy
	Guard            *concurrency.Guard
	Clock            clock.Clock
	Timers           clock.Timers
	RNG              RNG
	BlackjackTimeout time.Duration
}

// NewService создаёт сервис казино.
func NewService(o Options) *Service {
	if o.RNG == nil {
		o.RNG = DefaultRNG
	}
	return &Service{
		ledger:  o.Ledger,
		repo:    o.Repo,
		policy:  o.Policy,
		guard:   o.Guard,
		clock:   o.Clock,
		timers:  o.Timers,
		rng:     o.RNG,
		timeout: o.BlackjackTimeout,
		rounds:  make(map[string]*activeRound),
		byUser:  make(map[int64]string),
	}
}

// OnTimeout задаёт обработчик раундов, закрытых по таймауту.
func (s *Service) OnTimeout(fn TimeoutNotifier) {
	s.mu.Lock()
	s.onTimeout = fn
	s.mu.Unlock()
}

// play списывает ставку и зачисляет выплату одной операцией Ledger.
func (s *Service) play(ctx context.Context, userID int64, game string, bet int64, out Outcome) (Settlement, error) {
	if bet <= 0 {
		return Settlement{}, common.ErrInvalidAmount
	}
	var st Settlement
	err := s.ledger.Do(ctx, []int64{userID}, func(tx *economy.Tx) error {
		if err := tx.Debit(userID, bet, economy.TxGameBet, "ставка: "+game); err != nil {
			return err
		}
		var err error
		st, err = s.credit(tx, userID, game, bet, out.Multiplier, out.Refund)
		return err
	})
	if err != nil {
		return Settlement{}, err
	}
	s.record(ctx, userID, game, st, out.Refund)
	return st, nil
}

// credit зачисляет выплату с учётом налога внутри транзакции Ledger.
func (s *Service) credit(tx *economy.Tx, userID int64, game string, bet, multiplier int64, refund bool) (Settlement, error) {
	st := Settlement{Bet: bet}
	if multiplier > 0 {
		pay := s.policy.Settle(bet, bet*multiplier)
		st.Gross, st.Tax, st.Net = pay.Gross, pay.Tax, pay.Net
		txType, desc := economy.TxGameWin, "выигрыш: "+game
		if refund || multiplier == 1 {
			txType, desc = economy.TxGameRefund, "возврат ставки: "+game
		}
		if err := tx.Credit(userID, st.Net, txType, desc); err != nil {
			return Settlement{}, err
		}
	}
	st.Cash = tx.Account(userID).Cash
	return st, nil
}

func (s *Service) record(ctx context.Context, userID int64, game string, st Settlement, refund bool) {
	outcome := "loss"
	switch {
	case refund:
		outcome = "refund"
	case st.Net > st.Bet:
		outcome = "win"
	case st.Net == st.Bet:
		outcome = "push"
	}
	metrics.GamesPlayed.WithLabelValues(game, outcome).Inc()
	if !refund {
		metrics.GameWagered.WithLabelValues(game).Add(float64(st.Bet))
	}
	if st.Tax > 0 {
		metrics.TaxCollected.WithLabelValues("reward").Add(float64(st.Tax))
	}
	if refund {
		return
	}
	if err := s.repo.UpdateStats(ctx, userID, st, s.clock.Now()); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка обновления статистики казино")
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"game":    game,
		"bet":     st.Bet,
		"net":     st.Net,
		"tax":     st.Tax,
	}).Debug("Игра сыграна")
}

// Flip — монетка.
func (s *Service) Flip(ctx context.Context, userID, bet int64, choice string) (FlipResult, Settlement, error) {
	side, ok := ParseSide(choice)
	if !ok {
		return FlipResult{}, Settlement{}, common.Validation("выберите Орел (о, o, орел) или Решка (р, p, решка)")
	}
	var (
		res FlipResult
		st  Settlement
	)
	err := s.guard.WithUser(userID, func() error {
		res = Flip(side, s.rng)
		var err error
		st, err = s.play(ctx, userID, GameFlip, bet, res.Outcome)
		return err
	})
	return res, st, err
}

// Spin — слоты.
func (s *Service) Spin(ctx context.Context, userID, bet int64) (SpinResult, Settlement, error) {
	var (
		res SpinResult
		st  Settlement
	)
	err := s.guard.WithUser(userID, func() error {
		res = Spin(s.rng)
		var err error
		st, err = s.play(ctx, userID, GameSlots, bet, res.Outcome)
		return err
	})
	return res, st, err
}

// Dice — кости: guess от 1 до 6.
func (s *Service) Dice(ctx context.Context, userID, bet int64, guess int) (DiceResult, Settlement, error) {
	if guess < 1 || guess > 6 {
		return DiceResult{}, Settlement{}, common.Validation("загадайте число от 1 до 6")
	}
	var (
		res DiceResult
		st  Settlement
	)
	err := s.guard.WithUser(userID, func() error {
		res = Dice(guess, s.rng)
		var err error
		st, err = s.play(ctx, userID, GameDice, bet, res.Outcome)
		return err
	})
	return res, st, err
}

// Roulette — рулетка. Нераспознанная ставка возвращается.
func (s *Service) Roulette(ctx context.Context, userID, bet int64, target string) (RouletteResult, Settlement, error) {
	var (
		res RouletteResult
		st  Settlement
	)
	err := s.guard.WithUser(userID, func() error {
		res = Roulette(target, s.rng)
		var err error
		st, err = s.play(ctx, userID, GameRoulette, bet, res.Outcome)
		return err
	})
	return res, st, err
}

// Stats возвращает статистику игрока.
func (s *Service) Stats(userID int64) Stats {
	return s.repo.GetStatsOrDefault(userID)
}

// snapshot копирует раунд для передачи наружу.
func (r *Round) snapshot() Round {
	c := *r
	c.Deck = nil
	c.Player = append([]Card(nil), r.Player...)
	c.Dealer = append([]Card(nil), r.Dealer...)
	return c
}

// StartBlackjack списывает ставку и раздаёт карты. Если у игрока натуральный
// блэкджек, раунд сразу рассчитывается и Settlement не nil.
func (s *Service) StartBlackjack(ctx context.Context, userID, chatID, bet int64) (Round, *Settlement, error) {
	if bet <= 0 {
		return Round{}, nil, common.ErrInvalidAmount
	}
	var (
		out Round
		st  *Settlement
	)
	err := s.guard.WithUser(userID, func() error {
		s.mu.Lock()
		_, busy := s.byUser[userID]
		s.mu.Unlock()
		if busy {
			return common.Conflict("у вас уже идёт раунд блэкджека")
		}

		r := Deal(uuid.NewString(), userID, chatID, bet, s.rng, s.clock.Now())

		// Натуральный блэкджек: ставка и выплата одной операцией Ledger
		if r.State == StateFinished {
			var settled Settlement
			err := s.ledger.Do(ctx, []int64{userID}, func(tx *economy.Tx) error {
				if err := tx.Debit(userID, bet, economy.TxGameBet, "ставка: "+GameBlackjack); err != nil {
					return err
				}
				var err error
				settled, err = s.credit(tx, userID, GameBlackjack, bet, r.Result.Multiplier(), false)
				return err
			})
			if err != nil {
				return err
			}
			metrics.GameWagered.WithLabelValues(GameBlackjack).Add(float64(bet))
			s.settled(ctx, r, settled)
			st = &settled
			out = r.snapshot()
			return nil
		}

		if err := s.ledger.Debit(ctx, userID, bet, economy.TxGameBet, "ставка: "+GameBlackjack); err != nil {
			return err
		}
		metrics.GameWagered.WithLabelValues(GameBlackjack).Add(float64(bet))

		entry := &activeRound{round: r}
		s.mu.Lock()
		s.rounds[r.ID] = entry
		s.byUser[userID] = r.ID
		s.mu.Unlock()
		s.armTimer(entry)
		out = r.snapshot()
		return nil
	})
	return out, st, err
}

// SetMessageID запоминает сообщение раунда, чтобы таймаут мог его отредактировать.
func (s *Service) SetMessageID(userID int64, roundID string, messageID int) {
	_ = s.guard.WithUser(userID, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e, ok := s.rounds[roundID]; ok {
			e.round.MessageID = messageID
		}
		return nil
	})
}

// Hit — взять карту.
func (s *Service) Hit(ctx context.Context, userID int64, roundID string) (Round, *Settlement, error) {
	return s.act(ctx, userID, roundID, (*Round).Hit)
}

// Stand — хватит.
func (s *Service) Stand(ctx context.Context, userID int64, roundID string) (Round, *Settlement, error) {
	return s.act(ctx, userID, roundID, (*Round).Stand)
}

func (s *Service) act(ctx context.Context, userID int64, roundID string, move func(*Round)) (Round, *Settlement, error) {
	if err := s.checkOwner(userID, roundID); err != nil {
		return Round{}, nil, err
	}
	var (
		out Round
		st  *Settlement
	)
	err := s.guard.WithUser(userID, func() error {
		s.mu.Lock()
		entry, ok := s.rounds[roundID]
		s.mu.Unlock()
		if !ok {
			return common.Conflict("раунд уже завершён")
		}
		if entry.timer != nil {
			entry.timer.Stop()
		}

		// В уже завершённом раунде (прошлая выплата не прошла) ход ничего
		// не меняет, и выплата просто повторяется.
		move(entry.round)
		if entry.round.State != StateFinished {
			s.armTimer(entry)
			out = entry.round.snapshot()
			return nil
		}

		settled, err := s.payout(ctx, entry.round)
		if err != nil {
			// раунд остаётся: ставка списана, выплату можно повторить
			s.armTimer(entry)
			return err
		}
		s.forget(entry.round)
		st = &settled
		out = entry.round.snapshot()
		return nil
	})
	return out, st, err
}

func (s *Service) checkOwner(userID int64, roundID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.rounds[roundID]
	if !ok {
		return common.Conflict("раунд уже завершён")
	}
	if entry.round.UserID != userID {
		return common.Permission("это не ваша игра!")
	}
	return nil
}

func (s *Service) forget(r *Round) {
	s.mu.Lock()
	delete(s.rounds, r.ID)
	delete(s.byUser, r.UserID)
	s.mu.Unlock()
}

func (s *Service) armTimer(entry *activeRound) {
	entry.gen++
	id, gen := entry.round.ID, entry.gen
	entry.timer = s.timers.AfterFunc(s.timeout, func() { s.expire(id, gen) })
}

// expire закрывает раунд по таймауту как «хватит».
func (s *Service) expire(roundID string, gen int) {
	s.mu.Lock()
	entry, ok := s.rounds[roundID]
	s.mu.Unlock()
	if !ok {
		return
	}
	ctx := context.Background()
	userID := entry.round.UserID

	var (
		snap    Round
		settled Settlement
		done    bool
	)
	err := s.guard.WithUser(userID, func() error {
		s.mu.Lock()
		cur, ok := s.rounds[roundID]
		s.mu.Unlock()
		if !ok || cur.gen != gen {
			return nil
		}
		if cur.round.State == StatePlayerTurn {
			cur.round.Stand()
			cur.round.TimedOut = true
		}
		var err error
		settled, err = s.payout(ctx, cur.round)
		if err != nil {
			// повторим по следующему таймеру
			s.armTimer(cur)
			return err
		}
		s.forget(cur.round)
		snap = cur.round.snapshot()
		done = true
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка расчёта раунда блэкджека по таймауту")
		return
	}
	if !done {
		return
	}
	log.WithFields(log.Fields{"user_id": userID, "round_id": roundID}).Info("Раунд блэкджека закрыт по таймауту")

	s.mu.Lock()
	notify := s.onTimeout
	s.mu.Unlock()
	if notify != nil {
		notify(ctx, snap, settled)
	}
}

// payout зачисляет выплату за завершённый раунд (ставка уже списана).
func (s *Service) payout(ctx context.Context, r *Round) (Settlement, error) {
	var st Settlement
	err := s.ledger.Do(ctx, []int64{r.UserID}, func(tx *economy.Tx) error {
		var err error
		st, err = s.credit(tx, r.UserID, GameBlackjack, r.Bet, r.Result.Multiplier(), false)
		return err
	})
	if err != nil {
		return Settlement{}, fmt.Errorf("ошибка выплаты блэкджека: %w", err)
	}
	s.settled(ctx, r, st)
	return st, nil
}

// settled учитывает рассчитанный раунд в метриках и статистике.
func (s *Service) settled(ctx context.Context, r *Round, st Settlement) {
	metrics.GamesPlayed.WithLabelValues(GameBlackjack, r.Result.String()).Inc()
	if st.Tax > 0 {
		metrics.TaxCollected.WithLabelValues("reward").Add(float64(st.Tax))
	}
	if err := s.repo.UpdateStats(ctx, r.UserID, st, s.clock.Now()); err != nil {
		log.WithError(err).WithField("user_id", r.UserID).Error("Ошибка обновления статистики казино")
	}
}
