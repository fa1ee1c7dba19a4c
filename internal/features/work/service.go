// Package work — service.go ведёт рабочие сессии: выдаёт заказ, принимает
// сканы и сборы, платит за сданный заказ и убирает брошенные сессии.
// Ожидание после сбоя телефона — таймер, а не блокирующее ожидание.
package work

import (
	"context"
	"fmt"
	"math/rand/v2"
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

// Efficiency — приемер: чтение для тарифа и запись завершённых заказов.
type Efficiency interface {
	Get(userID int64) int
	Record(ctx context.Context, userID int64, size int) error
}

// ResumeNotifier сообщает, что после сбоя можно продолжать пикинг.
type ResumeNotifier func(ctx context.Context, s Session)

// FaultPercent — шанс сбоя телефона на скане, в процентах.
const FaultPercent = 3

// Options — зависимости сервиса работы.
type Options struct {
	Repo          *Repository
	Ledger        *economy.Service
	Efficiency    Efficiency
	Policy        tax.Policy
	Guard         *concurrency.Guard
	Clock         clock.Clock
	Timers        clock.Timers
	RNG           func(n int) int
	FaultCooldown time.Duration
	IdleTTL       time.Duration
}

// Service — работа.
type Service struct {
	repo     *Repository
	ledger   *economy.Service
	eff      Efficiency
	policy   tax.Policy
	guard    *concurrency.Guard
	clock    clock.Clock
	timers   clock.Timers
	rng      func(n int) int
	cooldown time.Duration
	idleTTL  time.Duration
	onResume ResumeNotifier
}

// NewService создаёт сервис работы.
func NewService(o Options) *Service {
	if o.RNG == nil {
		o.RNG = rand.IntN
	}
	return &Service{
		repo:     o.Repo,
		ledger:   o.Ledger,
		eff:      o.Efficiency,
		policy:   o.Policy,
		guard:    o.Guard,
		clock:    o.Clock,
		timers:   o.Timers,
		rng:      o.RNG,
		cooldown: o.FaultCooldown,
		idleTTL:  o.IdleTTL,
	}
}

// OnResume задаёт уведомление о конце сбоя.
func (s *Service) OnResume(fn ResumeNotifier) {
	s.onResume = fn
}

// between возвращает случайное число из [lo, hi].
func (s *Service) between(lo, hi int) int {
	return lo + s.rng(hi-lo+1)
}

func (s *Service) generatePositions() []Position {
	n := s.between(1, MaxOrderSize)
	out := make([]Position, n)
	for i := range out {
		b := sportItems[s.rng(len(sportItems))]
		item := b.Items[s.rng(len(b.Items))]
		loc := fmt.Sprintf("3%c%d%c%d",
			aisles[s.rng(len(aisles))],
			s.between(1, 56),
			levels[s.rng(len(levels))],
			s.between(1, 4))
		out[i] = Position{Location: loc, Item: b.Name + " - " + item}
	}
	return out
}

func (s *Service) newSession(userID, chatID int64, kind Kind) *Session {
	now := s.clock.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ChatID:    chatID,
		Kind:      kind,
		StartedAt: now,
		UpdatedAt: now,
	}
	if kind == KindPacking {
		sess.Phase = PhaseAwaitingBox
		sess.Target = s.between(1, MaxOrderSize)
		sess.Remaining = sess.Target
	} else {
		sess.Phase = PhaseAwaitingScan
		sess.Positions = s.generatePositions()
	}
	return sess
}

// Start выдаёт заказ. job — название работы, пустое — случайная работа.
// Если у игрока уже есть сессия — ErrSessionExists.
func (s *Service) Start(ctx context.Context, userID, chatID int64, job string) (Session, error) {
	kind, random, err := ParseKind(job)
	if err != nil {
		return Session{}, err
	}
	if random {
		kind = KindPicking
		if s.rng(2) == 1 {
			kind = KindPacking
		}
	}

	var out Session
	err = s.guard.WithUser(userID, func() error {
		if _, ok := s.repo.Get(userID); ok {
			return common.ErrSessionExists
		}
		sess := s.newSession(userID, chatID, kind)
		if err := s.repo.Put(ctx, sess); err != nil {
			return err
		}
		out = *sess
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"job":     kind,
		"size":    out.Size(),
	}).Info("Выдан заказ")
	return out, nil
}

// owned загружает сессию владельца для действия actorID.
func (s *Service) owned(actorID, ownerID int64) (*Session, error) {
	if actorID != ownerID {
		return nil, common.ErrNotSessionOwner
	}
	sess, ok := s.repo.Get(ownerID)
	if !ok {
		return nil, common.ErrNoSession
	}
	return sess, nil
}

// SetMessageID запоминает сообщение заказа.
func (s *Service) SetMessageID(ctx context.Context, userID int64, messageID int) {
	_ = s.guard.WithUser(userID, func() error {
		sess, ok := s.repo.Get(userID)
		if !ok {
			return nil
		}
		sess.MessageID = messageID
		if err := s.repo.Put(ctx, sess); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось запомнить сообщение заказа")
		}
		return nil
	})
}

// ScanResult — итог нажатия «сканировать».
type ScanResult struct {
	Session Session
	Scanned int
	Fault   bool
	Ready   bool
}

// Scan сканирует 1–5 позиций. С шансом FaultPercent телефон ломается
// на FaultCooldown; между сканами действует пауза 1–5 секунд.
func (s *Service) Scan(ctx context.Context, actorID, ownerID int64) (ScanResult, error) {
	var res ScanResult
	err := s.guard.WithUser(ownerID, func() error {
		sess, err := s.owned(actorID, ownerID)
		if err != nil {
			return err
		}
		if sess.Phase != PhaseAwaitingScan {
			return errWrongPhase
		}
		// сбой телефона и пауза между сканами блокируют ход
		now := s.clock.Now()
		if now.Before(sess.BlockedUntil) {
			return common.Conflict("ошибка в телефоне, ждём сапорта. Осталось %s",
				common.FormatDuration(sess.BlockedUntil.Sub(now)))
		}
		if now.Before(sess.NextScanAt) {
			return common.Conflict("подождите перед следующим сканированием")
		}

		// FaultPercent сканов ломают телефон: заказ стоит до конца cooldown
		if s.rng(100) < FaultPercent {
			sess.BlockedUntil = now.Add(s.cooldown)
			sess.UpdatedAt = now
			if err := s.repo.Put(ctx, sess); err != nil {
				return err
			}
			s.timers.AfterFunc(s.cooldown, func() { s.resume(ownerID, sess.ID) })
			res = ScanResult{Session: *sess, Fault: true}
			return nil
		}

		// сканируем 1–5 позиций, следующий скан не раньше чем через 1–5 с
		count := s.between(1, 5)
		before := sess.Pending()
		next, effect, err := Transition(sess, Event{Kind: EventScan, Count: count})
		if err != nil {
			return err
		}
		next.NextScanAt = now.Add(time.Duration(s.between(1, 5)) * time.Second)
		next.UpdatedAt = now
		if err := s.repo.Put(ctx, next); err != nil {
			return err
		}
		res = ScanResult{Session: *next, Scanned: before - next.Pending(), Ready: effect == EffectReady}
		return nil
	})
	return res, err
}

// resume уведомляет владельца, что сбой закончился (если сессия ещё та же).
func (s *Service) resume(ownerID int64, sessionID string) {
	sess, ok := s.repo.Get(ownerID)
	if !ok || sess.ID != sessionID {
		return
	}
	if s.onResume != nil {
		s.onResume(context.Background(), *sess)
	}
}

// Submit сдаёт отсканированный заказ пикинга: оплата по тарифу приемера,
// налог пикинга 7% / 19%, запись в историю приемера и опыт.
func (s *Service) Submit(ctx context.Context, actorID, ownerID int64) (Payout, error) {
	var out Payout
	err := s.guard.WithUser(ownerID, func() error {
		sess, err := s.owned(actorID, ownerID)
		if err != nil {
			return err
		}
		if _, _, err := Transition(sess, Event{Kind: EventSubmit}); err != nil {
			return err
		}

		priemer := s.eff.Get(ownerID)
		earnings := s.pickingEarnings(priemer)
		rate, taxAmount := tax.Picking(earnings)
		out = Payout{
			Kind:     KindPicking,
			Size:     sess.Size(),
			Earnings: earnings,
			TaxRate:  rate.Mul(hundred).String() + "%",
			Tax:      taxAmount,
			Net:      earnings - taxAmount,
			Priemer:  priemer,
		}
		return s.complete(ctx, sess, out)
	})
	return out, err
}

// pickingEarnings выбирает тариф по приемеру и случайную сумму в нём.
func (s *Service) pickingEarnings(priemer int) int64 {
	for _, t := range pickingTiers {
		if priemer < t.Below {
			return t.Min + int64(s.rng(int(t.Max-t.Min+1)))
		}
	}
	last := pickingTiers[len(pickingTiers)-1]
	return last.Min
}

// complete платит за заказ и удаляет сессию. Сначала деньги, потом удаление:
// сессия не может исчезнуть без оплаты.
func (s *Service) complete(ctx context.Context, sess *Session, p Payout) error {
	desc := fmt.Sprintf("оплата: %s, %d поз.", sess.Kind.Title(), p.Size)
	err := s.ledger.Do(ctx, []int64{sess.UserID}, func(tx *economy.Tx) error {
		if p.Net > 0 {
			if err := tx.Credit(sess.UserID, p.Net, economy.TxJobPay, desc); err != nil {
				return err
			}
		}
		tx.Account(sess.UserID).XP += int64(p.Size)
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.eff.Record(ctx, sess.UserID, p.Size); err != nil {
		log.WithError(err).WithField("user_id", sess.UserID).Error("Ошибка записи заказа в приемер")
	}
	s.repo.Delete(ctx, sess.UserID)

	metrics.JobsCompleted.WithLabelValues(string(sess.Kind)).Inc()
	if p.Tax > 0 {
		metrics.TaxCollected.WithLabelValues(string(sess.Kind)).Add(float64(p.Tax))
	}
	log.WithFields(log.Fields{
		"user_id":  sess.UserID,
		"job":      sess.Kind,
		"size":     p.Size,
		"earnings": p.Earnings,
		"net":      p.Net,
	}).Info("Заказ сдан")
	return nil
}

// ChooseBox выбирает коробку на пакинге. Неподходящая коробка отклоняется
// без штрафа.
func (s *Service) ChooseBox(ctx context.Context, actorID, ownerID int64, box string) (Session, error) {
	var out Session
	err := s.guard.WithUser(ownerID, func() error {
		sess, err := s.owned(actorID, ownerID)
		if err != nil {
			return err
		}
		next, _, err := Transition(sess, Event{Kind: EventChooseBox, Box: box})
		if err != nil {
			return err
		}
		next.UpdatedAt = s.clock.Now()
		if err := s.repo.Put(ctx, next); err != nil {
			return err
		}
		out = *next
		return nil
	})
	return out, err
}

// CollectResult — итог шага сбора.
type CollectResult struct {
	Session   Session
	Collected int
	Payout    *Payout
}

// Collect кладёт в коробку 1–5 товаров. Когда всё собрано, заказ оплачивается.
func (s *Service) Collect(ctx context.Context, actorID, ownerID int64) (CollectResult, error) {
	var res CollectResult
	err := s.guard.WithUser(ownerID, func() error {
		sess, err := s.owned(actorID, ownerID)
		if err != nil {
			return err
		}
		next, effect, err := Transition(sess, Event{Kind: EventCollect, Count: s.between(1, 5)})
		if err != nil {
			return err
		}
		res = CollectResult{Session: *next, Collected: sess.Remaining - next.Remaining}
		if effect != EffectComplete {
			next.UpdatedAt = s.clock.Now()
			return s.repo.Put(ctx, next)
		}

		earnings := packingPayMin + int64(s.rng(int(packingPayMax-packingPayMin+1)))
		t := s.policy.Reward(earnings)
		p := Payout{
			Kind:     KindPacking,
			Size:     next.Size(),
			Earnings: earnings,
			Tax:      t,
			Net:      earnings - t,
			Priemer:  s.eff.Get(ownerID),
		}
		if err := s.complete(ctx, next, p); err != nil {
			return err
		}
		res.Payout = &p
		return nil
	})
	return res, err
}

// Exit удаляет сессию безусловно, на любой стадии. Возвращает false,
// если сессии не было.
func (s *Service) Exit(ctx context.Context, actorID, ownerID int64) (bool, error) {
	if actorID != ownerID {
		return false, common.ErrNotSessionOwner
	}
	var existed bool
	err := s.guard.WithUser(ownerID, func() error {
		existed = s.repo.Delete(ctx, ownerID)
		return nil
	})
	if existed {
		log.WithField("user_id", ownerID).Info("Игрок вышел с работы")
	}
	return existed, err
}

// Get возвращает активную сессию игрока.
func (s *Service) Get(userID int64) (Session, bool) {
	sess, ok := s.repo.Get(userID)
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// SweepIdle удаляет сессии, к которым не прикасались дольше IdleTTL.
// Вызывается из тика под мировым замком.
func (s *Service) SweepIdle(ctx context.Context) int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.clock.Now().Add(-s.idleTTL)
	removed := 0
	for _, sess := range s.repo.All() {
		if sess.UpdatedAt.Before(cutoff) && s.repo.Delete(ctx, sess.UserID) {
			removed++
		}
	}
	if removed > 0 {
		log.WithFields(log.Fields{"tick": "sessions", "removed": removed}).Info("Брошенные заказы удалены")
	}
	return removed
}
