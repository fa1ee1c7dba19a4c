// Package business — service.go: операции игрока над бизнесами и тики.
// Деньги и список бизнесов меняются в одной операции ledger.Do; если
// аккаунт не сохранился, список возвращается к прежнему.
package business

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/concurrency"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/economy"
	"github.com/sahaproshurik/bazarcikpmbot/internal/metrics"
)

// Призы недельного конкурса за 1, 2 и 3 место и число бесплатных бустов.
var (
	competitionPrizes = []int64{100_000, 50_000, 25_000}
	competitionBoosts = []int{3, 2, 1}
)

// Options — зависимости сервиса бизнесов.
type Options struct {
	Repo    *Repository
	Effects *Effects
	Ledger  *economy.Service
	Guard   *concurrency.Guard
	Clock   clock.Clock
	RNG     func(n int) int
}

// Service — бизнес-движок.
type Service struct {
	repo    *Repository
	effects *Effects
	ledger  *economy.Service
	guard   *concurrency.Guard
	clock   clock.Clock
	rng     func(n int) int
}

// NewService создаёт сервис бизнесов.
func NewService(o Options) *Service {
	if o.RNG == nil {
		o.RNG = rand.IntN
	}
	return &Service{
		repo:    o.Repo,
		effects: o.Effects,
		ledger:  o.Ledger,
		guard:   o.Guard,
		clock:   o.Clock,
		rng:     o.RNG,
	}
}

// Effects возвращает реестр серверных эффектов.
func (s *Service) Effects() *Effects {
	return s.effects
}

// List возвращает бизнесы игрока.
func (s *Service) List(userID int64) []*Business {
	return s.repo.List(userID)
}

// BuyCost — цена следующей покупки вида t для игрока с owned бизнесами.
func BuyCost(t Type, owned int) int64 {
	if owned >= MaxOwned {
		return 0
	}
	return t.BaseCost * costScale[owned]
}

func findByName(list []*Business, name string) int {
	for i, b := range list {
		if strings.EqualFold(b.Name, name) {
			return i
		}
	}
	return -1
}

// mutate меняет деньги и бизнесы игрока как одну операцию.
func (s *Service) mutate(ctx context.Context, userID int64, next []*Business, fn func(tx *economy.Tx) error) error {
	prev := s.repo.List(userID)
	stored := false
	err := s.ledger.Do(ctx, []int64{userID}, func(tx *economy.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		if err := s.repo.Put(ctx, userID, next); err != nil {
			return err
		}
		stored = true
		return nil
	})
	if err != nil && stored {
		if rerr := s.repo.Put(ctx, userID, prev); rerr != nil {
			log.WithError(rerr).WithField("user_id", userID).Error("Не удалось откатить бизнесы")
		}
	}
	return err
}

// Buy покупает бизнес вида typeKey с названием name.
// Цена — 1×, 5× или 10× базовой по числу уже купленных.
func (s *Service) Buy(ctx context.Context, userID int64, typeKey, name string) (*Business, int64, error) {
	t, ok := TypeByKey(typeKey)
	if !ok {
		return nil, 0, common.Validation("такого бизнеса нет, смотрите !бизнесы")
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLen {
		return nil, 0, common.Validation("название бизнеса от 1 до %d символов", MaxNameLen)
	}

	var (
		out  *Business
		cost int64
	)
	err := s.guard.WithUser(userID, func() error {
		list := s.repo.List(userID)
		if len(list) >= MaxOwned {
			return common.Conflict("у вас уже %d бизнеса, это максимум", MaxOwned)
		}
		if findByName(list, name) >= 0 {
			return common.Conflict("бизнес с названием «%s» у вас уже есть", name)
		}
		cost = BuyCost(t, len(list))
		now := s.clock.Now()
		b := &Business{
			ID:       uuid.NewString(),
			OwnerID:  userID,
			Name:     name,
			Type:     t.Key,
			Profit:   t.Profit,
			Tax:      t.Tax,
			BoughtAt: now,
		}
		err := s.mutate(ctx, userID, append(list, b), func(tx *economy.Tx) error {
			return tx.Debit(userID, cost, economy.TxBusinessBuy, fmt.Sprintf("покупка: %s «%s»", t.Name, name))
		})
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	log.WithFields(log.Fields{"user_id": userID, "type": t.Key, "cost": cost}).Info("Бизнес куплен")
	return out, cost, nil
}

// UpgradeResult — итог улучшения.
type UpgradeResult struct {
	Business   Business
	Cost       int64
	Multiplier string
	Effect     *Effect
}

// Upgrade улучшает бизнес: не чаще раза в UpgradeCooldown, цена растёт
// в 1.5 раза за каждое прошлое улучшение, прибыль умножается на
// UpgradeMultiplier. С шансом EffectChancePercent включается эффект вида.
func (s *Service) Upgrade(ctx context.Context, userID int64, name string) (UpgradeResult, error) {
	var res UpgradeResult
	err := s.guard.WithUser(userID, func() error {
		list := s.repo.List(userID)
		i := findByName(list, name)
		if i < 0 {
			return common.NotFound("бизнес «%s» не найден", name)
		}
		b := list[i]
		now := s.clock.Now()
		if b.Upgraded {
			if wait := b.LastUpgradeAt.Add(UpgradeCooldown).Sub(now); wait > 0 {
				return common.Conflict("улучшать можно раз в сутки, осталось %s", common.FormatDuration(wait))
			}
		}

		t := b.Kind()
		cost := UpgradeCost(t, b.Upgrades)
		m := UpgradeMultiplier(b.Upgrades)
		b.Profit = scale(b.Profit, m)
		b.Upgrades++
		b.Upgraded = true
		b.LastUpgradeAt = now

		err := s.mutate(ctx, userID, list, func(tx *economy.Tx) error {
			return tx.Debit(userID, cost, economy.TxBusinessUpgrade, fmt.Sprintf("улучшение «%s»", b.Name))
		})
		if err != nil {
			return err
		}
		res = UpgradeResult{Business: *b, Cost: cost, Multiplier: m.String()}

		if s.rng(100) < EffectChancePercent {
			eff, err := s.effects.Activate(ctx, t.EffectKey(), EffectDuration, "upgrade")
			if err != nil {
				log.WithError(err).WithField("user_id", userID).Error("Не удалось включить эффект")
				return nil
			}
			res.Effect = &eff
		}
		return nil
	})
	return res, err
}

// Repair ремонтирует бизнес за фиксированную долю базовой цены.
// Состояние бизнеса не меняется.
func (s *Service) Repair(ctx context.Context, userID int64, name string) (int64, error) {
	var cost int64
	err := s.guard.WithUser(userID, func() error {
		list := s.repo.List(userID)
		i := findByName(list, name)
		if i < 0 {
			return common.NotFound("бизнес «%s» не найден", name)
		}
		cost = list[i].Kind().RepairCost()
		return s.ledger.Do(ctx, []int64{userID}, func(tx *economy.Tx) error {
			return tx.Debit(userID, cost, economy.TxBusinessRepair, fmt.Sprintf("ремонт «%s»", list[i].Name))
		})
	})
	return cost, err
}

// Sell продаёт бизнес за 70% базовой цены вида.
func (s *Service) Sell(ctx context.Context, userID int64, name string) (int64, error) {
	var refund int64
	err := s.guard.WithUser(userID, func() error {
		list := s.repo.List(userID)
		i := findByName(list, name)
		if i < 0 {
			return common.NotFound("бизнес «%s» не найден", name)
		}
		b := list[i]
		refund = b.Kind().SellRefund()
		rest := append(list[:i:i], list[i+1:]...)
		return s.mutate(ctx, userID, rest, func(tx *economy.Tx) error {
			return tx.Credit(userID, refund, economy.TxBusinessSale, fmt.Sprintf("продажа «%s»", b.Name))
		})
	})
	if err == nil {
		log.WithFields(log.Fields{"user_id": userID, "refund": refund}).Info("Бизнес продан")
	}
	return refund, err
}

// income — дневной доход бизнеса с учётом серверного эффекта.
func (s *Service) income(ctx context.Context, b *Business) int64 {
	if s.effects.IsActive(ctx, b.Kind().EffectKey()) {
		return scale(b.Profit, effectBonus)
	}
	return b.Profit
}

// TickReport — итог тика дохода или налога.
type TickReport struct {
	Accounts int
	Total    int64
	Failed   int
}

// sweepOwners применяет fn к каждому владельцу отдельно: ошибка одного
// аккаунта не мешает остальным.
func (s *Service) sweepOwners(ctx context.Context, tick string, fn func(ownerID int64, list []*Business) (int64, error)) TickReport {
	var rep TickReport
	for _, id := range s.repo.Owners() {
		list := s.repo.List(id)
		if len(list) == 0 {
			continue
		}
		amount, err := fn(id, list)
		if err != nil {
			rep.Failed++
			log.WithError(err).WithFields(log.Fields{"tick": tick, "user_id": id}).Error("Аккаунт пропущен тиком")
			continue
		}
		rep.Accounts++
		rep.Total += amount
	}
	if rep.Failed > 0 {
		metrics.TickAccountFailures.WithLabelValues(tick).Add(float64(rep.Failed))
	}
	log.WithFields(log.Fields{
		"tick":     tick,
		"accounts": rep.Accounts,
		"total":    rep.Total,
		"failed":   rep.Failed,
	}).Info("Тик завершён")
	return rep
}

// IncomeTick начисляет каждому владельцу сумму прибыли его бизнесов.
// Вызывается под мировым замком.
func (s *Service) IncomeTick(ctx context.Context) TickReport {
	return s.sweepOwners(ctx, "income", func(id int64, list []*Business) (int64, error) {
		var total int64
		for _, b := range list {
			total += s.income(ctx, b)
		}
		if total <= 0 {
			return 0, nil
		}
		err := s.ledger.Do(ctx, []int64{id}, func(tx *economy.Tx) error {
			return tx.Credit(id, total, economy.TxBusinessIncome, fmt.Sprintf("доход бизнесов (%d)", len(list)))
		})
		return total, err
	})
}

// TaxTick списывает сумму налогов бизнесов, но не больше наличных.
func (s *Service) TaxTick(ctx context.Context) TickReport {
	return s.sweepOwners(ctx, "business_tax", func(id int64, list []*Business) (int64, error) {
		var due int64
		for _, b := range list {
			due += b.Tax
		}
		var charged int64
		err := s.ledger.Do(ctx, []int64{id}, func(tx *economy.Tx) error {
			charged = tx.DebitUpTo(id, due, economy.TxBusinessTax, "налог на бизнес")
			return nil
		})
		if err == nil && charged > 0 {
			metrics.TaxCollected.WithLabelValues("business").Add(float64(charged))
		}
		return charged, err
	})
}

// Winner — призёр недельного конкурса.
type Winner struct {
	UserID  int64
	Place   int
	Profit  int64
	Prize   int64
	Boosted []string
}

// CompetitionTick ранжирует владельцев по сумме прибыли и награждает
// первые три места: деньги, кубок в инвентарь и бесплатные бусты ×1.2
// случайным бизнесам победителя.
func (s *Service) CompetitionTick(ctx context.Context) []Winner {
	type standing struct {
		id     int64
		profit int64
	}
	// таблица: суммарная прибыль владельца, без нулевых
	var table []standing
	for _, id := range s.repo.Owners() {
		var total int64
		for _, b := range s.repo.List(id) {
			total += b.Profit
		}
		if total > 0 {
			table = append(table, standing{id: id, profit: total})
		}
	}
	sort.SliceStable(table, func(i, j int) bool { return table[i].profit > table[j].profit })

	// призёры: деньги и кубок, плюс бусты случайным бизнесам
	var winners []Winner
	for place, st := range table {
		if place >= len(competitionPrizes) {
			break
		}
		w := Winner{UserID: st.id, Place: place + 1, Profit: st.profit, Prize: competitionPrizes[place]}
		list := s.repo.List(st.id)
		for i := 0; i < competitionBoosts[place]; i++ {
			b := list[s.rng(len(list))]
			b.Profit = scale(b.Profit, boostMultiplier)
			b.Boosts++
			w.Boosted = append(w.Boosted, b.Name)
		}
		// бусты и приз сохраняются вместе или никак
		err := s.mutate(ctx, st.id, list, func(tx *economy.Tx) error {
			if err := tx.Credit(st.id, w.Prize, economy.TxCompetitionPrize,
				fmt.Sprintf("конкурс бизнесов: %d место", w.Place)); err != nil {
				return err
			}
			tx.AddItem(st.id, TrophyItem, 1)
			return nil
		})
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"tick": "competition", "user_id": st.id}).Error("Не удалось наградить призёра")
			metrics.TickAccountFailures.WithLabelValues("competition").Inc()
			continue
		}
		winners = append(winners, w)
	}
	log.WithFields(log.Fields{"tick": "competition", "winners": len(winners)}).Info("Конкурс бизнесов подведён")
	return winners
}
