// Package business — бизнесы игроков: покупка, улучшения, ремонт и продажа,
// ежедневные доход и налог, недельный конкурс и серверные эффекты.
package business

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxOwned — сколько бизнесов может быть у одного игрока.
	MaxOwned = 3
	// MaxNameLen — максимальная длина названия бизнеса в символах.
	MaxNameLen = 32
	// UpgradeCooldown — минимальный интервал между улучшениями одного бизнеса.
	UpgradeCooldown = 24 * time.Hour
	// EffectChancePercent — шанс получить серверный эффект при улучшении.
	EffectChancePercent = 10
	// EffectDuration — сколько действует эффект.
	EffectDuration = 24 * time.Hour
	// TrophyItem — предмет победителям недельного конкурса.
	TrophyItem = "🏆 Кубок недели"
)

// costScale — множитель цены покупки по числу уже купленных бизнесов.
var costScale = [MaxOwned]int64{1, 5, 10}

var (
	upgradeGrowth   = decimal.RequireFromString("1.5")
	multiplierStart = decimal.RequireFromString("2.0")
	multiplierStep  = decimal.RequireFromString("0.2")
	multiplierFloor = decimal.RequireFromString("1.2")
	boostMultiplier = decimal.RequireFromString("1.2")
	effectBonus     = decimal.RequireFromString("1.1")
	sellRefund      = decimal.RequireFromString("0.7")
)

// Type — вид бизнеса из каталога.
type Type struct {
	Key         string
	Name        string
	Aliases     []string
	BaseCost    int64
	Profit      int64
	Tax         int64
	UpgradeCost int64
	// RepairPercent — стоимость ремонта в процентах от BaseCost.
	RepairPercent int64
}

// EffectKey — серверный эффект вида: +10% дохода всем бизнесам этого вида.
func (t Type) EffectKey() string {
	return "boost:" + t.Key
}

// RepairCost — стоимость ремонта.
func (t Type) RepairCost() int64 {
	return t.BaseCost * t.RepairPercent / 100
}

// SellRefund — возврат при продаже: 70% базовой цены, улучшения не учитываются.
func (t Type) SellRefund() int64 {
	return decimal.NewFromInt(t.BaseCost).Mul(sellRefund).IntPart()
}

// Catalog — все виды бизнесов.
var Catalog = []Type{
	{Key: "stall", Name: "Ларёк", Aliases: []string{"ларёк", "ларек"},
		BaseCost: 50_000, Profit: 2_000, Tax: 300, UpgradeCost: 20_000, RepairPercent: 5},
	{Key: "coffee", Name: "Кофейня", Aliases: []string{"кофейня", "кофе"},
		BaseCost: 150_000, Profit: 6_500, Tax: 1_000, UpgradeCost: 60_000, RepairPercent: 5},
	{Key: "carwash", Name: "Автомойка", Aliases: []string{"автомойка", "мойка"},
		BaseCost: 300_000, Profit: 13_000, Tax: 2_200, UpgradeCost: 120_000, RepairPercent: 8},
	{Key: "bakery", Name: "Пекарня", Aliases: []string{"пекарня"},
		BaseCost: 500_000, Profit: 22_000, Tax: 3_800, UpgradeCost: 200_000, RepairPercent: 8},
	{Key: "it", Name: "IT-студия", Aliases: []string{"it-студия", "it", "айти"},
		BaseCost: 1_000_000, Profit: 45_000, Tax: 8_000, UpgradeCost: 400_000, RepairPercent: 10},
}

// TypeByKey ищет вид по ключу, названию или псевдониму.
func TypeByKey(s string) (Type, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Catalog {
		if t.Key == s || strings.ToLower(t.Name) == s {
			return t, true
		}
		for _, a := range t.Aliases {
			if a == s {
				return t, true
			}
		}
	}
	return Type{}, false
}

// Business — бизнес игрока.
type Business struct {
	ID            string    `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Profit        int64     `json:"profit"`
	Tax           int64     `json:"tax"`
	Upgrades      int       `json:"upgrades"`
	Upgraded      bool      `json:"upgraded"`
	Boosts        int       `json:"boosts"`
	LastUpgradeAt time.Time `json:"last_upgrade_at"`
	BoughtAt      time.Time `json:"bought_at"`
}

// Kind возвращает вид бизнеса из каталога.
func (b *Business) Kind() Type {
	t, _ := TypeByKey(b.Type)
	return t
}

// Clone возвращает копию.
func (b *Business) Clone() *Business {
	c := *b
	return &c
}

// UpgradeCost — цена следующего улучшения: base × 1.5^upgrades.
func UpgradeCost(t Type, upgrades int) int64 {
	return decimal.NewFromInt(t.UpgradeCost).Mul(upgradeGrowth.Pow(decimal.NewFromInt(int64(upgrades)))).IntPart()
}

// UpgradeMultiplier — множитель прибыли для улучшения номер upgrades (с нуля):
// 2.0, 1.8, 1.6, 1.4 и дальше 1.2.
func UpgradeMultiplier(upgrades int) decimal.Decimal {
	m := multiplierStart.Sub(multiplierStep.Mul(decimal.NewFromInt(int64(upgrades))))
	if m.LessThan(multiplierFloor) {
		return multiplierFloor
	}
	return m
}

func scale(amount int64, m decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(m).IntPart()
}

// Effect — серверный эффект с временем окончания.
type Effect struct {
	Key       string    `json:"key"`
	Until     time.Time `json:"until"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// EffectTitle — человеческое название эффекта.
func EffectTitle(key string) string {
	for _, t := range Catalog {
		if t.EffectKey() == key {
			return "+10% дохода: " + t.Name
		}
	}
	return key
}
