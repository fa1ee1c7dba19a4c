// Package tax содержит налоговые правила экономики. Это три независимых
// механизма, их нельзя смешивать:
//   - Policy — налог с чистой прибыли выигрышей и наград (порог 20000, 18%);
//   - Picking — плоская ставка с заработка на пикинге (7% / 19%, граница 47000);
//   - Wealth — ежедневный налог на наличные (19% / 25%, граница 37981).
//
// Проценты считаются через decimal, результат усекается до целого.
package tax

import "github.com/shopspring/decimal"

// Policy — налог с прибыли (выплата минус ставка), никогда с полной выплаты.
type Policy struct {
	Threshold int64
	Rate      decimal.Decimal
}

// DefaultPolicy — порог 20000, ставка 18%.
func DefaultPolicy() Policy {
	return Policy{Threshold: 20000, Rate: decimal.RequireFromString("0.18")}
}

// NewPolicy создаёт политику из настроек.
func NewPolicy(threshold int64, rate float64) Policy {
	return Policy{Threshold: threshold, Rate: decimal.NewFromFloat(rate)}
}

// Reward возвращает налог с чистой прибыли: 0 при profit <= Threshold.
func (p Policy) Reward(profit int64) int64 {
	if profit <= p.Threshold {
		return 0
	}
	return percent(profit, p.Rate)
}

// Pay описывает выплату после налога.
type Pay struct {
	Gross  int64 // выплата до налога (включая возврат ставки)
	Profit int64 // чистая прибыль: Gross - ставка
	Tax    int64
	Net    int64 // к зачислению: Gross - Tax
}

// Settle считает налог для выплаты gross при ставке bet.
func (p Policy) Settle(bet, gross int64) Pay {
	profit := gross - bet
	t := int64(0)
	if profit > 0 {
		t = p.Reward(profit)
	}
	return Pay{Gross: gross, Profit: profit, Tax: t, Net: gross - t}
}

var (
	pickingThreshold int64 = 47000
	pickingLowRate         = decimal.RequireFromString("0.07")
	pickingHighRate        = decimal.RequireFromString("0.19")

	wealthThreshold int64 = 37981
	wealthLowRate         = decimal.RequireFromString("0.19")
	wealthHighRate        = decimal.RequireFromString("0.25")
)

// Picking возвращает ставку и сумму налога с заработка на пикинге.
func Picking(earnings int64) (decimal.Decimal, int64) {
	rate := pickingLowRate
	if earnings > pickingThreshold {
		rate = pickingHighRate
	}
	return rate, percent(earnings, rate)
}

// Wealth возвращает ежедневный налог на наличные.
func Wealth(cash int64) int64 {
	if cash <= 0 {
		return 0
	}
	rate := wealthLowRate
	if cash >= wealthThreshold {
		rate = wealthHighRate
	}
	return percent(cash, rate)
}

func percent(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).IntPart()
}
