// Package loans — кредиты. У игрока не больше одного активного кредита:
// сумма и ставка зависят от стажа, просрочка удваивает долг, а долг,
// не погашенный и после отсрочки, списывается штрафом.
package loans

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxTerm — максимальный срок кредита в днях.
	MaxTerm = 7
	// MinTenure — минимальный стаж для кредита в днях.
	MinTenure = 30
	// Grace — отсрочка после каждого удвоения и перед штрафом.
	Grace = 48 * time.Hour
	// PenaltyFactor — штраф за непогашенный кредит в долях основного долга.
	PenaltyFactor = 10
)

var (
	rateHigh = decimal.RequireFromString("0.20")
	rateLow  = decimal.RequireFromString("0.15")
	one      = decimal.NewFromInt(1)
	hundred  = decimal.NewFromInt(100)
)

// MaxPrincipal — лимит суммы по стажу.
func MaxPrincipal(tenureDays int) int64 {
	switch {
	case tenureDays < 30:
		return 0
	case tenureDays < 60:
		return 100_000
	case tenureDays < 90:
		return 300_000
	case tenureDays < 120:
		return 500_000
	default:
		return 1_000_000
	}
}

// RateFor — ставка по стажу: больше 120 дней — 15%, иначе 20%.
func RateFor(tenureDays int) decimal.Decimal {
	if tenureDays > 120 {
		return rateLow
	}
	return rateHigh
}

// Loan — активный кредит игрока.
type Loan struct {
	ID           string          `json:"id"`
	UserID       int64           `json:"user_id"`
	Principal    int64           `json:"principal"`
	Rate         decimal.Decimal `json:"rate"`
	Term         int             `json:"term"`
	DailyPayment int64           `json:"daily_payment"`
	Paid         int64           `json:"paid"`
	Doublings    int             `json:"doublings"`
	IssuedAt     time.Time       `json:"issued_at"`
	DueAt        time.Time       `json:"due_at"`
	// Warned — какие напоминания о сроке уже отправлены.
	Warned map[string]bool `json:"warned,omitempty"`
}

// Owed — полная сумма к возврату: principal × (1 + rate).
func (l *Loan) Owed() int64 {
	return totalOwed(l.Principal, l.Rate)
}

// Remaining — сколько осталось заплатить.
func (l *Loan) Remaining() int64 {
	return max(l.Owed()-l.Paid, 0)
}

// Clone возвращает независимую копию.
func (l *Loan) Clone() *Loan {
	c := *l
	if l.Warned != nil {
		c.Warned = make(map[string]bool, len(l.Warned))
		for k, v := range l.Warned {
			c.Warned[k] = v
		}
	}
	return &c
}

// Quote — расчёт кредита без его оформления.
type Quote struct {
	Principal int64
	Term      int
	Rate      decimal.Decimal
	Daily     int64
	Total     int64
}

// RatePercent — ставка в процентах для показа.
func (q Quote) RatePercent() string {
	return q.Rate.Mul(hundred).String() + "%"
}

func totalOwed(principal int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(principal).Mul(one.Add(rate)).IntPart()
}

// NewQuote считает ежедневный платёж: int(principal × (1 + rate) / term).
func NewQuote(principal int64, term int, rate decimal.Decimal) Quote {
	total := decimal.NewFromInt(principal).Mul(one.Add(rate))
	return Quote{
		Principal: principal,
		Term:      term,
		Rate:      rate,
		Daily:     total.Div(decimal.NewFromInt(int64(term))).IntPart(),
		Total:     total.IntPart(),
	}
}

// warningLead — напоминание о сроке за Before до даты погашения.
type warningLead struct {
	Key    string
	Before time.Duration
	Text   string
}

// Напоминания от дальнего к ближнему.
var warningLeads = []warningLead{
	{Key: "3d", Before: 72 * time.Hour, Text: "3 дня"},
	{Key: "1d", Before: 24 * time.Hour, Text: "1 день"},
	{Key: "12h", Before: 12 * time.Hour, Text: "12 часов"},
	{Key: "1h", Before: time.Hour, Text: "1 час"},
}
