// Package economy — models.go описывает аккаунт игрока (Ledger):
// наличные, банк, опыт, инвентарь, предупреждения и последние операции.
package economy

import (
	"time"
)

// HistoryLimit — сколько последних операций хранится в аккаунте.
const HistoryLimit = 10

// Типы операций для истории.
const (
	TxTransferIn       = "transfer_in"
	TxTransferOut      = "transfer_out"
	TxDeposit          = "deposit"
	TxWithdraw         = "withdraw"
	TxGameBet          = "game_bet"
	TxGameWin          = "game_win"
	TxGameRefund       = "game_refund"
	TxJobPay           = "job_pay"
	TxLoanIssue        = "loan_issue"
	TxLoanPayment      = "loan_payment"
	TxLoanPenalty      = "loan_penalty"
	TxBusinessBuy      = "business_buy"
	TxBusinessUpgrade  = "business_upgrade"
	TxBusinessRepair   = "business_repair"
	TxBusinessSale     = "business_sale"
	TxBusinessIncome   = "business_income"
	TxBusinessTax      = "business_tax"
	TxCompetitionPrize = "competition_prize"
	TxWealthTax        = "wealth_tax"
	TxAdminGive        = "admin_give"
	TxAdminTake        = "admin_take"
)

// Account — денежное состояние одного игрока.
type Account struct {
	UserID    int64            `json:"user_id"`
	Cash      int64            `json:"cash"`
	Bank      int64            `json:"bank"`
	XP        int64            `json:"xp"`
	Inventory map[string]int64 `json:"inventory,omitempty"`
	Warns     []Warn           `json:"warns,omitempty"`
	History   []Entry          `json:"history,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Warn — предупреждение от администратора.
type Warn struct {
	Reason   string    `json:"reason"`
	IssuerID int64     `json:"issuer_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// Entry — запись истории операций. Amount со знаком: + приход, − расход.
type Entry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Total возвращает наличные плюс банк.
func (a *Account) Total() int64 {
	return a.Cash + a.Bank
}

// Clone возвращает глубокую копию аккаунта.
func (a *Account) Clone() *Account {
	c := *a
	if a.Inventory != nil {
		c.Inventory = make(map[string]int64, len(a.Inventory))
		for k, v := range a.Inventory {
			c.Inventory[k] = v
		}
	}
	c.Warns = append([]Warn(nil), a.Warns...)
	c.History = append([]Entry(nil), a.History...)
	return &c
}
