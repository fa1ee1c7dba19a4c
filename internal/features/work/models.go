// Package work — models.go описывает рабочую сессию (заказ) игрока.
// На пикинге игрок сканирует позиции пикап-листа, на пакинге выбирает
// коробку и собирает в неё товар.
package work

import "time"

// Kind — вид работы.
type Kind string

const (
	KindPicking Kind = "picking"
	KindPacking Kind = "packing"
)

func (k Kind) Title() string {
	if k == KindPacking {
		return "пакинг"
	}
	return "пикинг"
}

// Phase — состояние автомата сессии.
type Phase string

const (
	PhaseAwaitingScan  Phase = "awaiting_scan"
	PhaseReadyToSubmit Phase = "ready_to_submit"
	PhaseAwaitingBox   Phase = "awaiting_box"
	PhaseCollecting    Phase = "collecting"
	PhaseComplete      Phase = "complete"
)

// Position — строка пикап-листа.
type Position struct {
	Location string `json:"location"`
	Item     string `json:"item"`
	Done     bool   `json:"done"`
}

// Session — активный заказ игрока. У игрока не больше одной сессии.
type Session struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id,omitempty"`
	Kind      Kind   `json:"kind"`
	Phase     Phase  `json:"phase"`

	// пикинг
	Positions []Position `json:"positions,omitempty"`
	// BlockedUntil — до этого момента телефон «сломан», сканировать нельзя.
	BlockedUntil time.Time `json:"blocked_until,omitempty"`
	// NextScanAt — раньше этого момента следующий скан не принимается.
	NextScanAt time.Time `json:"next_scan_at,omitempty"`

	// пакинг
	Target    int    `json:"target,omitempty"`
	Remaining int    `json:"remaining,omitempty"`
	Box       string `json:"box,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Size — размер заказа: число позиций или товаров.
func (s *Session) Size() int {
	if s.Kind == KindPacking {
		return s.Target
	}
	return len(s.Positions)
}

// Pending — сколько позиций ещё не отсканировано.
func (s *Session) Pending() int {
	n := 0
	for _, p := range s.Positions {
		if !p.Done {
			n++
		}
	}
	return n
}

// Clone возвращает глубокую копию.
func (s *Session) Clone() *Session {
	c := *s
	c.Positions = append([]Position(nil), s.Positions...)
	return &c
}

// Payout — итог оплаты заказа.
type Payout struct {
	Kind     Kind
	Size     int
	Earnings int64 // до налога
	TaxRate  string
	Tax      int64
	Net      int64
	Priemer  int
}
