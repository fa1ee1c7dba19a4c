// Package casino — models.go описывает статистику игрока и итог расчёта ставки.
package casino

import "time"

// Stats — накопленная статистика игрока в казино.
type Stats struct {
	UserID     int64     `json:"user_id"`
	Games      int64     `json:"games"`
	Wagered    int64     `json:"wagered"`
	Won        int64     `json:"won"` // валовые выплаты, включая возвраты ставок
	TaxPaid    int64     `json:"tax_paid"`
	BiggestWin int64     `json:"biggest_win"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RTP — фактический процент возврата игроку (выплаты / ставки).
func (s *Stats) RTP() float64 {
	if s.Wagered == 0 {
		return 0
	}
	return float64(s.Won-s.TaxPaid) / float64(s.Wagered) * 100
}

// Settlement — денежный итог одной игры.
type Settlement struct {
	Bet   int64
	Gross int64 // выплата до налога
	Tax   int64
	Net   int64 // зачислено
	Cash  int64 // наличные после игры
}

// Profit — изменение наличных за игру.
func (s Settlement) Profit() int64 {
	return s.Net - s.Bet
}
