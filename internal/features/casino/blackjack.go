// Package casino — blackjack.go описывает раунд блэкджека как конечный
// автомат: ход игрока (взять / хватит), затем игра дилера до 17.
package casino

import (
	"strings"
	"time"
)

// Card — карта: ранг и масть.
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

func (c Card) String() string { return c.Rank + c.Suit }

var (
	ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
	suits = []string{"♥", "♦", "♣", "♠"}
)

// NewDeck возвращает перетасованную колоду из 52 карт.
func NewDeck(rng RNG) []Card {
	deck := make([]Card, 0, len(ranks)*len(suits))
	for _, s := range suits {
		for _, r := range ranks {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := rng(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

func cardValue(rank string) int {
	switch rank {
	case "A":
		return 11
	case "J", "Q", "K", "10":
		return 10
	default:
		return int(rank[0] - '0')
	}
}

// HandValue считает сумму руки. Пока перебор и есть тузы, туз считается за 1.
func HandValue(hand []Card) int {
	total, aces := 0, 0
	for _, c := range hand {
		total += cardValue(c.Rank)
		if c.Rank == "A" {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// FormatHand выводит руку как "A♠ 10♥".
func FormatHand(hand []Card) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// RoundState — фаза раунда.
type RoundState int

const (
	StatePlayerTurn RoundState = iota
	StateFinished
)

// Result — чем закончился раунд.
type Result int

const (
	ResultNone Result = iota
	ResultNatural
	ResultPlayerBust
	ResultDealerBust
	ResultPlayerWin
	ResultDealerWin
	ResultPush
)

// Multiplier возвращает валовую выплату в ставках.
func (r Result) Multiplier() int64 {
	switch r {
	case ResultNatural:
		return 3
	case ResultDealerBust, ResultPlayerWin:
		return 2
	case ResultPush:
		return 1
	default:
		return 0
	}
}

func (r Result) String() string {
	switch r {
	case ResultNatural:
		return "natural"
	case ResultPlayerBust:
		return "player_bust"
	case ResultDealerBust:
		return "dealer_bust"
	case ResultPlayerWin:
		return "win"
	case ResultDealerWin:
		return "loss"
	case ResultPush:
		return "push"
	default:
		return "none"
	}
}

// Round — раунд блэкджека одного игрока.
type Round struct {
	ID        string
	UserID    int64
	ChatID    int64
	MessageID int
	Bet       int64
	Deck      []Card
	Player    []Card
	Dealer    []Card
	State     RoundState
	Result    Result
	StartedAt time.Time
	// TimedOut — раунд завершён автоматически по таймауту.
	TimedOut bool
}

// Deal раздаёт по две карты. Натуральный блэкджек сразу закрывает раунд.
func Deal(id string, userID, chatID, bet int64, rng RNG, now time.Time) *Round {
	r := &Round{
		ID:        id,
		UserID:    userID,
		ChatID:    chatID,
		Bet:       bet,
		Deck:      NewDeck(rng),
		StartedAt: now,
	}
	r.Player = append(r.Player, r.draw(), r.draw())
	r.Dealer = append(r.Dealer, r.draw(), r.draw())
	if HandValue(r.Player) == 21 {
		r.finish(ResultNatural)
	}
	return r
}

func (r *Round) draw() Card {
	c := r.Deck[len(r.Deck)-1]
	r.Deck = r.Deck[:len(r.Deck)-1]
	return c
}

func (r *Round) finish(res Result) {
	r.State = StateFinished
	r.Result = res
}

// Hit добирает карту игроку. Перебор — проигрыш, ровно 21 — ход дилера.
// В завершённом раунде ничего не делает.
func (r *Round) Hit() {
	if r.State != StatePlayerTurn {
		return
	}
	r.Player = append(r.Player, r.draw())
	switch v := HandValue(r.Player); {
	case v > 21:
		r.finish(ResultPlayerBust)
	case v == 21:
		r.Stand()
	}
}

// Stand передаёт ход дилеру: он берёт карты, пока сумма меньше 17,
// после чего руки сравниваются.
func (r *Round) Stand() {
	if r.State != StatePlayerTurn {
		return
	}
	for HandValue(r.Dealer) < 17 {
		r.Dealer = append(r.Dealer, r.draw())
	}
	player, dealer := HandValue(r.Player), HandValue(r.Dealer)
	switch {
	case dealer > 21:
		r.finish(ResultDealerBust)
	case player > dealer:
		r.finish(ResultPlayerWin)
	case player == dealer:
		r.finish(ResultPush)
	default:
		r.finish(ResultDealerWin)
	}
}
