// Package casino — games.go содержит чистые функции игр: монетка, слоты,
// кости, рулетка. Каждая игра — функция от ставки, выбора игрока и источника
// случайности; результат несёт множитель выплаты.
package casino

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

// RNG возвращает равномерное число из [0, n).
type RNG func(n int) int

// DefaultRNG — системный генератор.
func DefaultRNG(n int) int {
	return rand.IntN(n)
}

// Названия игр (метки метрик и статистики).
const (
	GameFlip      = "flip"
	GameSlots     = "slots"
	GameDice      = "dice"
	GameRoulette  = "roulette"
	GameBlackjack = "blackjack"
)

// Outcome — итог игры. Multiplier 0 — проигрыш, 1 — возврат ставки,
// N — валовая выплата N × ставка.
type Outcome struct {
	Multiplier int64
	Refund     bool
}

// Won — игрок получил больше ставки.
func (o Outcome) Won() bool { return o.Multiplier > 1 }

// Side — сторона монеты.
type Side int

const (
	Heads Side = iota
	Tails
)

func (s Side) String() string {
	if s == Heads {
		return "Орел"
	}
	return "Решка"
}

// ParseSide понимает о/орел/o/orel и р/решка/p/reshka.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "о", "орел", "орёл", "o", "orel", "heads":
		return Heads, true
	case "р", "решка", "p", "reshka", "tails":
		return Tails, true
	}
	return 0, false
}

// FlipResult — результат монетки.
type FlipResult struct {
	Outcome
	Side Side
}

// Flip подбрасывает монету: угадал — 2×.
func Flip(choice Side, rng RNG) FlipResult {
	side := Side(rng(2))
	res := FlipResult{Side: side}
	if side == choice {
		res.Multiplier = 2
	}
	return res
}

// SlotSymbols — алфавит барабанов.
var SlotSymbols = []string{"🍒", "🍋", "🍉", "🍇", "🍊", "🍍", "🔔", "💎"}

// SpinResult — результат слотов.
type SpinResult struct {
	Outcome
	Reels [3]string
}

// Spin крутит три барабана: три одинаковых — 5×, ровно два — 2×.
// Совпадения считаются по числу различных символов, а не по позициям.
func Spin(rng RNG) SpinResult {
	var res SpinResult
	distinct := make(map[string]struct{}, 3)
	for i := range res.Reels {
		res.Reels[i] = SlotSymbols[rng(len(SlotSymbols))]
		distinct[res.Reels[i]] = struct{}{}
	}
	switch len(distinct) {
	case 1:
		res.Multiplier = 5
	case 2:
		res.Multiplier = 2
	}
	return res
}

// DiceResult — результат костей.
type DiceResult struct {
	Outcome
	Rolled int
}

// Dice бросает кубик 1..6: угадал число — 5×.
func Dice(guess int, rng RNG) DiceResult {
	res := DiceResult{Rolled: rng(6) + 1}
	if res.Rolled == guess {
		res.Multiplier = 5
	}
	return res
}

// Color — цвет ячейки рулетки.
type Color int

const (
	Green Color = iota
	Red
	Black
)

func (c Color) String() string {
	switch c {
	case Red:
		return "красное"
	case Black:
		return "чёрное"
	default:
		return "зеро"
	}
}

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// ColorOf классифицирует число рулетки: 0 — зелёное, красный набор — красное,
// остальное — чёрное.
func ColorOf(n int) Color {
	switch {
	case n == 0:
		return Green
	case redNumbers[n]:
		return Red
	default:
		return Black
	}
}

// TargetKind — тип ставки на рулетке.
type TargetKind int

const (
	TargetColor TargetKind = iota
	TargetNumber
)

// Target — на что поставил игрок.
type Target struct {
	Kind   TargetKind
	Color  Color
	Number int
}

// ParseTarget разбирает ставку: цвет или число 0..36.
func ParseTarget(s string) (Target, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red", "красное", "красный", "к", "r":
		return Target{Kind: TargetColor, Color: Red}, true
	case "black", "черное", "чёрное", "черный", "чёрный", "ч", "b":
		return Target{Kind: TargetColor, Color: Black}, true
	case "green", "зеленое", "зелёное", "зеро", "з", "g":
		return Target{Kind: TargetColor, Color: Green}, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 36 {
		return Target{}, false
	}
	return Target{Kind: TargetNumber, Number: n}, true
}

// RouletteResult — результат рулетки.
type RouletteResult struct {
	Outcome
	Number int
	Color  Color
}

// Roulette крутит колесо 0..36. Красное и чёрное — 2×, зеро — 14×,
// точное число — 35×. Нераспознанная ставка возвращается целиком.
func Roulette(target string, rng RNG) RouletteResult {
	t, ok := ParseTarget(target)
	if !ok {
		return RouletteResult{Outcome: Outcome{Multiplier: 1, Refund: true}}
	}
	n := rng(37)
	res := RouletteResult{Number: n, Color: ColorOf(n)}
	switch t.Kind {
	case TargetNumber:
		if n == t.Number {
			res.Multiplier = 35
		}
	case TargetColor:
		if res.Color == t.Color {
			switch t.Color {
			case Green:
				res.Multiplier = 14
			default:
				res.Multiplier = 2
			}
		}
	}
	return res
}
