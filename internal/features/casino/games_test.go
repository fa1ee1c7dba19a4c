package casino

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fixed возвращает RNG, выдающий значения по кругу.
func fixed(values ...int) RNG {
	i := 0
	return func(n int) int {
		v := values[i%len(values)]
		i++
		return v % n
	}
}

func TestParseSide(t *testing.T) {
	for _, s := range []string{"о", "орел", "o", "orel", "ОРЕЛ"} {
		side, ok := ParseSide(s)
		assert.True(t, ok, s)
		assert.Equal(t, Heads, side, s)
	}
	for _, s := range []string{"р", "решка", "p", "reshka"} {
		side, ok := ParseSide(s)
		assert.True(t, ok, s)
		assert.Equal(t, Tails, side, s)
	}
	_, ok := ParseSide("ребро")
	assert.False(t, ok)
}

func TestFlip(t *testing.T) {
	assert.Equal(t, int64(2), Flip(Heads, fixed(0)).Multiplier)
	assert.Equal(t, int64(0), Flip(Heads, fixed(1)).Multiplier)
	assert.Equal(t, Tails, Flip(Heads, fixed(1)).Side)
}

func TestSpinCountsDistinctSymbols(t *testing.T) {
	tests := []struct {
		name  string
		rolls []int
		want  int64
	}{
		{"three of a kind", []int{3, 3, 3}, 5},
		{"pair at the ends", []int{1, 4, 1}, 2},
		{"pair at the start", []int{7, 7, 0}, 2},
		{"all different", []int{0, 1, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Spin(fixed(tt.rolls...))
			assert.Equal(t, tt.want, res.Multiplier)
		})
	}
	assert.Len(t, SlotSymbols, 8)
}

func TestDice(t *testing.T) {
	res := Dice(4, fixed(3))
	assert.Equal(t, 4, res.Rolled)
	assert.Equal(t, int64(5), res.Multiplier)

	res = Dice(4, fixed(5))
	assert.Equal(t, 6, res.Rolled)
	assert.Zero(t, res.Multiplier)
}

func TestColorOf(t *testing.T) {
	assert.Equal(t, Green, ColorOf(0))
	reds := 0
	for n := 1; n <= 36; n++ {
		c := ColorOf(n)
		assert.NotEqual(t, Green, c, n)
		if c == Red {
			reds++
		}
	}
	assert.Equal(t, 18, reds)
	assert.Equal(t, Red, ColorOf(1))
	assert.Equal(t, Black, ColorOf(2))
	assert.Equal(t, Red, ColorOf(36))
}

func TestRoulette(t *testing.T) {
	tests := []struct {
		name   string
		target string
		roll   int
		want   int64
	}{
		{"red wins", "красное", 1, 2},
		{"red loses on zero", "red", 0, 0},
		{"black wins", "ч", 2, 2},
		{"green wins", "зеро", 0, 14},
		{"exact number", "17", 17, 35},
		{"wrong number", "17", 18, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Roulette(tt.target, fixed(tt.roll))
			assert.Equal(t, tt.want, res.Multiplier)
			assert.False(t, res.Refund)
		})
	}

	for _, bad := range []string{"37", "-1", "синее"} {
		res := Roulette(bad, fixed(5))
		assert.True(t, res.Refund, bad)
		assert.Equal(t, int64(1), res.Multiplier, bad)
	}
}
