package casino

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cards(ranks ...string) []Card {
	out := make([]Card, len(ranks))
	for i, r := range ranks {
		out[i] = Card{Rank: r, Suit: "♠"}
	}
	return out
}

func TestHandValue(t *testing.T) {
	tests := []struct {
		hand []string
		want int
	}{
		{[]string{"A", "A", "9"}, 21},
		{[]string{"A", "K"}, 21},
		{[]string{"A", "A"}, 12},
		{[]string{"A", "A", "A", "A"}, 14},
		{[]string{"K", "Q", "2"}, 22},
		{[]string{"A", "9", "K", "5"}, 25},
		{[]string{"10", "7"}, 17},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HandValue(cards(tt.hand...)), tt.hand)
	}
}

func TestNewDeck(t *testing.T) {
	deck := NewDeck(DefaultRNG)
	require.Len(t, deck, 52)
	seen := make(map[Card]bool)
	for _, c := range deck {
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}

func TestDealNatural(t *testing.T) {
	// без перестановок последние карты колоды — K♠ и A♠
	identity := func(n int) int { return n - 1 }
	r := Deal("r1", 1, 10, 100, identity, time.Now())
	assert.Equal(t, StateFinished, r.State)
	assert.Equal(t, ResultNatural, r.Result)
	assert.Equal(t, int64(3), r.Result.Multiplier())
}

func newRound(player, dealer, deck []Card) *Round {
	return &Round{Player: player, Dealer: dealer, Deck: deck, Bet: 100}
}

func TestStandDealerDrawsToSeventeen(t *testing.T) {
	// колода тянется с конца: дилер возьмёт 5, затем 3
	r := newRound(cards("10", "9"), cards("6", "4"), cards("K", "3", "5"))
	r.Stand()
	assert.Equal(t, StateFinished, r.State)
	assert.Equal(t, 18, HandValue(r.Dealer))
	assert.Equal(t, ResultPlayerWin, r.Result)
}

func TestStandOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		player []Card
		dealer []Card
		deck   []Card
		want   Result
	}{
		{"dealer bust", cards("10", "2"), cards("10", "6"), cards("K"), ResultDealerBust},
		{"push", cards("10", "8"), cards("10", "8"), nil, ResultPush},
		{"dealer higher", cards("10", "7"), cards("10", "9"), nil, ResultDealerWin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRound(tt.player, tt.dealer, tt.deck)
			r.Stand()
			assert.Equal(t, tt.want, r.Result)
		})
	}
}

func TestHitBust(t *testing.T) {
	r := newRound(cards("10", "6"), cards("10", "7"), cards("K"))
	r.Hit()
	assert.Equal(t, StateFinished, r.State)
	assert.Equal(t, ResultPlayerBust, r.Result)
	assert.Zero(t, r.Result.Multiplier())
	assert.Len(t, r.Dealer, 2, "dealer does not play after player bust")

	r.Hit()
	assert.Len(t, r.Player, 3, "finished round ignores moves")
}

func TestHitToTwentyOneStandsAutomatically(t *testing.T) {
	r := newRound(cards("10", "6"), cards("10", "7"), cards("5"))
	r.Hit()
	assert.Equal(t, StateFinished, r.State)
	assert.Equal(t, ResultPlayerWin, r.Result)
}
