package work

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
)

func pickingSession(n int) *Session {
	s := &Session{Kind: KindPicking, Phase: PhaseAwaitingScan}
	for i := 0; i < n; i++ {
		s.Positions = append(s.Positions, Position{Location: "3B1A1", Item: "BSN - Гейнер"})
	}
	return s
}

func TestPickingTransitions(t *testing.T) {
	s := pickingSession(5)

	next, eff, err := Transition(s, Event{Kind: EventScan, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, EffectProgress, eff)
	assert.Equal(t, 2, next.Pending())
	assert.Equal(t, 5, s.Pending(), "source session is not mutated")

	_, _, err = Transition(next, Event{Kind: EventSubmit})
	assert.ErrorIs(t, err, common.ErrStateConflict)

	next, eff, err = Transition(next, Event{Kind: EventScan, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, EffectReady, eff)
	assert.Equal(t, PhaseReadyToSubmit, next.Phase)

	_, _, err = Transition(next, Event{Kind: EventScan, Count: 1})
	assert.ErrorIs(t, err, common.ErrStateConflict)

	done, eff, err := Transition(next, Event{Kind: EventSubmit})
	require.NoError(t, err)
	assert.Equal(t, EffectComplete, eff)
	assert.Equal(t, PhaseComplete, done.Phase)
}

func TestPackingTransitions(t *testing.T) {
	s := &Session{Kind: KindPacking, Phase: PhaseAwaitingBox, Target: 12, Remaining: 12}

	_, _, err := Transition(s, Event{Kind: EventChooseBox, Box: "S"})
	assert.ErrorIs(t, err, common.ErrStateConflict)
	assert.Equal(t, PhaseAwaitingBox, s.Phase)

	_, _, err = Transition(s, Event{Kind: EventChooseBox, Box: "XXXL"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, _, err = Transition(s, Event{Kind: EventCollect, Count: 3})
	assert.ErrorIs(t, err, common.ErrStateConflict)

	next, eff, err := Transition(s, Event{Kind: EventChooseBox, Box: "L"})
	require.NoError(t, err)
	assert.Equal(t, EffectStarted, eff)

	next, eff, err = Transition(next, Event{Kind: EventCollect, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, EffectProgress, eff)
	assert.Equal(t, 7, next.Remaining)

	next, eff, err = Transition(next, Event{Kind: EventCollect, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, next.Remaining)

	next, eff, err = Transition(next, Event{Kind: EventCollect, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, EffectComplete, eff)
	assert.Zero(t, next.Remaining, "collection is bounded by what remains")
}

func TestBoxesCoverAllSizes(t *testing.T) {
	for n := 1; n <= MaxOrderSize; n++ {
		fits := 0
		for _, b := range Boxes {
			if b.Fits(n) {
				fits++
			}
		}
		assert.Equal(t, 1, fits, "size %d", n)
	}
}

func TestParseKind(t *testing.T) {
	k, random, err := ParseKind("пикинг")
	require.NoError(t, err)
	assert.False(t, random)
	assert.Equal(t, KindPicking, k)

	_, random, err = ParseKind("")
	require.NoError(t, err)
	assert.True(t, random)

	_, _, err = ParseKind("бафер")
	assert.ErrorIs(t, err, common.ErrStateConflict)

	_, _, err = ParseKind("космонавт")
	assert.ErrorIs(t, err, common.ErrValidation)
}
