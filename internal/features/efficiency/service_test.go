package efficiency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

func TestScoreStep(t *testing.T) {
	tests := []struct {
		name  string
		start Score
		want  int
		idle  int
	}{
		{"growth from two orders", Score{Value: 10, Recent: []int{20, 30}}, 15, 0},
		{"small order still grows", Score{Value: 10, Recent: []int{2}}, 11, 0},
		{"capped", Score{Value: 148, Recent: []int{30, 30}}, MaxScore, 0},
		{"idle without decay", Score{Value: 10, IdleTicks: 5}, 10, 6},
		{"decay after sixty idle ticks", Score{Value: 10, IdleTicks: DecayEvery - 1}, 9, 0},
		{"decay floors at zero", Score{Value: 0, IdleTicks: DecayEvery - 1}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := tt.start
			sc.Step()
			assert.Equal(t, tt.want, sc.Value)
			assert.Equal(t, tt.idle, sc.IdleTicks)
			assert.Empty(t, sc.Recent)
		})
	}
}

func TestTickClearsHistory(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc, err := NewService(ctx, st)
	require.NoError(t, err)

	require.NoError(t, svc.Record(ctx, 1, 25))
	require.NoError(t, svc.Record(ctx, 1, 15))
	assert.Zero(t, svc.Get(1))

	require.NoError(t, svc.Tick(ctx))
	assert.Equal(t, 4, svc.Get(1))

	require.NoError(t, svc.Tick(ctx))
	assert.Equal(t, 4, svc.Get(1), "history is cleared each tick")

	reloaded, err := NewService(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.Get(1))
}

type failingStore struct {
	store.Store
	fail bool
}

func (f *failingStore) Save(ctx context.Context, dataset string, v any) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.Save(ctx, dataset, v)
}

func TestTickKeepsScoresWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	st := &failingStore{Store: store.NewMemoryStore()}
	svc, err := NewService(ctx, st)
	require.NoError(t, err)

	require.NoError(t, svc.Record(ctx, 1, 25))
	require.NoError(t, svc.Record(ctx, 1, 15))

	st.fail = true
	require.Error(t, svc.Tick(ctx))
	assert.Zero(t, svc.Get(1))

	// заказы не потерялись и учитываются следующим тиком
	st.fail = false
	require.NoError(t, svc.Tick(ctx))
	assert.Equal(t, 4, svc.Get(1))
}
