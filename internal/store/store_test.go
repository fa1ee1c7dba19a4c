package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Cash map[int64]int64 `json:"cash"`
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "data"))
	require.NoError(t, err)

	var empty doc
	assert.ErrorIs(t, s.Load(ctx, DatasetAccounts, &empty), ErrNotFound)

	require.NoError(t, s.Save(ctx, DatasetAccounts, doc{Cash: map[int64]int64{42: 1000}}))
	require.NoError(t, s.Save(ctx, DatasetAccounts, doc{Cash: map[int64]int64{42: 1100}}))

	var got doc
	require.NoError(t, s.Load(ctx, DatasetAccounts, &got))
	assert.Equal(t, int64(1100), got.Cash[42])

	_, err = os.Stat(filepath.Join(dir, "data", "accounts.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreCorrupted(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loans.json"), []byte("{oops"), 0o644))

	var got doc
	err = s.Load(context.Background(), DatasetLoans, &got)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	d := doc{Cash: map[int64]int64{1: 5}}
	require.NoError(t, s.Save(ctx, DatasetAccounts, d))
	d.Cash[1] = 99

	var got doc
	require.NoError(t, s.Load(ctx, DatasetAccounts, &got))
	assert.Equal(t, int64(5), got.Cash[1])
	assert.Equal(t, 1, s.Saves(DatasetAccounts))

	fresh := doc{Cash: map[int64]int64{}}
	require.NoError(t, LoadOrInit(ctx, s, DatasetLoans, &fresh))
	assert.Empty(t, fresh.Cash)
}
