package members

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

func newTestService(t *testing.T) (*Service, *clock.FakeClock) {
	t.Helper()
	repo, err := NewRepository(context.Background(), store.NewMemoryStore())
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewService(repo, clk), clk
}

func TestTenureDays(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	assert.Zero(t, svc.TenureDays(1), "unknown player has no tenure")

	require.NoError(t, svc.HandleNewMember(ctx, Profile{UserID: 1, Username: "alice"}))
	clk.Advance(45*24*time.Hour + time.Hour)
	assert.Equal(t, 45, svc.TenureDays(1))

	// повторный вход не сбрасывает стаж
	require.NoError(t, svc.HandleNewMember(ctx, Profile{UserID: 1, Username: "alice2"}))
	assert.Equal(t, 45, svc.TenureDays(1))
	assert.Equal(t, "@alice2", svc.DisplayName(1))
}

func TestResolveTarget(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureMember(ctx, Profile{UserID: 7, Username: "Bob"}))

	id, err := svc.ResolveTarget(gateway.Command{Mentions: []string{"bob"}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	id, err = svc.ResolveTarget(gateway.Command{ReplyToUserID: 9, Mentions: []string{"bob"}})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	_, err = svc.ResolveTarget(gateway.Command{Mentions: []string{"ghost"}})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.ResolveTarget(gateway.Command{})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestDisplayNameFallback(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Equal(t, "id5", svc.DisplayName(5))
}
