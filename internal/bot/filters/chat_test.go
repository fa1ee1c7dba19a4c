package filters

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/members"
	"github.com/sahaproshurik/bazarcikpmbot/internal/store"
)

const economyChat int64 = -100500

type fakeAPI struct {
	status string
	err    error
	calls  int
}

func (f *fakeAPI) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.calls++
	return tgbotapi.ChatMember{Status: f.status}, f.err
}

func newFilter(t *testing.T, api *fakeAPI) (*ChatFilter, *members.Service, *gateway.Recorder) {
	t.Helper()
	repo, err := members.NewRepository(context.Background(), store.NewMemoryStore())
	require.NoError(t, err)
	svc := members.NewService(repo, clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	rec := &gateway.Recorder{}
	return NewChatFilter(economyChat, svc, api, rec), svc, rec
}

func message(chatID int64, chatType string, userID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID, Type: chatType},
		From: &tgbotapi.User{ID: userID, UserName: "user"},
	}
}

func TestGroupChats(t *testing.T) {
	f, _, _ := newFilter(t, &fakeAPI{})
	ctx := context.Background()

	assert.True(t, f.CheckAccess(ctx, message(economyChat, "supergroup", 1)))
	assert.False(t, f.CheckAccess(ctx, message(-42, "group", 1)))
	assert.False(t, f.CheckAccess(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: economyChat}}))
}

func TestPrivateKnownMember(t *testing.T) {
	api := &fakeAPI{}
	f, svc, _ := newFilter(t, api)
	ctx := context.Background()
	require.NoError(t, svc.EnsureMember(ctx, members.Profile{UserID: 7}))

	assert.True(t, f.CheckAccess(ctx, message(7, "private", 7)))
	assert.Zero(t, api.calls)
}

func TestPrivateBackfillsFromTelegram(t *testing.T) {
	api := &fakeAPI{status: "member"}
	f, svc, _ := newFilter(t, api)
	ctx := context.Background()

	assert.True(t, f.CheckAccess(ctx, message(8, "private", 8)))
	assert.NotNil(t, svc.GetByUserID(8))
}

func TestPrivateStranger(t *testing.T) {
	api := &fakeAPI{status: "left"}
	f, svc, rec := newFilter(t, api)
	ctx := context.Background()

	assert.False(t, f.CheckAccess(ctx, message(9, "private", 9)))
	assert.Nil(t, svc.GetByUserID(9))
	require.Len(t, rec.Messages, 1)

	api.err = errors.New("telegram down")
	assert.False(t, f.CheckAccess(ctx, message(9, "private", 9)))
}
