package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()
	tests := []struct {
		text string
		ok   bool
		want Parsed
	}{
		{"!баланс", true, Parsed{Name: "баланс"}},
		{".FLIP 100 орел", true, Parsed{Name: "flip", Args: []string{"100", "орел"}}},
		{"/start@bazarcik_bot", true, Parsed{Name: "start"}},
		{"!перевод 500 @bob", true, Parsed{Name: "перевод", Args: []string{"500"}, Mentions: []string{"bob"}}},
		{"  !warn @alice, спам в чате", true, Parsed{Name: "warn", Args: []string{"спам", "в", "чате"}, Mentions: []string{"alice"}}},
		{"привет", false, Parsed{}},
		{"!", false, Parsed{}},
		{"! ", false, Parsed{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := p.ParseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandFromMessage(t *testing.T) {
	msg := &tgbotapi.Message{
		MessageID: 12,
		Chat:      &tgbotapi.Chat{ID: 5, Type: "private"},
		From:      &tgbotapi.User{ID: 5, UserName: "alice"},
		ReplyToMessage: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 9},
		},
	}
	p, ok := NewCommandParser().ParseCommand("!перевод 100")
	require.True(t, ok)

	cmd := commandFrom(msg, p)
	assert.Equal(t, int64(9), cmd.ReplyToUserID)
	assert.True(t, cmd.IsPrivate)
	assert.Equal(t, "alice", cmd.Username)
	assert.Equal(t, []string{"100"}, cmd.Args)

	msg.ReplyToMessage.From.IsBot = true
	assert.Zero(t, commandFrom(msg, p).ReplyToUserID)
}

func TestProfilesSkipBots(t *testing.T) {
	got := profiles([]tgbotapi.User{{ID: 1, UserName: "a"}, {ID: 2, IsBot: true}})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].UserID)
}
