package economy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/concurrency"
)

type fakeDirectory map[string]int64

func (d fakeDirectory) ResolveTarget(cmd gateway.Command) (int64, error) {
	if cmd.ReplyToUserID != 0 {
		return cmd.ReplyToUserID, nil
	}
	if len(cmd.Mentions) > 0 {
		if id, ok := d[cmd.Mentions[0]]; ok {
			return id, nil
		}
		return 0, common.ErrUserNotFound
	}
	return 0, common.Validation("укажите игрока")
}

func (d fakeDirectory) DisplayName(userID int64) string {
	return fmt.Sprintf("id%d", userID)
}

func TestHandleTransfer(t *testing.T) {
	svc, _ := newTestService(t)
	rec := &gateway.Recorder{}
	h := NewHandler(svc, concurrency.NewGuard(), fakeDirectory{"bob": 2}, rec)
	ctx := context.Background()

	h.HandleTransfer(ctx, gateway.Command{ChatID: 10, UserID: 1, Args: []string{"250"}, Mentions: []string{"bob"}})
	require.Len(t, rec.Messages, 1)
	assert.Contains(t, rec.Last().Text, "250 монет")

	b, _ := svc.Peek(2)
	assert.Equal(t, int64(1250), b.Cash)

	h.HandleTransfer(ctx, gateway.Command{ChatID: 10, UserID: 1, Args: []string{"abc"}, Mentions: []string{"bob"}})
	assert.Contains(t, rec.Last().Text, "❌")

	h.HandleTransfer(ctx, gateway.Command{ChatID: 10, UserID: 1, Args: []string{"100"}, Mentions: []string{"nobody"}})
	assert.Contains(t, rec.Last().Text, "не найден")
}

func TestHandleDepositAll(t *testing.T) {
	svc, _ := newTestService(t)
	rec := &gateway.Recorder{}
	h := NewHandler(svc, concurrency.NewGuard(), fakeDirectory{}, rec)
	ctx := context.Background()

	h.HandleDeposit(ctx, gateway.Command{ChatID: 10, UserID: 1, Args: []string{"всё"}})
	assert.Contains(t, rec.Last().Text, "1 000 монет")

	acc, _ := svc.Peek(1)
	assert.Equal(t, int64(1000), acc.Bank)
	assert.Zero(t, acc.Cash)
}

func TestHandleTransferWaitsForRecipientLock(t *testing.T) {
	svc, _ := newTestService(t)
	rec := &gateway.Recorder{}
	guard := concurrency.NewGuard()
	h := NewHandler(svc, guard, fakeDirectory{"bob": 2}, rec)
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = guard.WithUser(2, func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan struct{})
	go func() {
		h.HandleTransfer(ctx, gateway.Command{ChatID: 10, UserID: 1, Args: []string{"100"}, Mentions: []string{"bob"}})
		close(done)
	}()

	// пока получатель занят другой командой, перевод ждёт
	assert.Never(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("перевод не завершился")
	}
	b, _ := svc.Peek(2)
	assert.Equal(t, int64(1100), b.Cash)
}
