package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sahaproshurik/bazarcikpmbot/internal/clock"
)

func TestRateLimiterWindow(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(3, time.Minute, clk)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(1))
		clk.Advance(10 * time.Second)
	}
	assert.False(t, rl.Allow(1))
	assert.True(t, rl.Allow(2), "лимит считается по пользователю")

	// первый запрос выпадает из окна
	clk.Advance(31 * time.Second)
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
}

func TestRateLimiterSweep(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(1, time.Minute, clk)
	defer rl.Close()

	rl.Allow(1)
	rl.Allow(2)
	clk.Advance(2 * time.Minute)
	rl.sweep()

	rl.mu.Lock()
	assert.Empty(t, rl.requests)
	rl.mu.Unlock()
}
