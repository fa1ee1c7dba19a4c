package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRewardThresholdBoundary(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name   string
		profit int64
		want   int64
	}{
		{"zero", 0, 0},
		{"small", 100, 0},
		{"exact threshold", 20000, 0},
		{"just above", 20001, 3600},
		{"scenario B", 40000, 7200},
		{"large", 1_000_000, 180_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Reward(tt.profit))
		})
	}
}

func TestRewardMatchesRateAboveThreshold(t *testing.T) {
	p := DefaultPolicy()
	for profit := int64(20001); profit < 21000; profit += 37 {
		want := decimal.NewFromInt(profit).Mul(decimal.RequireFromString("0.18")).IntPart()
		assert.Equal(t, want, p.Reward(profit), "profit=%d", profit)
	}
}

func TestSettle(t *testing.T) {
	p := DefaultPolicy()

	pay := p.Settle(10000, 50000)
	assert.Equal(t, Pay{Gross: 50000, Profit: 40000, Tax: 7200, Net: 42800}, pay)

	pay = p.Settle(100, 200)
	assert.Equal(t, int64(0), pay.Tax)
	assert.Equal(t, int64(200), pay.Net)

	push := p.Settle(500, 500)
	assert.Equal(t, int64(0), push.Profit)
	assert.Equal(t, int64(500), push.Net)
}

func TestNewPolicyFromConfig(t *testing.T) {
	p := NewPolicy(20000, 0.18)
	assert.Equal(t, int64(7200), p.Reward(40000))
}

func TestPicking(t *testing.T) {
	rate, amount := Picking(10000)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.07")))
	assert.Equal(t, int64(700), amount)

	_, amount = Picking(47000)
	assert.Equal(t, int64(3290), amount)

	rate, amount = Picking(47001)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.19")))
	assert.Equal(t, int64(8930), amount)
}

func TestWealth(t *testing.T) {
	assert.Equal(t, int64(0), Wealth(0))
	assert.Equal(t, int64(0), Wealth(-5))
	assert.Equal(t, int64(190), Wealth(1000))
	assert.Equal(t, int64(7216), Wealth(37980))
	assert.Equal(t, int64(9495), Wealth(37981))
}
