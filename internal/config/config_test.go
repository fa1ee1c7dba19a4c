package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_IDS", "1, 2,3")
	t.Setenv("STORE_BACKEND", "file")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, cfg.AdminIDs)
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(7))
	assert.Equal(t, int64(1000), cfg.EconomyStartingCash)
	assert.Equal(t, int64(20000), cfg.TaxRewardThreshold)
	assert.InDelta(t, 0.18, cfg.TaxRewardRate, 1e-9)
	assert.Equal(t, 60*time.Second, cfg.BlackjackTimeout)
	assert.Equal(t, 3, cfg.LoanMaxDoublings)
	assert.False(t, cfg.FeatureWealthTaxEnabled)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			StoreBackend:     "file",
			StoreDir:         "data",
			TaxRewardRate:    0.18,
			BlackjackTimeout: time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, true},
		{"postgres without password", func(c *Config) { c.StoreBackend = "postgres" }, true},
		{"postgres ok", func(c *Config) {
			c.StoreBackend = "postgres"
			c.DBPassword = "x"
			c.DBMaxConns = 2
		}, false},
		{"rate too high", func(c *Config) { c.TaxRewardRate = 1.5 }, true},
		{"negative start cash", func(c *Config) { c.EconomyStartingCash = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseInt64CSV(t *testing.T) {
	got, err := parseInt64CSV("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseInt64CSV("1,abc")
	assert.Error(t, err)
}
