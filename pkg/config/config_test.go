package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// 测试工作目录下没有配置文件，Load应回落到默认值
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"}, cfg.Symbols)
	assert.Equal(t, "4H", cfg.Interval)
	assert.Equal(t, 120, cfg.KlineLimit)

	assert.InDelta(t, 0.10, cfg.Strategy.Trend.BiasThreshold, 1e-9)
	assert.InDelta(t, 0.02, cfg.Strategy.Trend.StopFraction, 1e-9)
	assert.InDelta(t, 2.0, cfg.Strategy.Trend.RiskReward, 1e-9)
	assert.Equal(t, 20, cfg.Strategy.Trend.SwingLowBars)

	assert.Equal(t, "batch", cfg.Notify.Mode)
	assert.Equal(t, 3, cfg.Notify.RetryMax)
	assert.Equal(t, time.Second, cfg.Notify.RetryBaseDelay)
	assert.Equal(t, 60*time.Second, cfg.Notify.JobTimeout)
	assert.True(t, cfg.Notify.Console.Enabled)

	assert.Equal(t, 12*time.Hour, cfg.Fetch.Freshness)
	assert.Equal(t, 30*time.Second, cfg.Network.Timeout)
	assert.False(t, cfg.Schedule.Enabled)
	assert.Equal(t, 4*time.Hour, cfg.Schedule.Period)
}
