package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-trend-sentry/pkg/types"
)

func TestStateManagerMemoryMode(t *testing.T) {
	// 未配置Redis地址时为纯内存模式
	sm := NewStateManager(types.RedisConfig{})
	defer sm.Close()

	t.Run("决策读写", func(t *testing.T) {
		assert.Nil(t, sm.GetDecision("BTC-USDT"))

		d := &types.Decision{
			Symbol:       "BTC-USDT",
			Action:       types.ActionBuy,
			AnalysisTime: time.Now(),
		}
		sm.StoreDecision(d)

		got := sm.GetDecision("BTC-USDT")
		require.NotNil(t, got)
		assert.Equal(t, types.ActionBuy, got.Action)
	})

	t.Run("覆盖为最新决策", func(t *testing.T) {
		sm.StoreDecision(&types.Decision{Symbol: "BTC-USDT", Action: types.ActionSell})
		got := sm.GetDecision("BTC-USDT")
		require.NotNil(t, got)
		assert.Equal(t, types.ActionSell, got.Action)
	})

	t.Run("报告归档", func(t *testing.T) {
		assert.Nil(t, sm.GetLastReport())

		r := &types.Report{
			Timestamp: time.Now(),
			Decisions: []types.Decision{{Symbol: "ETH-USDT", Action: types.ActionWatch}},
		}
		sm.StoreReport(r)

		got := sm.GetLastReport()
		require.NotNil(t, got)
		require.Len(t, got.Decisions, 1)
		assert.Equal(t, "ETH-USDT", got.Decisions[0].Symbol)
	})

	t.Run("nil入参安全", func(t *testing.T) {
		sm.StoreDecision(nil)
		sm.StoreReport(nil)
	})

	t.Run("统计信息", func(t *testing.T) {
		stats := sm.Stats()
		assert.Equal(t, false, stats["redis_enabled"])
		assert.Equal(t, 1, stats["memory_symbols"])
	})
}

func TestStateManagerConcurrentAccess(t *testing.T) {
	sm := NewStateManager(types.RedisConfig{})
	defer sm.Close()

	symbols := []string{"BTC-USDT", "ETH-USDT", "SOL-USDT", "DOGE-USDT"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sym := symbols[(n+j)%len(symbols)]
				sm.StoreDecision(&types.Decision{
					Symbol:       sym,
					Action:       types.ActionWatch,
					AnalysisTime: time.Now(),
				})
				sm.GetDecision(sym)
				sm.Stats()
			}
		}(i)
	}
	wg.Wait()

	// 所有写入均同步落地，无后台goroutine遗留
	stats := sm.Stats()
	assert.Equal(t, len(symbols), stats["memory_symbols"])
	for _, sym := range symbols {
		require.NotNil(t, sm.GetDecision(sym), sym)
	}
}
