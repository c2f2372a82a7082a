package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-trend-sentry/internal/notifier"
	"crypto-trend-sentry/internal/storage"
	"crypto-trend-sentry/pkg/types"
)

// recordingChannel 记录每次推送的币种和时刻
type recordingChannel struct {
	mu   sync.Mutex
	sent []sentRecord
	fail bool
}

type sentRecord struct {
	symbol string
	at     time.Time
}

func (c *recordingChannel) Kind() types.ChannelKind { return "recorder" }

func (c *recordingChannel) Capabilities() types.ChannelCapabilities {
	return types.ChannelCapabilities{}
}

func (c *recordingChannel) Send(ctx context.Context, r *types.Report) error {
	if c.fail {
		return notifier.Permanentf("渠道故障")
	}
	symbol := ""
	if len(r.Decisions) > 0 {
		symbol = r.Decisions[0].Symbol
	}
	c.mu.Lock()
	c.sent = append(c.sent, sentRecord{symbol: symbol, at: time.Now()})
	c.mu.Unlock()
	return nil
}

func singleModeApp(symbols []string, ch notifier.Channel) *App {
	cfg := &types.Config{
		Symbols: symbols,
		Notify: types.NotifyConfig{
			Mode:           "single",
			RetryMax:       3,
			RetryBaseDelay: time.Millisecond,
			JobTimeout:     5 * time.Second,
		},
	}
	return &App{
		cfg:        cfg,
		dispatcher: notifier.NewDispatcher([]notifier.Channel{ch}, cfg.Notify),
		state:      storage.NewStateManager(types.RedisConfig{}),
	}
}

func TestSingleModeDispatchesPerSymbolImmediately(t *testing.T) {
	recorder := &recordingChannel{}
	app := singleModeApp([]string{"FAST-USDT", "SLOW-USDT"}, recorder)
	defer app.Close()

	const slowDelay = 400 * time.Millisecond
	app.analyze = func(ctx context.Context, symbol string) types.Decision {
		if symbol == "SLOW-USDT" {
			time.Sleep(slowDelay)
		}
		return types.Decision{
			Symbol:       symbol,
			Action:       types.ActionWatch,
			AnalysisTime: time.Now(),
		}
	}

	start := time.Now()
	require.NoError(t, app.RunOnce(context.Background()))

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.sent, 2)

	bys := map[string]time.Time{}
	for _, s := range recorder.sent {
		bys[s.symbol] = s.at
	}

	// 快币种的推送不等慢币种分析完成
	fastAt, ok := bys["FAST-USDT"]
	require.True(t, ok)
	assert.Less(t, fastAt.Sub(start), slowDelay/2)

	_, ok = bys["SLOW-USDT"]
	assert.True(t, ok)
}

func TestSingleModeAllChannelsFailed(t *testing.T) {
	recorder := &recordingChannel{fail: true}
	app := singleModeApp([]string{"BTC-USDT"}, recorder)
	defer app.Close()

	app.analyze = func(ctx context.Context, symbol string) types.Decision {
		return types.Decision{Symbol: symbol, Action: types.ActionWatch, AnalysisTime: time.Now()}
	}

	err := app.RunOnce(context.Background())
	require.ErrorIs(t, err, notifier.ErrAllChannelsFailed)
}

func TestSingleModePreservesSymbolOrderInState(t *testing.T) {
	recorder := &recordingChannel{}
	symbols := []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"}
	app := singleModeApp(symbols, recorder)
	defer app.Close()

	app.analyze = func(ctx context.Context, symbol string) types.Decision {
		return types.Decision{Symbol: symbol, Action: types.ActionWatch, AnalysisTime: time.Now()}
	}

	require.NoError(t, app.RunOnce(context.Background()))

	for _, s := range symbols {
		d := app.state.GetDecision(s)
		require.NotNil(t, d, s)
		assert.Equal(t, s, d.Symbol)
	}
}
