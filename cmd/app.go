package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"crypto-trend-sentry/internal/fetcher"
	"crypto-trend-sentry/internal/notifier"
	"crypto-trend-sentry/internal/report"
	"crypto-trend-sentry/internal/scheduler"
	"crypto-trend-sentry/internal/storage"
	"crypto-trend-sentry/internal/strategy/indicators"
	"crypto-trend-sentry/internal/strategy/signals"
	"crypto-trend-sentry/pkg/types"
)

// App 应用装配：把获取、指标、信号、报告、通知各模块串成一条批处理流水线
type App struct {
	cfg        *types.Config
	candles    *fetcher.CandleFetcher
	sentiment  *fetcher.SentimentFetcher
	calculator *indicators.MACalculator
	engine     *signals.TrendSignalEngine
	dispatcher *notifier.Dispatcher
	state      *storage.StateManager
	history    *storage.HistoryManager

	// 单币种分析入口，测试中可替换
	analyze func(ctx context.Context, symbol string) types.Decision
}

// NewApp 按配置装配应用
func NewApp(cfg *types.Config) *App {
	channels := notifier.BuildChannels(cfg.Notify, cfg.Network.Timeout)

	app := &App{
		cfg: cfg,
		candles: fetcher.NewCandleFetcher(
			cfg.Interval, cfg.KlineLimit, cfg.Fetch.Freshness, cfg.Network),
		calculator: indicators.NewMACalculator(cfg.Strategy.Trend.SwingLowBars),
		engine:     signals.NewTrendSignalEngine(cfg.Strategy.Trend),
		dispatcher: notifier.NewDispatcher(channels, cfg.Notify),
		state:      storage.NewStateManager(cfg.Redis),
	}

	if cfg.Market.OverviewEnabled {
		app.sentiment = fetcher.NewSentimentFetcher(cfg.Market, cfg.Network)
	}

	if cfg.Database.History.Enabled {
		history, err := storage.NewHistoryManager(cfg.Database.MySQL)
		if err != nil {
			zap.L().Warn("⚠️ 历史库初始化失败，本次运行不落库", zap.Error(err))
		} else {
			app.history = history
		}
	}

	app.analyze = app.analyzeSymbol
	return app
}

// RunOnce 执行一次完整批处理：取数 → 分析 → 报告 → 通知
// 仅当所有通知渠道均失败时返回错误
func (a *App) RunOnce(ctx context.Context) error {
	start := time.Now()
	zap.L().Info("🚀 开始分析批处理",
		zap.Strings("symbols", a.cfg.Symbols),
		zap.String("interval", a.cfg.Interval))

	var overview *types.MarketOverview
	if a.sentiment != nil {
		overview = a.sentiment.FetchOverview(ctx)
	}

	var (
		decisions []types.Decision
		results   []types.DeliveryResult
		err       error
	)
	if a.cfg.Notify.Mode == "single" {
		decisions, results, err = a.runSingleMode(ctx, overview)
	} else {
		decisions = a.analyzeAll(ctx)
		results, err = a.dispatchBatch(ctx, decisions, overview)
	}

	for i := range decisions {
		a.state.StoreDecision(&decisions[i])
	}

	if a.history != nil {
		if dbErr := a.history.SaveDecisions(decisions); dbErr != nil {
			zap.L().Warn("⚠️ 决策落库失败", zap.Error(dbErr))
		}
		if dbErr := a.history.SaveDeliveries(results); dbErr != nil {
			zap.L().Warn("⚠️ 投递记录落库失败", zap.Error(dbErr))
		}
	}

	zap.L().Info("✅ 批处理结束",
		zap.Int("decisions", len(decisions)),
		zap.Duration("elapsed", time.Since(start)))
	return err
}

// analyzeAll 并发分析所有交易对，单币种失败收敛为UNKNOWN，结果按配置顺序排列
func (a *App) analyzeAll(ctx context.Context) []types.Decision {
	decisions := make([]types.Decision, len(a.cfg.Symbols))
	var wg sync.WaitGroup

	for i, symbol := range a.cfg.Symbols {
		wg.Add(1)
		go func(idx int, sym string) {
			defer wg.Done()
			decisions[idx] = a.analyze(ctx, sym)
		}(i, symbol)
	}
	wg.Wait()

	return decisions
}

// runSingleMode 单币种模式：每个币种在自己的goroutine里分析完立即推送，
// 慢币种不阻塞其他币种的通知；任一币种任一渠道成功即视为整体成功
func (a *App) runSingleMode(ctx context.Context, overview *types.MarketOverview) ([]types.Decision, []types.DeliveryResult, error) {
	decisions := make([]types.Decision, len(a.cfg.Symbols))

	var (
		mu         sync.Mutex
		allResults []types.DeliveryResult
		anySuccess bool
	)

	var wg sync.WaitGroup
	for i, symbol := range a.cfg.Symbols {
		wg.Add(1)
		go func(idx int, sym string) {
			defer wg.Done()

			decision := a.analyze(ctx, sym)
			decisions[idx] = decision

			single := []types.Decision{decision}
			r := report.Compose(single, overview, report.TemplateNarrative(overview, single))

			results, err := a.dispatcher.Dispatch(ctx, r)
			mu.Lock()
			allResults = append(allResults, results...)
			if err == nil {
				anySuccess = true
			} else if !errors.Is(err, notifier.ErrAllChannelsFailed) {
				zap.L().Error("❌ 单币种分发失败",
					zap.String("symbol", sym),
					zap.Error(err))
			}
			mu.Unlock()
		}(i, symbol)
	}
	wg.Wait()

	if !anySuccess && len(decisions) > 0 {
		return decisions, allResults, notifier.ErrAllChannelsFailed
	}
	return decisions, allResults, nil
}

func (a *App) analyzeSymbol(ctx context.Context, symbol string) types.Decision {
	klines, err := a.candles.Fetch(ctx, symbol)
	if err != nil {
		zap.L().Warn("⚠️ 获取K线失败",
			zap.String("symbol", symbol),
			zap.Error(err))
		return a.engine.Unknown(symbol, "K线数据获取失败: "+err.Error())
	}

	klinePtrs := make([]*types.KLine, len(klines))
	for i := range klines {
		klinePtrs[i] = &klines[i]
	}

	ind, err := a.calculator.Calculate(klinePtrs)
	if err != nil {
		zap.L().Warn("⚠️ 指标计算失败",
			zap.String("symbol", symbol),
			zap.Error(err))
		return a.engine.Unknown(symbol, "指标计算失败: "+err.Error())
	}

	return a.engine.Evaluate(symbol, ind, nil)
}

// dispatchBatch 批量模式：所有币种合成一份报告，一次性分发
func (a *App) dispatchBatch(ctx context.Context, decisions []types.Decision, overview *types.MarketOverview) ([]types.DeliveryResult, error) {
	narrative := report.TemplateNarrative(overview, decisions)
	r := report.Compose(decisions, overview, narrative)
	a.state.StoreReport(r)

	return a.dispatcher.Dispatch(ctx, r)
}

// StartDaemon 周期模式：按K线周期对齐反复执行批处理
func (a *App) StartDaemon(ctx context.Context) {
	s := scheduler.NewScheduler(a.cfg.Schedule.Period, a.RunOnce)
	s.Start(ctx)
}

// Close 释放持有的外部连接
func (a *App) Close() {
	if err := a.state.Close(); err != nil {
		zap.L().Warn("⚠️ 关闭Redis失败", zap.Error(err))
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			zap.L().Warn("⚠️ 关闭MySQL失败", zap.Error(err))
		}
	}
}
