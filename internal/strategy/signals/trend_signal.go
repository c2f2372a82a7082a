package signals

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"crypto-trend-sentry/pkg/types"
)

// 检查清单条目名称
const (
	CheckTrend = "趋势排列"
	CheckBias  = "乖离率"
	CheckWhale = "巨鲸动向"
)

// rule 信号规则，按固定优先级顺序求值，命中即返回（first-match）
type rule struct {
	name  string
	match func(e *TrendSignalEngine, ind *types.IndicatorSet) bool
	build func(e *TrendSignalEngine, ind *types.IndicatorSet, whale *types.WhaleFlow) types.Decision
}

// TrendSignalEngine 均线趋势信号引擎
//
// 规则优先级（顺序即契约，重构时不得调整）：
//  1. 乖离率超阈值 → WATCH（反追高规则，优先于趋势信号）
//  2. 多头排列且乖离率健康 → BUY
//  3. 空头排列 → SELL
//  4. 其余 → WATCH
type TrendSignalEngine struct {
	cfg   types.TrendConfig
	rules []rule
}

// NewTrendSignalEngine 创建趋势信号引擎
func NewTrendSignalEngine(cfg types.TrendConfig) *TrendSignalEngine {
	if cfg.BiasThreshold <= 0 {
		cfg.BiasThreshold = 0.10
	}
	if cfg.StopFraction <= 0 {
		cfg.StopFraction = 0.02
	}
	if cfg.RiskReward <= 0 {
		cfg.RiskReward = 2.0
	}

	e := &TrendSignalEngine{cfg: cfg}
	e.rules = []rule{
		{
			name: "overextended",
			match: func(e *TrendSignalEngine, ind *types.IndicatorSet) bool {
				// 阈值取开区间：乖离率恰好等于阈值时不触发反追高
				return math.Abs(ind.BiasRatio) > e.cfg.BiasThreshold
			},
			build: (*TrendSignalEngine).buildOverextended,
		},
		{
			name: "bullish_entry",
			match: func(e *TrendSignalEngine, ind *types.IndicatorSet) bool {
				return ind.Trend == types.TrendBullishAligned &&
					ind.BiasRatio >= 0 && ind.BiasRatio <= e.cfg.BiasThreshold
			},
			build: (*TrendSignalEngine).buildBuy,
		},
		{
			name: "bearish_exit",
			match: func(e *TrendSignalEngine, ind *types.IndicatorSet) bool {
				return ind.Trend == types.TrendBearishAligned
			},
			build: (*TrendSignalEngine).buildSell,
		},
		{
			name: "default_watch",
			match: func(e *TrendSignalEngine, ind *types.IndicatorSet) bool {
				return true
			},
			build: (*TrendSignalEngine).buildWatch,
		},
	}
	return e
}

// Evaluate 对单个交易对求值，任何计算异常都收敛为UNKNOWN，不向外抛出
func (e *TrendSignalEngine) Evaluate(symbol string, ind *types.IndicatorSet, whale *types.WhaleFlow) (decision types.Decision) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("❌ 信号计算异常",
				zap.String("symbol", symbol),
				zap.Any("panic", r))
			decision = e.Unknown(symbol, fmt.Sprintf("信号计算异常: %v", r))
		}
	}()

	if ind == nil {
		return e.Unknown(symbol, "技术指标缺失")
	}

	for _, r := range e.rules {
		if !r.match(e, ind) {
			continue
		}

		decision = r.build(e, ind, whale)
		zap.L().Debug("🎯 信号规则命中",
			zap.String("symbol", symbol),
			zap.String("rule", r.name),
			zap.String("action", string(decision.Action)),
			zap.Float64("bias_ratio", ind.BiasRatio))
		return decision
	}

	// 规则链以恒真规则收尾，不会走到这里
	return e.Unknown(symbol, "无规则命中")
}

// Unknown 构造UNKNOWN决策（数据缺失或计算失败时使用），检查清单为空
func (e *TrendSignalEngine) Unknown(symbol, reason string) types.Decision {
	return types.Decision{
		Symbol:       symbol,
		Action:       types.ActionUnknown,
		Rationale:    reason,
		Checklist:    []types.CheckItem{},
		AnalysisTime: time.Now(),
	}
}

// buildOverextended 规则1：乖离率超阈值，无论趋势如何均不追
func (e *TrendSignalEngine) buildOverextended(ind *types.IndicatorSet, whale *types.WhaleFlow) types.Decision {
	checklist := []types.CheckItem{
		trendCheck(ind.Trend),
		{
			Label:  CheckBias,
			Status: types.CheckFail,
			Note:   fmt.Sprintf("%+.2f%%", ind.BiasRatio*100),
		},
	}
	checklist = appendWhaleCheck(checklist, whale)

	return types.Decision{
		Symbol: ind.Symbol,
		Action: types.ActionWatch,
		Rationale: fmt.Sprintf("乖离率%+.2f%%超出%.0f%%阈值，超涨超跌区间，反追高规则生效",
			ind.BiasRatio*100, e.cfg.BiasThreshold*100),
		Checklist:    checklist,
		Indicators:   ind,
		AnalysisTime: time.Now(),
	}
}

// buildBuy 规则2：多头排列顺势介入，给出入场/止损/目标三价位
func (e *TrendSignalEngine) buildBuy(ind *types.IndicatorSet, whale *types.WhaleFlow) types.Decision {
	entry := ind.Close

	// 止损基准优先取近期摆动低点，否则取MA25
	base := *ind.MA25
	if ind.SwingLow != nil && *ind.SwingLow > 0 && *ind.SwingLow < entry {
		base = *ind.SwingLow
	}
	stop := base * (1 - e.cfg.StopFraction)
	if stop >= entry {
		stop = entry * (1 - e.cfg.StopFraction)
	}
	target := entry + e.cfg.RiskReward*(entry-stop)

	checklist := []types.CheckItem{
		{Label: CheckTrend, Status: types.CheckPass, Note: ind.Trend.Label()},
		{Label: CheckBias, Status: types.CheckPass, Note: fmt.Sprintf("%+.2f%%", ind.BiasRatio*100)},
	}
	checklist = appendWhaleCheck(checklist, whale)

	return types.Decision{
		Symbol:       ind.Symbol,
		Action:       types.ActionBuy,
		Rationale:    "多头排列且乖离率健康，顺势介入",
		EntryPrice:   &entry,
		StopPrice:    &stop,
		TargetPrice:  &target,
		Checklist:    checklist,
		Indicators:   ind,
		AnalysisTime: time.Now(),
	}
}

// buildSell 规则3：空头排列，下行方向对称计算价位
func (e *TrendSignalEngine) buildSell(ind *types.IndicatorSet, whale *types.WhaleFlow) types.Decision {
	entry := ind.Close

	stop := *ind.MA25 * (1 + e.cfg.StopFraction)
	if stop <= entry {
		stop = entry * (1 + e.cfg.StopFraction)
	}
	target := entry - e.cfg.RiskReward*(stop-entry)
	if target <= 0 {
		// 保证目标价为正
		target = entry * 0.5
	}

	checklist := []types.CheckItem{
		// 空头排列用FAIL醒目标记风险
		{Label: CheckTrend, Status: types.CheckFail, Note: ind.Trend.Label()},
		{Label: CheckBias, Status: types.CheckPass, Note: fmt.Sprintf("%+.2f%%", ind.BiasRatio*100)},
	}
	checklist = appendWhaleCheck(checklist, whale)

	return types.Decision{
		Symbol:       ind.Symbol,
		Action:       types.ActionSell,
		Rationale:    "空头排列，趋势向下，建议离场或回避",
		EntryPrice:   &entry,
		StopPrice:    &stop,
		TargetPrice:  &target,
		Checklist:    checklist,
		Indicators:   ind,
		AnalysisTime: time.Now(),
	}
}

// buildWatch 规则4：趋势不明朗，观望，无需价位
func (e *TrendSignalEngine) buildWatch(ind *types.IndicatorSet, whale *types.WhaleFlow) types.Decision {
	checklist := []types.CheckItem{
		{Label: CheckTrend, Status: types.CheckWarn, Note: ind.Trend.Label()},
		{Label: CheckBias, Status: types.CheckPass, Note: fmt.Sprintf("%+.2f%%", ind.BiasRatio*100)},
	}
	checklist = appendWhaleCheck(checklist, whale)

	return types.Decision{
		Symbol:       ind.Symbol,
		Action:       types.ActionWatch,
		Rationale:    "均线交织，趋势不明朗，等待排列明确",
		Checklist:    checklist,
		Indicators:   ind,
		AnalysisTime: time.Now(),
	}
}

// trendCheck 趋势检查项：多头PASS、空头FAIL、交织WARN
func trendCheck(trend types.TrendStatus) types.CheckItem {
	status := types.CheckWarn
	switch trend {
	case types.TrendBullishAligned:
		status = types.CheckPass
	case types.TrendBearishAligned:
		status = types.CheckFail
	}
	return types.CheckItem{Label: CheckTrend, Status: status, Note: trend.Label()}
}

// appendWhaleCheck 巨鲸流向仅作为检查清单注记，不改变动作判定
func appendWhaleCheck(checklist []types.CheckItem, whale *types.WhaleFlow) []types.CheckItem {
	if whale == nil {
		return checklist
	}

	status := types.CheckPass
	if whale.IsOutflow() {
		status = types.CheckWarn
	}
	return append(checklist, types.CheckItem{
		Label:  CheckWhale,
		Status: status,
		Note:   fmt.Sprintf("24h净流向 $%.0f", whale.NetFlowUSD),
	})
}
