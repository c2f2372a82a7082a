package indicators

import (
	"errors"
	"fmt"

	"crypto-trend-sentry/pkg/types"
)

// ErrInsufficientData K线数量不足，无法计算任何比率。
// 调用方必须将其处理为单币种UNKNOWN，不得作为进程级错误传播。
var ErrInsufficientData = errors.New("K线数据不足")

const (
	ma7Window  = 7
	ma25Window = 25
	ma99Window = 99
)

// MACalculator 均线指标计算器
type MACalculator struct {
	swingLowBars int
}

// NewMACalculator 创建均线指标计算器
func NewMACalculator(swingLowBars int) *MACalculator {
	if swingLowBars <= 0 {
		swingLowBars = 20
	}
	return &MACalculator{swingLowBars: swingLowBars}
}

// Calculate 计算MA7/MA25/MA99、乖离率和趋势排列
// K线不足99根时返回部分指标（MA25/MA99为nil），少于2根时返回ErrInsufficientData
func (mc *MACalculator) Calculate(klines []*types.KLine) (*types.IndicatorSet, error) {
	if len(klines) < 2 {
		return nil, ErrInsufficientData
	}

	latest := klines[len(klines)-1]

	// MA7在数据不足7根时退化为现有K线的均值，保证乖离率始终可算
	ma7 := trailingMean(klines, ma7Window)
	if ma7 <= 0 {
		return nil, fmt.Errorf("MA7非正值（%f），无法计算乖离率", ma7)
	}

	set := &types.IndicatorSet{
		Symbol:    latest.Symbol,
		Close:     latest.Close,
		MA7:       ma7,
		BiasRatio: (latest.Close - ma7) / ma7,
		Trend:     types.TrendMixed,
	}

	if len(klines) >= ma25Window {
		ma25 := trailingMean(klines, ma25Window)
		set.MA25 = &ma25
	}
	if len(klines) >= ma99Window {
		ma99 := trailingMean(klines, ma99Window)
		set.MA99 = &ma99
	}

	set.Trend = determineTrend(set.MA7, set.MA25, set.MA99)

	if len(klines) >= mc.swingLowBars {
		low := swingLow(klines, mc.swingLowBars)
		set.SwingLow = &low
	}

	return set, nil
}

// trailingMean 计算末尾window根K线收盘价的算术平均
func trailingMean(klines []*types.KLine, window int) float64 {
	if window > len(klines) {
		window = len(klines)
	}

	var sum float64
	for i := len(klines) - window; i < len(klines); i++ {
		sum += klines[i].Close
	}
	return sum / float64(window)
}

// determineTrend 判断均线排列，三条均线齐备才能判定多头/空头排列
func determineTrend(ma7 float64, ma25, ma99 *float64) types.TrendStatus {
	if ma25 == nil || ma99 == nil {
		return types.TrendMixed
	}

	if ma7 > *ma25 && *ma25 > *ma99 {
		return types.TrendBullishAligned
	}
	if ma7 < *ma25 && *ma25 < *ma99 {
		return types.TrendBearishAligned
	}
	return types.TrendMixed
}

// swingLow 计算末尾bars根K线的最低价
func swingLow(klines []*types.KLine, bars int) float64 {
	start := len(klines) - bars
	lowest := klines[start].Low

	for i := start + 1; i < len(klines); i++ {
		if klines[i].Low < lowest {
			lowest = klines[i].Low
		}
	}
	return lowest
}
