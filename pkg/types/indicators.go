package types

// TrendStatus 均线排列状态
type TrendStatus string

const (
	TrendBullishAligned TrendStatus = "BULLISH_ALIGNED" // 多头排列 MA7 > MA25 > MA99
	TrendBearishAligned TrendStatus = "BEARISH_ALIGNED" // 空头排列 MA7 < MA25 < MA99
	TrendMixed          TrendStatus = "MIXED"           // 均线交织
)

// Label 趋势状态中文描述
func (t TrendStatus) Label() string {
	switch t {
	case TrendBullishAligned:
		return "多头排列"
	case TrendBearishAligned:
		return "空头排列"
	default:
		return "震荡整理"
	}
}

// IndicatorSet 技术指标集合，每轮分析重新计算，创建后不再修改
type IndicatorSet struct {
	Symbol    string      `json:"symbol"`
	Close     float64     `json:"close"`      // 最新收盘价
	MA7       float64     `json:"ma7"`        // 7周期均线
	MA25      *float64    `json:"ma25"`       // 25周期均线，数据不足时为nil
	MA99      *float64    `json:"ma99"`       // 99周期均线，数据不足时为nil
	BiasRatio float64     `json:"bias_ratio"` // (close - MA7) / MA7，小数形式（0.032 = 3.2%）
	Trend     TrendStatus `json:"trend"`
	SwingLow  *float64    `json:"swing_low"` // 近期摆动低点，数据不足时为nil
}
