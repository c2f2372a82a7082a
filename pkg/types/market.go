package types

import "time"

// MoverEntry 涨跌榜条目
type MoverEntry struct {
	Symbol        string  `json:"symbol"`
	ChangePercent float64 `json:"change_percent"` // 24h涨跌幅（百分比数值）
}

// MarketOverview 市场概览，字段缺失时退化为部分数据而非报错
type MarketOverview struct {
	Timestamp      time.Time    `json:"timestamp"`
	FearGreedIndex *int         `json:"fear_greed_index"` // 恐慌贪婪指数 0-100
	FearGreedLabel string       `json:"fear_greed_label"`
	BTCDominance   *float64     `json:"btc_dominance"`   // BTC主导率（百分比）
	TotalMarketCap *float64     `json:"total_market_cap"` // 总市值 USD
	TopGainers     []MoverEntry `json:"top_gainers"`     // 涨幅榜，数量有上限
	TopLosers      []MoverEntry `json:"top_losers"`      // 跌幅榜，数量有上限
}
