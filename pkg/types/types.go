package types

import "time"

// KLine K线数据结构（通用市场数据）
type KLine struct {
	Symbol    string    `json:"symbol"`
	OpenTime  time.Time `json:"open_time"`
	CloseTime time.Time `json:"close_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Interval  string    `json:"interval"` // 4H
}

// WhaleFlow 链上巨鲸资金流向（仅作参考信号，不参与动作判定）
type WhaleFlow struct {
	Symbol     string    `json:"symbol"`
	Buys24h    int       `json:"buys_24h"`
	Sells24h   int       `json:"sells_24h"`
	NetFlowUSD float64   `json:"net_flow_usd"` // 正值为净流入
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsOutflow 是否呈现净流出
func (w *WhaleFlow) IsOutflow() bool {
	return w.NetFlowUSD < 0
}
