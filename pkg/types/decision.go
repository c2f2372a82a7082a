package types

import "time"

// Action 决策动作
type Action string

const (
	ActionBuy     Action = "BUY"
	ActionWatch   Action = "WATCH"
	ActionSell    Action = "SELL"
	ActionUnknown Action = "UNKNOWN" // 仅在数据缺失或计算失败时出现
)

// Label 动作中文描述
func (a Action) Label() string {
	switch a {
	case ActionBuy:
		return "买入"
	case ActionWatch:
		return "观望"
	case ActionSell:
		return "卖出"
	default:
		return "未知"
	}
}

// Emoji 动作标记
func (a Action) Emoji() string {
	switch a {
	case ActionBuy:
		return "🟢"
	case ActionWatch:
		return "⚪"
	case ActionSell:
		return "🔴"
	default:
		return "❓"
	}
}

// CheckStatus 检查项状态
type CheckStatus string

const (
	CheckPass CheckStatus = "PASS"
	CheckWarn CheckStatus = "WARN"
	CheckFail CheckStatus = "FAIL"
)

// Mark 检查项标记
func (s CheckStatus) Mark() string {
	switch s {
	case CheckPass:
		return "✅"
	case CheckWarn:
		return "⚠️"
	default:
		return "❌"
	}
}

// CheckItem 决策检查清单条目，顺序固定
type CheckItem struct {
	Label  string      `json:"label"`
	Status CheckStatus `json:"status"`
	Note   string      `json:"note,omitempty"`
}

// Decision 单个交易对的决策结果
type Decision struct {
	Symbol       string       `json:"symbol"`
	Action       Action       `json:"action"`
	Rationale    string       `json:"rationale"`
	EntryPrice   *float64     `json:"entry_price"`  // BUY/SELL时必填
	StopPrice    *float64     `json:"stop_price"`   // BUY时低于入场价，SELL时高于入场价
	TargetPrice  *float64     `json:"target_price"` // 按风险回报倍数推算
	Checklist    []CheckItem  `json:"checklist"`
	Indicators   *IndicatorSet `json:"indicators,omitempty"`
	AnalysisTime time.Time    `json:"analysis_time"`
}

// ActionCounts 动作统计，始终由决策列表重新计算得出
type ActionCounts struct {
	Buy     int `json:"buy"`
	Watch   int `json:"watch"`
	Sell    int `json:"sell"`
	Unknown int `json:"unknown"`
}

// Total 统计总数
func (c ActionCounts) Total() int {
	return c.Buy + c.Watch + c.Sell + c.Unknown
}

// Report 决策仪表盘报告
type Report struct {
	Timestamp   time.Time       `json:"timestamp"`
	Decisions   []Decision      `json:"decisions"` // 与输入币种顺序一致
	Overview    *MarketOverview `json:"overview,omitempty"`
	AINarrative string          `json:"ai_narrative,omitempty"` // 不透明文本，缺失不影响决策
}

// Counts 按决策列表统计各动作数量（派生视图，不单独存储）
func (r *Report) Counts() ActionCounts {
	var c ActionCounts
	for _, d := range r.Decisions {
		switch d.Action {
		case ActionBuy:
			c.Buy++
		case ActionWatch:
			c.Watch++
		case ActionSell:
			c.Sell++
		default:
			c.Unknown++
		}
	}
	return c
}

// ChannelKind 通知渠道类型
type ChannelKind string

const (
	ChannelWeCom    ChannelKind = "wecom"
	ChannelTelegram ChannelKind = "telegram"
	ChannelEmail    ChannelKind = "email"
	ChannelWebhook  ChannelKind = "webhook"
	ChannelConsole  ChannelKind = "console"
)

// ChannelCapabilities 渠道能力描述，调度器据此跳过不支持的操作
type ChannelCapabilities struct {
	SupportsMarkdown bool `json:"supports_markdown"`
	SupportsPhoto    bool `json:"supports_photo"`
	MaxPayloadBytes  int  `json:"max_payload_bytes"` // 0表示不限制
}

// DeliveryResult 单渠道投递结果，记录后不再修改
type DeliveryResult struct {
	Channel   ChannelKind   `json:"channel"`
	Success   bool          `json:"success"`
	Attempts  int           `json:"attempts"`
	LastError string        `json:"last_error,omitempty"`
	Latency   time.Duration `json:"latency"`
}
