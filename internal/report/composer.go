package report

import (
	"fmt"
	"strings"
	"time"

	"crypto-trend-sentry/pkg/types"
)

// Compose 将各币种决策与市场概览聚合为一份报告
// 决策顺序与传入顺序保持一致；UNKNOWN决策与正常决策混排，无需调用方特殊处理
func Compose(decisions []types.Decision, overview *types.MarketOverview, narrative string) *types.Report {
	return &types.Report{
		Timestamp:   time.Now(),
		Decisions:   decisions,
		Overview:    overview,
		AINarrative: narrative,
	}
}

// FormatPercent 小数比率转为展示用百分比（0.032 → +3.20%）
// 仅用于展示，不回写数值字段
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%+.2f%%", ratio*100)
}

// FormatChange 已是百分比数值的涨跌幅展示（8.12 → +8.12%）
func FormatChange(percent float64) string {
	return fmt.Sprintf("%+.2f%%", percent)
}

// FormatCurrency 货币金额展示，整数部分加千分位分隔符
func FormatCurrency(v float64) string {
	if v < 0 {
		return "-" + FormatCurrency(-v)
	}
	// 小额代币保留更多小数位
	if v > 0 && v < 1 {
		return fmt.Sprintf("%.6f", v)
	}

	s := fmt.Sprintf("%.2f", v)
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + "." + parts[1]
}

// RenderMarkdown 报告的Markdown渲染（用于企业微信/Telegram等支持Markdown的渠道）
// 各段落以空行分隔，渠道适配器按段落截断超长内容
func RenderMarkdown(r *types.Report) string {
	counts := r.Counts()

	var sections []string

	header := fmt.Sprintf("## 📊 加密货币决策仪表盘\n**生成时间**: %s\n**决策统计**: 🟢买入 %d | ⚪观望 %d | 🔴卖出 %d | ❓未知 %d",
		r.Timestamp.Format("2006-01-02 15:04:05"),
		counts.Buy, counts.Watch, counts.Sell, counts.Unknown)
	sections = append(sections, header)

	if r.Overview != nil {
		sections = append(sections, renderOverviewMarkdown(r.Overview))
	}

	for _, d := range r.Decisions {
		sections = append(sections, renderDecisionMarkdown(&d))
	}

	if r.AINarrative != "" {
		sections = append(sections, "**📝 市场点评**:\n"+r.AINarrative)
	}

	sections = append(sections, "> ⚠️ 以上内容仅为技术面参考，不构成投资建议")

	return strings.Join(sections, "\n\n")
}

func renderOverviewMarkdown(o *types.MarketOverview) string {
	lines := []string{"**🌐 市场概览**:"}

	if o.FearGreedIndex != nil {
		lines = append(lines, fmt.Sprintf("- 恐慌贪婪指数: %d (%s)", *o.FearGreedIndex, o.FearGreedLabel))
	}
	if o.BTCDominance != nil {
		lines = append(lines, fmt.Sprintf("- BTC主导率: %.2f%%", *o.BTCDominance))
	}
	if o.TotalMarketCap != nil {
		lines = append(lines, fmt.Sprintf("- 总市值: $%s", FormatCurrency(*o.TotalMarketCap)))
	}
	if len(o.TopGainers) > 0 {
		lines = append(lines, "- 涨幅榜: "+renderMovers(o.TopGainers))
	}
	if len(o.TopLosers) > 0 {
		lines = append(lines, "- 跌幅榜: "+renderMovers(o.TopLosers))
	}

	return strings.Join(lines, "\n")
}

func renderMovers(movers []types.MoverEntry) string {
	parts := make([]string, 0, len(movers))
	for _, m := range movers {
		parts = append(parts, fmt.Sprintf("%s %s", m.Symbol, FormatChange(m.ChangePercent)))
	}
	return strings.Join(parts, "、")
}

func renderDecisionMarkdown(d *types.Decision) string {
	lines := []string{fmt.Sprintf("### %s %s — %s", d.Action.Emoji(), d.Symbol, d.Action.Label())}

	if d.Rationale != "" {
		lines = append(lines, d.Rationale)
	}

	if d.Indicators != nil {
		lines = append(lines, fmt.Sprintf("当前价: $%s | 趋势: %s | 乖离率: %s",
			FormatCurrency(d.Indicators.Close),
			d.Indicators.Trend.Label(),
			FormatPercent(d.Indicators.BiasRatio)))
	}

	if d.EntryPrice != nil && d.StopPrice != nil && d.TargetPrice != nil {
		lines = append(lines, fmt.Sprintf("入场: $%s | 止损: $%s | 目标: $%s",
			FormatCurrency(*d.EntryPrice),
			FormatCurrency(*d.StopPrice),
			FormatCurrency(*d.TargetPrice)))
	}

	if len(d.Checklist) > 0 {
		items := make([]string, 0, len(d.Checklist))
		for _, c := range d.Checklist {
			item := c.Status.Mark() + c.Label
			if c.Note != "" {
				item += "(" + c.Note + ")"
			}
			items = append(items, item)
		}
		lines = append(lines, "清单: "+strings.Join(items, " "))
	}

	return strings.Join(lines, "\n")
}

// RenderText 报告的纯文本渲染（用于邮件/控制台等不支持Markdown的渠道）
func RenderText(r *types.Report) string {
	md := RenderMarkdown(r)

	replacer := strings.NewReplacer(
		"## ", "", "### ", "", "**", "", "> ", "", "- ", "  ",
	)
	return replacer.Replace(md)
}

// TemplateNarrative 模板化市场点评，AI点评缺席时的兜底
func TemplateNarrative(overview *types.MarketOverview, decisions []types.Decision) string {
	var b strings.Builder

	if overview != nil && overview.FearGreedIndex != nil {
		idx := *overview.FearGreedIndex
		switch {
		case idx >= 75:
			b.WriteString("市场情绪处于极度贪婪区间，追高风险显著，注意控制仓位。")
		case idx >= 55:
			b.WriteString("市场情绪偏向贪婪，趋势行情中注意逢高减仓。")
		case idx >= 45:
			b.WriteString("市场情绪中性，多空分歧明显，以观望为主。")
		case idx >= 25:
			b.WriteString("市场情绪偏向恐慌，可关注超跌后的均线修复机会。")
		default:
			b.WriteString("市场情绪极度恐慌，历史上常为底部区域，但左侧介入需严格止损。")
		}
	}

	var buys, sells int
	for _, d := range decisions {
		switch d.Action {
		case types.ActionBuy:
			buys++
		case types.ActionSell:
			sells++
		}
	}

	switch {
	case buys > 0 && sells == 0:
		fmt.Fprintf(&b, "本轮%d个币种出现多头排列买点，趋势结构偏多。", buys)
	case sells > 0 && buys == 0:
		fmt.Fprintf(&b, "本轮%d个币种处于空头排列，注意回避下行趋势。", sells)
	case buys > 0 && sells > 0:
		b.WriteString("多空信号并存，板块分化明显，优先选择趋势清晰的标的。")
	default:
		b.WriteString("本轮无明确买卖信号，均线排列待确认，耐心等待。")
	}

	return b.String()
}
