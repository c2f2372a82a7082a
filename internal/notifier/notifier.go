package notifier

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"crypto-trend-sentry/pkg/types"
)

// Channel 通知渠道统一抽象
// 每个实现负责自己的报文序列化、载荷上限处理，并把传输层错误映射为统一分类
type Channel interface {
	Kind() types.ChannelKind
	Capabilities() types.ChannelCapabilities
	Send(ctx context.Context, report *types.Report) error
}

const truncateMarker = "\n\n...（内容已截断）"

// truncatePayload 按段落截断超长内容，确定性地保留头部（含决策统计），
// 从尾部整段丢弃，绝不截掉统计行
func truncatePayload(content string, maxBytes int) string {
	if maxBytes <= 0 || len(content) <= maxBytes {
		return content
	}

	// 上限连截断标记都放不下时直接按字符硬截，不附加标记
	if maxBytes <= len(truncateMarker) {
		var b strings.Builder
		for _, r := range content {
			if b.Len()+len(string(r)) > maxBytes {
				break
			}
			b.WriteRune(r)
		}
		return b.String()
	}

	sections := strings.Split(content, "\n\n")
	budget := maxBytes - len(truncateMarker)

	var b strings.Builder
	for i, section := range sections {
		add := len(section)
		if i > 0 {
			add += 2
		}
		if b.Len()+add > budget {
			break
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(section)
	}

	// 头部自身超限时按字符硬截断
	if b.Len() == 0 {
		var head strings.Builder
		for _, r := range sections[0] {
			if head.Len()+len(string(r)) > budget {
				break
			}
			head.WriteRune(r)
		}
		return head.String() + truncateMarker
	}

	return b.String() + truncateMarker
}

// BuildChannels 按配置构建激活渠道集合
// 凭证不完整的渠道直接排除（记日志，不算错误），顺序固定
func BuildChannels(cfg types.NotifyConfig, timeout time.Duration) []Channel {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	var channels []Channel

	if cfg.WeCom.WebhookURL != "" {
		channels = append(channels, NewWeComChannel(cfg.WeCom, timeout))
		zap.L().Info("✅ 已配置企业微信通知渠道")
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		channels = append(channels, NewTelegramChannel(cfg.Telegram, timeout))
		zap.L().Info("✅ 已配置Telegram通知渠道")
	} else if cfg.Telegram.BotToken != "" || cfg.Telegram.ChatID != "" {
		zap.L().Warn("⚠️ Telegram配置不完整（需要bot_token和chat_id），该渠道已排除")
	}

	if cfg.Email.Host != "" && cfg.Email.From != "" && len(cfg.Email.To) > 0 {
		channels = append(channels, NewEmailChannel(cfg.Email, timeout))
		zap.L().Info("✅ 已配置邮件通知渠道")
	} else if cfg.Email.Host != "" {
		zap.L().Warn("⚠️ 邮件配置不完整（需要host、from和to），该渠道已排除")
	}

	if cfg.Webhook.URL != "" {
		channels = append(channels, NewWebhookChannel(cfg.Webhook, timeout))
		zap.L().Info("✅ 已配置自定义Webhook通知渠道")
	}

	if cfg.Console.Enabled {
		channels = append(channels, NewConsoleChannel())
	}

	if len(channels) == 0 {
		zap.L().Warn("🔧 未配置任何通知渠道")
	}

	return channels
}
