package notifier

import (
	"context"
	"fmt"
	"strings"

	"crypto-trend-sentry/internal/report"
	"crypto-trend-sentry/pkg/types"
)

// ConsoleChannel 控制台通知渠道，兜底输出，永不失败
type ConsoleChannel struct{}

// NewConsoleChannel 创建控制台通知渠道
func NewConsoleChannel() *ConsoleChannel {
	return &ConsoleChannel{}
}

func (c *ConsoleChannel) Kind() types.ChannelKind {
	return types.ChannelConsole
}

func (c *ConsoleChannel) Capabilities() types.ChannelCapabilities {
	return types.ChannelCapabilities{
		SupportsMarkdown: false,
		SupportsPhoto:    false,
		MaxPayloadBytes:  0,
	}
}

// Send 将报告打印到标准输出
func (c *ConsoleChannel) Send(ctx context.Context, r *types.Report) error {
	border := strings.Repeat("═", 60)

	fmt.Println()
	fmt.Println(border)
	fmt.Println(report.RenderText(r))
	fmt.Println(border)
	fmt.Println()
	return nil
}

var _ Channel = (*ConsoleChannel)(nil)
