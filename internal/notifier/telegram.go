package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crypto-trend-sentry/internal/report"
	"crypto-trend-sentry/pkg/types"
)

// Telegram单条消息上限4096字符
const telegramMaxPayloadBytes = 4096

// TelegramChannel Telegram Bot API通知渠道
type TelegramChannel struct {
	botToken   string
	chatID     string
	apiBase    string
	httpClient *http.Client
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// NewTelegramChannel 创建Telegram通知渠道
func NewTelegramChannel(cfg types.TelegramConfig, timeout time.Duration) *TelegramChannel {
	return &TelegramChannel{
		botToken:   cfg.BotToken,
		chatID:     cfg.ChatID,
		apiBase:    "https://api.telegram.org",
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *TelegramChannel) Kind() types.ChannelKind {
	return types.ChannelTelegram
}

func (c *TelegramChannel) Capabilities() types.ChannelCapabilities {
	return types.ChannelCapabilities{
		SupportsMarkdown: true,
		SupportsPhoto:    true,
		MaxPayloadBytes:  telegramMaxPayloadBytes,
	}
}

// Send 通过Bot API推送决策报告
func (c *TelegramChannel) Send(ctx context.Context, r *types.Report) error {
	text := truncatePayload(report.RenderMarkdown(r), telegramMaxPayloadBytes)

	payload := telegramMessage{
		ChatID:    c.chatID,
		Text:      text,
		ParseMode: "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Permanentf("序列化Telegram消息失败: %v", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return Permanentf("创建HTTP请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transientf("HTTP请求失败: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if err := classifyHTTPStatus(resp.StatusCode, string(body)); err != nil {
		return err
	}

	var tgResp telegramResponse
	if err := json.Unmarshal(body, &tgResp); err != nil {
		return Transientf("解析响应失败: %v", err)
	}
	if !tgResp.OK {
		return Permanentf("Telegram API错误 [%d]: %s", tgResp.ErrorCode, tgResp.Description)
	}

	return nil
}

var _ Channel = (*TelegramChannel)(nil)
