package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"crypto-trend-sentry/internal/report"
	"crypto-trend-sentry/pkg/types"
)

// 企业微信机器人单条markdown消息上限
const wecomMaxPayloadBytes = 4096

// WeComChannel 企业微信群机器人通知渠道
type WeComChannel struct {
	webhookURL string
	httpClient *http.Client
}

type wecomMessage struct {
	MsgType  string         `json:"msgtype"`
	Markdown *wecomMarkdown `json:"markdown,omitempty"`
}

type wecomMarkdown struct {
	Content string `json:"content"`
}

type wecomResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// NewWeComChannel 创建企业微信通知渠道
func NewWeComChannel(cfg types.WeComConfig, timeout time.Duration) *WeComChannel {
	return &WeComChannel{
		webhookURL: cfg.WebhookURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *WeComChannel) Kind() types.ChannelKind {
	return types.ChannelWeCom
}

func (c *WeComChannel) Capabilities() types.ChannelCapabilities {
	return types.ChannelCapabilities{
		SupportsMarkdown: true,
		SupportsPhoto:    false,
		MaxPayloadBytes:  wecomMaxPayloadBytes,
	}
}

// Send 发送决策报告到企业微信群
func (c *WeComChannel) Send(ctx context.Context, r *types.Report) error {
	content := truncatePayload(report.RenderMarkdown(r), wecomMaxPayloadBytes)

	message := &wecomMessage{
		MsgType:  "markdown",
		Markdown: &wecomMarkdown{Content: content},
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return Permanentf("序列化企业微信消息失败: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return Permanentf("创建HTTP请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 网络层错误（超时、连接失败）按瞬时处理
		return Transientf("HTTP请求失败: %v", err)
	}
	defer resp.Body.Close()

	if err := classifyHTTPStatus(resp.StatusCode, resp.Status); err != nil {
		return err
	}

	var wecomResp wecomResponse
	if err := json.NewDecoder(resp.Body).Decode(&wecomResp); err != nil {
		return Transientf("解析响应失败: %v", err)
	}

	switch wecomResp.ErrCode {
	case 0:
		return nil
	case 45009: // 接口调用超过限制
		return Transientf("企业微信限流 [%d]: %s", wecomResp.ErrCode, wecomResp.ErrMsg)
	default:
		return Permanentf("企业微信API错误 [%d]: %s", wecomResp.ErrCode, wecomResp.ErrMsg)
	}
}

var _ Channel = (*WeComChannel)(nil)
