package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crypto-trend-sentry/internal/report"
	"crypto-trend-sentry/pkg/types"
)

// WebhookChannel 通用Webhook通知渠道，支持Bearer鉴权和URL加签
type WebhookChannel struct {
	url         string
	bearerToken string
	secret      string
	httpClient  *http.Client
}

type webhookPayload struct {
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Timestamp int64         `json:"timestamp"`
	Report    *types.Report `json:"report"`
}

// NewWebhookChannel 创建通用Webhook通知渠道
func NewWebhookChannel(cfg types.WebhookConfig, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		url:         cfg.URL,
		bearerToken: cfg.BearerToken,
		secret:      cfg.Secret,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *WebhookChannel) Kind() types.ChannelKind {
	return types.ChannelWebhook
}

func (c *WebhookChannel) Capabilities() types.ChannelCapabilities {
	return types.ChannelCapabilities{
		SupportsMarkdown: false,
		SupportsPhoto:    false,
		MaxPayloadBytes:  0, // 结构化JSON，由对端自行处理
	}
}

// Send 将结构化报告POST到目标地址
func (c *WebhookChannel) Send(ctx context.Context, r *types.Report) error {
	counts := r.Counts()
	payload := webhookPayload{
		Title: fmt.Sprintf("加密货币决策日报（买入%d/观望%d/卖出%d/未知%d）",
			counts.Buy, counts.Watch, counts.Sell, counts.Unknown),
		Content:   report.RenderText(r),
		Timestamp: time.Now().UnixMilli(),
		Report:    r,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Permanentf("序列化Webhook报文失败: %v", err)
	}

	requestURL, err := c.buildSignedURL()
	if err != nil {
		return Permanentf("生成签名失败: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return Permanentf("创建HTTP请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transientf("HTTP请求失败: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return classifyHTTPStatus(resp.StatusCode, string(body))
}

// buildSignedURL 配置了secret时对URL加签：timestamp + "\n" + secret 做HMAC-SHA256
func (c *WebhookChannel) buildSignedURL() (string, error) {
	if c.secret == "" {
		return c.url, nil
	}

	timestamp := time.Now().UnixMilli()
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, c.secret)

	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write([]byte(stringToSign))
	signature := url.QueryEscape(base64.StdEncoding.EncodeToString(h.Sum(nil)))

	separator := "&"
	if !strings.Contains(c.url, "?") {
		separator = "?"
	}
	return fmt.Sprintf("%s%stimestamp=%d&sign=%s", c.url, separator, timestamp, signature), nil
}

var _ Channel = (*WebhookChannel)(nil)
