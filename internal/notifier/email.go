package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"crypto-trend-sentry/internal/report"
	"crypto-trend-sentry/pkg/types"
)

// EmailChannel SMTP邮件通知渠道，正文为纯文本
type EmailChannel struct {
	cfg         types.EmailConfig
	dialTimeout time.Duration
}

// NewEmailChannel 创建邮件通知渠道
func NewEmailChannel(cfg types.EmailConfig, dialTimeout time.Duration) *EmailChannel {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &EmailChannel{cfg: cfg, dialTimeout: dialTimeout}
}

func (c *EmailChannel) Kind() types.ChannelKind {
	return types.ChannelEmail
}

func (c *EmailChannel) Capabilities() types.ChannelCapabilities {
	return types.ChannelCapabilities{
		SupportsMarkdown: false,
		SupportsPhoto:    false,
		MaxPayloadBytes:  0, // 邮件正文不限制
	}
}

// Send 以纯文本邮件发送决策报告
// 自建SMTP会话而非smtp.SendMail：拨号和读写都必须受作业超时约束，
// 挂死的SMTP服务器不能拖垮整个分发作业
func (c *EmailChannel) Send(ctx context.Context, r *types.Report) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	dialer := &net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Transientf("连接SMTP服务器失败: %v", err)
	}
	defer conn.Close()

	// 作业截止时间同时约束会话内所有读写
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(c.dialTimeout))
	}

	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		return classifySMTPError(err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: c.cfg.Host}); err != nil {
			return classifySMTPError(err)
		}
	}

	if c.cfg.Username != "" {
		auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return classifySMTPError(err)
		}
	}

	if err := client.Mail(c.cfg.From); err != nil {
		return classifySMTPError(err)
	}
	for _, to := range c.cfg.To {
		if err := client.Rcpt(to); err != nil {
			return classifySMTPError(err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return classifySMTPError(err)
	}
	if _, err := w.Write([]byte(c.buildMessage(r))); err != nil {
		return Transientf("写入邮件正文失败: %v", err)
	}
	if err := w.Close(); err != nil {
		return classifySMTPError(err)
	}

	return client.Quit()
}

// buildMessage 组装RFC822邮件报文，主题按UTF-8编码
func (c *EmailChannel) buildMessage(r *types.Report) string {
	subject := fmt.Sprintf("📊 加密货币决策日报 %s", r.Timestamp.Format("2006-01-02 15:04"))

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", c.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(c.cfg.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(report.RenderText(r))
	return msg.String()
}

// classifySMTPError SMTP错误分类：鉴权类失败不重试，连接类失败可重试
func classifySMTPError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "535") || strings.Contains(msg, "auth") ||
		strings.Contains(msg, "530") {
		return Permanentf("SMTP鉴权失败: %v", err)
	}
	return Transientf("SMTP发送失败: %v", err)
}

var _ Channel = (*EmailChannel)(nil)
