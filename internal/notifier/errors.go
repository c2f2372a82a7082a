package notifier

import (
	"errors"
	"fmt"
)

// ErrAllChannelsFailed 所有激活渠道均投递失败，作业层面唯一需要大声上报的错误
var ErrAllChannelsFailed = errors.New("所有通知渠道投递失败")

// TransientError 瞬时故障（超时、5xx、限流），按策略重试
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError 永久故障（鉴权失败、报文被拒），不重试
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Transientf 构造瞬时故障
func Transientf(format string, args ...interface{}) error {
	return &TransientError{Err: fmt.Errorf(format, args...)}
}

// Permanentf 构造永久故障
func Permanentf(format string, args ...interface{}) error {
	return &PermanentError{Err: fmt.Errorf(format, args...)}
}

// IsTransient 是否为可重试的瞬时故障；未分类的错误按瞬时处理
func IsTransient(err error) bool {
	var p *PermanentError
	return !errors.As(err, &p)
}

// classifyHTTPStatus 将HTTP状态码映射为统一错误分类
func classifyHTTPStatus(status int, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 429 || status >= 500:
		return Transientf("HTTP状态码 %d: %s", status, body)
	default:
		// 401/403/400等视为配置或报文问题，重试无意义
		return Permanentf("HTTP状态码 %d: %s", status, body)
	}
}
