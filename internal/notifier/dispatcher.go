package notifier

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"crypto-trend-sentry/pkg/types"
)

// Dispatcher 通知分发器，并发推送到所有渠道，按渠道独立重试
type Dispatcher struct {
	channels   []Channel
	retryMax   int
	baseDelay  time.Duration
	jobTimeout time.Duration
}

// NewDispatcher 创建通知分发器
func NewDispatcher(channels []Channel, cfg types.NotifyConfig) *Dispatcher {
	retryMax := cfg.RetryMax
	if retryMax <= 0 {
		retryMax = 3
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 60 * time.Second
	}
	return &Dispatcher{
		channels:   channels,
		retryMax:   retryMax,
		baseDelay:  baseDelay,
		jobTimeout: jobTimeout,
	}
}

// Dispatch 并发分发报告到所有渠道
// 返回的结果顺序与渠道注册顺序一致；全部失败时返回ErrAllChannelsFailed
// 作业超时硬性兜底：即使渠道实现无视context，超时后也立即返回，
// 未完成的渠道记为超时失败，迟到的完成结果不再采纳
func (d *Dispatcher) Dispatch(ctx context.Context, r *types.Report) ([]types.DeliveryResult, error) {
	if len(d.channels) == 0 {
		return nil, ErrAllChannelsFailed
	}

	jobCtx, cancel := context.WithTimeout(ctx, d.jobTimeout)
	defer cancel()

	type indexedResult struct {
		idx int
		res types.DeliveryResult
	}

	// 缓冲区容纳全部渠道，超时后迟到的goroutine也能退出，不会泄漏
	resultCh := make(chan indexedResult, len(d.channels))
	for i, ch := range d.channels {
		go func(idx int, channel Channel) {
			resultCh <- indexedResult{idx: idx, res: d.sendWithRetry(jobCtx, channel, r)}
		}(i, ch)
	}

	results := make([]types.DeliveryResult, len(d.channels))
	finished := make([]bool, len(d.channels))

	for pending := len(d.channels); pending > 0; {
		select {
		case out := <-resultCh:
			results[out.idx] = out.res
			finished[out.idx] = true
			pending--
		case <-jobCtx.Done():
			for i := range results {
				if !finished[i] {
					results[i] = types.DeliveryResult{
						Channel:   d.channels[i].Kind(),
						LastError: Transientf("作业超时: %v", jobCtx.Err()).Error(),
						Latency:   d.jobTimeout,
					}
				}
			}
			pending = 0
		}
	}

	anySuccess := false
	for _, res := range results {
		if res.Success {
			anySuccess = true
			zap.L().Info("✅ 通知发送成功",
				zap.String("channel", string(res.Channel)),
				zap.Int("attempts", res.Attempts),
				zap.Duration("latency", res.Latency))
		} else {
			zap.L().Error("❌ 通知发送失败",
				zap.String("channel", string(res.Channel)),
				zap.Int("attempts", res.Attempts),
				zap.String("error", res.LastError))
		}
	}

	if !anySuccess {
		return results, ErrAllChannelsFailed
	}
	return results, nil
}

// sendWithRetry 单渠道投递，瞬时错误指数退避重试，永久错误立即放弃
func (d *Dispatcher) sendWithRetry(ctx context.Context, channel Channel, r *types.Report) types.DeliveryResult {
	result := types.DeliveryResult{Channel: channel.Kind()}
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= d.retryMax; attempt++ {
		result.Attempts = attempt

		if err := ctx.Err(); err != nil {
			lastErr = Transientf("作业超时: %v", err)
			break
		}

		err := channel.Send(ctx, r)
		if err == nil {
			result.Success = true
			result.Latency = time.Since(start)
			return result
		}
		lastErr = err

		if !IsTransient(err) {
			zap.L().Warn("⚠️ 永久性错误，停止重试",
				zap.String("channel", string(channel.Kind())),
				zap.Error(err))
			break
		}
		if attempt == d.retryMax {
			break
		}

		// 指数退避 + 随机抖动，避免重试风暴
		delay := d.baseDelay << uint(attempt-1)
		jitter := time.Duration(rand.Int63n(int64(d.baseDelay)))
		zap.L().Warn("🔄 通知发送失败，准备重试",
			zap.String("channel", string(channel.Kind())),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay+jitter),
			zap.Error(err))

		select {
		case <-time.After(delay + jitter):
		case <-ctx.Done():
			lastErr = Transientf("作业超时: %v", ctx.Err())
			result.Latency = time.Since(start)
			result.LastError = lastErr.Error()
			return result
		}
	}

	result.Latency = time.Since(start)
	if lastErr != nil {
		result.LastError = lastErr.Error()
	}
	return result
}
