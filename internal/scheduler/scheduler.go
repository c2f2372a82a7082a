package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BatchFunc 一次完整的分析+通知批处理
type BatchFunc func(ctx context.Context) error

// Scheduler 周期调度器，按K线周期对齐触发批处理
type Scheduler struct {
	period time.Duration
	run    BatchFunc
}

// NewScheduler 创建调度器
func NewScheduler(period time.Duration, run BatchFunc) *Scheduler {
	if period <= 0 {
		period = 4 * time.Hour
	}
	return &Scheduler{period: period, run: run}
}

// Start 启动调度循环：立即执行一次，之后对齐到周期边界重复执行
func (s *Scheduler) Start(ctx context.Context) {
	zap.L().Info("🚀 调度器启动", zap.Duration("period", s.period))

	s.runOnce(ctx)

	for {
		next := s.nextAlignedTime(time.Now())
		wait := time.Until(next)
		zap.L().Info("⏰ 下次分析时间",
			zap.String("next", next.Format("2006-01-02 15:04:05")),
			zap.Duration("wait", wait))

		select {
		case <-ctx.Done():
			zap.L().Info("📴 调度器已停止")
			return
		case <-time.After(wait):
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	if err := s.run(ctx); err != nil {
		zap.L().Error("❌ 批处理执行失败", zap.Error(err))
		return
	}
	zap.L().Info("✅ 批处理完成", zap.Duration("elapsed", time.Since(start)))
}

// nextAlignedTime 计算下一个周期边界（按当日零点对齐，如4h周期对齐到0/4/8/12/16/20点）
func (s *Scheduler) nextAlignedTime(now time.Time) time.Time {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	elapsed := now.Sub(dayStart)
	next := dayStart.Add((elapsed/s.period + 1) * s.period)
	return next
}
