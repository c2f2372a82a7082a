package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"crypto-trend-sentry/internal/notifier"
	"crypto-trend-sentry/pkg/config"
	"crypto-trend-sentry/pkg/logger"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志
	appLogger := logger.Init(cfg.Log)
	defer appLogger.Sync()

	zap.L().Info("🚀 Crypto Trend Sentry 启动中...")

	app := NewApp(cfg)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 周期模式：常驻运行，等待中断信号优雅退出
	if cfg.Schedule.Enabled {
		done := make(chan struct{})
		go func() {
			app.StartDaemon(ctx)
			close(done)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		zap.L().Info("📴 收到停止信号，正在优雅关闭...")
		cancel()
		<-done
		return
	}

	// 单次批处理模式：全部通知渠道失败时以非零状态退出
	if err := app.RunOnce(ctx); err != nil {
		if errors.Is(err, notifier.ErrAllChannelsFailed) {
			zap.L().Error("❌ 所有通知渠道均发送失败")
		} else {
			zap.L().Error("❌ 批处理失败", zap.Error(err))
		}
		appLogger.Sync()
		app.Close()
		os.Exit(1)
	}
}
