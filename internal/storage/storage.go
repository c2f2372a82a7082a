package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"crypto-trend-sentry/pkg/types"
)

const (
	decisionKeyPrefix = "sentry:decision:"
	lastReportKey     = "sentry:report:last"
	decisionTTL       = 48 * time.Hour
)

// StateManager 状态管理器
// 缓存每个交易对的最新决策和最近一次完整报告，Redis不可用时退化为纯内存
type StateManager struct {
	decisions   map[string]*types.Decision
	lastReport  *types.Report
	mutex       sync.RWMutex
	redisClient *redis.Client
	useRedis    bool
}

// NewStateManager 创建状态管理器
func NewStateManager(redisConfig types.RedisConfig) *StateManager {
	sm := &StateManager{
		decisions: make(map[string]*types.Decision),
	}

	// 尝试连接Redis
	if redisConfig.URL != "" {
		sm.redisClient = redis.NewClient(&redis.Options{
			Addr:     redisConfig.URL,
			Password: redisConfig.Password,
			DB:       redisConfig.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := sm.redisClient.Ping(ctx).Result(); err != nil {
			zap.L().Warn("⚠️ Redis连接失败，使用纯内存模式", zap.Error(err))
			sm.useRedis = false
		} else {
			zap.L().Info("✅ Redis连接成功")
			sm.useRedis = true
		}
	} else {
		zap.L().Info("🔧 未配置Redis，使用纯内存模式")
	}

	return sm
}

// StoreDecision 保存交易对的最新决策
// Redis备份同步完成，进程退出前写入不丢失
func (sm *StateManager) StoreDecision(decision *types.Decision) {
	if decision == nil {
		return
	}

	sm.mutex.Lock()
	sm.decisions[decision.Symbol] = decision
	sm.mutex.Unlock()

	if sm.useRedis {
		sm.backupDecision(decision)
	}
}

func (sm *StateManager) backupDecision(decision *types.Decision) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	value, err := json.Marshal(decision)
	if err != nil {
		zap.L().Warn("⚠️ 序列化决策失败", zap.Error(err))
		return
	}

	key := decisionKeyPrefix + decision.Symbol
	if err := sm.redisClient.Set(ctx, key, value, decisionTTL).Err(); err != nil {
		zap.L().Warn("⚠️ Redis保存决策失败",
			zap.String("symbol", decision.Symbol),
			zap.Error(err))
	}
}

// GetDecision 读取交易对的最新决策，内存优先，Redis兜底
func (sm *StateManager) GetDecision(symbol string) *types.Decision {
	sm.mutex.RLock()
	if d, ok := sm.decisions[symbol]; ok {
		sm.mutex.RUnlock()
		return d
	}
	sm.mutex.RUnlock()

	if !sm.useRedis {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	value, err := sm.redisClient.Get(ctx, decisionKeyPrefix+symbol).Bytes()
	if err != nil {
		return nil
	}

	var decision types.Decision
	if err := json.Unmarshal(value, &decision); err != nil {
		return nil
	}
	return &decision
}

// StoreReport 归档最近一次完整报告
func (sm *StateManager) StoreReport(report *types.Report) {
	if report == nil {
		return
	}

	sm.mutex.Lock()
	sm.lastReport = report
	sm.mutex.Unlock()

	if !sm.useRedis {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	value, err := json.Marshal(report)
	if err != nil {
		zap.L().Warn("⚠️ 序列化报告失败", zap.Error(err))
		return
	}
	if err := sm.redisClient.Set(ctx, lastReportKey, value, decisionTTL).Err(); err != nil {
		zap.L().Warn("⚠️ Redis归档报告失败", zap.Error(err))
	}
}

// GetLastReport 读取最近一次完整报告
func (sm *StateManager) GetLastReport() *types.Report {
	sm.mutex.RLock()
	if sm.lastReport != nil {
		defer sm.mutex.RUnlock()
		return sm.lastReport
	}
	sm.mutex.RUnlock()

	if !sm.useRedis {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	value, err := sm.redisClient.Get(ctx, lastReportKey).Bytes()
	if err != nil {
		return nil
	}

	var report types.Report
	if err := json.Unmarshal(value, &report); err != nil {
		return nil
	}
	return &report
}

// Stats 状态统计信息
// Redis查询在锁外执行，避免网络IO期间阻塞其他读写
func (sm *StateManager) Stats() map[string]interface{} {
	sm.mutex.RLock()
	stats := map[string]interface{}{
		"redis_enabled":  sm.useRedis,
		"memory_symbols": len(sm.decisions),
	}
	sm.mutex.RUnlock()

	if sm.useRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		keys, err := sm.redisClient.Keys(ctx, decisionKeyPrefix+"*").Result()
		if err == nil {
			stats["redis_keys"] = len(keys)
		} else {
			stats["redis_error"] = err.Error()
		}
	}

	return stats
}

// Close 关闭Redis连接
func (sm *StateManager) Close() error {
	if sm.redisClient == nil {
		return nil
	}
	if err := sm.redisClient.Close(); err != nil {
		return fmt.Errorf("关闭Redis连接失败: %w", err)
	}
	return nil
}
