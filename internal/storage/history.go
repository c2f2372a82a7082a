package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crypto-trend-sentry/pkg/types"
)

// HistoryManager 决策与投递历史管理器（MySQL，可选启用）
type HistoryManager struct {
	db     *gorm.DB
	config types.MySQLConfig
}

// DecisionRecord 决策历史模型
type DecisionRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Symbol       string    `gorm:"type:varchar(20);not null;index:idx_symbol_time" json:"symbol"`
	Action       string    `gorm:"type:varchar(10);not null" json:"action"`
	Rationale    string    `gorm:"type:varchar(255)" json:"rationale"`
	Close        float64   `gorm:"type:decimal(20,8)" json:"close"`
	MA7          float64   `gorm:"column:ma7;type:decimal(20,8)" json:"ma7"`
	BiasRatio    float64   `gorm:"type:decimal(10,6)" json:"bias_ratio"`
	Trend        string    `gorm:"type:varchar(20)" json:"trend"`
	EntryPrice   *float64  `gorm:"type:decimal(20,8)" json:"entry_price"`
	StopPrice    *float64  `gorm:"type:decimal(20,8)" json:"stop_price"`
	TargetPrice  *float64  `gorm:"type:decimal(20,8)" json:"target_price"`
	AnalysisTime int64     `gorm:"not null;index:idx_symbol_time" json:"analysis_time"`
	CreatedAt    time.Time `json:"created_at"`
}

// DeliveryRecord 通知投递历史模型
type DeliveryRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Channel   string    `gorm:"type:varchar(20);not null;index" json:"channel"`
	Success   bool      `gorm:"not null" json:"success"`
	Attempts  int       `gorm:"not null" json:"attempts"`
	LastError string    `gorm:"type:varchar(500)" json:"last_error"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// NewHistoryManager 创建历史管理器并完成表迁移
func NewHistoryManager(config types.MySQLConfig) (*HistoryManager, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库实例失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	manager := &HistoryManager{db: db, config: config}

	if err := manager.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	zap.L().Info("✅ MySQL数据库连接成功",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("database", config.Database))

	return manager, nil
}

// AutoMigrate 自动迁移表结构
func (m *HistoryManager) AutoMigrate() error {
	return m.db.AutoMigrate(
		&DecisionRecord{},
		&DeliveryRecord{},
	)
}

// SaveDecisions 批量落库决策记录
func (m *HistoryManager) SaveDecisions(decisions []types.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	records := make([]DecisionRecord, 0, len(decisions))
	for _, d := range decisions {
		record := DecisionRecord{
			Symbol:       d.Symbol,
			Action:       string(d.Action),
			Rationale:    d.Rationale,
			EntryPrice:   d.EntryPrice,
			StopPrice:    d.StopPrice,
			TargetPrice:  d.TargetPrice,
			AnalysisTime: d.AnalysisTime.Unix(),
			CreatedAt:    time.Now(),
		}
		if d.Indicators != nil {
			record.Close = d.Indicators.Close
			record.MA7 = d.Indicators.MA7
			record.BiasRatio = d.Indicators.BiasRatio
			record.Trend = string(d.Indicators.Trend)
		}
		records = append(records, record)
	}

	if err := m.db.CreateInBatches(records, 100).Error; err != nil {
		return fmt.Errorf("批量保存决策记录失败: %w", err)
	}

	zap.L().Debug("✅ 决策记录落库完成", zap.Int("count", len(records)))
	return nil
}

// SaveDeliveries 落库投递结果
func (m *HistoryManager) SaveDeliveries(results []types.DeliveryResult) error {
	if len(results) == 0 {
		return nil
	}

	records := make([]DeliveryRecord, 0, len(results))
	for _, r := range results {
		records = append(records, DeliveryRecord{
			Channel:   string(r.Channel),
			Success:   r.Success,
			Attempts:  r.Attempts,
			LastError: r.LastError,
			LatencyMs: r.Latency.Milliseconds(),
			CreatedAt: time.Now(),
		})
	}

	if err := m.db.CreateInBatches(records, 100).Error; err != nil {
		return fmt.Errorf("保存投递记录失败: %w", err)
	}
	return nil
}

// RecentDecisions 查询某交易对最近的决策记录
func (m *HistoryManager) RecentDecisions(symbol string, limit int) ([]DecisionRecord, error) {
	var records []DecisionRecord
	err := m.db.Where("symbol = ?", symbol).
		Order("analysis_time DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// Close 关闭数据库连接
func (m *HistoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 数据库连通性检查
func (m *HistoryManager) Health() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
