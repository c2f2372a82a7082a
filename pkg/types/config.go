package types

import "time"

// Config 主配置结构
type Config struct {
	Symbols    []string       `mapstructure:"symbols"`     // 待分析交易对，如 BTC-USDT
	Interval   string         `mapstructure:"interval"`    // K线周期，如 4H
	KlineLimit int            `mapstructure:"kline_limit"` // 每个交易对拉取的K线数量
	Log        LogConfig      `mapstructure:"log"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Database   DatabaseConfig `mapstructure:"database"`
	Strategy   StrategyConfig `mapstructure:"strategy"`
	Notify     NotifyConfig   `mapstructure:"notify"`
	Market     MarketConfig   `mapstructure:"market"`
	Fetch      FetchConfig    `mapstructure:"fetch"`
	Network    NetworkConfig  `mapstructure:"network"`
	Schedule   ScheduleConfig `mapstructure:"schedule"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	FilePath   string `mapstructure:"file_path"`   // 日志输出路径名
	MaxSize    int    `mapstructure:"max_size"`    // 日志文件大小 单位：MB，超限后会自动切割
	MaxAge     int    `mapstructure:"max_age"`     // 日志文件存放时间 单位：天
	MaxBackups int    `mapstructure:"max_backups"` // 日志文件备份数量
	Compress   bool   `mapstructure:"compress"`    // 日志文件压缩
}

// RedisConfig Redis配置
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	History HistoryConfig `mapstructure:"history"`
}

// MySQLConfig MySQL配置
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// HistoryConfig 决策/投递历史落库开关
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StrategyConfig 策略配置总入口
type StrategyConfig struct {
	Trend TrendConfig `mapstructure:"trend"`
}

// TrendConfig 均线趋势策略配置
type TrendConfig struct {
	BiasThreshold float64 `mapstructure:"bias_threshold"` // 乖离率阈值（小数），默认0.10
	StopFraction  float64 `mapstructure:"stop_fraction"`  // 止损位相对基准的下移比例，默认0.02
	RiskReward    float64 `mapstructure:"risk_reward"`    // 风险回报倍数，默认2.0
	SwingLowBars  int     `mapstructure:"swing_low_bars"` // 摆动低点回看K线数，默认20
}

// NotifyConfig 通知配置
type NotifyConfig struct {
	Mode           string         `mapstructure:"mode"`             // batch | single
	RetryMax       int            `mapstructure:"retry_max"`        // 单渠道最大尝试次数
	RetryBaseDelay time.Duration  `mapstructure:"retry_base_delay"` // 退避基础时长
	JobTimeout     time.Duration  `mapstructure:"job_timeout"`      // 整体投递超时
	WeCom          WeComConfig    `mapstructure:"wecom"`
	Telegram       TelegramConfig `mapstructure:"telegram"`
	Email          EmailConfig    `mapstructure:"email"`
	Webhook        WebhookConfig  `mapstructure:"webhook"`
	Console        ConsoleConfig  `mapstructure:"console"`
}

// WeComConfig 企业微信机器人配置
type WeComConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// TelegramConfig Telegram机器人配置
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// EmailConfig SMTP邮件配置
type EmailConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// WebhookConfig 通用Webhook配置（可选加签与鉴权）
type WebhookConfig struct {
	URL         string `mapstructure:"url"`
	BearerToken string `mapstructure:"bearer_token"`
	Secret      string `mapstructure:"secret"` // 配置后对URL加签（HMAC-SHA256）
}

// ConsoleConfig 控制台渠道配置
type ConsoleConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MarketConfig 市场概览配置
type MarketConfig struct {
	OverviewEnabled bool `mapstructure:"overview_enabled"`
	TopCount        int  `mapstructure:"top_count"` // 涨跌榜展示数量
}

// FetchConfig 数据获取配置
type FetchConfig struct {
	Freshness time.Duration `mapstructure:"freshness"` // K线新鲜度阈值，超过视为数据过期
}

// NetworkConfig 网络配置
type NetworkConfig struct {
	Proxy   string        `mapstructure:"proxy"`   // HTTP代理地址，如 http://127.0.0.1:7890
	Timeout time.Duration `mapstructure:"timeout"` // 网络超时时间
}

// ScheduleConfig 周期运行配置（默认单次批处理）
type ScheduleConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Period  time.Duration `mapstructure:"period"` // 对齐周期，如 4h
}
