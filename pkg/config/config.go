package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"crypto-trend-sentry/pkg/types"
)

// Load 加载配置
func Load() (*types.Config, error) {
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 设置默认值
	setDefaults()

	// 读取环境变量
	viper.AutomaticEnv()

	// 优先尝试读取本地配置文件
	viper.SetConfigName("config.local")
	if err := viper.ReadInConfig(); err != nil {
		// 如果本地配置文件不存在，尝试读取默认配置文件
		viper.SetConfigName("config")
		if err := viper.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, err
			}
		}
	}

	var config types.Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("symbols", []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"})
	viper.SetDefault("interval", "4H")
	viper.SetDefault("kline_limit", 120)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file_path", "logs")
	viper.SetDefault("log.max_size", 200)
	viper.SetDefault("log.max_age", 30)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.compress", false)

	viper.SetDefault("redis.url", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("database.history.enabled", false)
	viper.SetDefault("database.mysql.max_idle_conns", 5)
	viper.SetDefault("database.mysql.max_open_conns", 20)

	// 乖离率阈值和风险回报倍数必须可调，便于不改代码调参
	viper.SetDefault("strategy.trend.bias_threshold", 0.10)
	viper.SetDefault("strategy.trend.stop_fraction", 0.02)
	viper.SetDefault("strategy.trend.risk_reward", 2.0)
	viper.SetDefault("strategy.trend.swing_low_bars", 20)

	viper.SetDefault("notify.mode", "batch")
	viper.SetDefault("notify.retry_max", 3)
	viper.SetDefault("notify.retry_base_delay", time.Second)
	viper.SetDefault("notify.job_timeout", 60*time.Second)
	viper.SetDefault("notify.wecom.webhook_url", "")
	viper.SetDefault("notify.telegram.bot_token", "")
	viper.SetDefault("notify.telegram.chat_id", "")
	viper.SetDefault("notify.webhook.url", "")
	viper.SetDefault("notify.console.enabled", true)

	viper.SetDefault("market.overview_enabled", true)
	viper.SetDefault("market.top_count", 5)

	viper.SetDefault("fetch.freshness", 12*time.Hour)
	viper.SetDefault("network.proxy", "")
	viper.SetDefault("network.timeout", 30*time.Second)

	viper.SetDefault("schedule.enabled", false)
	viper.SetDefault("schedule.period", 4*time.Hour)
}
