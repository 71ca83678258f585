package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置，来源：config.yaml（可选）+ CURATEHUB_ 前缀环境变量
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Source   SourceConfig   `mapstructure:"source"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Otel     OtelConfig     `mapstructure:"otel"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // debug / release
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres / sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type QuotaConfig struct {
	// DailySubmissionLimit 每个策展人每日新建投稿上限，0 表示不限
	DailySubmissionLimit int `mapstructure:"daily_submission_limit"`
}

type PollerConfig struct {
	DefaultIntervalMs int `mapstructure:"default_interval_ms"`
	AsyncRetryDelayMs int `mapstructure:"async_retry_delay_ms"`
	MaxAsyncAttempts  int `mapstructure:"max_async_attempts"`
}

type SourceConfig struct {
	SearchURL string `mapstructure:"search_url"`
	APIKey    string `mapstructure:"api_key"`
	// RatePerSecond 对外拉取限速
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type OtelConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AsyncRetryDelay 异步任务重询间隔
func (p PollerConfig) AsyncRetryDelay() time.Duration {
	if p.AsyncRetryDelayMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.AsyncRetryDelayMs) * time.Millisecond
}

// Load 加载配置；配置文件缺失不算错误，全部走默认值/环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:curatehub.db?_fk=1")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("quota.daily_submission_limit", 10)
	v.SetDefault("poller.default_interval_ms", 60000)
	v.SetDefault("poller.async_retry_delay_ms", 5000)
	v.SetDefault("poller.max_async_attempts", 12)
	v.SetDefault("source.rate_per_second", 1.0)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("CURATEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
