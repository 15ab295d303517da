package config

import (
	"fmt"
	"strings"

	"github.com/vipo-core/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Log            LogConfig            `mapstructure:"log"`
	Database       DatabaseConfig       `mapstructure:"database"`
	AdminJWT       JWTConfig            `mapstructure:"admin_jwt"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Queue          QueueConfig          `mapstructure:"queue"`
	CORS           CORSConfig           `mapstructure:"cors"`
	Security       SecurityConfig       `mapstructure:"security"`
	Commission     CommissionConfig     `mapstructure:"commission"`
	Retry          RetryConfig          `mapstructure:"retry"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Alert          AlertConfig          `mapstructure:"alert"`
	Notification   NotificationConfig   `mapstructure:"notification"`
	Cron           CronConfig           `mapstructure:"cron"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	WebhookRateLimit RateLimitConfig `mapstructure:"webhook_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// CommissionConfig 佣金配置
type CommissionConfig struct {
	HoldDays int `mapstructure:"hold_days"` // 佣金冻结期（天）
}

// RetryConfig 支付事件重试配置
type RetryConfig struct {
	MaxAttempts          int   `mapstructure:"max_attempts"`
	BackoffSeconds       []int `mapstructure:"backoff_seconds"` // 按尝试次数索引，超出复用最后一项
	SweepBatchSize       int   `mapstructure:"sweep_batch_size"`
	SweepIntervalSeconds int   `mapstructure:"sweep_interval_seconds"`
}

// ReconciliationConfig 对账配置
type ReconciliationConfig struct {
	AmountTolerance float64 `mapstructure:"amount_tolerance"`
	IssueLimit      int     `mapstructure:"issue_limit"`
	HourUTC         int     `mapstructure:"hour_utc"` // 每日对账触发时间（UTC 小时）
}

// AlertEmailConfig 告警邮件配置
type AlertEmailConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// AlertConfig 告警配置
type AlertConfig struct {
	Email      AlertEmailConfig `mapstructure:"email"`
	WebhookURL string           `mapstructure:"webhook_url"`
	TimeoutMS  int              `mapstructure:"timeout_ms"`
}

// NotificationConfig 业务通知配置
type NotificationConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
}

// CronConfig 定时触发接口配置
type CronConfig struct {
	Secret string `mapstructure:"secret"` // 为空时 cron 接口拒绝服务
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	// 设置默认值（可选）
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "app.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/vipo.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("admin_jwt.secret", "change-me-in-production")
	viper.SetDefault("admin_jwt.expire_hours", 24)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "vipo")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-CSRF-Token",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.webhook_rate_limit.window_seconds", 60)
	viper.SetDefault("security.webhook_rate_limit.max_requests", 120)
	viper.SetDefault("commission.hold_days", 14)
	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.backoff_seconds", []int{10, 30, 60})
	viper.SetDefault("retry.sweep_batch_size", 100)
	viper.SetDefault("retry.sweep_interval_seconds", 30)
	viper.SetDefault("reconciliation.amount_tolerance", 0.01)
	viper.SetDefault("reconciliation.issue_limit", 50)
	viper.SetDefault("reconciliation.hour_utc", 2)
	viper.SetDefault("alert.email.enabled", false)
	viper.SetDefault("alert.email.host", "")
	viper.SetDefault("alert.email.port", 587)
	viper.SetDefault("alert.email.username", "")
	viper.SetDefault("alert.email.password", "")
	viper.SetDefault("alert.email.from", "")
	viper.SetDefault("alert.email.to", []string{})
	viper.SetDefault("alert.webhook_url", "")
	viper.SetDefault("alert.timeout_ms", 5000)
	viper.SetDefault("notification.webhook_url", "")
	viper.SetDefault("notification.timeout_ms", 5000)
	viper.SetDefault("cron.secret", "")

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
