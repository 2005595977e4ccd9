package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Feed     FeedConfig     `mapstructure:"feed"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	BodyLimitKB  int64      `mapstructure:"body_limit_kb"`
	CORS         CORSConfig `mapstructure:"cors"`
	AuthRateMax  int        `mapstructure:"auth_rate_max"`  // 登录/注册窗口内最大请求数
	AuthRateSpan string     `mapstructure:"auth_rate_span"` // 窗口时长，如 "1m"
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
// Enabled=false 时黑名单、限流降级，计划表与推送退回进程内实现
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	// LoginDomain 用户名 → 登录标识的固定后缀（handle@domain），仅在身份网关边界使用
	LoginDomain string `mapstructure:"login_domain"`
	HandleMin   int    `mapstructure:"handle_min"`
	HandleMax   int    `mapstructure:"handle_max"`
	PasswordMin int    `mapstructure:"password_min"`
	BcryptCost  int    `mapstructure:"bcrypt_cost"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReminderConfig 上课提醒后台任务配置
type ReminderConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Spec          string `mapstructure:"spec"`           // cron 表达式
	MinutesBefore int    `mapstructure:"minutes_before"` // 默认提前分钟数
	Timezone      string `mapstructure:"timezone"`
}

// PlannerConfig 设备本地计划表配置
type PlannerConfig struct {
	TTL time.Duration `mapstructure:"ttl"` // 0 表示不过期
}

// FeedConfig 实时推送配置
type FeedConfig struct {
	BufferSize   int           `mapstructure:"buffer_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值；.env 文件（若存在）先注入环境变量
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_kb", 1024)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.auth_rate_max", 20)
	v.SetDefault("server.auth_rate_span", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "manasa")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Baghdad")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "168h")
	v.SetDefault("auth.login_domain", "manasa.com")
	v.SetDefault("auth.handle_min", 4)
	v.SetDefault("auth.handle_max", 12)
	v.SetDefault("auth.password_min", 6)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.spec", "@every 1m")
	v.SetDefault("reminder.minutes_before", 15)
	v.SetDefault("reminder.timezone", "Asia/Baghdad")

	v.SetDefault("planner.ttl", "0s")

	v.SetDefault("feed.buffer_size", 4)
	v.SetDefault("feed.write_timeout", "10s")
	v.SetDefault("feed.ping_interval", "30s")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("USTADH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Auth.LoginDomain == "" {
		return fmt.Errorf("配置校验失败: auth.login_domain 不能为空")
	}
	if c.Auth.HandleMin <= 0 || c.Auth.HandleMin > c.Auth.HandleMax {
		return fmt.Errorf("配置校验失败: auth.handle_min 必须大于 0 且不大于 auth.handle_max")
	}
	if c.Reminder.MinutesBefore < 0 {
		return fmt.Errorf("配置校验失败: reminder.minutes_before 不能为负数")
	}
	return nil
}

// AuthRateWindow 解析登录限流窗口，非法值回落到 1 分钟
func (c *ServerConfig) AuthRateWindow() time.Duration {
	d, err := time.ParseDuration(c.AuthRateSpan)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}
