package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Redis        RedisConfig
	Tracing      TracingConfig      `mapstructure:"tracing"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Gamification GamificationConfig `mapstructure:"gamification"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
	// ConfigDir 配置文件所在目录，热更新时监听
	ConfigDir string `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	// Path sqlite 文件路径或 DSN
	Path   string
	LogSQL bool `mapstructure:"log_sql"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// GamificationConfig 积分引擎参数，秒为单位
type GamificationConfig struct {
	Timezone                   string `mapstructure:"timezone"`
	StoreTimeoutSeconds        int    `mapstructure:"store_timeout_seconds"`
	MaxRetries                 int    `mapstructure:"max_retries"`
	RetryBackoffMillis         int    `mapstructure:"retry_backoff_millis"`
	BadgeRetryIntervalSeconds  int    `mapstructure:"badge_retry_interval_seconds"`
	LeaderboardCacheTTLSeconds int    `mapstructure:"leaderboard_cache_ttl_seconds"`
}

func (g GamificationConfig) StoreTimeout() time.Duration {
	return time.Duration(g.StoreTimeoutSeconds) * time.Second
}

func (g GamificationConfig) RetryBackoff() time.Duration {
	return time.Duration(g.RetryBackoffMillis) * time.Millisecond
}

func (g GamificationConfig) BadgeRetryInterval() time.Duration {
	return time.Duration(g.BadgeRetryIntervalSeconds) * time.Second
}

func (g GamificationConfig) LeaderboardCacheTTL() time.Duration {
	return time.Duration(g.LeaderboardCacheTTLSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.path", "study_buddy.db")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("gamification.timezone", "UTC")
	v.SetDefault("gamification.store_timeout_seconds", 3)
	v.SetDefault("gamification.max_retries", 3)
	v.SetDefault("gamification.retry_backoff_millis", 50)
	v.SetDefault("gamification.badge_retry_interval_seconds", 60)
	v.SetDefault("gamification.leaderboard_cache_ttl_seconds", 30)
}

// Default 返回全部使用默认值的配置（sqlite、无 Redis），用于测试和本地运行
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.Database.Driver = "sqlite"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// .env 可选，存在时先载入环境变量
	if err := godotenv.Load(filepath.Join(path, "..", ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("STUDY_BUDDY")
	v.AutomaticEnv()

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")
	v.BindEnv("database.path", "DATABASE_PATH")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Gamification
	v.BindEnv("gamification.timezone", "GAMIFICATION_TIMEZONE")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.ConfigDir = path
	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}

	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if _, err := time.LoadLocation(c.Gamification.Timezone); err != nil {
		return fmt.Errorf("invalid gamification.timezone %q: %w", c.Gamification.Timezone, err)
	}

	if c.Gamification.StoreTimeoutSeconds <= 0 || c.Gamification.MaxRetries <= 0 {
		return errors.New("gamification.store_timeout_seconds and gamification.max_retries must be positive")
	}

	if c.Gamification.BadgeRetryIntervalSeconds <= 0 {
		return errors.New("gamification.badge_retry_interval_seconds must be positive")
	}

	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.WindowMinutes <= 0 {
		return errors.New("rate_limit.max_requests and rate_limit.window_minutes must be positive")
	}

	return nil
}
