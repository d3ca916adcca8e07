package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Redis      RedisConfig
	Tracing    TracingConfig    `mapstructure:"tracing"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Diagnostic DiagnosticConfig `mapstructure:"diagnostic"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// DiagnosticConfig 导航引擎的调优常量。阈值来自试点校准，默认值保持不变
type DiagnosticConfig struct {
	ConfirmThreshold    float64 `mapstructure:"confirm_threshold"`
	EarlyExitThreshold  float64 `mapstructure:"early_exit_threshold"`
	GraphCacheMinutes   int     `mapstructure:"graph_cache_minutes"`
	PersistMaxRetries   int     `mapstructure:"persist_max_retries"`
	PersistBackoffMilli int     `mapstructure:"persist_backoff_ms"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("MATHDIAG")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	viper.SetDefault("diagnostic.confirm_threshold", 0.85)
	viper.SetDefault("diagnostic.early_exit_threshold", 0.90)
	viper.SetDefault("diagnostic.graph_cache_minutes", 30)
	viper.SetDefault("diagnostic.persist_max_retries", 3)
	viper.SetDefault("diagnostic.persist_backoff_ms", 100)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Diagnostic.ConfirmThreshold <= 0 || cfg.Diagnostic.ConfirmThreshold > 1 {
		return nil, fmt.Errorf("diagnostic.confirm_threshold %v outside (0,1]", cfg.Diagnostic.ConfirmThreshold)
	}
	if cfg.Diagnostic.EarlyExitThreshold <= 0 || cfg.Diagnostic.EarlyExitThreshold > 1 {
		return nil, fmt.Errorf("diagnostic.early_exit_threshold %v outside (0,1]", cfg.Diagnostic.EarlyExitThreshold)
	}

	return &cfg, nil
}
