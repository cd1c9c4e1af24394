package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config 汇总服务运行所需的全部环境配置，缺省值面向本地开发。
type Config struct {
	Port                  string        `envconfig:"APP_PORT" default:"8080"`
	Env                   string        `envconfig:"APP_ENV" default:"dev"`
	DatabaseDSN           string        `envconfig:"DATABASE_DSN" default:"host=localhost user=postgres password=postgres dbname=edunexus port=5432 sslmode=disable TimeZone=UTC"`
	JWTSecret             string        `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	AccessTokenTTLMinutes int           `envconfig:"ACCESS_TOKEN_TTL_MINUTES" default:"15"`
	ChatAuthTimeout       time.Duration `envconfig:"CHAT_AUTH_TIMEOUT" default:"10s"`
	ChatMaxMessageBytes   int           `envconfig:"CHAT_MAX_MESSAGE_BYTES" default:"4096"`
	ChatRequireEnrollment bool          `envconfig:"CHAT_REQUIRE_ENROLLMENT" default:"false"`
	ChatHistoryLimit      int           `envconfig:"CHAT_HISTORY_LIMIT" default:"100"`
	ChatSendQueue         int           `envconfig:"CHAT_SEND_QUEUE" default:"256"`
}

// Load 从环境变量解析配置。
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 在启动时拦截明显不可用的配置，非 dev 环境禁止默认密钥。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("config: APP_PORT must not be empty")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("config: DATABASE_DSN must not be empty")
	}
	if cfg.Env != "dev" && cfg.JWTSecret == "dev-secret-change-me" {
		return errors.New("config: JWT_SECRET must be changed outside dev")
	}
	if cfg.ChatMaxMessageBytes <= 0 {
		return errors.New("config: CHAT_MAX_MESSAGE_BYTES must be positive")
	}
	if cfg.ChatAuthTimeout <= 0 {
		return errors.New("config: CHAT_AUTH_TIMEOUT must be positive")
	}
	return nil
}
