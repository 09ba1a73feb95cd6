package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	AI          AIConfig          `mapstructure:"ai"`
	Translate   TranslateConfig   `mapstructure:"translate"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Log         LogConfig         `mapstructure:"log"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	Redis       RedisConfig       `mapstructure:"redis"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"` // 流式响应需要 0（不限制）
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AIConfig 上游大模型配置
type AIConfig struct {
	Provider string          `mapstructure:"provider"` // openai, eino-openai, azure, ark, offline
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Timeout  time.Duration   `mapstructure:"timeout"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// TranslateConfig 翻译默认设置
type TranslateConfig struct {
	DefaultSourceLang string `mapstructure:"default_source_lang"`
	DefaultTargetLang string `mapstructure:"default_target_lang"`
	SystemPrompt      string `mapstructure:"system_prompt"`
}

// PersistenceConfig 翻译记录持久化配置
type PersistenceConfig struct {
	Sink      string        `mapstructure:"sink"` // http, mongo, none
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BackupDir string        `mapstructure:"backup_dir"`
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig 持久化熔断器配置
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"` // 连续失败多少次后熔断
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`      // 熔断后多久进入半开
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // 启动时连接和 ping 的超时
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// 支持的上游 Provider
const (
	ProviderOpenAI     = "openai"
	ProviderEinoOpenAI = "eino-openai"
	ProviderAzure      = "azure"
	ProviderArk        = "ark"
	ProviderOffline    = "offline"
)

// 支持的持久化 Sink
const (
	SinkHTTP  = "http"
	SinkMongo = "mongo"
	SinkNone  = "none"
)

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if !ValidProvider(c.AI.Provider) {
		return errors.New("invalid ai provider, must be openai/eino-openai/azure/ark/offline")
	}

	switch c.Persistence.Sink {
	case SinkHTTP:
		if c.Persistence.URL == "" {
			return errors.New("persistence url is required for http sink")
		}
	case SinkMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo uri is required for mongo sink")
		}
	case SinkNone:
	default:
		return errors.New("invalid persistence sink, must be http/mongo/none")
	}

	if c.Persistence.Workers <= 0 {
		return errors.New("persistence workers must be positive")
	}
	if c.Persistence.QueueSize <= 0 {
		return errors.New("persistence queue size must be positive")
	}
	if c.Persistence.BackupDir == "" {
		return errors.New("persistence backup dir is required")
	}

	return nil
}

// ValidProvider 判断 provider 名称是否受支持
func ValidProvider(provider string) bool {
	switch provider {
	case ProviderOpenAI, ProviderEinoOpenAI, ProviderAzure, ProviderArk, ProviderOffline:
		return true
	}
	return false
}
