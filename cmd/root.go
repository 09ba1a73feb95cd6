package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"transgate/internal/ai"
	"transgate/internal/config"
	"transgate/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "transgate",
	Short: "Transgate - LLM translation gateway",
	Long: `Transgate relays translation requests to an OpenAI-compatible LLM,
streams the result back as server-sent events, and records every completed
translation to a persistence service with a local-file fallback.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.transgate")
	}

	// 环境变量设置
	viper.SetEnvPrefix("TRANSGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "0s") // 流式响应不限制写超时
	viper.SetDefault("server.shutdown_timeout", "15s")

	// AI
	viper.SetDefault("ai.provider", config.ProviderOpenAI)
	viper.SetDefault("ai.api_key", "")
	viper.SetDefault("ai.base_url", "https://api.deepseek.com/v1")
	viper.SetDefault("ai.model", "deepseek-chat")
	viper.SetDefault("ai.timeout", "300s")
	viper.SetDefault("ai.options.temperature", 0.3)
	viper.SetDefault("ai.options.max_tokens", 8192)
	viper.SetDefault("ai.options.top_p", 0)

	// Translate
	viper.SetDefault("translate.default_source_lang", "auto")
	viper.SetDefault("translate.default_target_lang", "en")
	viper.SetDefault("translate.system_prompt", ai.DefaultSystemPrompt)

	// Persistence
	viper.SetDefault("persistence.sink", config.SinkHTTP)
	viper.SetDefault("persistence.url", "http://localhost:8080/api/translations")
	viper.SetDefault("persistence.timeout", "5s")
	viper.SetDefault("persistence.backup_dir", "translation_backups")
	viper.SetDefault("persistence.workers", 4)
	viper.SetDefault("persistence.queue_size", 256)
	viper.SetDefault("persistence.breaker.enabled", true)
	viper.SetDefault("persistence.breaker.failure_threshold", 5)
	viper.SetDefault("persistence.breaker.open_timeout", "30s")

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// MongoDB (uri 为空时不启用)
	viper.SetDefault("mongo.uri", "")
	viper.SetDefault("mongo.database", "transgate")
	viper.SetDefault("mongo.max_pool_size", 100)
	viper.SetDefault("mongo.min_pool_size", 10)
	viper.SetDefault("mongo.connect_timeout", "10s")

	// Redis (addr 为空时不启用)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.db", 0)
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
