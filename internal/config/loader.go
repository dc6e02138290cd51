package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ConfigLoader 配置加载器
type ConfigLoader struct {
	configFile string
	envPrefix  string
	viper      *viper.Viper
}

// NewConfigLoader configFile 为空时在 ./configs 与当前目录查找 padscan.yaml，找不到则只用默认值
func NewConfigLoader(configFile, envPrefix string) *ConfigLoader {
	if envPrefix == "" {
		envPrefix = "PADSCAN"
	}
	return &ConfigLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
		viper:      viper.New(),
	}
}

// Viper 暴露给命令行做 flag 绑定
func (cl *ConfigLoader) Viper() *viper.Viper {
	return cl.viper
}

// LoadConfig 加载配置
func (cl *ConfigLoader) LoadConfig() (*Config, error) {
	cl.viper.SetConfigType("yaml")

	cl.viper.SetEnvPrefix(cl.envPrefix)
	cl.viper.AutomaticEnv()
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cl.bindEnvVars()

	cl.setDefaults()

	if err := cl.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	var config Config
	if err := cl.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(config.Admin.Credentials) == 0 {
		config.Admin.Credentials = DefaultCredentials()
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// loadConfigFile 显式指定的文件必须存在，自动查找时允许缺失
func (cl *ConfigLoader) loadConfigFile() error {
	if cl.configFile == "" {
		cl.configFile = os.Getenv(cl.envPrefix + "_CONFIG")
	}

	if cl.configFile != "" {
		cl.viper.SetConfigFile(cl.configFile)
		return cl.viper.ReadInConfig()
	}

	cl.viper.SetConfigName("padscan")
	cl.viper.AddConfigPath("./configs")
	cl.viper.AddConfigPath(".")
	if err := cl.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// bindEnvVars 常用的无前缀变量
func (cl *ConfigLoader) bindEnvVars() {
	cl.viper.BindEnv("revision.github.token", "PADSCAN_GITHUB_TOKEN", "GITHUB_TOKEN")
	cl.viper.BindEnv("revision.redis.addr", "PADSCAN_REDIS_ADDR")
	cl.viper.BindEnv("revision.redis.password", "PADSCAN_REDIS_PASSWORD")
	cl.viper.BindEnv("http.proxy", "PADSCAN_PROXY")
	cl.viper.BindEnv("log.level", "PADSCAN_LOG_LEVEL")
}

// setDefaults 设置默认值
func (cl *ConfigLoader) setDefaults() {
	cl.viper.SetDefault("app.name", "padscan")
	cl.viper.SetDefault("app.environment", "production")

	cl.viper.SetDefault("log.level", "fatal")
	cl.viper.SetDefault("log.format", "text")
	cl.viper.SetDefault("log.output", "stderr")
	cl.viper.SetDefault("log.file_path", "./logs/padscan.log")
	cl.viper.SetDefault("log.max_size", 100)
	cl.viper.SetDefault("log.max_backups", 3)
	cl.viper.SetDefault("log.max_age", 28)
	cl.viper.SetDefault("log.compress", true)
	cl.viper.SetDefault("log.caller", false)

	cl.viper.SetDefault("http.timeout", "2s")
	cl.viper.SetDefault("http.connect_timeout", "2s")
	cl.viper.SetDefault("http.insecure", true)
	cl.viper.SetDefault("http.user_agent", "")
	cl.viper.SetDefault("http.proxy", "")

	cl.viper.SetDefault("handshake.wait", "2s")
	cl.viper.SetDefault("handshake.poll_interval", "100ms")
	cl.viper.SetDefault("handshake.transport", "polling")
	cl.viper.SetDefault("handshake.token", "t.vbWE289T3YggPgRVvvuP")

	cl.viper.SetDefault("admin.enabled", true)
	cl.viper.SetDefault("admin.strategy", "status")

	cl.viper.SetDefault("revision.store", "file")
	cl.viper.SetDefault("revision.file_path", "./data/revision_lookup.json")
	cl.viper.SetDefault("revision.redis.addr", "127.0.0.1:6379")
	cl.viper.SetDefault("revision.redis.password", "")
	cl.viper.SetDefault("revision.redis.db", 0)
	cl.viper.SetDefault("revision.redis.key", "padscan:revisions")
	cl.viper.SetDefault("revision.github.api_url", "https://api.github.com")
	cl.viper.SetDefault("revision.github.repo", "ether/etherpad-lite")
	cl.viper.SetDefault("revision.github.token", "")
	cl.viper.SetDefault("revision.github.timeout", "10s")
	cl.viper.SetDefault("revision.github.offline", false)

	cl.viper.SetDefault("fingerprint.tables_path", "")
	cl.viper.SetDefault("fingerprint.watch", false)

	cl.viper.SetDefault("scan.concurrency", 1)
	cl.viper.SetDefault("scan.max_concurrency", 16)
	cl.viper.SetDefault("scan.target_timeout", "60s")
	cl.viper.SetDefault("scan.socketio_major", 0)
}

// Validate 校验配置取值
func Validate(config *Config) error {
	if config.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if config.HTTP.ConnectTimeout <= 0 {
		return fmt.Errorf("http.connect_timeout must be positive")
	}
	if config.Handshake.Wait <= 0 || config.Handshake.PollInterval <= 0 {
		return fmt.Errorf("handshake.wait and handshake.poll_interval must be positive")
	}

	switch config.Handshake.Transport {
	case "polling", "websocket", "auto":
	default:
		return fmt.Errorf("invalid handshake.transport: %s (allowed: polling, websocket, auto)", config.Handshake.Transport)
	}

	switch config.Admin.Strategy {
	case "status", "redirect-post":
	default:
		return fmt.Errorf("invalid admin.strategy: %s (allowed: status, redirect-post)", config.Admin.Strategy)
	}

	switch config.Revision.Store {
	case "file":
		if config.Revision.FilePath == "" {
			return fmt.Errorf("revision.file_path is required for file store")
		}
	case "redis":
		if config.Revision.Redis.Addr == "" {
			return fmt.Errorf("revision.redis.addr is required for redis store")
		}
	case "none":
	default:
		return fmt.Errorf("invalid revision.store: %s (allowed: file, redis, none)", config.Revision.Store)
	}

	if config.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be at least 1")
	}
	if config.Scan.MaxConcurrency < config.Scan.Concurrency {
		config.Scan.MaxConcurrency = config.Scan.Concurrency
	}
	switch config.Scan.SocketIOMajor {
	case 0, 1, 2, 3, 4:
	default:
		return fmt.Errorf("invalid scan.socketio_major: %d (allowed: 1-4)", config.Scan.SocketIOMajor)
	}
	return nil
}

// GetConfigPath 实际使用的配置文件
func (cl *ConfigLoader) GetConfigPath() string {
	return cl.viper.ConfigFileUsed()
}

// LoadConfigFromFile 从指定文件加载配置
func LoadConfigFromFile(configFile string) (*Config, error) {
	return NewConfigLoader(configFile, "PADSCAN").LoadConfig()
}
