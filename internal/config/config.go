/**
 * padscan 配置
 * @description: 扫描器全部可调参数，来源优先级: 命令行 > 环境变量(PADSCAN_) > 配置文件 > 默认值
 */
package config

import "time"

// Config 根配置
type Config struct {
	App         AppConfig         `yaml:"app" mapstructure:"app"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Handshake   HandshakeConfig   `yaml:"handshake" mapstructure:"handshake"`
	Admin       AdminConfig       `yaml:"admin" mapstructure:"admin"`
	Revision    RevisionConfig    `yaml:"revision" mapstructure:"revision"`
	Fingerprint FingerprintConfig `yaml:"fingerprint" mapstructure:"fingerprint"`
	Scan        ScanConfig        `yaml:"scan" mapstructure:"scan"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`             // 日志级别 (debug/info/warn/error)
	Format     string `yaml:"format" mapstructure:"format"`           // 日志格式 (json/text)
	Output     string `yaml:"output" mapstructure:"output"`           // 日志输出 (stdout/stderr/file)
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`     // 日志文件路径
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // 最大文件大小（MB）
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // 最大备份数
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // 最大保留天数
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // 是否压缩
	Caller     bool   `yaml:"caller" mapstructure:"caller"`           // 是否显示调用者信息
}

// HTTPConfig 目标请求配置
type HTTPConfig struct {
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"` // 跳过证书校验
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent"`
	Proxy          string        `yaml:"proxy" mapstructure:"proxy"` // socks5://host:port
}

// HandshakeConfig socket.io 握手配置
type HandshakeConfig struct {
	Wait         time.Duration `yaml:"wait" mapstructure:"wait"`                   // 等待 CLIENT_VARS 的总时长
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"` // 轮询间隔
	Transport    string        `yaml:"transport" mapstructure:"transport"`         // polling/websocket/auto
	Token        string        `yaml:"token" mapstructure:"token"`                 // CLIENT_READY 携带的 token
}

// AdminConfig 管理后台默认凭据检测
type AdminConfig struct {
	Enabled     bool               `yaml:"enabled" mapstructure:"enabled"`
	Strategy    string             `yaml:"strategy" mapstructure:"strategy"` // status/redirect-post
	Credentials []CredentialConfig `yaml:"credentials" mapstructure:"credentials"`
}

// CredentialConfig 一组用户名密码
type CredentialConfig struct {
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
}

// RevisionConfig git revision 解析
type RevisionConfig struct {
	Store    string       `yaml:"store" mapstructure:"store"` // file/redis/none
	FilePath string       `yaml:"file_path" mapstructure:"file_path"`
	Redis    RedisConfig  `yaml:"redis" mapstructure:"redis"`
	GitHub   GitHubConfig `yaml:"github" mapstructure:"github"`
}

// RedisConfig 共享 revision 表
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Key      string `yaml:"key" mapstructure:"key"`
}

// GitHubConfig 提交信息查询
type GitHubConfig struct {
	APIURL  string        `yaml:"api_url" mapstructure:"api_url"`
	Repo    string        `yaml:"repo" mapstructure:"repo"`
	Token   string        `yaml:"token" mapstructure:"token"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Offline bool          `yaml:"offline" mapstructure:"offline"` // 只查本地表
}

// FingerprintConfig 版本指纹数据
type FingerprintConfig struct {
	TablesPath string `yaml:"tables_path" mapstructure:"tables_path"` // 为空使用内置数据
	Watch      bool   `yaml:"watch" mapstructure:"watch"`             // 文件变化时热加载
}

// ScanConfig 批量扫描
type ScanConfig struct {
	Concurrency    int           `yaml:"concurrency" mapstructure:"concurrency"`
	MaxConcurrency int           `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	TargetTimeout  time.Duration `yaml:"target_timeout" mapstructure:"target_timeout"`
	SocketIOMajor  int           `yaml:"socketio_major" mapstructure:"socketio_major"` // 0 表示自动选择
}

// DefaultCredentials 常见的默认管理员凭据
func DefaultCredentials() []CredentialConfig {
	return []CredentialConfig{
		{User: "admin", Password: "admin"},
		{User: "admin", Password: "changeme1"},
		{User: "user", Password: "changeme1"},
	}
}
