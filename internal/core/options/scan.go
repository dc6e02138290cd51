package options

import (
	"fmt"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"

	"padscan/internal/config"
)

// ScanOptions 定义 scan 命令的参数
type ScanOptions struct {
	Targets    []string // 位置参数
	TargetFile string   // -f, --file

	Expect        string        // --expect，版本结论不包含该版本时以非零状态退出
	Transport     string        // --transport: polling/websocket/auto
	SocketIOMajor int           // --socketio-major: 1-4，0 表示自动
	Concurrency   int           // -c, --concurrency
	Timeout       time.Duration // --timeout 单个请求超时
	Wait          time.Duration // --wait 等待 CLIENT_VARS
	NoAdmin       bool          // --no-admin
	AdminStrategy string        // --admin-strategy: status/redirect-post
	Credentials   []string      // --cred user:pass，可重复
	Insecure      bool          // --insecure
	InsecureSet   bool          // 是否显式给出 --insecure

	Proxy  ProxyOptions
	Output OutputOptions
}

func NewScanOptions() *ScanOptions {
	return &ScanOptions{}
}

// Inputs 全部目标输入，交给 pipeline.GenerateTargets 展开
func (o *ScanOptions) Inputs() []string {
	inputs := append([]string(nil), o.Targets...)
	if o.TargetFile != "" {
		inputs = append(inputs, o.TargetFile)
	}
	return inputs
}

func (o *ScanOptions) Validate() error {
	if len(o.Targets) == 0 && o.TargetFile == "" {
		return fmt.Errorf("target is required")
	}
	if o.Expect != "" {
		if _, err := goversion.NewVersion(o.Expect); err != nil {
			return fmt.Errorf("invalid expected version %q: %v", o.Expect, err)
		}
	}
	switch o.Transport {
	case "", "polling", "websocket", "auto":
	default:
		return fmt.Errorf("invalid transport: %s (allowed: polling, websocket, auto)", o.Transport)
	}
	if o.SocketIOMajor < 0 || o.SocketIOMajor > 4 {
		return fmt.Errorf("invalid socket.io major: %d (allowed: 1-4)", o.SocketIOMajor)
	}
	if o.Concurrency < 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if o.Timeout < 0 || o.Wait < 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	switch o.AdminStrategy {
	case "", "status", "redirect-post":
	default:
		return fmt.Errorf("invalid admin strategy: %s (allowed: status, redirect-post)", o.AdminStrategy)
	}
	for _, cred := range o.Credentials {
		if !strings.Contains(cred, ":") {
			return fmt.Errorf("invalid credential %q, expected user:pass", cred)
		}
	}
	if err := o.Proxy.Validate(); err != nil {
		return err
	}
	return o.Output.Validate()
}

func (o *ScanOptions) ApplyTo(cfg *config.Config) {
	if o.Transport != "" {
		cfg.Handshake.Transport = o.Transport
	}
	if o.SocketIOMajor > 0 {
		cfg.Scan.SocketIOMajor = o.SocketIOMajor
	}
	if o.Concurrency > 0 {
		cfg.Scan.Concurrency = o.Concurrency
	}
	if o.Timeout > 0 {
		cfg.HTTP.Timeout = o.Timeout
		cfg.HTTP.ConnectTimeout = o.Timeout
	}
	if o.Wait > 0 {
		cfg.Handshake.Wait = o.Wait
	}
	if o.NoAdmin {
		cfg.Admin.Enabled = false
	}
	if o.AdminStrategy != "" {
		cfg.Admin.Strategy = o.AdminStrategy
	}
	if len(o.Credentials) > 0 {
		creds := make([]config.CredentialConfig, 0, len(o.Credentials))
		for _, c := range o.Credentials {
			user, pass, _ := strings.Cut(c, ":")
			creds = append(creds, config.CredentialConfig{User: user, Password: pass})
		}
		cfg.Admin.Credentials = creds
	}
	if o.InsecureSet {
		cfg.HTTP.Insecure = o.Insecure
	}
	if o.Proxy.Proxy != "" {
		cfg.HTTP.Proxy = o.Proxy.Proxy
	}
}
