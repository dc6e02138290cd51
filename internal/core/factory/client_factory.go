package factory

import (
	"fmt"

	"padscan/internal/config"
	"padscan/internal/core/lib/network/dialer"
	"padscan/internal/pkg/client"
)

// NewClient 按配置创建目标 HTTP 客户端
// 每个目标单独创建，cookie jar 不在目标之间共享
func NewClient(cfg config.HTTPConfig) (*client.Client, error) {
	d, err := dialer.New(cfg.Proxy, cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("create dialer: %w", err)
	}
	return client.New(client.Options{
		Timeout:        cfg.Timeout,
		ConnectTimeout: cfg.ConnectTimeout,
		Insecure:       cfg.Insecure,
		UserAgent:      cfg.UserAgent,
		Dialer:         d,
	})
}
